package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is the stock level below which a product is
// reported as low on stock.
const DefaultLowStockThreshold = 5

// Product represents a product in the catalog
type Product struct {
	ID                   uuid.UUID             `json:"id" db:"id"`
	Name                 string                `json:"name" db:"name"`
	Description          string                `json:"description" db:"description"`
	BasePrice            decimal.Decimal       `json:"basePrice" db:"base_price"`
	SKU                  string                `json:"sku" db:"sku"`
	StockQuantity        int                   `json:"stockQuantity" db:"stock_quantity"`
	MinStockLevel        int                   `json:"minStockLevel" db:"min_stock_level"`
	IsCustomizable       bool                  `json:"isCustomizable" db:"is_customizable"`
	CustomizationOptions *CustomizationOptions `json:"customizationOptions" db:"customization_options"`
	IsActive             bool                  `json:"isActive" db:"is_active"`
	Tags                 []string              `json:"tags" db:"tags"`
	CategoryID           uuid.UUID             `json:"categoryId" db:"category_id"`
	Category             *Category             `json:"category,omitempty"`
	CreatedAt            time.Time             `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time             `json:"updatedAt" db:"updated_at"`
}

// FieldKind is the input type of an additional customization field.
type FieldKind string

const (
	FieldKindText   FieldKind = "text"
	FieldKindNumber FieldKind = "number"
	FieldKindSelect FieldKind = "select"
)

// AdditionalField describes an extra customer-facing input on a product.
type AdditionalField struct {
	Name    string    `json:"name"`
	Kind    FieldKind `json:"type"`
	Options []string  `json:"options,omitempty"`
}

// CustomizationOptions is stored as JSONB alongside the product.
type CustomizationOptions struct {
	AllowText        *bool             `json:"allowText,omitempty"`
	AllowImages      *bool             `json:"allowImages,omitempty"`
	AllowQuotes      *bool             `json:"allowQuotes,omitempty"`
	MaxImages        *int              `json:"maxImages,omitempty"`
	TextFields       []string          `json:"textFields,omitempty"`
	AdditionalFields []AdditionalField `json:"additionalFields,omitempty"`
}

// Value implements driver.Valuer.
func (o CustomizationOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

// Scan implements sql.Scanner.
func (o *CustomizationOptions) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = CustomizationOptions{}
		return nil
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return fmt.Errorf("cannot scan %T into CustomizationOptions", src)
	}
}

// IsLowStock reports whether the product is below the given threshold.
func (p *Product) IsLowStock(threshold int) bool {
	return p.StockQuantity < threshold
}

// ProductUpdate lists the fields of a product that may be changed. Nil
// fields are left untouched.
type ProductUpdate struct {
	Name                 *string
	Description          *string
	BasePrice            *decimal.Decimal
	SKU                  *string
	StockQuantity        *int
	MinStockLevel        *int
	IsCustomizable       *bool
	CustomizationOptions *CustomizationOptions
	IsActive             *bool
	Tags                 []string
	CategoryID           *uuid.UUID
}

// ChangesSKU reports whether the update sets a SKU different from current.
func (u ProductUpdate) ChangesSKU(current string) bool {
	return u.SKU != nil && *u.SKU != current
}

// Apply merges the supplied fields into p.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.BasePrice != nil {
		p.BasePrice = *u.BasePrice
	}
	if u.SKU != nil {
		p.SKU = *u.SKU
	}
	if u.StockQuantity != nil {
		p.StockQuantity = *u.StockQuantity
	}
	if u.MinStockLevel != nil {
		p.MinStockLevel = *u.MinStockLevel
	}
	if u.IsCustomizable != nil {
		p.IsCustomizable = *u.IsCustomizable
	}
	if u.CustomizationOptions != nil {
		p.CustomizationOptions = u.CustomizationOptions
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if u.Tags != nil {
		p.Tags = u.Tags
	}
	if u.CategoryID != nil {
		p.CategoryID = *u.CategoryID
		p.Category = nil
	}
}

// ProductFilter narrows a product listing. Zero values disable a filter.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
	// StockBelow keeps only products whose stock is strictly below it.
	StockBelow int
}

// MovementReason explains why a stock level changed.
type MovementReason string

const (
	MovementInitial    MovementReason = "initial"
	MovementAdjustment MovementReason = "adjustment"
)

// StockMovement records one change of a product's stock quantity.
type StockMovement struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	ProductID      uuid.UUID      `json:"productId" db:"product_id"`
	QuantityBefore int            `json:"quantityBefore" db:"quantity_before"`
	QuantityAfter  int            `json:"quantityAfter" db:"quantity_after"`
	QuantityChange int            `json:"quantityChange" db:"quantity_change"`
	Reason         MovementReason `json:"reason" db:"reason"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
}

// NewStockMovement builds a movement from before to after.
func NewStockMovement(productID uuid.UUID, before, after int, reason MovementReason) *StockMovement {
	return &StockMovement{
		ID:             uuid.New(),
		ProductID:      productID,
		QuantityBefore: before,
		QuantityAfter:  after,
		QuantityChange: after - before,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
}
