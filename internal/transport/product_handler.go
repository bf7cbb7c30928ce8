package transport

import (
	"fmt"
	"net/http"

	"catalog-admin/internal/domain"
	"catalog-admin/internal/middleware"
	"catalog-admin/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdditionalFieldRequest describes an extra customer-facing input
type AdditionalFieldRequest struct {
	Name    string   `json:"name" validate:"required,notblank"`
	Type    string   `json:"type" validate:"required,oneof=text number select"`
	Options []string `json:"options"`
}

// CustomizationOptionsRequest represents the customization payload of a product
type CustomizationOptionsRequest struct {
	AllowText        *bool                    `json:"allowText"`
	AllowImages      *bool                    `json:"allowImages"`
	AllowQuotes      *bool                    `json:"allowQuotes"`
	MaxImages        *int                     `json:"maxImages" validate:"omitempty,gte=0"`
	TextFields       []string                 `json:"textFields"`
	AdditionalFields []AdditionalFieldRequest `json:"additionalFields" validate:"omitempty,dive"`
}

func (req *CustomizationOptionsRequest) toDomain() *domain.CustomizationOptions {
	if req == nil {
		return nil
	}
	options := &domain.CustomizationOptions{
		AllowText:   req.AllowText,
		AllowImages: req.AllowImages,
		AllowQuotes: req.AllowQuotes,
		MaxImages:   req.MaxImages,
		TextFields:  req.TextFields,
	}
	for _, f := range req.AdditionalFields {
		options.AdditionalFields = append(options.AdditionalFields, domain.AdditionalField{
			Name:    f.Name,
			Kind:    domain.FieldKind(f.Type),
			Options: f.Options,
		})
	}
	return options
}

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name                 string                       `json:"name" validate:"required,notblank,max=255"`
	Description          string                       `json:"description" validate:"required,notblank"`
	BasePrice            *decimal.Decimal             `json:"basePrice" validate:"required,money"`
	SKU                  string                       `json:"sku" validate:"required,notblank,max=100"`
	StockQuantity        *int                         `json:"stockQuantity" validate:"required,gte=0,lte=2147483647"`
	MinStockLevel        int                          `json:"minStockLevel" validate:"gte=0,lte=2147483647"`
	IsCustomizable       *bool                        `json:"isCustomizable"`
	CustomizationOptions *CustomizationOptionsRequest `json:"customizationOptions"`
	IsActive             *bool                        `json:"isActive"`
	Tags                 []string                     `json:"tags" validate:"omitempty,dive,notblank"`
	CategoryID           string                       `json:"categoryId" validate:"required,uuid"`
}

// UpdateProductRequest represents the product update payload. Omitted fields
// are left unchanged.
type UpdateProductRequest struct {
	Name                 *string                      `json:"name" validate:"omitempty,notblank,max=255"`
	Description          *string                      `json:"description" validate:"omitempty,notblank"`
	BasePrice            *decimal.Decimal             `json:"basePrice" validate:"omitempty,money"`
	SKU                  *string                      `json:"sku" validate:"omitempty,notblank,max=100"`
	StockQuantity        *int                         `json:"stockQuantity" validate:"omitempty,gte=0,lte=2147483647"`
	MinStockLevel        *int                         `json:"minStockLevel" validate:"omitempty,gte=0,lte=2147483647"`
	IsCustomizable       *bool                        `json:"isCustomizable"`
	CustomizationOptions *CustomizationOptionsRequest `json:"customizationOptions"`
	IsActive             *bool                        `json:"isActive"`
	Tags                 []string                     `json:"tags" validate:"omitempty,dive,notblank"`
	CategoryID           *string                      `json:"categoryId" validate:"omitempty,uuid"`
}

func (req UpdateProductRequest) toUpdate() domain.ProductUpdate {
	update := domain.ProductUpdate{
		Name:                 req.Name,
		Description:          req.Description,
		BasePrice:            req.BasePrice,
		SKU:                  req.SKU,
		StockQuantity:        req.StockQuantity,
		MinStockLevel:        req.MinStockLevel,
		IsCustomizable:       req.IsCustomizable,
		CustomizationOptions: req.CustomizationOptions.toDomain(),
		IsActive:             req.IsActive,
		Tags:                 req.Tags,
	}
	if req.CategoryID != nil {
		id := uuid.MustParse(*req.CategoryID)
		update.CategoryID = &id
	}
	return update
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers the product routes on an /api/admin router
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/low-stock", h.GetLowStockProducts)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
		r.Get("/{id}/inventory-history", h.GetInventoryHistory)
	})
}

func productQuery(r *http.Request) (service.ProductQuery, error) {
	page, err := pageRequest(r)
	if err != nil {
		return service.ProductQuery{}, err
	}
	lowStock, err := queryBool(r, "lowStock")
	if err != nil {
		return service.ProductQuery{}, err
	}

	query := service.ProductQuery{
		Page:     page.Page,
		Limit:    page.Limit,
		Search:   r.URL.Query().Get("search"),
		LowStock: lowStock,
	}

	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return service.ProductQuery{}, fmt.Errorf("%w: category must be a valid id", domain.ErrInvalidInput)
		}
		query.CategoryID = &id
	}

	return query, nil
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query, err := productQuery(r)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	result, err := h.productService.ListProducts(r.Context(), query)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// GetProduct handles GET /products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), service.ProductInput{
		Name:                 req.Name,
		Description:          req.Description,
		BasePrice:            *req.BasePrice,
		SKU:                  req.SKU,
		StockQuantity:        *req.StockQuantity,
		MinStockLevel:        req.MinStockLevel,
		IsCustomizable:       req.IsCustomizable,
		CustomizationOptions: req.CustomizationOptions.toDomain(),
		IsActive:             req.IsActive,
		Tags:                 req.Tags,
		CategoryID:           uuid.MustParse(req.CategoryID),
	})
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), id, req.toUpdate())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	if err := h.productService.DeleteProduct(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// GetLowStockProducts handles GET /products/low-stock
func (h *ProductHandler) GetLowStockProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.GetLowStockProducts(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// GetInventoryHistory handles GET /products/{id}/inventory-history
func (h *ProductHandler) GetInventoryHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	movements, err := h.productService.GetInventoryHistory(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, movements)
}
