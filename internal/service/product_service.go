package service

import (
	"context"
	"fmt"
	"strings"

	"catalog-admin/internal/domain"
	"catalog-admin/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductQuery describes one product listing request.
type ProductQuery struct {
	Page       int
	Limit      int
	CategoryID *uuid.UUID
	Search     string
	LowStock   bool
}

// cacheKey renders the normalized query so equivalent requests share a key.
func (q ProductQuery) cacheKey(page domain.PageRequest) string {
	category := ""
	if q.CategoryID != nil {
		category = q.CategoryID.String()
	}
	return fmt.Sprintf("page=%d|limit=%d|category=%s|search=%s|low=%t",
		page.Page, page.Limit, category, strings.ToLower(strings.TrimSpace(q.Search)), q.LowStock)
}

// ProductInput carries the fields of a new product.
type ProductInput struct {
	Name                 string
	Description          string
	BasePrice            decimal.Decimal
	SKU                  string
	StockQuantity        int
	MinStockLevel        int
	IsCustomizable       *bool
	CustomizationOptions *domain.CustomizationOptions
	IsActive             *bool
	Tags                 []string
	CategoryID           uuid.UUID
}

// ProductService defines the interface for product business logic
type ProductService interface {
	ListProducts(ctx context.Context, query ProductQuery) (*domain.Page[*domain.Product], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, update domain.ProductUpdate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetLowStockProducts(ctx context.Context) ([]*domain.Product, error)
	GetInventoryHistory(ctx context.Context, id uuid.UUID) ([]*domain.StockMovement, error)
}

type productService struct {
	products          repository.ProductRepository
	cache             ProductListCache
	lowStockThreshold int
	logger            *zap.Logger
}

// NewProductService creates a new instance of ProductService. A threshold
// below 1 falls back to domain.DefaultLowStockThreshold.
func NewProductService(products repository.ProductRepository, cache ProductListCache, lowStockThreshold int, logger *zap.Logger) ProductService {
	if cache == nil {
		cache = NoopCache()
	}
	if lowStockThreshold < 1 {
		lowStockThreshold = domain.DefaultLowStockThreshold
	}
	return &productService{
		products:          products,
		cache:             cache,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

// ListProducts returns one page of products matching every supplied filter,
// ordered by name.
func (s *productService) ListProducts(ctx context.Context, query ProductQuery) (*domain.Page[*domain.Product], error) {
	page := domain.NewPageRequest(query.Page, query.Limit)
	key := s.cache.ProductPageKey(ctx, query.cacheKey(page))

	if cached, ok := s.cache.GetProductPage(ctx, key); ok {
		return cached, nil
	}

	filter := domain.ProductFilter{
		CategoryID: query.CategoryID,
		Search:     query.Search,
	}
	if query.LowStock {
		filter.StockBelow = s.lowStockThreshold
	}

	products, total, err := s.products.List(ctx, filter, page)
	if err != nil {
		return nil, classify(s.logger, "list_products", uuid.Nil, err)
	}

	result := domain.NewPage(products, total, page)
	s.cache.SetProductPage(ctx, key, result)

	return result, nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, classify(s.logger, "get_product", id, err)
	}
	return product, nil
}

// CreateProduct rejects a SKU that is already taken, then persists the
// product. A concurrent create that wins the race still surfaces as a
// conflict from the store.
func (s *productService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	taken, err := s.products.ExistsBySKU(ctx, input.SKU)
	if err != nil {
		return nil, classify(s.logger, "create_product", uuid.Nil, err)
	}
	if taken {
		return nil, repository.ErrSKUAlreadyExists
	}

	product := &domain.Product{
		ID:                   uuid.New(),
		Name:                 input.Name,
		Description:          input.Description,
		BasePrice:            input.BasePrice,
		SKU:                  input.SKU,
		StockQuantity:        input.StockQuantity,
		MinStockLevel:        input.MinStockLevel,
		IsCustomizable:       true,
		CustomizationOptions: input.CustomizationOptions,
		IsActive:             true,
		Tags:                 input.Tags,
		CategoryID:           input.CategoryID,
	}
	if input.IsCustomizable != nil {
		product.IsCustomizable = *input.IsCustomizable
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, classify(s.logger, "create_product", product.ID, err)
	}
	s.cache.InvalidateProducts(ctx)

	// return the read model with the category embedded
	created, err := s.products.FindByID(ctx, product.ID)
	if err != nil {
		return nil, classify(s.logger, "create_product", product.ID, err)
	}
	return created, nil
}

// UpdateProduct merges the supplied fields into the stored product. Setting
// the SKU to its current value is allowed.
func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, update domain.ProductUpdate) (*domain.Product, error) {
	product, err := s.products.Update(ctx, id, func(p *domain.Product) error {
		update.Apply(p)
		return nil
	})
	if err != nil {
		return nil, classify(s.logger, "update_product", id, err)
	}
	s.cache.InvalidateProducts(ctx)

	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return classify(s.logger, "delete_product", id, err)
	}
	s.cache.InvalidateProducts(ctx)
	return nil
}

// GetLowStockProducts returns every product below the configured threshold.
func (s *productService) GetLowStockProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.products.ListLowStock(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, classify(s.logger, "low_stock_products", uuid.Nil, err)
	}
	return products, nil
}

// GetInventoryHistory returns the stock movements of a product, newest first.
func (s *productService) GetInventoryHistory(ctx context.Context, id uuid.UUID) ([]*domain.StockMovement, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, classify(s.logger, "inventory_history", id, err)
	}

	movements, err := s.products.ListMovements(ctx, id)
	if err != nil {
		return nil, classify(s.logger, "inventory_history", id, err)
	}
	return movements, nil
}
