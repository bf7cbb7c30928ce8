package service

import (
	"context"

	"catalog-admin/internal/domain"
	"catalog-admin/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryInput carries the fields of a new category.
type CategoryInput struct {
	Name        string
	Description *string
	ImageURL    *string
	IsActive    *bool
}

// CategoryService defines the interface for category business logic
type CategoryService interface {
	ListCategories(ctx context.Context, page domain.PageRequest) (*domain.Page[*domain.Category], error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	categories repository.CategoryRepository
	cache      ProductListCache
	logger     *zap.Logger
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categories repository.CategoryRepository, cache ProductListCache, logger *zap.Logger) CategoryService {
	if cache == nil {
		cache = NoopCache()
	}
	return &categoryService{
		categories: categories,
		cache:      cache,
		logger:     logger,
	}
}

func (s *categoryService) ListCategories(ctx context.Context, page domain.PageRequest) (*domain.Page[*domain.Category], error) {
	page = domain.NewPageRequest(page.Page, page.Limit)

	categories, total, err := s.categories.List(ctx, page)
	if err != nil {
		return nil, classify(s.logger, "list_categories", uuid.Nil, err)
	}

	return domain.NewPage(categories, total, page), nil
}

func (s *categoryService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, classify(s.logger, "get_category", id, err)
	}
	return category, nil
}

// CreateCategory persists a new category. Name uniqueness is left to the
// store.
func (s *categoryService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, classify(s.logger, "create_category", category.ID, err)
	}

	return category, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error) {
	category, err := s.categories.Update(ctx, id, func(c *domain.Category) error {
		update.Apply(c)
		return nil
	})
	if err != nil {
		return nil, classify(s.logger, "update_category", id, err)
	}

	// product pages embed their category
	s.cache.InvalidateProducts(ctx)

	return category, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return classify(s.logger, "delete_category", id, err)
	}
	return nil
}
