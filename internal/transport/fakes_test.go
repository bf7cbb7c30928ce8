package transport

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"catalog-admin/internal/domain"
	"catalog-admin/internal/repository"
	"catalog-admin/internal/service"
	"catalog-admin/internal/storage"

	"github.com/google/uuid"
)

// fakeCategoryService is an in-memory CategoryService.
type fakeCategoryService struct {
	mu         sync.Mutex
	categories []*domain.Category
	inUse      map[uuid.UUID]bool
}

func newFakeCategoryService() *fakeCategoryService {
	return &fakeCategoryService{inUse: map[uuid.UUID]bool{}}
}

func (f *fakeCategoryService) ListCategories(ctx context.Context, page domain.PageRequest) (*domain.Page[*domain.Category], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := min(page.Offset(), len(f.categories))
	end := min(start+page.Limit, len(f.categories))
	return domain.NewPage(f.categories[start:end], len(f.categories), page), nil
}

func (f *fakeCategoryService) find(id uuid.UUID) (int, *domain.Category) {
	for i, c := range f.categories {
		if c.ID == id {
			return i, c
		}
	}
	return -1, nil
}

func (f *fakeCategoryService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, c := f.find(id); c != nil {
		return c, nil
	}
	return nil, repository.ErrCategoryNotFound
}

func (f *fakeCategoryService) CreateCategory(ctx context.Context, input service.CategoryInput) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.categories {
		if c.Name == input.Name {
			return nil, repository.ErrCategoryAlreadyExists
		}
	}
	c := &domain.Category{ID: uuid.New(), Name: input.Name, Description: input.Description, ImageURL: input.ImageURL, IsActive: true}
	if input.IsActive != nil {
		c.IsActive = *input.IsActive
	}
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeCategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, update domain.CategoryUpdate) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, c := f.find(id)
	if c == nil {
		return nil, repository.ErrCategoryNotFound
	}
	update.Apply(c)
	return c, nil
}

func (f *fakeCategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, c := f.find(id)
	if c == nil {
		return repository.ErrCategoryNotFound
	}
	if f.inUse[id] {
		return repository.ErrCategoryInUse
	}
	f.categories = append(f.categories[:i], f.categories[i+1:]...)
	return nil
}

// fakeProductService is an in-memory ProductService.
type fakeProductService struct {
	mu         sync.Mutex
	products   map[uuid.UUID]*domain.Product
	categories map[uuid.UUID]*domain.Category
	lastQuery  service.ProductQuery
	failWith   error
}

func newFakeProductService(categories ...*domain.Category) *fakeProductService {
	f := &fakeProductService{
		products:   map[uuid.UUID]*domain.Product{},
		categories: map[uuid.UUID]*domain.Category{},
	}
	for _, c := range categories {
		f.categories[c.ID] = c
	}
	return f
}

func (f *fakeProductService) sorted(keep func(*domain.Product) bool) []*domain.Product {
	out := []*domain.Product{}
	for _, p := range f.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeProductService) ListProducts(ctx context.Context, query service.ProductQuery) (*domain.Page[*domain.Product], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = query

	if f.failWith != nil {
		return nil, f.failWith
	}

	page := domain.NewPageRequest(query.Page, query.Limit)
	matches := f.sorted(func(p *domain.Product) bool {
		if query.CategoryID != nil && p.CategoryID != *query.CategoryID {
			return false
		}
		if query.LowStock && p.StockQuantity >= domain.DefaultLowStockThreshold {
			return false
		}
		return strings.Contains(strings.ToLower(p.Name), strings.ToLower(query.Search))
	})
	start := min(page.Offset(), len(matches))
	end := min(start+page.Limit, len(matches))
	return domain.NewPage(matches[start:end], len(matches), page), nil
}

func (f *fakeProductService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, repository.ErrProductNotFound
}

func (f *fakeProductService) CreateProduct(ctx context.Context, input service.ProductInput) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	category, ok := f.categories[input.CategoryID]
	if !ok {
		return nil, repository.ErrUnknownCategory
	}
	for _, p := range f.products {
		if p.SKU == input.SKU {
			return nil, repository.ErrSKUAlreadyExists
		}
	}

	p := &domain.Product{
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
		Category:             category,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductService) UpdateProduct(ctx context.Context, id uuid.UUID, update domain.ProductUpdate) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if update.ChangesSKU(p.SKU) {
		for otherID, other := range f.products {
			if otherID != id && other.SKU == *update.SKU {
				return nil, repository.ErrSKUAlreadyExists
			}
		}
	}
	update.Apply(p)
	return p, nil
}

func (f *fakeProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProductService) GetLowStockProducts(ctx context.Context) ([]*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sorted(func(p *domain.Product) bool { return p.StockQuantity < domain.DefaultLowStockThreshold }), nil
}

func (f *fakeProductService) GetInventoryHistory(ctx context.Context, id uuid.UUID) ([]*domain.StockMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return []*domain.StockMovement{domain.NewStockMovement(id, 0, p.StockQuantity, domain.MovementInitial)}, nil
}

// fakeUploader keeps uploads in memory.
type fakeUploader struct {
	mu       sync.Mutex
	maxBytes int64
	files    map[string][]byte
	counter  int
}

func newFakeUploader(maxBytes int64) *fakeUploader {
	return &fakeUploader{maxBytes: maxBytes, files: map[string][]byte{}}
}

func (f *fakeUploader) Upload(ctx context.Context, originalName string, r io.Reader) (*storage.Object, error) {
	if !storage.IsImageName(originalName) {
		return nil, storage.ErrUnsupportedType
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	name := strings.Repeat("x", f.counter) + ".png"
	f.files[name] = data

	return &storage.Object{Filename: name, URL: "http://cdn.test/" + name, Size: int64(len(data)), MimeType: "image/png"}, nil
}

func (f *fakeUploader) Remove(ctx context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.files[filename]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(f.files, filename)
	return nil
}

func (f *fakeUploader) MaxBytes() int64 {
	return f.maxBytes
}
