package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"catalog-admin/internal/domain"
	"catalog-admin/internal/repository"

	"github.com/google/uuid"
)

// Mock repositories for testing
type mockCategoryRepository struct {
	mu         sync.Mutex
	categories map[uuid.UUID]*domain.Category
	order      []uuid.UUID
	inUse      map[uuid.UUID]bool
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{
		categories: make(map[uuid.UUID]*domain.Category),
		inUse:      make(map[uuid.UUID]bool),
	}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.categories {
		if existing.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	stored := *category
	m.categories[category.ID] = &stored
	m.order = append(m.order, category.ID)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.Category, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*domain.Category{}
	for i := page.Offset(); i < len(m.order) && len(result) < page.Limit; i++ {
		c := *m.categories[m.order[i]]
		result = append(result, &c)
	}
	return result, len(m.order), nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	category, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	c := *category
	return &c, nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Category) error) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	c := *stored
	if err := mutate(&c); err != nil {
		return nil, err
	}
	for otherID, other := range m.categories {
		if otherID != id && other.Name == c.Name {
			return nil, repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[id] = &c
	result := c
	return &result, nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	if m.inUse[id] {
		return repository.ErrCategoryInUse
	}
	delete(m.categories, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

type mockProductRepository struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*domain.Product
	movements map[uuid.UUID][]*domain.StockMovement
	listCalls int
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products:  make(map[uuid.UUID]*domain.Product),
		movements: make(map[uuid.UUID][]*domain.StockMovement),
	}
}

func clonedProduct(p *domain.Product) *domain.Product {
	c := *p
	c.Tags = append([]string{}, p.Tags...)
	return &c
}

func (m *mockProductRepository) skuTaken(sku string, except uuid.UUID) bool {
	for id, p := range m.products {
		if id != except && p.SKU == sku {
			return true
		}
	}
	return false
}

func (m *mockProductRepository) record(id uuid.UUID, before, after int, reason domain.MovementReason) {
	movement := domain.NewStockMovement(id, before, after, reason)
	m.movements[id] = append([]*domain.StockMovement{movement}, m.movements[id]...)
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.skuTaken(product.SKU, uuid.Nil) {
		return repository.ErrSKUAlreadyExists
	}
	m.products[product.ID] = clonedProduct(product)
	m.record(product.ID, 0, product.StockQuantity, domain.MovementInitial)
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Product) error) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p := clonedProduct(stored)
	if err := mutate(p); err != nil {
		return nil, err
	}
	if p.SKU != stored.SKU && m.skuTaken(p.SKU, id) {
		return nil, repository.ErrSKUAlreadyExists
	}
	if p.StockQuantity != stored.StockQuantity {
		m.record(id, stored.StockQuantity, p.StockQuantity, domain.MovementAdjustment)
	}
	m.products[id] = clonedProduct(p)
	return p, nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	delete(m.movements, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return clonedProduct(p), nil
}

func (m *mockProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.skuTaken(sku, uuid.Nil), nil
}

func (m *mockProductRepository) sorted(keep func(*domain.Product) bool) []*domain.Product {
	result := []*domain.Product{}
	for _, p := range m.products {
		if keep(p) {
			result = append(result, clonedProduct(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matches := m.sorted(func(p *domain.Product) bool {
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			return false
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			return false
		}
		if filter.StockBelow > 0 && p.StockQuantity >= filter.StockBelow {
			return false
		}
		return true
	})

	start := min(page.Offset(), len(matches))
	end := min(start+page.Limit, len(matches))
	return matches[start:end], len(matches), nil
}

func (m *mockProductRepository) ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sorted(func(p *domain.Product) bool { return p.StockQuantity < threshold }), nil
}

func (m *mockProductRepository) ListMovements(ctx context.Context, productID uuid.UUID) ([]*domain.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*domain.StockMovement{}, m.movements[productID]...), nil
}

// failingProductRepository simulates an unavailable store.
type failingProductRepository struct {
	mockProductRepository
}

var errStoreDown = errors.New("connection refused")

func (f *failingProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return nil, errStoreDown
}

func (f *failingProductRepository) List(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) ([]*domain.Product, int, error) {
	return nil, 0, errStoreDown
}

// interleavingProductRepository runs during between reading a list and
// returning it, standing in for a write committed concurrently.
type interleavingProductRepository struct {
	*mockProductRepository
	during func()
}

func (r *interleavingProductRepository) List(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) ([]*domain.Product, int, error) {
	products, total, err := r.mockProductRepository.List(ctx, filter, page)
	if r.during != nil {
		r.during()
		r.during = nil
	}
	return products, total, err
}

// recordingCache is an in-memory ProductListCache with generations.
type recordingCache struct {
	mu            sync.Mutex
	pages         map[string]*domain.Page[*domain.Product]
	generation    int
	invalidations int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{pages: make(map[string]*domain.Page[*domain.Product])}
}

func (c *recordingCache) ProductPageKey(ctx context.Context, query string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%d|%s", c.generation, query)
}

func (c *recordingCache) GetProductPage(ctx context.Context, key string) (*domain.Page[*domain.Product], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	page, ok := c.pages[key]
	return page, ok
}

func (c *recordingCache) SetProductPage(ctx context.Context, key string, page *domain.Page[*domain.Product]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = page
}

func (c *recordingCache) InvalidateProducts(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidations++
}
