package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"catalog-admin/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProductService(repo *mockProductRepository) ProductService {
	return NewProductService(repo, nil, domain.DefaultLowStockThreshold, zap.NewNop())
}

func productInput(name, sku string, stock int, categoryID uuid.UUID) ProductInput {
	return ProductInput{
		Name:          name,
		Description:   "Test product description",
		BasePrice:     decimal.RequireFromString("12.50"),
		SKU:           sku,
		StockQuantity: stock,
		Tags:          []string{"test"},
		CategoryID:    categoryID,
	}
}

func TestProperty_ListRespectsWindowAndTotal(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a page holds at most limit products and total ignores the window", prop.ForAll(
		func(count, page, limit int) bool {
			repo := newMockProductRepository()
			svc := newTestProductService(repo)
			ctx := context.Background()
			categoryID := uuid.New()

			for i := 0; i < count; i++ {
				if _, err := svc.CreateProduct(ctx, productInput(fmt.Sprintf("Product %03d", i), fmt.Sprintf("SKU-%03d", i), i, categoryID)); err != nil {
					t.Logf("FAIL: create failed: %v", err)
					return false
				}
			}

			result, err := svc.ListProducts(ctx, ProductQuery{Page: page, Limit: limit})
			if err != nil {
				t.Logf("FAIL: list failed: %v", err)
				return false
			}

			effectiveLimit := max(1, limit)
			if len(result.Data) > effectiveLimit {
				t.Logf("FAIL: %d rows exceed limit %d", len(result.Data), effectiveLimit)
				return false
			}
			if result.Total != count {
				t.Logf("FAIL: total %d, expected %d", result.Total, count)
				return false
			}
			return result.Page >= 1 && result.Limit >= 1
		},
		gen.IntRange(0, 25),
		gen.IntRange(-3, 6),
		gen.IntRange(-3, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_PartialUpdateLeavesOtherFieldsUntouched(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("updating only the description changes nothing else", prop.ForAll(
		func(description string, stock int) bool {
			repo := newMockProductRepository()
			svc := newTestProductService(repo)
			ctx := context.Background()

			created, err := svc.CreateProduct(ctx, productInput("Lamp", "LAMP-1", stock, uuid.New()))
			if err != nil {
				return false
			}

			updated, err := svc.UpdateProduct(ctx, created.ID, domain.ProductUpdate{Description: &description})
			if err != nil {
				t.Logf("FAIL: update failed: %v", err)
				return false
			}

			return updated.Description == description &&
				updated.Name == created.Name &&
				updated.SKU == created.SKU &&
				updated.BasePrice.Equal(created.BasePrice) &&
				updated.StockQuantity == created.StockQuantity &&
				updated.CategoryID == created.CategoryID &&
				updated.IsActive == created.IsActive &&
				len(updated.Tags) == len(created.Tags)
		},
		gen.AlphaString(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any casing of a name fragment finds the product", prop.ForAll(
		func(prefix, fragment, suffix string, upper bool) bool {
			repo := newMockProductRepository()
			svc := newTestProductService(repo)
			ctx := context.Background()

			name := prefix + fragment + suffix
			if _, err := svc.CreateProduct(ctx, productInput(name, "SKU-1", 1, uuid.New())); err != nil {
				return false
			}

			term := fragment
			if upper {
				term = toUpperASCII(fragment)
			}

			result, err := svc.ListProducts(ctx, ProductQuery{Page: 1, Limit: 10, Search: term})
			if err != nil {
				return false
			}
			return result.Total == 1 && result.Data[0].Name == name
		},
		gen.AlphaString(),
		gen.RegexMatch(`[a-z]{1,8}`),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	repo := newMockProductRepository()
	svc := newTestProductService(repo)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, productInput("First", "DUP-1", 1, uuid.New()))
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, productInput("Second", "DUP-1", 1, uuid.New()))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestConcurrentCreateSameSKUYieldsOneConflict(t *testing.T) {
	repo := newMockProductRepository()
	svc := newTestProductService(repo)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateProduct(context.Background(), productInput("Racer", "RACE-1", 1, uuid.New()))
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else if errors.Is(err, domain.ErrConflict) {
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestUpdateProductSKU(t *testing.T) {
	repo := newMockProductRepository()
	svc := newTestProductService(repo)
	ctx := context.Background()

	a, err := svc.CreateProduct(ctx, productInput("A", "SKU-A", 1, uuid.New()))
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, productInput("B", "SKU-B", 1, uuid.New()))
	require.NoError(t, err)

	taken := "SKU-B"
	_, err = svc.UpdateProduct(ctx, a.ID, domain.ProductUpdate{SKU: &taken})
	assert.ErrorIs(t, err, domain.ErrConflict)

	own := "SKU-A"
	updated, err := svc.UpdateProduct(ctx, a.ID, domain.ProductUpdate{SKU: &own})
	require.NoError(t, err)
	assert.Equal(t, "SKU-A", updated.SKU)

	_, err = svc.UpdateProduct(ctx, uuid.New(), domain.ProductUpdate{SKU: &own})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	repo := newMockProductRepository()
	svc := newTestProductService(repo)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteProduct(ctx, uuid.New()), domain.ErrNotFound)

	created, err := svc.CreateProduct(ctx, productInput("Gone", "GONE-1", 1, uuid.New()))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(ctx, created.ID))

	_, err = svc.GetProduct(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLowStockProducts(t *testing.T) {
	repo := newMockProductRepository()
	svc := newTestProductService(repo)
	ctx := context.Background()
	categoryID := uuid.New()

	for _, p := range []struct {
		name  string
		stock int
	}{{"Delta", 2}, {"Alpha", 4}, {"Charlie", 5}, {"Bravo", 10}} {
		_, err := svc.CreateProduct(ctx, productInput(p.name, "LS-"+p.name, p.stock, categoryID))
		require.NoError(t, err)
	}

	low, err := svc.GetLowStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Alpha", low[0].Name)
	assert.Equal(t, "Delta", low[1].Name)

	page, err := svc.ListProducts(ctx, ProductQuery{Page: 1, Limit: 10, LowStock: true})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestConfiguredLowStockThreshold(t *testing.T) {
	repo := newMockProductRepository()
	svc := NewProductService(repo, nil, 11, zap.NewNop())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, productInput("Bravo", "B-1", 10, uuid.New()))
	require.NoError(t, err)

	low, err := svc.GetLowStockProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, low, 1)
}

func TestInventoryHistory(t *testing.T) {
	repo := newMockProductRepository()
	svc := newTestProductService(repo)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, productInput("Mug", "MUG-1", 8, uuid.New()))
	require.NoError(t, err)

	stock := 3
	_, err = svc.UpdateProduct(ctx, created.ID, domain.ProductUpdate{StockQuantity: &stock})
	require.NoError(t, err)

	history, err := svc.GetInventoryHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.MovementAdjustment, history[0].Reason)
	assert.Equal(t, -5, history[0].QuantityChange)

	_, err = svc.GetInventoryHistory(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreFailuresBecomeInternal(t *testing.T) {
	svc := NewProductService(&failingProductRepository{}, nil, 0, zap.NewNop())
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.NotContains(t, err.Error(), "connection refused")

	_, err = svc.ListProducts(ctx, ProductQuery{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestListProductsUsesCache(t *testing.T) {
	repo := newMockProductRepository()
	cache := newRecordingCache()
	svc := NewProductService(repo, cache, 0, zap.NewNop())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, productInput("Cached", "C-1", 1, uuid.New()))
	require.NoError(t, err)

	query := ProductQuery{Page: 1, Limit: 10, Search: "cached"}
	_, err = svc.ListProducts(ctx, query)
	require.NoError(t, err)
	_, err = svc.ListProducts(ctx, ProductQuery{Page: 0, Limit: 10, Search: " CACHED "})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls, "equivalent queries share a cache entry")

	_, err = svc.CreateProduct(ctx, productInput("Cached Too", "C-2", 1, uuid.New()))
	require.NoError(t, err)

	result, err := svc.ListProducts(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, cache.invalidations)
}

func TestListProductsDoesNotCacheAcrossInvalidation(t *testing.T) {
	base := newMockProductRepository()
	cache := newRecordingCache()
	repo := &interleavingProductRepository{mockProductRepository: base}
	svc := NewProductService(repo, cache, 0, zap.NewNop())
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, productInput("Lamp", "L-1", 3, uuid.New()))
	require.NoError(t, err)

	// the update commits after the list read but before the page is cached
	renamed := "Desk Lamp"
	repo.during = func() {
		_, err := svc.UpdateProduct(ctx, created.ID, domain.ProductUpdate{Name: &renamed})
		require.NoError(t, err)
	}

	stale, err := svc.ListProducts(ctx, ProductQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, stale.Data, 1)

	fresh, err := svc.ListProducts(ctx, ProductQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, fresh.Data, 1)
	assert.Equal(t, "Desk Lamp", fresh.Data[0].Name)
	assert.Equal(t, 2, base.listCalls)
}
