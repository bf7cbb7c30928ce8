package service

import (
	"context"

	"catalog-admin/internal/domain"
)

// ProductListCache stores rendered product list pages. Implementations must
// treat every failure as a miss.
//
// ProductPageKey binds a query to the current cache generation. Callers
// resolve the key before reading the store, so a page built from data that
// was invalidated meanwhile is written under a retired generation.
// An empty key disables both lookup and store.
type ProductListCache interface {
	ProductPageKey(ctx context.Context, query string) string
	GetProductPage(ctx context.Context, key string) (*domain.Page[*domain.Product], bool)
	SetProductPage(ctx context.Context, key string, page *domain.Page[*domain.Product])
	InvalidateProducts(ctx context.Context)
}

type noopCache struct{}

// NoopCache returns a ProductListCache that never hits.
func NoopCache() ProductListCache {
	return noopCache{}
}

func (noopCache) ProductPageKey(context.Context, string) string {
	return ""
}

func (noopCache) GetProductPage(context.Context, string) (*domain.Page[*domain.Product], bool) {
	return nil, false
}

func (noopCache) SetProductPage(context.Context, string, *domain.Page[*domain.Product]) {}

func (noopCache) InvalidateProducts(context.Context) {}
