package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"catalog-admin/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	productListPrefix = "catalog:products:list:"
	productGenKey     = "catalog:products:gen"
)

// ProductCache keeps product list pages in Redis. Redis failures are logged
// and treated as cache misses. Pages are keyed by a generation counter that
// InvalidateProducts bumps; retired generations age out through the TTL.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewProductCache creates a ProductCache whose entries expire after ttl.
func NewProductCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ProductCache {
	return &ProductCache{client: client, ttl: ttl, logger: logger}
}

// ProductPageKey returns the key for query under the current generation, or
// "" when the generation cannot be read.
func (c *ProductCache) ProductPageKey(ctx context.Context, query string) string {
	gen, err := c.client.Get(ctx, productGenKey).Int64()
	if err != nil && err != redis.Nil {
		c.logger.Warn("Failed to read product list cache generation", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("%s%d:%x", productListPrefix, gen, md5.Sum([]byte(query)))
}

// GetProductPage returns the cached page stored under key, if any.
func (c *ProductCache) GetProductPage(ctx context.Context, key string) (*domain.Page[*domain.Product], bool) {
	if key == "" {
		return nil, false
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Failed to read product list cache", zap.Error(err))
		}
		return nil, false
	}

	var page domain.Page[*domain.Product]
	if err := json.Unmarshal(val, &page); err != nil {
		c.logger.Warn("Discarding undecodable product list cache entry", zap.Error(err))
		return nil, false
	}
	return &page, true
}

// SetProductPage stores page under key.
func (c *ProductCache) SetProductPage(ctx context.Context, key string, page *domain.Page[*domain.Product]) {
	if key == "" {
		return
	}

	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("Failed to encode product list page", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write product list cache", zap.Error(err))
	}
}

// InvalidateProducts retires every cached product list page.
func (c *ProductCache) InvalidateProducts(ctx context.Context) {
	if err := c.client.Incr(ctx, productGenKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate product list cache", zap.Error(err))
	}
}
