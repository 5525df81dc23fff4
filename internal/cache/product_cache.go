// Package cache keeps catalog products in Redis in front of the catalog
// store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/logging"
	"github.com/iliyamo/travel-booking/internal/model"
)

// ErrCacheMiss is returned by Get when no entry exists for a product.
var ErrCacheMiss = errors.New("cache miss")

// Catalog is the read side of the catalog store.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (model.Product, error)
	SearchProducts(ctx context.Context, q model.ProductSearchQuery) (model.ProductPage, error)
}

// ProductCache is a read-through cache for single products.  Search
// results are not cached; they depend on paging and filters and are read
// far less often than product pages.  Any Redis failure falls back to the
// underlying catalog.
type ProductCache struct {
	next   Catalog
	client *redis.Client
	cfg    config.ProductCacheConfig
}

// NewProductCache wraps next with a Redis cache.
func NewProductCache(next Catalog, client *redis.Client, cfg config.ProductCacheConfig) *ProductCache {
	return &ProductCache{next: next, client: client, cfg: cfg}
}

// GetProduct serves id from Redis when possible and fills the cache from
// the catalog otherwise.  Unknown ids are never cached.
func (c *ProductCache) GetProduct(ctx context.Context, id string) (model.Product, error) {
	p, err := c.Get(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logging.FromContext(ctx).WithError(err).WithField("product_id", id).Warn("product cache read failed")
	}

	p, err = c.next.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	if err := c.Set(ctx, p); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("product_id", id).Warn("product cache write failed")
	}
	return p, nil
}

// SearchProducts passes through to the catalog.
func (c *ProductCache) SearchProducts(ctx context.Context, q model.ProductSearchQuery) (model.ProductPage, error) {
	return c.next.SearchProducts(ctx, q)
}

// Get reads a cached product.
func (c *ProductCache) Get(ctx context.Context, id string) (model.Product, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Product{}, ErrCacheMiss
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("redis get failed: %w", err)
	}
	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Product{}, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return p, nil
}

// Set stores p for TTL plus a random share of Jitter.
func (c *ProductCache) Set(ctx context.Context, p model.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(p.ID), data, c.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry for id.
func (c *ProductCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *ProductCache) ttl() time.Duration {
	if c.cfg.Jitter <= 0 {
		return c.cfg.TTL
	}
	return c.cfg.TTL + time.Duration(rand.Int63n(int64(c.cfg.Jitter)))
}

func (c *ProductCache) key(id string) string {
	return fmt.Sprintf("%s:%s", c.cfg.Prefix, id)
}
