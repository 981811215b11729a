package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/fedhatrac/categorizer/internal/core/domain"
)

// categoryCacheTTL bounds staleness for category rows. Categories are
// read-only to the pipeline, so a generous TTL is safe.
const categoryCacheTTL = time.Hour

// CachedCategories wraps a CategoryRepository with a ristretto cache.
// Every worker resolves a category per item, so name lookups dominate the
// repository traffic. Misses are not cached; "not found" stays fresh.
type CachedCategories struct {
	inner CategoryRepository
	cache *ristretto.Cache
}

// NewCachedCategories creates the caching wrapper.
func NewCachedCategories(inner CategoryRepository) (*CachedCategories, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize category cache: %w", err)
	}
	return &CachedCategories{inner: inner, cache: cache}, nil
}

// GetByID retrieves a category by id, serving from cache when possible.
func (c *CachedCategories) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	key := "category:id:" + strconv.FormatInt(id, 10)
	if v, ok := c.cache.Get(key); ok {
		cat := v.(domain.Category)
		return &cat, nil
	}

	cat, err := c.inner.GetByID(ctx, id)
	if err != nil || cat == nil {
		return cat, err
	}
	c.cache.SetWithTTL(key, *cat, 1, categoryCacheTTL)
	return cat, nil
}

// GetByName resolves a category name, serving from cache when possible.
func (c *CachedCategories) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	key := "category:name:" + strings.ToLower(name)
	if v, ok := c.cache.Get(key); ok {
		cat := v.(domain.Category)
		return &cat, nil
	}

	cat, err := c.inner.GetByName(ctx, name)
	if err != nil || cat == nil {
		return cat, err
	}
	c.cache.SetWithTTL(key, *cat, 1, categoryCacheTTL)
	return cat, nil
}
