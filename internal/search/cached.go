package search

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/horizon/internal/cache"
)

// Cached memoizes successful searches. Failures are never cached.
type Cached struct {
	inner Searcher
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps inner with c
func NewCached(inner Searcher, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// Name returns the wrapped searcher's name
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Search returns a cached result for the normalized query when available
func (c *Cached) Search(ctx context.Context, query string) ([]Result, error) {
	key := cache.CacheKey("search", c.inner.Name(), strings.ToLower(strings.TrimSpace(query)))

	if results, ok := cache.GetJSON[[]Result](c.cache, key); ok {
		return results, nil
	}

	results, err := c.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	_ = cache.SetJSON(c.cache, key, results, c.ttl)
	return results, nil
}
