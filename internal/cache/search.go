package cache

import (
	"context"
	"time"

	"github.com/BaSui01/researchflow/types"
)

// SearchCache stores backend fetch results as JSON under the Manager's prefix.
// It implements research.HitCache.
type SearchCache struct {
	m   *Manager
	ttl time.Duration
}

// NewSearchCache creates a search cache; ttl 0 uses the manager's DefaultTTL.
func NewSearchCache(m *Manager, ttl time.Duration) *SearchCache {
	return &SearchCache{m: m, ttl: ttl}
}

// GetFragments returns the cached fragments of key. A miss is (nil, false, nil).
func (c *SearchCache) GetFragments(ctx context.Context, key string) ([]types.Fragment, bool, error) {
	var fragments []types.Fragment
	err := c.m.GetJSON(ctx, key, &fragments)
	if IsCacheMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return fragments, true, nil
}

// SetFragments caches fragments under key. Empty results are cached too.
func (c *SearchCache) SetFragments(ctx context.Context, key string, fragments []types.Fragment) error {
	if fragments == nil {
		fragments = []types.Fragment{}
	}
	return c.m.SetJSON(ctx, key, fragments, c.ttl)
}
