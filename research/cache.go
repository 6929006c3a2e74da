package research

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/BaSui01/researchflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HitCache stores fetch results by key. internal/cache.SearchCache implements it
// on Redis.
type HitCache interface {
	GetFragments(ctx context.Context, key string) ([]types.Fragment, bool, error)
	SetFragments(ctx context.Context, key string, fragments []types.Fragment) error
}

const searchCacheType = "search"

// CachedBackend serves repeated (query, top) fetches from a HitCache. Cache
// failures fall through to the wrapped backend.
type CachedBackend struct {
	inner    Backend
	cache    HitCache
	scope    string
	observer Observer
	logger   *zap.Logger
}

// NewCachedBackend wraps b. scope separates entries of backends whose results
// depend on more than the query, such as a tenant's index.
func NewCachedBackend(b Backend, cache HitCache, scope string, observer Observer, logger *zap.Logger) *CachedBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedBackend{
		inner:    b,
		cache:    cache,
		scope:    scope,
		observer: orNop(observer),
		logger:   logger.With(zap.String("component", "search_cache")),
	}
}

func (c *CachedBackend) Type() types.FragmentType { return c.inner.Type() }

// CacheKey is the cache key of one fetch.
func (c *CachedBackend) CacheKey(query string, top int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d\x00%s", c.inner.Type(), c.scope, top, query)))
	return "search:" + hex.EncodeToString(sum[:])
}

// Fetch returns cached fragments under fresh ids, or fetches and stores them.
// Errors are not cached.
func (c *CachedBackend) Fetch(ctx context.Context, query string, top int) ([]types.Fragment, error) {
	key := c.CacheKey(query, top)

	cached, ok, err := c.cache.GetFragments(ctx, key)
	if err != nil {
		c.logger.Warn("search cache read failed", zap.String("backend", string(c.Type())), zap.Error(err))
	}
	if ok {
		c.observer.RecordCacheHit(searchCacheType)
		now := time.Now()
		for i := range cached {
			cached[i].ID = uuid.NewString()
			cached[i].Query = query
			cached[i].CreatedAt = now
		}
		return cached, nil
	}
	c.observer.RecordCacheMiss(searchCacheType)

	out, err := c.inner.Fetch(ctx, query, top)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetFragments(ctx, key, out); err != nil {
		c.logger.Warn("search cache write failed", zap.String("backend", string(c.Type())), zap.Error(err))
	}
	return out, nil
}
