package metrics

import (
	"context"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/cache"
)

// CacheWrapper provides a read-through cache for metrics gauge data.
// It queries the database on cache miss and updates the cache for
// subsequent requests, so the periodic gauge updater does not hammer
// the database when several gauges share an interval.
type CacheWrapper struct {
	store MetricsStore
	cache cache.Cache[int64]
}

// NewCacheWrapper creates a new cache wrapper for metrics.
func NewCacheWrapper(store MetricsStore, cache cache.Cache[int64]) *CacheWrapper {
	return &CacheWrapper{
		store: store,
		cache: cache,
	}
}

// GetActiveTokensCount retrieves the count of active tokens by category.
func (m *CacheWrapper) GetActiveTokensCount(
	ctx context.Context,
	category string,
	ttl time.Duration,
) (int64, error) {
	return m.getCountWithCache(
		ctx,
		"tokens:"+category,
		ttl,
		func() (int64, error) {
			return m.store.CountActiveTokensByCategory(category, time.Now())
		},
	)
}

// GetActiveGrantsCount retrieves the count of currently redeemable grants.
func (m *CacheWrapper) GetActiveGrantsCount(
	ctx context.Context,
	ttl time.Duration,
) (int64, error) {
	return m.getCountWithCache(
		ctx,
		"grants:active",
		ttl,
		func() (int64, error) {
			return m.store.CountActiveGrants(time.Now())
		},
	)
}

// getCountWithCache retrieves a count using the cache-aside pattern.
func (m *CacheWrapper) getCountWithCache(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func() (int64, error),
) (int64, error) {
	return m.cache.GetWithFetch(
		ctx,
		key,
		ttl,
		func(ctx context.Context, key string) (int64, error) {
			return fetchFunc()
		},
	)
}
