package telemetry

import (
	"context"
	"time"

	"github.com/tournevent/fedex/pkg/fedex"
)

// InstrumentedTokenCache counts hits, misses and errors of the wrapped cache.
type InstrumentedTokenCache struct {
	next    fedex.TokenCache
	metrics *Metrics
}

// InstrumentTokenCache wraps next.
func InstrumentTokenCache(next fedex.TokenCache, metrics *Metrics) *InstrumentedTokenCache {
	return &InstrumentedTokenCache{next: next, metrics: metrics}
}

// Get implements fedex.TokenCache.
func (c *InstrumentedTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	token, ok, err := c.next.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.RecordTokenLookup("error")
	case ok:
		c.metrics.RecordTokenLookup("hit")
	default:
		c.metrics.RecordTokenLookup("miss")
	}
	return token, ok, err
}

// Set implements fedex.TokenCache.
func (c *InstrumentedTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	return c.next.Set(ctx, key, token, ttl)
}

var _ fedex.TokenCache = (*InstrumentedTokenCache)(nil)
