package fedex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache stores access tokens by key with an expiry.
// Implementations must be safe for concurrent use.
type TokenCache interface {
	// Get returns the live token for key. A missing or expired entry is
	// reported as ok == false with a nil error.
	Get(ctx context.Context, key string) (token string, ok bool, err error)

	// Set stores token under key for ttl, replacing any previous entry.
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// MemoryTokenCache is an in-process TokenCache.
type MemoryTokenCache struct {
	mu      sync.RWMutex
	entries map[string]cachedToken
	now     func() time.Time
}

// NewMemoryTokenCache creates an empty in-memory cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{
		entries: make(map[string]cachedToken),
		now:     time.Now,
	}
}

// WithClock replaces the cache clock; used by tests.
func (c *MemoryTokenCache) WithClock(now func() time.Time) *MemoryTokenCache {
	c.now = now
	return c
}

// Get implements TokenCache.
func (c *MemoryTokenCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set implements TokenCache.
func (c *MemoryTokenCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedToken{value: token, expiresAt: c.now().Add(ttl)}
	return nil
}

// RedisTokenCache keeps tokens in Redis so several processes share them.
type RedisTokenCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisTokenCache wraps a Redis client. prefix namespaces the keys.
func NewRedisTokenCache(client redis.UniversalClient, prefix string) *RedisTokenCache {
	return &RedisTokenCache{client: client, prefix: prefix}
}

// NewRedisTokenCacheFromURL parses a redis:// URL and pings the server.
func NewRedisTokenCacheFromURL(ctx context.Context, redisURL, prefix string) (*RedisTokenCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisTokenCache(client, prefix), nil
}

// Get implements TokenCache.
func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Set implements TokenCache.
func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, token, ttl).Err()
}

// Close releases the underlying client.
func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}

var (
	_ TokenCache = (*MemoryTokenCache)(nil)
	_ TokenCache = (*RedisTokenCache)(nil)
)
