package fedex_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/fedex/pkg/fedex"
)

func TestMemoryTokenCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := fedex.NewMemoryTokenCache().WithClock(func() time.Time { return now })

	_, ok, err := cache.Get(ctx, "token:ship")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "token:ship", "abc", time.Minute))

	token, ok, err := cache.Get(ctx, "token:ship")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(ctx, "token:ship")
	require.NoError(t, err)
	assert.False(t, ok, "entry expires when now reaches expiresAt")
}

func TestMemoryTokenCache_Replace(t *testing.T) {
	ctx := context.Background()
	cache := fedex.NewMemoryTokenCache()

	require.NoError(t, cache.Set(ctx, "token:default", "first", time.Hour))
	require.NoError(t, cache.Set(ctx, "token:default", "second", time.Hour))

	token, ok, err := cache.Get(ctx, "token:default")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", token)
}

func newRedisCache(t *testing.T) (*fedex.RedisTokenCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return fedex.NewRedisTokenCache(client, "fedex:"), srv
}

func TestRedisTokenCache_SetGet(t *testing.T) {
	ctx := context.Background()
	cache, srv := newRedisCache(t)

	_, ok, err := cache.Get(ctx, "token:track")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "token:track", "xyz", 3540*time.Second))

	token, ok, err := cache.Get(ctx, "token:track")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	assert.True(t, srv.Exists("fedex:token:track"))
	assert.Equal(t, 3540*time.Second, srv.TTL("fedex:token:track"))
}

func TestRedisTokenCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, srv := newRedisCache(t)

	require.NoError(t, cache.Set(ctx, "token:ship", "abc", time.Minute))
	srv.FastForward(time.Minute)

	_, ok, err := cache.Get(ctx, "token:ship")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisTokenCache_FromURL(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)

	cache, err := fedex.NewRedisTokenCacheFromURL(ctx, "redis://"+srv.Addr()+"/0", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	require.NoError(t, cache.Set(ctx, "token:default", "tok", time.Hour))
	assert.True(t, srv.Exists("token:default"))
}

func TestRedisTokenCache_InvalidURL(t *testing.T) {
	_, err := fedex.NewRedisTokenCacheFromURL(context.Background(), "not-a-url", "")
	assert.Error(t, err)
}

func TestRedisTokenCache_SharedAcrossAuthenticators(t *testing.T) {
	ctx := context.Background()
	cache, _ := newRedisCache(t)

	first := newMockTransport()
	_, err := newTestAuthenticator(first, testConfig().Credentials, cache).GetAccessToken(ctx, fedex.ScopeShip)
	require.NoError(t, err)

	second := newMockTransport()
	token, err := newTestAuthenticator(second, testConfig().Credentials, cache).GetAccessToken(ctx, fedex.ScopeShip)
	require.NoError(t, err)

	assert.Equal(t, "test-token", token)
	assert.Equal(t, 1, first.CallCount())
	assert.Equal(t, 0, second.CallCount())
}
