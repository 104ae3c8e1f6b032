package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/fedex/internal/config"
	"go.opentelemetry.io/otel/attribute"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Port)
	assert.Equal(t, "fr_FR", cfg.FedexLocale)
	assert.Equal(t, 30*time.Second, cfg.FedexTimeout)
	assert.Equal(t, config.TokenCacheMemory, cfg.TokenCache)
	assert.Equal(t, "https://apis.fedex.com/oauth/token", cfg.FedexAuthURL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("FEDEX_CLIENT_ID", "id")
	t.Setenv("FEDEX_CLIENT_SECRET", "secret")
	t.Setenv("FEDEX_CLIENT_TRACK_ID", "track-id")
	t.Setenv("FEDEX_CLIENT_TRACK_SECRET", "track-secret")
	t.Setenv("FEDEX_TIMEOUT", "5s")
	t.Setenv("FEDEX_USE_MOCK", "true")
	t.Setenv("TOKEN_CACHE", "redis")

	cfg, err := config.Load()
	require.NoError(t, err)

	fc := cfg.Fedex()
	assert.Equal(t, "id", fc.Credentials.Default.ClientID)
	assert.Equal(t, "track-id", fc.Credentials.Track.ClientID)
	assert.False(t, fc.Credentials.Ship.Configured())
	assert.Equal(t, 5*time.Second, fc.Timeout)
	assert.True(t, fc.UseMock)
	assert.Equal(t, "tournevent-fedex/0.0.1", fc.UserAgent)
	assert.Equal(t, config.TokenCacheRedis, cfg.TokenCache)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FEDEX_ACCOUNT_NUMBER=740561073\nFEDEX_LOCALE=en_US\n"), 0o600))
	t.Setenv("FEDEX_LOCALE", "de_DE")
	t.Cleanup(func() { _ = os.Unsetenv("FEDEX_ACCOUNT_NUMBER") })

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "740561073", cfg.FedexAccountNumber)
	assert.Equal(t, "de_DE", cfg.FedexLocale, "existing variables win over the file")
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("token cache", func(t *testing.T) {
		t.Setenv("TOKEN_CACHE", "memcached")
		_, err := config.Load()
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Setenv("FEDEX_TIMEOUT", "soon")
		_, err := config.Load()
		assert.Error(t, err)
	})
}

func TestAttributes(t *testing.T) {
	cfg := &config.Config{ServiceName: "svc", Version: "1.2.3", FedexLocale: "fr_FR", TokenCache: "memory"}

	attrs := cfg.Attributes()

	assert.Contains(t, attrs, attribute.String("service.name", "svc"))
	assert.Contains(t, attrs, attribute.String("service.version", "1.2.3"))
	assert.Contains(t, attrs, attribute.Bool("fedex.mock", false))
}
