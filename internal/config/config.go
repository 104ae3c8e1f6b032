package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/tournevent/fedex/pkg/fedex"
	"go.opentelemetry.io/otel/attribute"
)

// Token cache backends.
const (
	TokenCacheMemory = "memory"
	TokenCacheRedis  = "redis"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`

	// FedEx endpoints
	FedexAuthURL      string `envconfig:"FEDEX_AUTH_URL" default:"https://apis.fedex.com/oauth/token"`
	FedexAddressURL   string `envconfig:"FEDEX_ADDRESS_URL" default:"https://apis.fedex.com/address/v1/addresses/resolve"`
	FedexRatesURL     string `envconfig:"FEDEX_RATES_URL" default:"https://apis.fedex.com/rate/v1/rates/quotes"`
	FedexTrackingURL  string `envconfig:"FEDEX_TRACKING_URL" default:"https://apis.fedex.com/track/v1/trackingnumbers"`
	FedexLocationsURL string `envconfig:"FEDEX_LOCATIONS_URL" default:"https://apis.fedex.com/location/v1/locations"`

	// FedEx credentials; ship and track fall back to the default pair.
	FedexClientID          string `envconfig:"FEDEX_CLIENT_ID"`
	FedexClientSecret      string `envconfig:"FEDEX_CLIENT_SECRET"`
	FedexClientShipID      string `envconfig:"FEDEX_CLIENT_SHIP_ID"`
	FedexClientShipSecret  string `envconfig:"FEDEX_CLIENT_SHIP_SECRET"`
	FedexClientTrackID     string `envconfig:"FEDEX_CLIENT_TRACK_ID"`
	FedexClientTrackSecret string `envconfig:"FEDEX_CLIENT_TRACK_SECRET"`
	FedexAccountNumber     string `envconfig:"FEDEX_ACCOUNT_NUMBER"`

	FedexLocale            string        `envconfig:"FEDEX_LOCALE" default:"fr_FR"`
	FedexTimeout           time.Duration `envconfig:"FEDEX_TIMEOUT" default:"30s"`
	FedexRequestsPerSecond float64       `envconfig:"FEDEX_REQUESTS_PER_SECOND" default:"0"`
	FedexUseMock           bool          `envconfig:"FEDEX_USE_MOCK" default:"false"`

	// Token cache
	TokenCache string `envconfig:"TOKEN_CACHE" default:"memory"`
	RedisURL   string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.claude.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"tournevent-fedex"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables. A .env file in the
// working directory, when present, is loaded first without overriding
// variables that are already set.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.TokenCache {
	case TokenCacheMemory, TokenCacheRedis:
	default:
		return fmt.Errorf("invalid TOKEN_CACHE %q: want %q or %q", c.TokenCache, TokenCacheMemory, TokenCacheRedis)
	}
	if c.FedexRequestsPerSecond < 0 {
		return fmt.Errorf("invalid FEDEX_REQUESTS_PER_SECOND %v", c.FedexRequestsPerSecond)
	}
	return nil
}

// Fedex returns the client configuration.
func (c *Config) Fedex() fedex.Config {
	return fedex.Config{
		AuthURL:       c.FedexAuthURL,
		AddressURL:    c.FedexAddressURL,
		RatesURL:      c.FedexRatesURL,
		TrackingURL:   c.FedexTrackingURL,
		LocationsURL:  c.FedexLocationsURL,
		AccountNumber: c.FedexAccountNumber,
		Credentials: fedex.CredentialSet{
			Default: fedex.Credentials{ClientID: c.FedexClientID, ClientSecret: c.FedexClientSecret},
			Ship:    fedex.Credentials{ClientID: c.FedexClientShipID, ClientSecret: c.FedexClientShipSecret},
			Track:   fedex.Credentials{ClientID: c.FedexClientTrackID, ClientSecret: c.FedexClientTrackSecret},
		},
		Locale:            c.FedexLocale,
		Timeout:           c.FedexTimeout,
		RequestsPerSecond: c.FedexRequestsPerSecond,
		UserAgent:         c.ServiceName + "/" + c.Version,
		UseMock:           c.FedexUseMock,
	}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("fedex.locale", c.FedexLocale),
		attribute.Bool("fedex.mock", c.FedexUseMock),
		attribute.Bool("fedex.ship_credentials", c.FedexClientShipID != "" && c.FedexClientShipSecret != ""),
		attribute.Bool("fedex.track_credentials", c.FedexClientTrackID != "" && c.FedexClientTrackSecret != ""),
		attribute.String("token_cache", c.TokenCache),
	}
}
