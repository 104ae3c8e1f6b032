// Package fedex provides integration with the FedEx REST APIs: OAuth2
// tokens, address validation, rate quotes, tracking and location search.
package fedex

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultLocale is sent as X-locale when neither the call nor the config sets one.
const DefaultLocale = "fr_FR"

// Config holds FedEx configuration.
type Config struct {
	AuthURL      string
	AddressURL   string
	RatesURL     string
	TrackingURL  string
	LocationsURL string

	AccountNumber string
	Credentials   CredentialSet
	Locale        string

	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
	UseMock           bool
}

// Client bundles the per-endpoint clients behind one configuration.
type Client struct {
	Auth      *Authenticator
	Addresses *AddressValidationClient
	Rates     *RatesClient
	Tracking  *TrackingClient
	Locations *LocationClient
}

// New creates a client with an in-memory token cache. With UseMock set,
// every call is answered by canned replies instead of the network.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return NewWithTransport(cfg, NewTransport(cfg), NewMemoryTokenCache(), logger, tracer)
}

// NewTransport returns the canned mock transport when UseMock is set and
// the throttled HTTP transport otherwise.
func NewTransport(cfg Config) Transport {
	if cfg.UseMock {
		return NewCannedTransport()
	}
	return NewHTTPTransport(HTTPTransportConfig{
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		UserAgent:         cfg.UserAgent,
	})
}

// NewWithTransport creates a client with custom collaborators.
func NewWithTransport(cfg Config, transport Transport, cache TokenCache, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	locale := cfg.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	auth := NewAuthenticator(cfg.AuthURL, cfg.Credentials, transport, cache, logger, tracer)

	return &Client{
		Auth: auth,
		Addresses: &AddressValidationClient{
			endpoint: cfg.AddressURL,
			auth:     auth,
			api:      transport,
			locale:   locale,
			logger:   logger,
			tracer:   tracer,
		},
		Rates: &RatesClient{
			endpoint:      cfg.RatesURL,
			accountNumber: cfg.AccountNumber,
			auth:          auth,
			api:           transport,
			now:           time.Now,
			logger:        logger,
			tracer:        tracer,
		},
		Tracking: &TrackingClient{
			endpoint: cfg.TrackingURL,
			auth:     auth,
			api:      transport,
			locale:   locale,
			now:      time.Now,
			logger:   logger,
			tracer:   tracer,
		},
		Locations: &LocationClient{
			endpoint: cfg.LocationsURL,
			auth:     auth,
			api:      transport,
			locale:   locale,
			logger:   logger,
			tracer:   tracer,
		},
	}
}

// WithClock replaces the clock used for default ship dates and undated
// scan events.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.Rates.now = now
	c.Tracking.now = now
	return c
}

// GetAccessToken returns a bearer token for scope.
func (c *Client) GetAccessToken(ctx context.Context, scope Scope) (string, error) {
	return c.Auth.GetAccessToken(ctx, scope)
}

// ValidateAddresses validates a batch of addresses.
func (c *Client) ValidateAddresses(ctx context.Context, inputs []AddressInput, locale string) ([]AddressValidationResult, error) {
	return c.Addresses.Validate(ctx, inputs, locale)
}

// GetQuotes returns rate quotes, cheapest first.
func (c *Client) GetQuotes(ctx context.Context, req *QuoteRequest) ([]RateQuote, error) {
	return c.Rates.GetQuotes(ctx, req)
}

// TrackShipment returns scan events, newest first.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string, includeDetailedScans bool, locale string) ([]TrackingEvent, error) {
	return c.Tracking.TrackShipment(ctx, trackingNumber, includeDetailedScans, locale)
}

// GetLatestEvent returns the newest scan event or nil.
func (c *Client) GetLatestEvent(ctx context.Context, trackingNumber, locale string) (*TrackingEvent, error) {
	return c.Tracking.GetLatestEvent(ctx, trackingNumber, locale)
}

// TrackMany tracks several numbers concurrently.
func (c *Client) TrackMany(ctx context.Context, trackingNumbers []string, locale string) (map[string][]TrackingEvent, error) {
	return c.Tracking.TrackMany(ctx, trackingNumbers, locale)
}

// SearchLocationsRaw returns nearby drop points with distance information.
func (c *Client) SearchLocationsRaw(ctx context.Context, req *LocationSearchRequest) ([]RawLocation, error) {
	return c.Locations.SearchRaw(ctx, req)
}

// SearchLocations returns nearby drop points.
func (c *Client) SearchLocations(ctx context.Context, req *LocationSearchRequest) ([]LocationResult, error) {
	return c.Locations.Search(ctx, req)
}

func newTransactionID() string {
	return uuid.NewString()
}
