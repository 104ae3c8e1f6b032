package fedex

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Scope selects which credential pair authenticates a request.
type Scope string

const (
	ScopeDefault Scope = "default"
	ScopeShip    Scope = "ship"
	ScopeTrack   Scope = "track"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeDefault, ScopeShip, ScopeTrack:
		return true
	}
	return false
}

// CacheKey is the TokenCache key for the scope.
func (s Scope) CacheKey() string {
	return "token:" + string(s)
}

const (
	defaultExpiresIn = 3600
	expirySafety     = 60
	minTokenTTL      = 60
	maxExpiresIn     = 24 * 60 * 60
)

// Credentials is a client id/secret pair.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Configured reports whether both halves are set.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// CredentialSet maps each scope to a pair. Ship and Track fall back to
// Default when they are not configured.
type CredentialSet struct {
	Default Credentials
	Ship    Credentials
	Track   Credentials
}

// Resolve returns the pair for scope. It never returns "none": unknown
// or unconfigured scopes resolve to Default.
func (c CredentialSet) Resolve(scope Scope) Credentials {
	switch scope {
	case ScopeShip:
		if c.Ship.Configured() {
			return c.Ship
		}
	case ScopeTrack:
		if c.Track.Configured() {
			return c.Track
		}
	}
	return c.Default
}

// TokenTTL is how long a token with the given lifetime stays cached.
// Lifetimes above one day are capped.
func TokenTTL(expiresIn int) time.Duration {
	if expiresIn > maxExpiresIn {
		expiresIn = maxExpiresIn
	}
	ttl := expiresIn - expirySafety
	if ttl < minTokenTTL {
		ttl = minTokenTTL
	}
	return time.Duration(ttl) * time.Second
}

// Authenticator obtains and caches OAuth2 client-credentials tokens per scope.
type Authenticator struct {
	authURL     string
	credentials CredentialSet
	transport   Transport
	cache       TokenCache
	logger      *otelzap.Logger
	tracer      trace.Tracer
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(authURL string, credentials CredentialSet, transport Transport, cache TokenCache, logger *otelzap.Logger, tracer trace.Tracer) *Authenticator {
	return &Authenticator{
		authURL:     authURL,
		credentials: credentials,
		transport:   transport,
		cache:       cache,
		logger:      logger,
		tracer:      tracer,
	}
}

// GetAccessToken returns a bearer token for scope. An empty scope means default.
func (a *Authenticator) GetAccessToken(ctx context.Context, scope Scope) (string, error) {
	if scope == "" {
		scope = ScopeDefault
	}
	if !scope.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, string(scope))
	}

	key := scope.CacheKey()
	token, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Ctx(ctx).Warn("Token cache read failed",
			zap.String("scope", string(scope)),
			zap.Error(err),
		)
	} else if ok {
		return token, nil
	}

	ctx, span := a.tracer.Start(ctx, "fedex.auth.token",
		trace.WithAttributes(attribute.String("fedex.scope", string(scope))))
	defer span.End()

	token, expiresIn, err := a.exchange(ctx, a.credentials.Resolve(scope))
	if err != nil {
		span.RecordError(err)
		a.logger.Ctx(ctx).Error("FedEx token exchange failed",
			zap.String("scope", string(scope)),
			zap.Error(err),
		)
		return "", err
	}

	ttl := TokenTTL(expiresIn)
	if err := a.cache.Set(ctx, key, token, ttl); err != nil {
		a.logger.Ctx(ctx).Warn("Token cache write failed",
			zap.String("scope", string(scope)),
			zap.Error(err),
		)
	}

	a.logger.Ctx(ctx).Debug("Obtained FedEx access token",
		zap.String("scope", string(scope)),
		zap.Duration("ttl", ttl),
	)
	return token, nil
}

func (a *Authenticator) exchange(ctx context.Context, creds Credentials) (string, int, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.transport.Do(ctx, &Request{
		Method: http.MethodPost,
		URL:    a.authURL,
		Header: header,
		Form:   form,
	})
	if err != nil {
		return "", 0, &AuthError{Cause: err}
	}
	if !resp.OK() {
		return "", 0, &AuthError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	data, err := resp.Object()
	if err != nil {
		return "", 0, &AuthError{StatusCode: resp.StatusCode, Cause: err}
	}

	token, _ := asString(data["access_token"])
	if token == "" {
		return "", 0, &AuthError{StatusCode: resp.StatusCode, Message: "missing token"}
	}

	expiresIn := defaultExpiresIn
	if n, ok := numeric(data["expires_in"]); ok && !math.IsNaN(n) {
		expiresIn = int(math.Max(0, math.Min(n, maxExpiresIn)))
	}
	return token, expiresIn, nil
}
