package fedex_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tournevent/fedex/pkg/fedex"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	authURL      = "https://apis.fedex.test/oauth/token"
	addressURL   = "https://apis.fedex.test/address/v1/addresses/resolve"
	ratesURL     = "https://apis.fedex.test/rate/v1/rates/quotes"
	trackingURL  = "https://apis.fedex.test/track/v1/trackingnumbers"
	locationsURL = "https://apis.fedex.test/location/v1/locations"
)

func testConfig() fedex.Config {
	return fedex.Config{
		AuthURL:       authURL,
		AddressURL:    addressURL,
		RatesURL:      ratesURL,
		TrackingURL:   trackingURL,
		LocationsURL:  locationsURL,
		AccountNumber: "740561073",
		Credentials: fedex.CredentialSet{
			Default: fedex.Credentials{ClientID: "default-id", ClientSecret: "default-secret"},
		},
	}
}

// newMockTransport answers the token endpoint; callers register the rest.
func newMockTransport() *fedex.MockTransport {
	return fedex.NewMockTransport().Respond(authURL, http.StatusOK, map[string]any{
		"access_token": "test-token",
		"token_type":   "bearer",
		"expires_in":   3600,
	})
}

func newTestClient(mock *fedex.MockTransport) *fedex.Client {
	logger := otelzap.New(zap.NewNop())
	return fedex.NewWithTransport(testConfig(), mock, fedex.NewMemoryTokenCache(), logger, nil)
}

// requestsTo returns the recorded calls made to url.
func requestsTo(mock *fedex.MockTransport, url string) []*fedex.Request {
	var out []*fedex.Request
	for _, call := range mock.Calls() {
		if call.URL == url {
			out = append(out, call)
		}
	}
	return out
}

// sentBody re-decodes a request body the way the carrier would see it.
func sentBody(t *testing.T, req *fedex.Request) map[string]any {
	t.Helper()
	encoded, err := json.Marshal(req.JSON)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(encoded, &out))
	return out
}

func strPtr(s string) *string {
	return &s
}
