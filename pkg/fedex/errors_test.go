package fedex_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tournevent/fedex/pkg/fedex"
)

func TestAuthError(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	tests := []struct {
		name string
		err  *fedex.AuthError
		want string
	}{
		{"status", &fedex.AuthError{StatusCode: 401, Body: "denied"}, "fedex auth error: HTTP 401: denied"},
		{"message", &fedex.AuthError{StatusCode: 200, Message: "missing token"}, "fedex auth error: missing token"},
		{"cause", &fedex.AuthError{Cause: cause}, "fedex auth error: dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, fedex.ErrAuthenticationFailed)
		})
	}

	assert.ErrorIs(t, &fedex.AuthError{Cause: cause}, cause)
}

func TestAPIError(t *testing.T) {
	err := &fedex.APIError{Endpoint: fedex.EndpointRates, StatusCode: 500, Body: "oops"}
	assert.Equal(t, "fedex rates error: HTTP 500: oops", err.Error())

	wrapped := fmt.Errorf("quote failed: %w", err)
	assert.ErrorIs(t, wrapped, &fedex.APIError{Endpoint: fedex.EndpointRates})
	assert.NotErrorIs(t, wrapped, &fedex.APIError{Endpoint: fedex.EndpointTracking})

	var apiErr *fedex.APIError
	assert.True(t, errors.As(wrapped, &apiErr))
	assert.Equal(t, 500, apiErr.StatusCode)
}

func TestAPIError_Cause(t *testing.T) {
	authErr := &fedex.AuthError{StatusCode: 401}
	err := &fedex.APIError{Endpoint: fedex.EndpointLocations, Cause: authErr}

	assert.Equal(t, "fedex locations error: fedex auth error: HTTP 401: ", err.Error())
	assert.ErrorIs(t, err, fedex.ErrAuthenticationFailed)
}
