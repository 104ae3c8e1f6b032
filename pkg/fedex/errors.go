package fedex

import (
	"errors"
	"fmt"
)

// Endpoint names carried by APIError.
const (
	EndpointAddress   = "address"
	EndpointRates     = "rates"
	EndpointTracking  = "tracking"
	EndpointLocations = "locations"
)

// Sentinel errors.
var (
	// ErrInvalidScope indicates a credential scope outside default/ship/track.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrAuthenticationFailed matches every AuthError via errors.Is.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// AuthError is returned when the client-credentials exchange fails.
type AuthError struct {
	StatusCode int
	Body       string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("fedex auth error: %v", e.Cause)
	case e.Message != "":
		return "fedex auth error: " + e.Message
	default:
		return fmt.Sprintf("fedex auth error: HTTP %d: %s", e.StatusCode, e.Body)
	}
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrAuthenticationFailed.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

// APIError represents a failed call to one of the domain endpoints.
// StatusCode is zero when the request never produced a response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Cause      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fedex %s error: %v", e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("fedex %s error: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is matches another APIError on the same endpoint.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Endpoint == t.Endpoint
}

func newStatusError(endpoint string, resp *Response) *APIError {
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       string(resp.Body),
	}
}

// wrapFailure attaches err to an APIError for endpoint unless it already is one.
func wrapFailure(endpoint string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Endpoint == endpoint {
		return err
	}
	return &APIError{Endpoint: endpoint, Cause: err}
}
