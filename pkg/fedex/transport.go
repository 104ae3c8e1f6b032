package fedex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Transport performs a single HTTP exchange with the carrier.
// Implementations must not retry.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request is an outgoing call. Exactly one of JSON or Form is used as the body.
type Request struct {
	Method string
	URL    string
	Header http.Header
	JSON   any
	Form   url.Values
}

// Response is the raw carrier reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the carrier answered 200.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Object decodes the body as a JSON object. Numbers are kept as json.Number.
func (r *Response) Object() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func bearerRequest(endpointURL, token, locale string, body any) *Request {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("Content-Type", "application/json")
	if locale != "" {
		header.Set("X-locale", locale)
	}
	header.Set("x-customer-transaction-id", newTransactionID())
	return &Request{
		Method: http.MethodPost,
		URL:    endpointURL,
		Header: header,
		JSON:   body,
	}
}
