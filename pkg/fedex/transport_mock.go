package fedex

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MockTransport is a Transport for tests. Replies are looked up by URL in
// Responses unless OnDo is set. Every request is recorded.
type MockTransport struct {
	SimulateLatency time.Duration

	OnDo      func(ctx context.Context, req *Request) (*Response, error)
	Responses map[string]*Response

	mu    sync.Mutex
	calls []*Request
}

// NewMockTransport creates a mock with no canned replies.
func NewMockTransport() *MockTransport {
	return &MockTransport{Responses: make(map[string]*Response)}
}

// Respond registers a JSON reply for url.
func (m *MockTransport) Respond(url string, status int, body any) *MockTransport {
	encoded, _ := json.Marshal(body)
	m.Responses[url] = &Response{StatusCode: status, Body: encoded}
	return m
}

// Do implements Transport.
func (m *MockTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.OnDo != nil {
		return m.OnDo(ctx, req)
	}
	if resp, ok := m.Responses[req.URL]; ok {
		return resp, nil
	}
	return &Response{StatusCode: http.StatusNotFound, Body: []byte(`{"errors":[{"code":"NOT.FOUND"}]}`)}, nil
}

// Calls returns the recorded requests.
func (m *MockTransport) Calls() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many requests were made.
func (m *MockTransport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var _ Transport = (*MockTransport)(nil)

// NewCannedTransport answers every endpoint with a fixed FedEx-shaped reply.
// Requests are routed by body shape so it works with unset URLs.
func NewCannedTransport() *MockTransport {
	m := NewMockTransport()
	m.OnDo = func(_ context.Context, req *Request) (*Response, error) {
		return cannedReply(req, time.Now()), nil
	}
	return m
}

func cannedReply(req *Request, now time.Time) *Response {
	if req.Form != nil {
		return jsonResponse(map[string]any{
			"access_token": "mock-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}

	body, _ := req.JSON.(map[string]any)
	switch {
	case body["addressesToValidate"] != nil:
		return jsonResponse(cannedAddressReply(body))
	case body["requestedShipment"] != nil:
		return jsonResponse(cannedRatesReply(now))
	case body["trackingInfo"] != nil:
		return jsonResponse(cannedTrackingReply(now))
	case body["locationSearchCriterion"] != nil:
		return jsonResponse(cannedLocationsReply())
	}
	return &Response{StatusCode: http.StatusBadRequest, Body: []byte(`{"errors":[{"code":"INVALID.INPUT.EXCEPTION"}]}`)}
}

func jsonResponse(v any) *Response {
	encoded, _ := json.Marshal(v)
	return &Response{StatusCode: http.StatusOK, Body: encoded}
}

func cannedAddressReply(body map[string]any) map[string]any {
	items := asSlice(body["addressesToValidate"])
	resolved := make([]any, 0, len(items))
	for _, item := range items {
		addr := asMap(asMap(item)["address"])
		lines := []string{}
		if raw, ok := addr["streetLines"].([]string); ok {
			for _, l := range raw {
				lines = append(lines, strings.ToUpper(l))
			}
		}
		city, _ := addr["city"].(string)
		resolved = append(resolved, map[string]any{
			"streetLinesToken":    lines,
			"city":                strings.ToUpper(city),
			"stateOrProvinceCode": addr["stateOrProvinceCode"],
			"postalCode":          addr["postalCode"],
			"countryCode":         addr["countryCode"],
			"classification":      "BUSINESS",
			"attributes": map[string]any{
				"Matched":                   "true",
				"InterpolatedStreetAddress": "false",
			},
		})
	}
	return map[string]any{"output": map[string]any{"resolvedAddresses": resolved}}
}

func cannedRatesReply(now time.Time) map[string]any {
	detail := func(code, name string, amount float64, days int) map[string]any {
		return map[string]any{
			"serviceType":       code,
			"serviceName":       name,
			"deliveryTimestamp": now.AddDate(0, 0, days).Format("2006-01-02T15:04:05"),
			"ratedShipmentDetails": []any{
				map[string]any{
					"shipmentRateDetail": map[string]any{
						"totalNetCharge": map[string]any{"amount": amount, "currency": "EUR"},
					},
				},
			},
		}
	}
	return map[string]any{
		"output": map[string]any{
			"rateReplyDetails": []any{
				detail("FEDEX_INTERNATIONAL_PRIORITY", "FedEx International Priority", 58.4, 2),
				detail("INTERNATIONAL_ECONOMY", "FedEx International Economy", 41.9, 5),
			},
		},
	}
}

func cannedTrackingReply(now time.Time) map[string]any {
	event := func(kind, description, city string, ago time.Duration) map[string]any {
		return map[string]any{
			"eventType":        kind,
			"eventDescription": description,
			"date":             now.Add(-ago).Format(time.RFC3339),
			"scanLocation": map[string]any{
				"city":        city,
				"countryName": "France",
			},
		}
	}
	return map[string]any{
		"output": map[string]any{
			"completeTrackResults": []any{
				map[string]any{
					"trackResults": []any{
						map[string]any{
							"scanEvents": []any{
								event("PU", "Picked up", "LYON", 48*time.Hour),
								event("IT", "In transit", "PARIS", 24*time.Hour),
								event("OD", "On FedEx vehicle for delivery", "PARIS", 2*time.Hour),
							},
						},
					},
				},
			},
		},
	}
}

func cannedLocationsReply() map[string]any {
	location := func(id, name, street string, distance float64) map[string]any {
		return map[string]any{
			"locationId":       id,
			"distanceWithUnit": map[string]any{"value": distance, "units": "KM"},
			"contactAndAddress": map[string]any{
				"contact": map[string]any{"companyName": name},
				"address": map[string]any{
					"streetLines": []any{street},
					"city":        "PARIS",
					"postalCode":  "75004",
					"countryCode": "FR",
				},
			},
		}
	}
	return map[string]any{
		"output": map[string]any{
			"locationDetailList": []any{
				location("PARA", "FedEx Ship Centre Rivoli", "12 Rue de Rivoli", 0.8),
				location("PARB", "Relais Hotel de Ville", "3 Place de l'Hotel de Ville", 1.4),
			},
		},
	}
}
