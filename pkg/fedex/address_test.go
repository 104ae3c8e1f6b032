package fedex_test

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/fedex/pkg/fedex"
)

var hashPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

func rivoli() fedex.AddressInput {
	return fedex.AddressInput{
		StreetLines: []string{"12 rue de Rivoli", "  "},
		City:        "Paris",
		PostalCode:  "75004",
		CountryCode: "fr",
	}
}

func TestValidate_EmptyInput(t *testing.T) {
	mock := newMockTransport()
	client := newTestClient(mock)

	results, err := client.ValidateAddresses(context.Background(), nil, "")

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 0, mock.CallCount())
}

func TestValidate_RequestShape(t *testing.T) {
	mock := newMockTransport().Respond(addressURL, http.StatusOK, map[string]any{
		"output": map[string]any{"resolvedAddresses": []any{}},
	})
	client := newTestClient(mock)

	_, err := client.ValidateAddresses(context.Background(), []fedex.AddressInput{rivoli()}, "")
	require.NoError(t, err)

	calls := requestsTo(mock, addressURL)
	require.Len(t, calls, 1)
	req := calls[0]

	assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, fedex.DefaultLocale, req.Header.Get("X-locale"))
	assert.NotEmpty(t, req.Header.Get("x-customer-transaction-id"))

	body := sentBody(t, req)
	addresses := body["addressesToValidate"].([]any)
	require.Len(t, addresses, 1)
	address := addresses[0].(map[string]any)["address"].(map[string]any)

	assert.Equal(t, []any{"12 rue de Rivoli"}, address["streetLines"])
	assert.Equal(t, "FR", address["countryCode"])
	assert.Equal(t, false, address["residential"])
	assert.NotContains(t, address, "stateOrProvinceCode")
}

func TestValidate_LocaleOverride(t *testing.T) {
	mock := newMockTransport().Respond(addressURL, http.StatusOK, map[string]any{})
	client := newTestClient(mock)

	_, err := client.ValidateAddresses(context.Background(), []fedex.AddressInput{rivoli()}, "en_US")
	require.NoError(t, err)

	calls := requestsTo(mock, addressURL)
	require.Len(t, calls, 1)
	assert.Equal(t, "en_US", calls[0].Header.Get("X-locale"))
}

func TestValidate_MatchedInterpolatedUnknownDPV(t *testing.T) {
	mock := newMockTransport().Respond(addressURL, http.StatusOK, map[string]any{
		"output": map[string]any{
			"resolvedAddresses": []any{
				map[string]any{
					"attributes": map[string]any{
						"Matched":                   "true",
						"InterpolatedStreetAddress": "true",
					},
					"normalizedStatusNameDPV": nil,
					"resolutionMethodName":    "FRANCE_GEO_POSTAL",
					"effectiveAddress": map[string]any{
						"streetLines":         []any{"12 RUE DE RIVOLI"},
						"city":                "PARIS",
						"postalCode":          "75004",
						"countryCode":         "FR",
						"stateOrProvinceCode": "",
					},
				},
			},
		},
	})
	client := newTestClient(mock)
	input := rivoli()

	results, err := client.ValidateAddresses(context.Background(), []fedex.AddressInput{input}, "")

	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	assert.True(t, r.Resolved)
	assert.True(t, r.Interpolated)
	assert.Equal(t, fedex.Unknown, r.DPVValid)
	assert.Equal(t, "UNKNOWN", r.Classification)
	assert.Equal(t, []string{"12 RUE DE RIVOLI"}, r.NormalizedAddress.StreetLines)
	assert.Equal(t, "PARIS", r.NormalizedAddress.City)
	assert.Equal(t, fedex.HashAddressInput(input), r.InputHash)
	assert.Equal(t, "FRANCE_GEO_POSTAL", r.Annotations["resolutionMethod"])
	assert.Nil(t, r.Annotations["matchSource"])
}

func TestValidate_FlatFieldFallback(t *testing.T) {
	mock := newMockTransport().Respond(addressURL, http.StatusOK, map[string]any{
		"output": map[string]any{
			"resolvedAddresses": []any{
				map[string]any{
					"streetLinesToken": []any{"12 RUE DE RIVOLI"},
					"city":             "PARIS",
					"postalCode":       "75004",
					"countryCode":      "FR",
					"classification":   "BUSINESS",
					"resolved":         true,
				},
			},
		},
	})
	client := newTestClient(mock)

	results, err := client.ValidateAddresses(context.Background(), []fedex.AddressInput{rivoli()}, "")

	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, fedex.NormalizedAddress{
		StreetLines: []string{"12 RUE DE RIVOLI"},
		City:        "PARIS",
		PostalCode:  "75004",
		CountryCode: "FR",
	}, r.NormalizedAddress)
	assert.True(t, r.Resolved)
	assert.False(t, r.Interpolated)
	assert.Equal(t, "BUSINESS", r.Classification)
}

func TestValidate_DPVValues(t *testing.T) {
	tests := []struct {
		name string
		item map[string]any
		want fedex.TriState
	}{
		{"string true", map[string]any{"normalizedStatusNameDPV": "true"}, fedex.True},
		{"string false", map[string]any{"normalizedStatusNameDPV": "false"}, fedex.False},
		{"native bool", map[string]any{"deliveryPointValidation": map[string]any{"valid": true}}, fedex.True},
		{"nested dpv", map[string]any{"dpv": map[string]any{"isDPV": false}}, fedex.False},
		{"other string", map[string]any{"normalizedStatusNameDPV": "CONFIRMED"}, fedex.Unknown},
		{"absent", map[string]any{}, fedex.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockTransport().Respond(addressURL, http.StatusOK, map[string]any{
				"output": map[string]any{"resolvedAddresses": []any{tt.item}},
			})
			client := newTestClient(mock)

			results, err := client.ValidateAddresses(context.Background(), []fedex.AddressInput{rivoli()}, "")

			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.want, results[0].DPVValid)
		})
	}
}

func TestValidate_AlternativeListAndExtraItems(t *testing.T) {
	mock := newMockTransport().Respond(addressURL, http.StatusOK, map[string]any{
		"addresses": []any{
			map[string]any{"attributes": map[string]any{"AddressType": "STANDARDIZED"}},
			map[string]any{"isResolved": "0", "interpolated": 1},
		},
	})
	client := newTestClient(mock)

	results, err := client.ValidateAddresses(context.Background(), []fedex.AddressInput{rivoli()}, "")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Resolved)
	assert.False(t, results[1].Resolved)
	assert.True(t, results[1].Interpolated)
	assert.Regexp(t, hashPattern, results[1].InputHash)
	assert.NotEqual(t, results[0].InputHash, results[1].InputHash)
}

func TestValidate_ErrorStatus(t *testing.T) {
	mock := newMockTransport().Respond(addressURL, http.StatusBadRequest, map[string]any{
		"errors": []any{map[string]any{"code": "INVALID.INPUT.EXCEPTION"}},
	})
	client := newTestClient(mock)

	_, err := client.ValidateAddresses(context.Background(), []fedex.AddressInput{rivoli()}, "")

	var apiErr *fedex.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fedex.EndpointAddress, apiErr.Endpoint)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "INVALID.INPUT.EXCEPTION")
}

func TestValidate_AuthFailureIsWrapped(t *testing.T) {
	mock := fedex.NewMockTransport().Respond(authURL, http.StatusUnauthorized, map[string]any{})
	client := newTestClient(mock)

	_, err := client.ValidateAddresses(context.Background(), []fedex.AddressInput{rivoli()}, "")

	var apiErr *fedex.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fedex.EndpointAddress, apiErr.Endpoint)
	assert.ErrorIs(t, err, fedex.ErrAuthenticationFailed)
	assert.Empty(t, requestsTo(mock, addressURL))
}

func TestHashAddressInput(t *testing.T) {
	a := rivoli()
	b := rivoli()

	assert.Regexp(t, hashPattern, fedex.HashAddressInput(a))
	assert.Equal(t, fedex.HashAddressInput(a), fedex.HashAddressInput(b))

	b.Residential = true
	assert.NotEqual(t, fedex.HashAddressInput(a), fedex.HashAddressInput(b))
}
