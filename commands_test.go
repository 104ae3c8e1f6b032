package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/fedex/pkg/fedex"
)

func TestParsePackage(t *testing.T) {
	pkg, err := parsePackage("weight=2;weightUnit=kg;length=30;width=20;height=10;dimensionUnit=CM")
	require.NoError(t, err)
	assert.Equal(t, fedex.PackageSpec{
		Weight:        2,
		WeightUnit:    fedex.WeightKG,
		Length:        30,
		Width:         20,
		Height:        10,
		DimensionUnit: fedex.DimensionCM,
	}, pkg)
	assert.True(t, pkg.HasDimensions())

	pkg, err = parsePackage(" WEIGHT = 1.5 ; ")
	require.NoError(t, err)
	assert.Equal(t, 1.5, pkg.Weight)
	assert.False(t, pkg.HasDimensions())
}

func TestParsePackage_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty", ""},
		{"no weight", "length=10"},
		{"zero weight", "weight=0"},
		{"not a number", "weight=heavy"},
		{"negative dimension", "weight=1;height=-2"},
		{"missing equals", "weight"},
		{"bad weight unit", "weight=1;weightUnit=OZ"},
		{"bad dimension unit", "weight=1;dimensionUnit=MM"},
		{"unknown field", "weight=1;colour=red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePackage(tt.spec)
			assert.Error(t, err)
		})
	}
}

func TestQuoteRequestFromFlags(t *testing.T) {
	require.NoError(t, quoteCmd.ParseFlags([]string{
		"--from-postal", "75004", "--from-country", "FR",
		"--to-postal", "10001", "--to-country", "US", "--to-state", "NY",
		"--pkg", "weight=2;weightUnit=KG",
		"--pkg", "weight=1;weightUnit=KG",
		"--ship-date", "2026-05-04",
		"--declared-value", "150",
		"--documents",
	}))
	t.Cleanup(func() { resetFlags(t, quoteCmd.Flags().Set) })

	req, err := quoteRequestFromFlags(quoteCmd)
	require.NoError(t, err)

	assert.Equal(t, "NY", req.To.StateOrProvinceCode)
	assert.Len(t, req.Packages, 2)
	assert.Equal(t, "2026-05-04", req.ShipDate.Format("2006-01-02"))
	require.NotNil(t, req.DeclaredValue)
	assert.Equal(t, 150.0, *req.DeclaredValue)
	assert.True(t, req.IsDocuments)
	assert.True(t, req.IsInternational())
}

func TestLocationRequestFromFlags(t *testing.T) {
	require.NoError(t, locationsSearchCmd.ParseFlags([]string{
		"--postal", "75004", "--country", "FR", "--any-state", "--limit", "-1", "--raw",
	}))
	t.Cleanup(func() { resetFlags(t, locationsSearchCmd.Flags().Set) })

	req, raw := locationRequestFromFlags(locationsSearchCmd)

	assert.True(t, raw)
	assert.Equal(t, -1, req.Limit)
	require.NotNil(t, req.SameState)
	assert.False(t, *req.SameState)
	assert.Empty(t, req.LocationType)
}

func TestCommands_MockMode(t *testing.T) {
	t.Setenv("FEDEX_USE_MOCK", "true")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")

	t.Run("quote", func(t *testing.T) {
		out := execute(t, "quote",
			"--from-postal", "75004", "--from-country", "FR",
			"--to-postal", "69001", "--to-country", "FR",
			"--pkg", "weight=2;weightUnit=KG")

		var quotes []fedex.RateQuote
		require.NoError(t, json.Unmarshal(out, &quotes))
		require.Len(t, quotes, 2)
		assert.LessOrEqual(t, quotes[0].Amount, quotes[1].Amount)
	})

	t.Run("track", func(t *testing.T) {
		out := execute(t, "track", "794843185271")

		var events []fedex.TrackingEvent
		require.NoError(t, json.Unmarshal(out, &events))
		require.Len(t, events, 3)
		assert.Equal(t, "OD", events[0].Type)
	})

	t.Run("address validate", func(t *testing.T) {
		out := execute(t, "address", "validate",
			"--street", "12 rue de Rivoli", "--city", "Paris", "--postal", "75004", "--country", "FR")

		var results []fedex.AddressValidationResult
		require.NoError(t, json.Unmarshal(out, &results))
		require.Len(t, results, 1)
		assert.True(t, results[0].Resolved)
	})

	t.Run("locations search", func(t *testing.T) {
		out := execute(t, "locations", "search", "--postal", "75004", "--country", "FR", "--limit", "1")

		var locations []fedex.LocationResult
		require.NoError(t, json.Unmarshal(out, &locations))
		require.Len(t, locations, 1)
		assert.Equal(t, "12 Rue de Rivoli", locations[0].Street)
	})
}

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.Bytes()
}

// resetFlags restores the defaults the flag-parsing tests change, so the
// shared command tree stays clean for later tests. Unknown names are ignored.
func resetFlags(t *testing.T, set func(name, value string) error) {
	t.Helper()
	for name, value := range map[string]string{
		"ship-date": "", "declared-value": "0", "documents": "false", "to-state": "",
		"any-state": "false", "limit": "0", "raw": "false",
	} {
		_ = set(name, value)
	}
}
