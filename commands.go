package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tournevent/fedex/internal/telemetry"
	"github.com/tournevent/fedex/pkg/fedex"
)

var (
	quoteCmd = &cobra.Command{
		Use:   "quote",
		Short: "Get rate quotes for a shipment",
		Example: `  fedex quote --from-postal 75004 --from-country FR --to-postal 10001 --to-country US \
    --pkg "weight=2;weightUnit=KG;length=30;width=20;height=10;dimensionUnit=CM"`,
		RunE: runQuote,
	}

	trackCmd = &cobra.Command{
		Use:   "track TRACKING_NUMBER...",
		Short: "Show scan events for one or more tracking numbers",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTrack,
	}

	addressCmd = &cobra.Command{
		Use:   "address",
		Short: "Address operations",
	}

	addressValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate and normalize an address",
		RunE:  runAddressValidate,
	}

	locationsCmd = &cobra.Command{
		Use:   "locations",
		Short: "Drop point operations",
	}

	locationsSearchCmd = &cobra.Command{
		Use:   "search",
		Short: "Search FedEx drop points near an address",
		RunE:  runLocationsSearch,
	}
)

func init() {
	qf := quoteCmd.Flags()
	qf.String("from-postal", "", "origin postal code")
	qf.String("from-country", "", "origin country code")
	qf.String("from-city", "", "origin city")
	qf.String("from-state", "", "origin state or province code")
	qf.String("to-postal", "", "destination postal code")
	qf.String("to-country", "", "destination country code")
	qf.String("to-city", "", "destination city")
	qf.String("to-state", "", "destination state or province code")
	qf.StringArray("pkg", nil, `package as "weight=2;weightUnit=KG;length=30;width=20;height=10;dimensionUnit=CM" (repeatable)`)
	qf.String("ship-date", "", "ship date YYYY-MM-DD (default today)")
	qf.String("currency", "", "preferred currency")
	qf.String("service", "", "restrict to one service type")
	qf.String("carrier", "", "restrict to one carrier code (FDXE, FDXG)")
	qf.Float64("declared-value", 0, "customs declared value")
	qf.Bool("documents", false, "shipment contains documents only")
	for _, name := range []string{"from-postal", "from-country", "to-postal", "to-country", "pkg"} {
		_ = quoteCmd.MarkFlagRequired(name)
	}

	tf := trackCmd.Flags()
	tf.String("locale", "", "response locale (default from config)")
	tf.Bool("latest", false, "only print the most recent event")
	tf.Bool("no-detail", false, "do not request detailed scans")

	af := addressValidateCmd.Flags()
	af.StringArray("street", nil, "street line (repeatable)")
	af.String("city", "", "city")
	af.String("state", "", "state or province code")
	af.String("postal", "", "postal code")
	af.String("country", "", "country code")
	af.Bool("residential", false, "residential address")
	af.String("locale", "", "response locale (default from config)")
	_ = addressValidateCmd.MarkFlagRequired("country")

	lf := locationsSearchCmd.Flags()
	lf.StringArray("street", nil, "street line (repeatable)")
	lf.String("city", "", "city")
	lf.String("postal", "", "postal code")
	lf.String("country", "", "country code")
	lf.String("type", "", "location type (default "+fedex.DefaultLocationType+")")
	lf.Int("limit", 0, "maximum results; 0 uses the default, negative means unlimited")
	lf.Bool("same-country", false, "only return locations in the same country")
	lf.Bool("any-state", false, "include locations in other states")
	lf.String("phone", "", "contact phone number")
	lf.String("locale", "", "response locale (default from config)")
	lf.Bool("raw", false, "print distance information")
	_ = locationsSearchCmd.MarkFlagRequired("country")

	addressCmd.AddCommand(addressValidateCmd)
	locationsCmd.AddCommand(locationsSearchCmd)
	rootCmd.AddCommand(quoteCmd, trackCmd, addressCmd, locationsCmd)
}

// withClient builds a client from the environment and runs fn with it.
// Logs go to stderr; stdout carries only the JSON result.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *fedex.Client) (any, error)) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := telemetry.NewCLILogger(cfg.LogLevel)
	defer logger.Sync()

	client, closeCache, err := initFedexClient(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeCache()

	result, err := fn(ctx, client)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runQuote(cmd *cobra.Command, args []string) error {
	req, err := quoteRequestFromFlags(cmd)
	if err != nil {
		return err
	}
	return withClient(cmd, func(ctx context.Context, client *fedex.Client) (any, error) {
		return client.GetQuotes(ctx, req)
	})
}

func quoteRequestFromFlags(cmd *cobra.Command) (*fedex.QuoteRequest, error) {
	f := cmd.Flags()
	str := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}

	specs, _ := f.GetStringArray("pkg")
	packages := make([]fedex.PackageSpec, 0, len(specs))
	for _, spec := range specs {
		pkg, err := parsePackage(spec)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}

	req := &fedex.QuoteRequest{
		From: fedex.RateAddress{
			PostalCode:          str("from-postal"),
			CountryCode:         str("from-country"),
			City:                str("from-city"),
			StateOrProvinceCode: str("from-state"),
		},
		To: fedex.RateAddress{
			PostalCode:          str("to-postal"),
			CountryCode:         str("to-country"),
			City:                str("to-city"),
			StateOrProvinceCode: str("to-state"),
		},
		Packages:          packages,
		PreferredCurrency: str("currency"),
		ServiceCode:       str("service"),
		CarrierCode:       str("carrier"),
	}
	req.IsDocuments, _ = f.GetBool("documents")

	if raw := str("ship-date"); raw != "" {
		shipDate, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --ship-date %q: want YYYY-MM-DD", raw)
		}
		req.ShipDate = shipDate
	}
	if f.Changed("declared-value") {
		declared, _ := f.GetFloat64("declared-value")
		req.DeclaredValue = &declared
	}
	return req, nil
}

// parsePackage reads "key=value;key=value" package specs. Keys are
// case-insensitive: weight, weightUnit, length, width, height, dimensionUnit.
func parsePackage(spec string) (fedex.PackageSpec, error) {
	var pkg fedex.PackageSpec
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return pkg, fmt.Errorf("invalid package field %q: want key=value", part)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "weightunit":
			unit := fedex.WeightUnit(strings.ToUpper(value))
			if unit != fedex.WeightKG && unit != fedex.WeightLB {
				return pkg, fmt.Errorf("invalid weightUnit %q: want KG or LB", value)
			}
			pkg.WeightUnit = unit
		case "dimensionunit":
			unit := fedex.DimensionUnit(strings.ToUpper(value))
			if unit != fedex.DimensionCM && unit != fedex.DimensionIN {
				return pkg, fmt.Errorf("invalid dimensionUnit %q: want CM or IN", value)
			}
			pkg.DimensionUnit = unit
		case "weight", "length", "width", "height":
			n, err := strconv.ParseFloat(value, 64)
			if err != nil || n < 0 {
				return pkg, fmt.Errorf("invalid %s %q", key, value)
			}
			switch key {
			case "weight":
				pkg.Weight = n
			case "length":
				pkg.Length = n
			case "width":
				pkg.Width = n
			case "height":
				pkg.Height = n
			}
		default:
			return pkg, fmt.Errorf("unknown package field %q", key)
		}
	}

	if pkg.Weight <= 0 {
		return pkg, fmt.Errorf("package %q: weight must be positive", spec)
	}
	return pkg, nil
}

func runTrack(cmd *cobra.Command, args []string) error {
	locale, _ := cmd.Flags().GetString("locale")
	latest, _ := cmd.Flags().GetBool("latest")
	noDetail, _ := cmd.Flags().GetBool("no-detail")

	return withClient(cmd, func(ctx context.Context, client *fedex.Client) (any, error) {
		switch {
		case len(args) > 1:
			return client.TrackMany(ctx, args, locale)
		case latest:
			return client.GetLatestEvent(ctx, args[0], locale)
		default:
			return client.TrackShipment(ctx, args[0], !noDetail, locale)
		}
	})
}

func runAddressValidate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	streets, _ := f.GetStringArray("street")
	city, _ := f.GetString("city")
	state, _ := f.GetString("state")
	postal, _ := f.GetString("postal")
	country, _ := f.GetString("country")
	residential, _ := f.GetBool("residential")
	locale, _ := f.GetString("locale")

	input := fedex.AddressInput{
		StreetLines: streets,
		City:        city,
		State:       state,
		PostalCode:  postal,
		CountryCode: country,
		Residential: residential,
	}
	return withClient(cmd, func(ctx context.Context, client *fedex.Client) (any, error) {
		return client.ValidateAddresses(ctx, []fedex.AddressInput{input}, locale)
	})
}

func runLocationsSearch(cmd *cobra.Command, args []string) error {
	req, raw := locationRequestFromFlags(cmd)
	return withClient(cmd, func(ctx context.Context, client *fedex.Client) (any, error) {
		if raw {
			return client.SearchLocationsRaw(ctx, req)
		}
		return client.SearchLocations(ctx, req)
	})
}

func locationRequestFromFlags(cmd *cobra.Command) (*fedex.LocationSearchRequest, bool) {
	f := cmd.Flags()
	req := &fedex.LocationSearchRequest{}
	req.StreetLines, _ = f.GetStringArray("street")
	req.City, _ = f.GetString("city")
	req.PostalCode, _ = f.GetString("postal")
	req.CountryCode, _ = f.GetString("country")
	req.LocationType, _ = f.GetString("type")
	req.Limit, _ = f.GetInt("limit")
	req.SameCountry, _ = f.GetBool("same-country")
	req.PhoneNumber, _ = f.GetString("phone")
	req.Locale, _ = f.GetString("locale")

	if anyState, _ := f.GetBool("any-state"); anyState {
		sameState := false
		req.SameState = &sameState
	}
	raw, _ := f.GetBool("raw")
	return req, raw
}
