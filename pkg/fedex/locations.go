package fedex

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultLocationType is the drop-point type searched when none is given.
	DefaultLocationType = "FEDEX_SHIP_AND_GET"

	// DefaultLocationLimit caps the results when the request leaves Limit at zero.
	DefaultLocationLimit = 5
)

var locationListPaths = []path{
	p("output.locationDetailList"),
	p("output.locationDetails"),
}

// LocationClient searches drop points near an address.
type LocationClient struct {
	endpoint string
	auth     *Authenticator
	api      Transport
	locale   string
	logger   *otelzap.Logger
	tracer   trace.Tracer
}

// Search returns compact drop points, nearest first. A non-200 reply is
// returned as *APIError rather than an empty list.
func (c *LocationClient) Search(ctx context.Context, req *LocationSearchRequest) ([]LocationResult, error) {
	raw, err := c.SearchRaw(ctx, req)
	if err != nil {
		return nil, err
	}

	results := make([]LocationResult, 0, len(raw))
	for _, loc := range raw {
		results = append(results, locationResultOf(loc))
	}
	return results, nil
}

// SearchRaw returns drop points with distance information, sorted by
// distance, without unnamed entries, truncated to the request limit.
func (c *LocationClient) SearchRaw(ctx context.Context, req *LocationSearchRequest) ([]RawLocation, error) {
	locale := req.Locale
	if locale == "" {
		locale = c.locale
	}

	ctx, span := c.tracer.Start(ctx, "fedex.locations.search",
		trace.WithAttributes(
			attribute.String("fedex.country", req.CountryCode),
			attribute.String("fedex.postal_code", req.PostalCode),
		))
	defer span.End()

	c.logger.Ctx(ctx).Info("Searching FedEx locations",
		zap.String("postal_code", req.PostalCode),
		zap.String("country", req.CountryCode),
		zap.String("location_type", req.locationType()),
	)

	token, err := c.auth.GetAccessToken(ctx, ScopeShip)
	if err != nil {
		span.RecordError(err)
		return nil, wrapFailure(EndpointLocations, err)
	}

	resp, err := c.api.Do(ctx, bearerRequest(c.endpoint, token, locale, buildLocationPayload(req)))
	if err != nil {
		span.RecordError(err)
		return nil, wrapFailure(EndpointLocations, err)
	}
	if !resp.OK() {
		apiErr := newStatusError(EndpointLocations, resp)
		span.RecordError(apiErr)
		c.logger.Ctx(ctx).Error("FedEx location search error", zap.Int("status", resp.StatusCode))
		return nil, apiErr
	}

	data, err := resp.Object()
	if err != nil {
		span.RecordError(err)
		return nil, wrapFailure(EndpointLocations, err)
	}

	locations := parseLocations(data, req.limit())
	span.SetAttributes(attribute.Int("fedex.location_count", len(locations)))
	return locations, nil
}

func (r *LocationSearchRequest) locationType() string {
	if r.LocationType == "" {
		return DefaultLocationType
	}
	return r.LocationType
}

func (r *LocationSearchRequest) sameState() bool {
	if r.SameState == nil {
		return true
	}
	return *r.SameState
}

func (r *LocationSearchRequest) limit() int {
	if r.Limit == 0 {
		return DefaultLocationLimit
	}
	return r.Limit
}

func buildLocationPayload(req *LocationSearchRequest) map[string]any {
	address := pruneObject(map[string]any{
		"streetLines": nonBlank(req.StreetLines),
		"city":        req.City,
		"postalCode":  req.PostalCode,
		"countryCode": strings.ToUpper(req.CountryCode),
	})
	address["residential"] = false

	location := map[string]any{"address": address}
	if req.PhoneNumber != "" {
		location["phoneNumber"] = req.PhoneNumber
	}

	return map[string]any{
		"locationSearchCriterion": "ADDRESS",
		"location":                location,
		"sameState":               req.sameState(),
		"sameCountry":             req.SameCountry,
		"locationType":            req.locationType(),
	}
}

// parseLocations sorts by distance (unknown last), drops entries without
// a company name, then applies limit. A negative limit keeps everything.
func parseLocations(data map[string]any, limit int) []RawLocation {
	list, _ := firstOf(data, locationListPaths...)
	items := asSlice(list)

	all := make([]RawLocation, 0, len(items))
	for _, item := range items {
		if m := asMap(item); m != nil {
			all = append(all, rawLocationOf(m))
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return distanceKey(all[i]) < distanceKey(all[j])
	})

	out := make([]RawLocation, 0, len(all))
	for _, loc := range all {
		if limit > 0 && len(out) >= limit {
			break
		}
		if loc.CompanyName == "" {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func distanceKey(loc RawLocation) float64 {
	if loc.Distance == nil {
		return math.MaxFloat64
	}
	return *loc.Distance
}

func rawLocationOf(item map[string]any) RawLocation {
	loc := RawLocation{
		LocationID:   stringAt(item, p("locationId")),
		CompanyName:  stringAt(item, p("contactAndAddress.contact.companyName")),
		DistanceUnit: stringAt(item, p("distanceWithUnit.units"), p("distanceWithUnit.unit")),
		Address: RawLocationAddress{
			StreetLines: stringList(valueAt(item, p("contactAndAddress.address.streetLines"))),
			City:        stringAt(item, p("contactAndAddress.address.city")),
			PostalCode:  stringAt(item, p("contactAndAddress.address.postalCode")),
			CountryCode: stringAt(item, p("contactAndAddress.address.countryCode")),
		},
		Raw: item,
	}
	if v, ok := dig(item, p("distanceWithUnit.value")); ok {
		if d, ok := numeric(v); ok {
			loc.Distance = &d
		}
	}
	return loc
}

func locationResultOf(loc RawLocation) LocationResult {
	street := ""
	if len(loc.Address.StreetLines) > 0 {
		street = loc.Address.StreetLines[0]
	}
	return LocationResult{
		ID:          loc.LocationID,
		Name:        loc.CompanyName,
		Street:      street,
		City:        loc.Address.City,
		PostalCode:  loc.Address.PostalCode,
		CountryCode: loc.Address.CountryCode,
	}
}
