package fedex

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	shipDateLayout         = "2006-01-02"
	defaultCustomsCurrency = "USD"
	defaultDeclaredValue   = 1.0
	minCustomsWeight       = 0.01
	unknownServiceCode     = "UNKNOWN"
)

var (
	rateDetailPaths = []path{
		p("output.rateReplyDetails"),
		p("rateReplyDetails"),
	}
	rateTotalPaths = []path{
		p("ratedShipmentDetails.0.shipmentRateDetail.totalNetCharge"),
		p("ratedShipmentDetails.0.shipmentRateDetail.totalNetChargeWithDutiesAndTaxes"),
	}
	transitTimePaths = []path{
		p("transitTime"),
		p("commit.transitTime"),
	}
)

// RatesClient requests shipment rate quotes.
type RatesClient struct {
	endpoint      string
	accountNumber string
	auth          *Authenticator
	api           Transport
	now           func() time.Time
	logger        *otelzap.Logger
	tracer        trace.Tracer
}

// GetQuotes returns priced services for the shipment, cheapest first.
func (c *RatesClient) GetQuotes(ctx context.Context, req *QuoteRequest) ([]RateQuote, error) {
	ctx, span := c.tracer.Start(ctx, "fedex.rates.quote",
		trace.WithAttributes(
			attribute.String("fedex.from_country", req.From.CountryCode),
			attribute.String("fedex.to_country", req.To.CountryCode),
			attribute.Int("fedex.package_count", len(req.Packages)),
		))
	defer span.End()

	c.logger.Ctx(ctx).Info("Getting FedEx quotes",
		zap.String("from_postal", req.From.PostalCode),
		zap.String("to_postal", req.To.PostalCode),
		zap.Int("package_count", len(req.Packages)),
	)

	token, err := c.auth.GetAccessToken(ctx, ScopeShip)
	if err != nil {
		span.RecordError(err)
		return nil, wrapFailure(EndpointRates, err)
	}

	payload := buildRatePayload(req, c.accountNumber, c.now())
	resp, err := c.api.Do(ctx, bearerRequest(c.endpoint, token, "", payload))
	if err != nil {
		span.RecordError(err)
		return nil, wrapFailure(EndpointRates, err)
	}
	if !resp.OK() {
		apiErr := newStatusError(EndpointRates, resp)
		span.RecordError(apiErr)
		c.logger.Ctx(ctx).Error("FedEx rates error", zap.Int("status", resp.StatusCode))
		return nil, apiErr
	}

	data, err := resp.Object()
	if err != nil {
		span.RecordError(err)
		return nil, wrapFailure(EndpointRates, err)
	}

	quotes := parseRateQuotes(data)
	span.SetAttributes(attribute.Int("fedex.quote_count", len(quotes)))
	return quotes, nil
}

// IsInternational reports whether the shipment crosses a border.
func (r *QuoteRequest) IsInternational() bool {
	return !strings.EqualFold(r.From.CountryCode, r.To.CountryCode)
}

func buildRatePayload(req *QuoteRequest, accountNumber string, now time.Time) map[string]any {
	shipDate := req.ShipDate
	if shipDate.IsZero() {
		shipDate = now
	}

	var carrierCodes []any
	if req.CarrierCode != "" {
		carrierCodes = []any{strings.ToUpper(req.CarrierCode)}
	}

	var customs map[string]any
	if req.IsInternational() && !req.IsDocuments {
		customs = buildCustoms(req)
	}

	lineItems := make([]any, 0, len(req.Packages))
	for _, pkg := range req.Packages {
		lineItems = append(lineItems, packageLineItem(pkg))
	}

	return pruneObject(map[string]any{
		"accountNumber": map[string]any{"value": accountNumber},
		"rateRequestControlParameters": map[string]any{
			"returnTransitTimes": true,
		},
		"requestedShipment": map[string]any{
			"rateRequestType":           []any{"ACCOUNT", "LIST"},
			"carrierCodes":              carrierCodes,
			"serviceType":               req.ServiceCode,
			"shipDateStamp":             shipDate.Format(shipDateLayout),
			"pickupType":                "DROPOFF_AT_FEDEX_LOCATION",
			"preferredCurrency":         req.PreferredCurrency,
			"shipper":                   map[string]any{"address": rateAddress(req.From)},
			"recipient":                 map[string]any{"address": rateAddress(req.To)},
			"customsClearanceDetail":    customs,
			"requestedPackageLineItems": lineItems,
		},
	})
}

func rateAddress(a RateAddress) map[string]any {
	return map[string]any{
		"postalCode":          a.PostalCode,
		"countryCode":         a.CountryCode,
		"city":                a.City,
		"stateOrProvinceCode": a.StateOrProvinceCode,
	}
}

func weightUnitOf(pkg PackageSpec) string {
	if pkg.WeightUnit == "" {
		return string(WeightKG)
	}
	return strings.ToUpper(string(pkg.WeightUnit))
}

func packageLineItem(pkg PackageSpec) map[string]any {
	item := map[string]any{
		"weight": map[string]any{
			"units": weightUnitOf(pkg),
			"value": pkg.Weight,
		},
	}
	if pkg.HasDimensions() {
		units := strings.ToUpper(string(pkg.DimensionUnit))
		if units == "" {
			units = string(DimensionCM)
		}
		item["dimensions"] = map[string]any{
			"units":  units,
			"length": formatDimension(pkg.Length),
			"width":  formatDimension(pkg.Width),
			"height": formatDimension(pkg.Height),
		}
	}
	return item
}

func formatDimension(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// buildCustoms declares the merchandise of an international shipment;
// the carrier rejects such requests without it.
func buildCustoms(req *QuoteRequest) map[string]any {
	var totalWeight float64
	for _, pkg := range req.Packages {
		totalWeight += pkg.Weight
	}

	weightUnit := string(WeightKG)
	if len(req.Packages) > 0 {
		weightUnit = weightUnitOf(req.Packages[0])
	}

	currency := req.PreferredCurrency
	if currency == "" {
		currency = defaultCustomsCurrency
	}

	declared := defaultDeclaredValue
	if req.DeclaredValue != nil {
		declared = *req.DeclaredValue
	}

	pieces := len(req.Packages)
	if pieces < 1 {
		pieces = 1
	}

	return map[string]any{
		"dutiesPayment": map[string]any{
			"paymentType": "SENDER",
		},
		"commodities": []any{
			map[string]any{
				"description":          "Merchandise",
				"numberOfPieces":       pieces,
				"quantity":             1,
				"quantityUnits":        "PCS",
				"countryOfManufacture": strings.ToUpper(req.From.CountryCode),
				"weight": map[string]any{
					"units": weightUnit,
					"value": math.Max(minCustomsWeight, totalWeight),
				},
				"customsValue": map[string]any{
					"currency": currency,
					"amount":   declared,
				},
			},
		},
		"commercialInvoice": map[string]any{
			"shipmentPurpose": "SOLD",
		},
	}
}

func parseRateQuotes(data map[string]any) []RateQuote {
	list, _ := firstOf(data, rateDetailPaths...)
	details := asSlice(list)

	quotes := make([]RateQuote, 0, len(details))
	for _, raw := range details {
		if quote, ok := rateQuoteOf(asMap(raw)); ok {
			quotes = append(quotes, quote)
		}
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Amount < quotes[j].Amount
	})
	return quotes
}

// rateQuoteOf maps one rate detail. Details without a resolvable price
// are dropped rather than emitted with placeholders.
func rateQuoteOf(detail map[string]any) (RateQuote, bool) {
	if detail == nil {
		return RateQuote{}, false
	}

	amount, currency, ok := totalChargeOf(detail)
	if !ok {
		return RateQuote{}, false
	}

	serviceCode := stringAt(detail, p("serviceType"))
	if serviceCode == "" {
		serviceCode = unknownServiceCode
	}
	serviceName := stringAt(detail, p("serviceName"))
	if serviceName == "" {
		serviceName = serviceCode
	}

	return RateQuote{
		ServiceCode:           serviceCode,
		ServiceName:           serviceName,
		Amount:                amount,
		Currency:              currency,
		EstimatedDeliveryDate: deliveryDateOf(detail),
		TransitDays:           transitDaysOf(detail),
	}, true
}

func totalChargeOf(detail map[string]any) (float64, string, bool) {
	v, ok := firstOf(detail, rateTotalPaths...)
	total := asMap(v)
	if !ok || total == nil {
		return 0, "", false
	}
	amount, ok := numeric(total["amount"])
	if !ok {
		return 0, "", false
	}
	currency, _ := asString(total["currency"])
	if currency == "" {
		return 0, "", false
	}
	return amount, currency, true
}

func deliveryDateOf(detail map[string]any) *time.Time {
	raw := stringAt(detail, p("deliveryTimestamp"))
	if raw == "" {
		raw = stringAt(detail, p("commit.dateDetail.day"))
	}
	t, ok := parseTimestamp(raw)
	if !ok {
		return nil
	}
	return &t
}

func transitDaysOf(detail map[string]any) *int {
	v, ok := firstOf(detail, transitTimePaths...)
	if !ok {
		return nil
	}
	n, ok := numeric(v)
	if !ok {
		return nil
	}
	days := int(n)
	return &days
}
