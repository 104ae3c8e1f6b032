package fedex

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MaxAddressBatch is the documented per-call limit of the carrier. The
// client does not enforce it.
const MaxAddressBatch = 100

const unknownClassification = "UNKNOWN"

var (
	addressListPaths = []path{
		p("output.resolvedAddresses"),
		p("output.validatedAddresses"),
		p("addresses"),
	}
	dpvPaths = []path{
		p("normalizedStatusNameDPV"),
		p("deliveryPointValidation.valid"),
		p("dpv.isDPV"),
	}
	addressBlockPaths = []path{
		p("effectiveAddress"),
		p("standardizedAddress"),
		p("normalizedAddress"),
		p("resolvedAddress"),
	}
)

// AddressValidationClient validates and normalizes addresses in batches.
type AddressValidationClient struct {
	endpoint string
	auth     *Authenticator
	api      Transport
	locale   string
	logger   *otelzap.Logger
	tracer   trace.Tracer
}

// Validate submits inputs as one batch and returns one result per reply item.
func (c *AddressValidationClient) Validate(ctx context.Context, inputs []AddressInput, locale string) ([]AddressValidationResult, error) {
	if len(inputs) == 0 {
		return []AddressValidationResult{}, nil
	}
	if locale == "" {
		locale = c.locale
	}

	ctx, span := c.tracer.Start(ctx, "fedex.address.validate",
		trace.WithAttributes(attribute.Int("fedex.address_count", len(inputs))))
	defer span.End()

	c.logger.Ctx(ctx).Info("Validating addresses",
		zap.Int("address_count", len(inputs)),
		zap.String("locale", locale),
	)

	token, err := c.auth.GetAccessToken(ctx, ScopeShip)
	if err != nil {
		span.RecordError(err)
		return nil, wrapFailure(EndpointAddress, err)
	}

	resp, err := c.api.Do(ctx, bearerRequest(c.endpoint, token, locale, buildAddressPayload(inputs)))
	if err != nil {
		span.RecordError(err)
		return nil, wrapFailure(EndpointAddress, err)
	}
	if !resp.OK() {
		apiErr := newStatusError(EndpointAddress, resp)
		span.RecordError(apiErr)
		c.logger.Ctx(ctx).Error("FedEx address validation error", zap.Int("status", resp.StatusCode))
		return nil, apiErr
	}

	data, err := resp.Object()
	if err != nil {
		span.RecordError(err)
		return nil, wrapFailure(EndpointAddress, err)
	}

	return parseAddressResults(data, inputs), nil
}

func buildAddressPayload(inputs []AddressInput) map[string]any {
	addresses := make([]any, 0, len(inputs))
	for _, in := range inputs {
		addresses = append(addresses, map[string]any{
			"address": map[string]any{
				"streetLines":         nonBlank(in.StreetLines),
				"city":                in.City,
				"stateOrProvinceCode": in.State,
				"postalCode":          in.PostalCode,
				"countryCode":         strings.ToUpper(in.CountryCode),
				"residential":         in.Residential,
			},
		})
	}
	return pruneObject(map[string]any{
		"addressesToValidate": addresses,
	})
}

func parseAddressResults(data map[string]any, inputs []AddressInput) []AddressValidationResult {
	list, _ := firstOf(data, addressListPaths...)
	items := asSlice(list)

	results := make([]AddressValidationResult, 0, len(items))
	for i, raw := range items {
		item := asMap(raw)
		if item == nil {
			item = map[string]any{}
		}

		var hash string
		if i < len(inputs) {
			hash = HashAddressInput(inputs[i])
		} else {
			hash = randomInputHash()
		}

		results = append(results, AddressValidationResult{
			InputHash:         hash,
			NormalizedAddress: normalizedAddressOf(item),
			Resolved:          resolvedOf(item),
			DPVValid:          dpvOf(item),
			Interpolated:      interpolatedOf(item),
			Classification:    classificationOf(item),
			Annotations:       annotationsOf(item),
			Raw:               item,
		})
	}
	return results
}

func resolvedOf(item map[string]any) bool {
	return stringAt(item, p("attributes.Matched")) == "true" ||
		truthy(item["resolved"]) ||
		truthy(item["isResolved"]) ||
		stringAt(item, p("attributes.AddressType")) == "STANDARDIZED"
}

func dpvOf(item map[string]any) TriState {
	v, ok := firstOf(item, dpvPaths...)
	if !ok {
		return Unknown
	}
	return triState(v)
}

func interpolatedOf(item map[string]any) bool {
	if v, ok := dig(item, p("attributes.InterpolatedStreetAddress")); ok {
		if b, isBool := v.(bool); isBool {
			return b
		}
		s, _ := asString(v)
		return s == "true"
	}
	v, _ := firstOf(item, p("interpolated"), p("isInterpolated"))
	return truthy(v)
}

func classificationOf(item map[string]any) string {
	if s := stringAt(item, p("classification"), p("addressClassification")); s != "" {
		return s
	}
	return unknownClassification
}

// normalizedAddressOf picks the first nested address block, falling back
// to the flat top-level fields some regional variants return.
func normalizedAddressOf(item map[string]any) NormalizedAddress {
	var block map[string]any
	for _, candidate := range addressBlockPaths {
		v, _ := dig(item, candidate)
		if m := asMap(v); len(m) > 0 {
			block = m
			break
		}
	}

	if block == nil {
		return NormalizedAddress{
			StreetLines: stringList(item["streetLinesToken"]),
			City:        stringAt(item, p("city")),
			State:       stringAt(item, p("stateOrProvinceCode")),
			PostalCode:  stringAt(item, p("postalCode")),
			CountryCode: stringAt(item, p("countryCode")),
		}
	}

	return NormalizedAddress{
		StreetLines: stringList(block["streetLines"]),
		City:        stringAt(block, p("city")),
		State:       stringAt(block, p("stateOrProvinceCode")),
		PostalCode:  stringAt(block, p("postalCode")),
		CountryCode: stringAt(block, p("countryCode")),
	}
}

func annotationsOf(item map[string]any) map[string]any {
	attributes := asMap(item["attributes"])
	if attributes == nil {
		attributes = map[string]any{}
	}

	annotations := map[string]any{
		"resolutionMethod": nil,
		"matchSource":      nil,
		"attributes":       attributes,
	}
	if v, ok := dig(item, p("resolutionMethodName")); ok {
		annotations["resolutionMethod"] = v
	}
	if v, ok := dig(item, p("standardizedStatusNameMatchSource")); ok {
		annotations["matchSource"] = v
	}
	return annotations
}

// HashAddressInput is a short deterministic fingerprint of the submitted
// fields, used to correlate batch results with their inputs.
func HashAddressInput(in AddressInput) string {
	streetLines := in.StreetLines
	if streetLines == nil {
		streetLines = []string{}
	}
	fields := []any{
		streetLines,
		optional(in.City),
		optional(in.State),
		optional(in.PostalCode),
		in.CountryCode,
		in.Residential,
	}
	encoded, _ := json.Marshal(fields)
	sum := sha1.Sum(encoded)
	return hex.EncodeToString(sum[:])[:12]
}

func randomInputHash() string {
	id := uuid.New()
	return hex.EncodeToString(id[:6])
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
