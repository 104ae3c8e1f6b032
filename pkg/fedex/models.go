package fedex

import (
	"encoding/json"
	"time"
)

// TriState is a boolean that can also be unknown.
type TriState int8

const (
	Unknown TriState = iota
	True
	False
)

// TriStateOf converts a native bool.
func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

// Known reports whether the value is true or false.
func (t TriState) Known() bool {
	return t != Unknown
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes Unknown as null.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false and null.
func (t *TriState) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if b == nil {
		*t = Unknown
		return nil
	}
	*t = TriStateOf(*b)
	return nil
}

// WeightUnit is the package weight unit.
type WeightUnit string

const (
	WeightKG WeightUnit = "KG"
	WeightLB WeightUnit = "LB"
)

// DimensionUnit is the package dimension unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "CM"
	DimensionIN DimensionUnit = "IN"
)

// AddressInput is one address submitted for validation.
type AddressInput struct {
	StreetLines []string `json:"streetLines"`
	City        string   `json:"city,omitempty"`
	State       string   `json:"state,omitempty"`
	PostalCode  string   `json:"postalCode,omitempty"`
	CountryCode string   `json:"countryCode"` // ISO 3166-1 alpha-2
	Residential bool     `json:"residential"`
}

// NormalizedAddress is the carrier's standardized form of an address.
type NormalizedAddress struct {
	StreetLines []string `json:"streetLines"`
	City        string   `json:"city,omitempty"`
	State       string   `json:"state,omitempty"`
	PostalCode  string   `json:"postalCode,omitempty"`
	CountryCode string   `json:"countryCode,omitempty"`
}

// AddressValidationResult is the normalized outcome for one input address.
type AddressValidationResult struct {
	InputHash         string            `json:"inputHash"`
	NormalizedAddress NormalizedAddress `json:"normalizedAddress"`
	Resolved          bool              `json:"resolved"`
	DPVValid          TriState          `json:"dpvValid"`
	Interpolated      bool              `json:"interpolated"`
	Classification    string            `json:"classification"`
	Annotations       map[string]any    `json:"annotations"`
	Raw               map[string]any    `json:"raw,omitempty"`
}

// RateAddress is the origin or destination of a rate request.
type RateAddress struct {
	PostalCode          string `json:"postalCode"`
	CountryCode         string `json:"countryCode"`
	City                string `json:"city,omitempty"`
	StateOrProvinceCode string `json:"stateOrProvinceCode,omitempty"`
}

// PackageSpec describes one parcel. Dimensions are only sent when all
// three are positive.
type PackageSpec struct {
	Weight        float64       `json:"weight"`
	WeightUnit    WeightUnit    `json:"weightUnit,omitempty"`
	Length        float64       `json:"length,omitempty"`
	Width         float64       `json:"width,omitempty"`
	Height        float64       `json:"height,omitempty"`
	DimensionUnit DimensionUnit `json:"dimensionUnit,omitempty"`
}

// HasDimensions reports whether a complete dimension set is present.
func (p PackageSpec) HasDimensions() bool {
	return p.Length > 0 && p.Width > 0 && p.Height > 0
}

// QuoteRequest is the input to RatesClient.GetQuotes.
type QuoteRequest struct {
	From              RateAddress   `json:"from"`
	To                RateAddress   `json:"to"`
	Packages          []PackageSpec `json:"packages"`
	ShipDate          time.Time     `json:"shipDate,omitempty"`
	PreferredCurrency string        `json:"preferredCurrency,omitempty"`
	ServiceCode       string        `json:"serviceCode,omitempty"`
	DeclaredValue     *float64      `json:"declaredValue,omitempty"`
	CarrierCode       string        `json:"carrierCode,omitempty"` // FDXE, FDXG; empty means all
	IsDocuments       bool          `json:"isDocuments,omitempty"`
}

// RateQuote is one priced service option.
type RateQuote struct {
	ServiceCode           string     `json:"serviceCode"`
	ServiceName           string     `json:"serviceName"`
	Amount                float64    `json:"amount"`
	Currency              string     `json:"currency"`
	EstimatedDeliveryDate *time.Time `json:"estimatedDeliveryDate,omitempty"`
	TransitDays           *int       `json:"transitDays,omitempty"`
}

// TrackingEvent is one scan event.
type TrackingEvent struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	City        *string   `json:"city"`
	Country     *string   `json:"country"`
}

// LocationSearchRequest is the input to LocationClient.
type LocationSearchRequest struct {
	StreetLines  []string `json:"streetLines"`
	City         string   `json:"city,omitempty"`
	PostalCode   string   `json:"postalCode,omitempty"`
	CountryCode  string   `json:"countryCode"`
	SameState    *bool    `json:"sameState,omitempty"` // nil means true
	SameCountry  bool     `json:"sameCountry,omitempty"`
	LocationType string   `json:"locationType,omitempty"`
	Locale       string   `json:"locale,omitempty"`
	Limit        int      `json:"limit,omitempty"` // 0 means DefaultLocationLimit, negative means unlimited
	PhoneNumber  string   `json:"phoneNumber,omitempty"`
}

// RawLocationAddress is the address block of a drop point.
type RawLocationAddress struct {
	StreetLines []string `json:"streetLines"`
	City        string   `json:"city"`
	PostalCode  string   `json:"postalCode"`
	CountryCode string   `json:"countryCode"`
}

// RawLocation is a drop point as reported by the carrier.
type RawLocation struct {
	LocationID   string             `json:"locationId"`
	CompanyName  string             `json:"companyName"`
	Distance     *float64           `json:"distance"`
	DistanceUnit string             `json:"distanceUnit,omitempty"`
	Address      RawLocationAddress `json:"address"`
	Raw          map[string]any     `json:"-"`
}

// LocationResult is the compact form of a drop point.
type LocationResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}
