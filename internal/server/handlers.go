package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tournevent/fedex/pkg/fedex"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error          string `json:"error"`
	Endpoint       string `json:"endpoint,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}

// Addresses

type validateAddressesRequest struct {
	Addresses []fedex.AddressInput `json:"addresses"`
	Locale    string               `json:"locale,omitempty"`
}

type validateAddressesResponse struct {
	Results []fedex.AddressValidationResult `json:"results"`
}

func (s *Server) handleValidateAddresses(w http.ResponseWriter, r *http.Request) error {
	var req validateAddressesRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	for i, addr := range req.Addresses {
		if addr.CountryCode == "" {
			return badRequest("addresses[%d]: countryCode is required", i)
		}
	}

	results, err := s.fedex.ValidateAddresses(r.Context(), req.Addresses, req.Locale)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, validateAddressesResponse{Results: results})
	return nil
}

// Rates

type quoteRequest struct {
	From              fedex.RateAddress   `json:"from"`
	To                fedex.RateAddress   `json:"to"`
	Packages          []fedex.PackageSpec `json:"packages"`
	ShipDate          string              `json:"shipDate,omitempty"` // YYYY-MM-DD
	PreferredCurrency string              `json:"preferredCurrency,omitempty"`
	ServiceCode       string              `json:"serviceCode,omitempty"`
	DeclaredValue     *float64            `json:"declaredValue,omitempty"`
	CarrierCode       string              `json:"carrierCode,omitempty"`
	IsDocuments       bool                `json:"isDocuments,omitempty"`
}

type quoteResponse struct {
	Quotes []fedex.RateQuote `json:"quotes"`
}

func (q *quoteRequest) toModel() (*fedex.QuoteRequest, error) {
	if q.From.PostalCode == "" || q.From.CountryCode == "" {
		return nil, badRequest("from.postalCode and from.countryCode are required")
	}
	if q.To.PostalCode == "" || q.To.CountryCode == "" {
		return nil, badRequest("to.postalCode and to.countryCode are required")
	}
	if len(q.Packages) == 0 {
		return nil, badRequest("at least one package is required")
	}
	for i, pkg := range q.Packages {
		if pkg.Weight <= 0 {
			return nil, badRequest("packages[%d]: weight must be positive", i)
		}
		switch strings.ToUpper(string(pkg.WeightUnit)) {
		case "", string(fedex.WeightKG), string(fedex.WeightLB):
		default:
			return nil, badRequest("packages[%d]: weightUnit must be KG or LB", i)
		}
		switch strings.ToUpper(string(pkg.DimensionUnit)) {
		case "", string(fedex.DimensionCM), string(fedex.DimensionIN):
		default:
			return nil, badRequest("packages[%d]: dimensionUnit must be CM or IN", i)
		}
	}

	var shipDate time.Time
	if q.ShipDate != "" {
		parsed, err := time.Parse("2006-01-02", q.ShipDate)
		if err != nil {
			return nil, badRequest("shipDate must be YYYY-MM-DD")
		}
		shipDate = parsed
	}

	return &fedex.QuoteRequest{
		From:              q.From,
		To:                q.To,
		Packages:          q.Packages,
		ShipDate:          shipDate,
		PreferredCurrency: q.PreferredCurrency,
		ServiceCode:       q.ServiceCode,
		DeclaredValue:     q.DeclaredValue,
		CarrierCode:       q.CarrierCode,
		IsDocuments:       q.IsDocuments,
	}, nil
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) error {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	model, err := req.toModel()
	if err != nil {
		return err
	}

	quotes, err := s.fedex.GetQuotes(r.Context(), model)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, quoteResponse{Quotes: quotes})
	return nil
}

// Tracking

type trackResponse struct {
	TrackingNumber string                `json:"trackingNumber"`
	Events         []fedex.TrackingEvent `json:"events,omitempty"`
	Latest         *fedex.TrackingEvent  `json:"latest,omitempty"`
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest("%s must be a boolean", name)
	}
	return v, nil
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) error {
	number := chi.URLParam(r, "trackingNumber")
	locale := r.URL.Query().Get("locale")

	latest, err := queryBool(r, "latest", false)
	if err != nil {
		return err
	}
	detailed, err := queryBool(r, "detailed", true)
	if err != nil {
		return err
	}

	resp := trackResponse{TrackingNumber: number}
	if latest {
		event, err := s.fedex.GetLatestEvent(r.Context(), number, locale)
		if err != nil {
			return err
		}
		resp.Latest = event
	} else {
		events, err := s.fedex.TrackShipment(r.Context(), number, detailed, locale)
		if err != nil {
			return err
		}
		resp.Events = events
	}

	writeJSON(w, http.StatusOK, resp)
	return nil
}

type trackManyRequest struct {
	TrackingNumbers []string `json:"trackingNumbers"`
	Locale          string   `json:"locale,omitempty"`
}

type trackManyResponse struct {
	Results map[string][]fedex.TrackingEvent `json:"results"`
}

func (s *Server) handleTrackMany(w http.ResponseWriter, r *http.Request) error {
	var req trackManyRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if len(req.TrackingNumbers) == 0 {
		return badRequest("trackingNumbers is required")
	}

	results, err := s.fedex.TrackMany(r.Context(), req.TrackingNumbers, req.Locale)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, trackManyResponse{Results: results})
	return nil
}

// Locations

type locationsResponse struct {
	Locations any `json:"locations"`
}

func (s *Server) handleSearchLocations(w http.ResponseWriter, r *http.Request) error {
	var req fedex.LocationSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.CountryCode == "" {
		return badRequest("countryCode is required")
	}
	if req.PostalCode == "" && req.City == "" {
		return badRequest("postalCode or city is required")
	}

	raw, err := queryBool(r, "raw", false)
	if err != nil {
		return err
	}

	if raw {
		locations, err := s.fedex.SearchLocationsRaw(r.Context(), &req)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, locationsResponse{Locations: locations})
		return nil
	}

	locations, err := s.fedex.SearchLocations(r.Context(), &req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, locationsResponse{Locations: locations})
	return nil
}
