package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/fedex/internal/telemetry"
	"github.com/tournevent/fedex/pkg/fedex"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Service is the subset of the FedEx client the HTTP API exposes.
type Service interface {
	ValidateAddresses(ctx context.Context, inputs []fedex.AddressInput, locale string) ([]fedex.AddressValidationResult, error)
	GetQuotes(ctx context.Context, req *fedex.QuoteRequest) ([]fedex.RateQuote, error)
	TrackShipment(ctx context.Context, trackingNumber string, includeDetailedScans bool, locale string) ([]fedex.TrackingEvent, error)
	GetLatestEvent(ctx context.Context, trackingNumber, locale string) (*fedex.TrackingEvent, error)
	TrackMany(ctx context.Context, trackingNumbers []string, locale string) (map[string][]fedex.TrackingEvent, error)
	SearchLocations(ctx context.Context, req *fedex.LocationSearchRequest) ([]fedex.LocationResult, error)
	SearchLocationsRaw(ctx context.Context, req *fedex.LocationSearchRequest) ([]fedex.RawLocation, error)
}

var _ Service = (*fedex.Client)(nil)

// Server is the HTTP server for the FedEx bridge.
type Server struct {
	port     int
	fedex    Service
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
}

// Config holds server configuration.
type Config struct {
	Port int
	// Registry backs /metrics. When nil a private registry is created.
	Registry *prometheus.Registry
	// Metrics must be registered on Registry. When nil they are created on it.
	Metrics *telemetry.Metrics
}

// New creates a new server instance.
func New(cfg Config, svc Service, logger *otelzap.Logger) *Server {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics(reg)
	}

	return &Server{
		port:     cfg.Port,
		fedex:    svc,
		logger:   logger,
		metrics:  metrics,
		gatherer: reg,
	}
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/addresses/validate", s.instrument("address_validate", s.handleValidateAddresses))
		r.Post("/rates", s.instrument("rates", s.handleQuotes))
		r.Get("/tracking/{trackingNumber}", s.instrument("tracking", s.handleTrack))
		r.Post("/tracking/batch", s.instrument("tracking_batch", s.handleTrackMany))
		r.Post("/locations/search", s.instrument("locations", s.handleSearchLocations))
	})

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// instrument times the handler and turns a returned error into a JSON reply.
func (s *Server) instrument(operation string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		err := h(w, r)
		status := "ok"
		if err != nil {
			status = "error"
			s.writeError(w, r, operation, err)
		}
		s.metrics.RecordRequest(operation, status, time.Since(start).Seconds())
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var badReq *badRequestError
	var apiErr *fedex.APIError

	switch {
	case errors.As(err, &badReq):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: badReq.Error()})

	case errors.As(err, &apiErr):
		errorType := "transport"
		switch {
		case errors.Is(err, fedex.ErrAuthenticationFailed):
			errorType = "auth"
		case apiErr.StatusCode != 0:
			errorType = fmt.Sprintf("status_%d", apiErr.StatusCode)
		}
		s.metrics.RecordError(apiErr.Endpoint, errorType)
		s.logger.Ctx(r.Context()).Error("FedEx request failed",
			zap.String("operation", operation),
			zap.String("endpoint", apiErr.Endpoint),
			zap.Int("status", apiErr.StatusCode),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:          err.Error(),
			Endpoint:       apiErr.Endpoint,
			UpstreamStatus: apiErr.StatusCode,
		})

	default:
		s.logger.Ctx(r.Context()).Error("Request failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
