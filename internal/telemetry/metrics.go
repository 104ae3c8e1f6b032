package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
	TokenCache      *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fedex_requests_total",
				Help: "Total number of requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fedex_request_duration_seconds",
				Help:    "Request duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fedex_carrier_errors_total",
				Help: "Total FedEx API errors by endpoint and error type",
			},
			[]string{"endpoint", "error_type"},
		),
		TokenCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fedex_token_cache_total",
				Help: "Token cache lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(endpoint, errorType string) {
	m.CarrierErrors.WithLabelValues(endpoint, errorType).Inc()
}

// RecordTokenLookup records a token cache lookup.
func (m *Metrics) RecordTokenLookup(result string) {
	m.TokenCache.WithLabelValues(result).Inc()
}
