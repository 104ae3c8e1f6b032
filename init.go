package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tournevent/fedex/internal/config"
	"github.com/tournevent/fedex/internal/telemetry"
	"github.com/tournevent/fedex/pkg/fedex"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(telemetry.LogOptions{Level: cfg.LogLevel, File: cfg.LogFile})
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
	return shutdown, err
}

func initMetrics() (*prometheus.Registry, *telemetry.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, telemetry.NewMetrics(reg)
}

// initTokenCache picks the configured backend. The returned func releases it.
func initTokenCache(ctx context.Context, cfg *config.Config) (fedex.TokenCache, func(), error) {
	if cfg.TokenCache != config.TokenCacheRedis {
		return fedex.NewMemoryTokenCache(), func() {}, nil
	}

	cache, err := fedex.NewRedisTokenCacheFromURL(ctx, cfg.RedisURL, cfg.ServiceName+":")
	if err != nil {
		return nil, nil, fmt.Errorf("initializing token cache: %w", err)
	}
	return cache, func() { _ = cache.Close() }, nil
}

func initFedexClient(ctx context.Context, cfg *config.Config, logger *otelzap.Logger, metrics *telemetry.Metrics) (*fedex.Client, func(), error) {
	cache, closeCache, err := initTokenCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if metrics != nil {
		cache = telemetry.InstrumentTokenCache(cache, metrics)
	}

	fc := cfg.Fedex()
	tracer := otel.Tracer(cfg.ServiceName)
	return fedex.NewWithTransport(fc, fedex.NewTransport(fc), cache, logger, tracer), closeCache, nil
}
