package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// DefaultMetricsInterval is the OTLP push interval
const DefaultMetricsInterval = 60 * time.Second

// meterSetup is the result of building a meter provider
type meterSetup struct {
	provider metric.MeterProvider

	// handler serves the Prometheus exposition format; nil when disabled
	handler http.Handler
}

// newMeterProvider creates a MeterProvider with a Prometheus reader and/or an
// OTLP periodic reader. It returns a no-op provider when metrics are disabled.
func newMeterProvider(ctx context.Context, cfg *Config, logger *zap.Logger) (*meterSetup, error) {
	if cfg == nil || !cfg.Enabled || cfg.Metrics == nil || !cfg.Metrics.Enabled {
		logger.Debug("Metrics disabled, using no-op meter provider")
		return &meterSetup{provider: noop.NewMeterProvider()}, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	setup := &meterSetup{}

	if cfg.Metrics.Prometheus {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exporter))
		setup.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	if cfg.Metrics.OTLP {
		expOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.GetEndpoint())}
		if cfg.Insecure {
			expOpts = append(expOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval)),
		))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	setup.provider = mp

	logger.Info("Metrics initialized",
		zap.Bool("prometheus", cfg.Metrics.Prometheus),
		zap.Bool("otlp", cfg.Metrics.OTLP),
		zap.String("endpoint", cfg.GetEndpoint()))
	return setup, nil
}
