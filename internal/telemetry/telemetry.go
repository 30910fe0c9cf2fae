package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Telemetry owns the OpenTelemetry providers and their lifecycle
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricsHandler http.Handler
	logger         *zap.Logger

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option configures the telemetry setup
type Option func(*telemetryOptions)

type telemetryOptions struct {
	config *Config
	logger *zap.Logger
}

// WithTelemetryConfig sets the telemetry configuration
func WithTelemetryConfig(cfg *Config) Option {
	return func(o *telemetryOptions) {
		o.config = cfg
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *telemetryOptions) {
		o.logger = l
	}
}

// New creates the telemetry providers. With a nil or disabled configuration
// it returns no-op providers. The caller must call Shutdown.
func New(ctx context.Context, opts ...Option) (*Telemetry, error) {
	o := &telemetryOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	tp, err := newTracerProvider(ctx, o.config, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	meters, err := newMeterProvider(ctx, o.config, o.logger)
	if err != nil {
		if sdk, ok := tp.(*sdktrace.TracerProvider); ok {
			_ = sdk.Shutdown(ctx)
		}
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}

	return &Telemetry{
		tracerProvider: tp,
		meterProvider:  meters.provider,
		metricsHandler: meters.handler,
		logger:         o.logger,
	}, nil
}

// TracerProvider returns the configured tracer provider
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the configured meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// Tracer returns a named tracer
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return t.tracerProvider.Tracer(name, opts...)
}

// MetricsHandler returns the Prometheus scrape handler, or nil when
// Prometheus export is disabled.
func (t *Telemetry) MetricsHandler() http.Handler {
	return t.metricsHandler
}

// Shutdown flushes and stops the SDK providers. Later calls return the
// result of the first one.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		t.shutdownErr = t.shutdown(ctx)
	})
	return t.shutdownErr
}

func (t *Telemetry) shutdown(ctx context.Context) error {
	var errs []error

	if tp, ok := t.tracerProvider.(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if mp, ok := t.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	t.logger.Debug("Telemetry shutdown complete")
	return nil
}
