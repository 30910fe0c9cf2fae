// Package telemetry provides OpenTelemetry instrumentation for the coordination registry.
// Metrics can be scraped through a Prometheus handler and pushed over OTLP;
// traces are pushed over OTLP.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName is the default service name for telemetry
	DefaultServiceName = "coordination-registry"

	// DefaultEndpoint is the default OTLP endpoint for telemetry
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the default trace sampling rate (10%)
	DefaultSampling = 0.1
)

// Config represents the root telemetry configuration
type Config struct {
	// Enabled controls whether telemetry is enabled globally
	// When false, no providers are created and noop ones are handed out
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies the process in exported telemetry
	// Defaults to "coordination-registry" if not specified
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion is reported as the service.version resource attribute
	// The serve command fills it with the build version when left empty
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP collector endpoint used for traces and pushed metrics
	// Defaults to "localhost:4318" if not specified
	// Format: "host:port", the exporters append /v1/traces and /v1/metrics
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure allows plain HTTP connections to the collector
	// Meant for local collectors and tests
	Insecure bool `yaml:"insecure,omitempty"`

	// Tracing contains tracing-specific configuration
	Tracing *TracingConfig `yaml:"tracing,omitempty"`

	// Metrics contains metrics-specific configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig defines tracing-specific configuration
type TracingConfig struct {
	// Enabled controls whether supervision cycles and deliveries are traced
	// Has no effect while telemetry is disabled globally
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of traces kept (0.0 to 1.0)
	// 1.0 keeps every cycle, 0.25 keeps one in four
	// Defaults to DefaultSampling when 0 or unset
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig defines metrics-specific configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded
	// Has no effect while telemetry is disabled globally
	Enabled bool `yaml:"enabled"`

	// Prometheus exposes metrics on the ops server /metrics endpoint
	Prometheus bool `yaml:"prometheus"`

	// OTLP pushes metrics to the collector endpoint
	// At least one of Prometheus and OTLP is required when metrics are enabled
	OTLP bool `yaml:"otlp,omitempty"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, using "unknown" if not specified
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio.
// An unset Sampling and an explicit 0 look the same once decoded, so both
// yield DefaultSampling. Validate rejects values outside [0, 1].
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if c == nil {
		return nil // no telemetry section means telemetry is off
	}

	if !c.Enabled {
		return nil // sub-sections are ignored while disabled
	}

	var errs []error

	if c.Tracing != nil {
		if err := c.Tracing.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Validate validates the tracing configuration
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}

// Validate validates the metrics configuration
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	// Recording without any exporter would drop everything
	if !c.Prometheus && !c.OTLP {
		return errors.New("at least one of prometheus or otlp must be enabled")
	}
	return nil
}
