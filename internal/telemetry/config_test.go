package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultServiceName, cfg.GetServiceName())
	assert.Equal(t, "unknown", cfg.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())
	assert.InDelta(t, DefaultSampling, (&TracingConfig{}).GetSampling(), 1e-9)

	cfg = &Config{ServiceName: "svc", ServiceVersion: "v1", Endpoint: "otel:4318"}
	assert.Equal(t, "svc", cfg.GetServiceName())
	assert.Equal(t, "v1", cfg.GetServiceVersion())
	assert.Equal(t, "otel:4318", cfg.GetEndpoint())
	assert.InDelta(t, 0.5, (&TracingConfig{Sampling: 0.5}).GetSampling(), 1e-9)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{name: "nil config", config: nil},
		{name: "disabled ignores sub-config", config: &Config{Tracing: &TracingConfig{Enabled: true, Sampling: -1}}},
		{name: "valid tracing", config: &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1}}},
		{name: "negative sampling", config: &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: -0.1}},
			wantErr: "tracing: sampling"},
		{name: "otlp metrics only", config: &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, OTLP: true}}},
		{name: "no metric exporter", config: &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true}},
			wantErr: "metrics:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
