package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SupervisionMetricsMeterName is the name used for the supervision metrics meter
	SupervisionMetricsMeterName = "github.com/stacklok/coordination-registry/supervision"

	// NotificationMetricsMeterName is the name used for the notification metrics meter
	NotificationMetricsMeterName = "github.com/stacklok/coordination-registry/notify"

	// RegistryMetricsMeterName is the name used for the registry metrics meter
	RegistryMetricsMeterName = "github.com/stacklok/coordination-registry/registry"
)

// Probe and delivery outcomes used as the "result" attribute
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// SupervisionMetrics holds the instruments recorded by the supervision loop
type SupervisionMetrics struct {
	cycleDuration   metric.Float64Histogram
	probes          metric.Int64Counter
	enables         metric.Int64Counter
	deregistrations metric.Int64Counter
}

// NewSupervisionMetrics creates supervision instruments.
// If provider is nil, it returns nil (no-op metrics).
func NewSupervisionMetrics(provider metric.MeterProvider) (*SupervisionMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SupervisionMetricsMeterName)

	cycleDuration, err := meter.Float64Histogram(
		"coord_reg_supervision_cycle_duration_seconds",
		metric.WithDescription("Duration of supervision cycles in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	probes, err := meter.Int64Counter(
		"coord_reg_supervision_probes_total",
		metric.WithDescription("Resource health probes by result"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	enables, err := meter.Int64Counter(
		"coord_reg_supervision_enables_total",
		metric.WithDescription("Subscription enable calls by result"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	deregistrations, err := meter.Int64Counter(
		"coord_reg_supervision_deregistrations_total",
		metric.WithDescription("Resources deregistered after repeated probe failures"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	return &SupervisionMetrics{
		cycleDuration:   cycleDuration,
		probes:          probes,
		enables:         enables,
		deregistrations: deregistrations,
	}, nil
}

// RecordCycleDuration records the duration of one supervision cycle
func (m *SupervisionMetrics) RecordCycleDuration(ctx context.Context, duration time.Duration, resources int) {
	if m == nil {
		return
	}
	m.cycleDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Int("resources", resources)))
}

// RecordProbe counts one health probe
func (m *SupervisionMetrics) RecordProbe(ctx context.Context, resourceID string, success bool) {
	if m == nil {
		return
	}
	m.probes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resourceID),
		attribute.String("result", result(success)),
	))
}

// RecordEnable counts one enable call, after retries
func (m *SupervisionMetrics) RecordEnable(ctx context.Context, resourceID string, success bool) {
	if m == nil {
		return
	}
	m.enables.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resourceID),
		attribute.String("result", result(success)),
	))
}

// RecordDeregistration counts a resource removed by supervision
func (m *SupervisionMetrics) RecordDeregistration(ctx context.Context, resourceID string) {
	if m == nil {
		return
	}
	m.deregistrations.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resourceID)))
}

// NotificationMetrics holds the instruments recorded by the dispatcher
type NotificationMetrics struct {
	deliveries           metric.Int64Counter
	capabilityDeliveries metric.Int64Counter
}

// NewNotificationMetrics creates notification instruments.
// If provider is nil, it returns nil (no-op metrics).
func NewNotificationMetrics(provider metric.MeterProvider) (*NotificationMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	deliveries, err := provider.Meter(NotificationMetricsMeterName).Int64Counter(
		"coord_reg_notifications_total",
		metric.WithDescription("Status notifications by result"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	capabilityDeliveries, err := provider.Meter(NotificationMetricsMeterName).Int64Counter(
		"coord_reg_capability_notifications_total",
		metric.WithDescription("Capability change callbacks by result"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}
	return &NotificationMetrics{deliveries: deliveries, capabilityDeliveries: capabilityDeliveries}, nil
}

// RecordDelivery counts one notification with its outcome
func (m *NotificationMetrics) RecordDelivery(ctx context.Context, outcome string, enabled bool) {
	if m == nil {
		return
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", outcome),
		attribute.Bool("enabled", enabled),
	))
}

// RecordCapabilityDelivery counts one capability change callback
func (m *NotificationMetrics) RecordCapabilityDelivery(ctx context.Context, outcome string, registered bool) {
	if m == nil {
		return
	}
	m.capabilityDeliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", outcome),
		attribute.Bool("registered", registered),
	))
}

// RegistryMetrics holds gauges describing registry contents
type RegistryMetrics struct {
	entries metric.Int64Gauge
}

// NewRegistryMetrics creates registry instruments.
// If provider is nil, it returns nil (no-op metrics).
func NewRegistryMetrics(provider metric.MeterProvider) (*RegistryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	entries, err := provider.Meter(RegistryMetricsMeterName).Int64Gauge(
		"coord_reg_registry_entries",
		metric.WithDescription("Number of entries in the registry by kind"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}
	return &RegistryMetrics{entries: entries}, nil
}

// RecordSizes records the collection sizes of the registry
func (m *RegistryMetrics) RecordSizes(ctx context.Context, resources, capabilities, subscriptions int) {
	if m == nil {
		return
	}
	m.entries.Record(ctx, int64(resources), metric.WithAttributes(attribute.String("kind", "resource")))
	m.entries.Record(ctx, int64(capabilities), metric.WithAttributes(attribute.String("kind", "capability")))
	m.entries.Record(ctx, int64(subscriptions), metric.WithAttributes(attribute.String("kind", "subscription")))
}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}
