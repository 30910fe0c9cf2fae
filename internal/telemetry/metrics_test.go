package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum for %s", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNilProviderReturnsNilMetrics(t *testing.T) {
	t.Parallel()

	sup, err := NewSupervisionMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, sup)

	notif, err := NewNotificationMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, notif)

	reg, err := NewRegistryMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, reg)

	// Recording on nil metrics must not panic
	ctx := context.Background()
	sup.RecordCycleDuration(ctx, time.Second, 3)
	sup.RecordProbe(ctx, "ric-1", true)
	sup.RecordEnable(ctx, "ric-1", false)
	sup.RecordDeregistration(ctx, "ric-1")
	notif.RecordDelivery(ctx, ResultSuccess, true)
	notif.RecordCapabilityDelivery(ctx, ResultFailure, false)
	reg.RecordSizes(ctx, 1, 2, 3)
}

func TestSupervisionMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewSupervisionMetrics(mp)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	ctx := context.Background()
	metrics.RecordCycleDuration(ctx, 250*time.Millisecond, 2)
	metrics.RecordProbe(ctx, "ric-1", true)
	metrics.RecordProbe(ctx, "ric-2", false)
	metrics.RecordProbe(ctx, "ric-2", false)
	metrics.RecordEnable(ctx, "ric-1", true)
	metrics.RecordDeregistration(ctx, "ric-2")

	got := collect(t, reader)
	require.Contains(t, got, "coord_reg_supervision_cycle_duration_seconds")
	assert.Equal(t, int64(3), sumOf(t, got["coord_reg_supervision_probes_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["coord_reg_supervision_enables_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["coord_reg_supervision_deregistrations_total"]))

	hist, ok := got["coord_reg_supervision_cycle_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestNotificationMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewNotificationMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordDelivery(ctx, ResultSuccess, true)
	metrics.RecordDelivery(ctx, ResultFailure, false)
	metrics.RecordDelivery(ctx, ResultSkipped, true)
	metrics.RecordCapabilityDelivery(ctx, ResultSuccess, true)
	metrics.RecordCapabilityDelivery(ctx, ResultFailure, false)

	got := collect(t, reader)
	assert.Equal(t, int64(3), sumOf(t, got["coord_reg_notifications_total"]))
	assert.Equal(t, int64(2), sumOf(t, got["coord_reg_capability_notifications_total"]))
}

func TestRegistryMetrics_RecordSizes(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewRegistryMetrics(mp)
	require.NoError(t, err)
	metrics.RecordSizes(context.Background(), 2, 3, 5)

	got := collect(t, reader)
	gauge, ok := got["coord_reg_registry_entries"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 3)

	byKind := make(map[string]int64)
	for _, dp := range gauge.DataPoints {
		kind, _ := dp.Attributes.Value("kind")
		byKind[kind.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"resource": 2, "capability": 3, "subscription": 5}, byKind)
}
