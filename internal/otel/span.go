// Package otel holds the span helpers shared by the supervision loop and the
// notification dispatcher.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys attached to coordination spans.
const (
	AttrCycleID        = attribute.Key("coordination.cycle_id")
	AttrResourceID     = attribute.Key("coordination.resource_id")
	AttrCapabilityID   = attribute.Key("coordination.capability_id")
	AttrSubscriptionID = attribute.Key("coordination.subscription_id")
	AttrEnabled        = attribute.Key("coordination.enabled")
	AttrOwner          = attribute.Key("coordination.owner")
	AttrResultCount    = attribute.Key("result.count")
)

// StartSpan starts a span on tracer. A nil tracer yields the span already
// carried by ctx, which is a no-op span when none was started.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed. The status text stays generic; the
// error itself is kept on the exception event.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "operation failed")
}

// End records err, if any, and ends span.
func End(span trace.Span, err error) {
	RecordError(span, err)
	span.End()
}
