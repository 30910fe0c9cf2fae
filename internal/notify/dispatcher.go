// Package notify delivers subscription status changes to the status URL each
// subscription owner registered, and capability changes to the callback URL
// of every capability watch.
package notify

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/stacklok/coordination-registry/internal/httpclient"
	"github.com/stacklok/coordination-registry/internal/otel"
	"github.com/stacklok/coordination-registry/internal/registry"
	"github.com/stacklok/coordination-registry/internal/telemetry"
)

//go:generate mockgen -destination=mocks/mock_dispatcher.go -package=mocks -source=dispatcher.go Dispatcher,StatusRecorder,CapabilityNotifier,WatchStore

const (
	// DefaultMaxInFlight bounds concurrent deliveries
	DefaultMaxInFlight = 10

	// DefaultRatePerSecond bounds deliveries per second across all owners
	DefaultRatePerSecond = 50

	// StatusEnabled is reported when the subscription is served by a live resource
	StatusEnabled = "ENABLED"

	// StatusDisabled is reported otherwise
	StatusDisabled = "DISABLED"

	// DefaultCallbackRetries is the number of retries of a failed capability callback
	DefaultCallbackRetries = 3

	// DefaultCallbackBackoff is the first wait between capability callback retries
	DefaultCallbackBackoff = time.Second
)

// Dispatcher delivers status changes to subscription owners
type Dispatcher interface {
	// Dispatch posts each change to its status URL. Failed deliveries are
	// dropped; the change is computed again on the next cycle.
	Dispatch(ctx context.Context, changes []registry.StatusChange) Result
}

// StatusRecorder stores the status that was delivered to an owner
type StatusRecorder interface {
	SetLastReported(subscriptionID string, enabled bool) error
}

// CapabilityNotifier tells capability watches about registered and removed
// capabilities
type CapabilityNotifier interface {
	// NotifyCapabilityChanges posts every change to every watch. A watch
	// whose callback still fails after the retries is removed.
	NotifyCapabilityChanges(ctx context.Context, changes []registry.CapabilityChange) CapabilityResult
}

// WatchStore lists and removes capability watches
type WatchStore interface {
	ListCapabilityWatches() []registry.CapabilityWatch
	RemoveCapabilityWatch(ctx context.Context, id string) error
}

// Result counts the outcome of one Dispatch call
type Result struct {
	Delivered int
	Failed    int
	Skipped   int
}

// StatusNotification is the body posted to a status URL
type StatusNotification struct {
	Status string `json:"status"`
}

type httpDispatcher struct {
	recorder    StatusRecorder
	watches     WatchStore
	client      httpclient.Client
	maxInFlight int
	limiter     *rate.Limiter
	logger      *zap.Logger
	metrics     *telemetry.NotificationMetrics
	tracer      trace.Tracer

	callbackRetries int
	callbackBackoff time.Duration
}

// Option configures the dispatcher and the capability notifier
type Option func(*httpDispatcher)

// WithMaxInFlight sets the number of concurrent deliveries
func WithMaxInFlight(n int) Option {
	return func(d *httpDispatcher) {
		if n > 0 {
			d.maxInFlight = n
		}
	}
}

// WithRateLimit sets the number of deliveries allowed per second.
// Zero or less disables rate limiting.
func WithRateLimit(perSecond float64) Option {
	return func(d *httpDispatcher) {
		d.limiter = newLimiter(perSecond)
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(d *httpDispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the notification metrics
func WithMetrics(m *telemetry.NotificationMetrics) Option {
	return func(d *httpDispatcher) {
		d.metrics = m
	}
}

// WithTracer sets the tracer used for dispatch spans
func WithTracer(t trace.Tracer) Option {
	return func(d *httpDispatcher) {
		d.tracer = t
	}
}

// WithCallbackRetries sets how often a failed capability callback is retried
// and the first wait between attempts. The wait doubles on every retry.
func WithCallbackRetries(retries int, initial time.Duration) Option {
	return func(d *httpDispatcher) {
		if retries >= 0 {
			d.callbackRetries = retries
		}
		if initial >= 0 {
			d.callbackBackoff = initial
		}
	}
}

// NewHTTPDispatcher creates a Dispatcher posting JSON notifications with client.
// Delivered statuses are stored through recorder.
func NewHTTPDispatcher(recorder StatusRecorder, client httpclient.Client, opts ...Option) Dispatcher {
	d := newHTTPDispatcher(client, opts)
	d.recorder = recorder
	return d
}

func newHTTPDispatcher(client httpclient.Client, opts []Option) *httpDispatcher {
	d := &httpDispatcher{
		client:          client,
		maxInFlight:     DefaultMaxInFlight,
		limiter:         newLimiter(DefaultRatePerSecond),
		logger:          zap.NewNop(),
		callbackRetries: DefaultCallbackRetries,
		callbackBackoff: DefaultCallbackBackoff,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
}

// Dispatch implements Dispatcher
func (d *httpDispatcher) Dispatch(ctx context.Context, changes []registry.StatusChange) Result {
	if len(changes) == 0 {
		return Result{}
	}

	ctx, span := otel.StartSpan(ctx, d.tracer, "notify.Dispatch", otel.AttrResultCount.Int(len(changes)))
	defer span.End()

	var delivered, failed, skipped atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(d.maxInFlight)
	for _, change := range changes {
		if change.Subscription.StatusURL == "" {
			skipped.Add(1)
			d.metrics.RecordDelivery(ctx, telemetry.ResultSkipped, change.Enabled)
			continue
		}
		g.Go(func() error {
			if d.deliver(ctx, change) {
				delivered.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := Result{
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
	}
	d.logger.Debug("Dispatched status changes",
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result
}

func (d *httpDispatcher) deliver(ctx context.Context, change registry.StatusChange) bool {
	sub := change.Subscription
	logger := d.logger.With(
		zap.String("subscription_id", sub.ID),
		zap.String("status_url", sub.StatusURL),
		zap.Bool("enabled", change.Enabled))

	if err := d.limiter.Wait(ctx); err != nil {
		logger.Warn("Status notification not sent", zap.Error(err))
		d.metrics.RecordDelivery(ctx, telemetry.ResultFailure, change.Enabled)
		return false
	}

	body, err := json.Marshal(StatusNotification{Status: statusOf(change.Enabled)})
	if err != nil {
		logger.Error("Failed to marshal status notification", zap.Error(err))
		d.metrics.RecordDelivery(ctx, telemetry.ResultFailure, change.Enabled)
		return false
	}

	if _, err := d.client.Post(ctx, sub.StatusURL, body); err != nil {
		logger.Warn("Status notification failed",
			zap.Int("status_code", httpclient.StatusCode(err)),
			zap.Error(err))
		d.metrics.RecordDelivery(ctx, telemetry.ResultFailure, change.Enabled)
		return false
	}
	d.metrics.RecordDelivery(ctx, telemetry.ResultSuccess, change.Enabled)

	// The subscription may have been removed while the notification was in flight
	if err := d.recorder.SetLastReported(sub.ID, change.Enabled); err != nil {
		logger.Debug("Could not record delivered status", zap.Error(err))
	}
	return true
}

func statusOf(enabled bool) string {
	if enabled {
		return StatusEnabled
	}
	return StatusDisabled
}
