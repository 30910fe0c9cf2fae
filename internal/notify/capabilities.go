package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/coordination-registry/internal/httpclient"
	"github.com/stacklok/coordination-registry/internal/otel"
	"github.com/stacklok/coordination-registry/internal/registry"
	"github.com/stacklok/coordination-registry/internal/telemetry"
)

const (
	// CapabilityRegistered is posted when a capability becomes available
	CapabilityRegistered = "REGISTERED"

	// CapabilityDeregistered is posted when the last supporting resource is gone
	CapabilityDeregistered = "DEREGISTERED"
)

// CapabilityNotification is the body posted to a capability watch
type CapabilityNotification struct {
	CapabilityID string          `json:"capabilityId"`
	Schema       json.RawMessage `json:"schema,omitempty"`
	Status       string          `json:"status"`
}

// CapabilityResult counts the outcome of one NotifyCapabilityChanges call
type CapabilityResult struct {
	Delivered int
	Failed    int

	// RemovedWatches lists watches dropped because their callback kept failing
	RemovedWatches []string
}

// NewHTTPCapabilityNotifier creates a CapabilityNotifier posting to the
// watches held by store. It shares the options of NewHTTPDispatcher.
func NewHTTPCapabilityNotifier(store WatchStore, client httpclient.Client, opts ...Option) CapabilityNotifier {
	d := newHTTPDispatcher(client, opts)
	d.watches = store
	return d
}

// NotifyCapabilityChanges implements CapabilityNotifier
func (d *httpDispatcher) NotifyCapabilityChanges(
	ctx context.Context, changes []registry.CapabilityChange,
) CapabilityResult {
	if len(changes) == 0 || d.watches == nil {
		return CapabilityResult{}
	}
	watches := d.watches.ListCapabilityWatches()
	if len(watches) == 0 {
		return CapabilityResult{}
	}

	ctx, span := otel.StartSpan(ctx, d.tracer, "notify.NotifyCapabilityChanges",
		otel.AttrResultCount.Int(len(changes)*len(watches)))
	defer span.End()

	var (
		delivered, failed atomic.Int64
		failedMu          sync.Mutex
		failedWatches     = make(map[string]struct{})
	)

	g := new(errgroup.Group)
	g.SetLimit(d.maxInFlight)
	for _, w := range watches {
		for _, change := range changes {
			g.Go(func() error {
				if err := d.deliverCapability(ctx, w, change); err != nil {
					failed.Add(1)
					// A cancelled caller says nothing about the watch
					if ctx.Err() == nil {
						failedMu.Lock()
						failedWatches[w.ID] = struct{}{}
						failedMu.Unlock()
					}
					return nil
				}
				delivered.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()

	result := CapabilityResult{
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
	}
	for id := range failedWatches {
		if err := d.watches.RemoveCapabilityWatch(ctx, id); err != nil {
			d.logger.Debug("Capability watch already gone", zap.String("watch_id", id), zap.Error(err))
			continue
		}
		d.logger.Warn("Removed capability watch after failed callbacks", zap.String("watch_id", id))
		result.RemovedWatches = append(result.RemovedWatches, id)
	}
	slices.Sort(result.RemovedWatches)

	d.logger.Debug("Dispatched capability changes",
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", result.Failed),
		zap.Strings("removed_watches", result.RemovedWatches))
	return result
}

func (d *httpDispatcher) deliverCapability(
	ctx context.Context, w registry.CapabilityWatch, change registry.CapabilityChange,
) error {
	logger := d.logger.With(
		zap.String("watch_id", w.ID),
		zap.String("callback_url", w.CallbackURL),
		zap.String("capability_id", change.CapabilityID),
		zap.Bool("registered", change.Registered))

	notification := CapabilityNotification{
		CapabilityID: change.CapabilityID,
		Schema:       change.Schema,
		Status:       CapabilityDeregistered,
	}
	if change.Registered {
		notification.Status = CapabilityRegistered
	}
	body, err := json.Marshal(notification)
	if err != nil {
		logger.Error("Failed to marshal capability notification", zap.Error(err))
		d.metrics.RecordCapabilityDelivery(ctx, telemetry.ResultFailure, change.Registered)
		return err
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		if err := d.limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		_, err := d.client.Post(ctx, w.CallbackURL, body)
		if code := httpclient.StatusCode(err); code >= http.StatusBadRequest && code < http.StatusInternalServerError {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(d.callbackBackOff()),
		backoff.WithMaxTries(uint(d.callbackRetries)+1),
	)
	if err != nil {
		logger.Warn("Capability notification failed",
			zap.Int("status_code", httpclient.StatusCode(err)),
			zap.Error(err))
		d.metrics.RecordCapabilityDelivery(ctx, telemetry.ResultFailure, change.Registered)
		return err
	}
	d.metrics.RecordCapabilityDelivery(ctx, telemetry.ResultSuccess, change.Registered)
	return nil
}

func (d *httpDispatcher) callbackBackOff() backoff.BackOff {
	if d.callbackBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.callbackBackoff
	return b
}
