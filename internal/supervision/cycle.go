package supervision

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/coordination-registry/internal/httpclient"
	"github.com/stacklok/coordination-registry/internal/lock"
	"github.com/stacklok/coordination-registry/internal/logging"
	"github.com/stacklok/coordination-registry/internal/otel"
	"github.com/stacklok/coordination-registry/internal/registry"
)

// RunCycle implements Supervisor
func (s *supervisor) RunCycle(ctx context.Context) CycleResult {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := time.Now()
	cycleID := uuid.NewString()
	ctx, span := otel.StartSpan(ctx, s.tracer, "supervision.RunCycle", otel.AttrCycleID.String(cycleID))
	defer span.End()
	logger := logging.WithTrace(ctx, s.logger.With(zap.String("cycle_id", cycleID)))

	resources := s.registry.ListResources()
	logger.Debug("Starting supervision cycle", zap.Int("resources", len(resources)))

	t := &tally{}
	g := new(errgroup.Group)
	g.SetLimit(s.maxInFlight)
	for _, res := range resources {
		g.Go(func() error {
			s.superviseResource(ctx, logger, res.ID, t)
			return nil
		})
	}
	_ = g.Wait()

	result := t.result(cycleID)
	result.Notifications = s.dispatcher.Dispatch(ctx, s.registry.StatusChanges())
	if len(result.RemovedCapabilities) > 0 && s.notifier != nil {
		changes := make([]registry.CapabilityChange, 0, len(result.RemovedCapabilities))
		for _, capID := range result.RemovedCapabilities {
			changes = append(changes, registry.CapabilityChange{CapabilityID: capID})
		}
		result.CapabilityNotifications = s.notifier.NotifyCapabilityChanges(ctx, changes)
	}

	if result.Changed() && s.snapshotter != nil {
		if err := s.snapshotter.SaveSnapshot(ctx); err != nil {
			logger.Error("Failed to save snapshot after supervision cycle", zap.Error(err))
			otel.RecordError(span, err)
		}
	}

	elapsed := time.Since(start)
	s.metrics.RecordCycleDuration(ctx, elapsed, len(resources))
	span.SetAttributes(otel.AttrResultCount.Int(len(resources)))

	logger.Info("Supervision cycle complete",
		zap.Duration("duration", elapsed),
		zap.Int("probed", result.Probed),
		zap.Int("probe_failures", result.ProbeFailures),
		zap.Int("enabled", result.Enabled),
		zap.Int("enable_failures", result.EnableFailures),
		zap.Strings("deregistered", result.Deregistered),
		zap.Strings("removed_capabilities", result.RemovedCapabilities),
		zap.Int("notified", result.Notifications.Delivered))
	return result
}

// superviseResource probes one resource under its shared lock and acts on the outcome
func (s *supervisor) superviseResource(ctx context.Context, logger *zap.Logger, id string, t *tally) {
	logger = logger.With(zap.String("resource_id", id))
	ctx, span := otel.StartSpan(ctx, s.tracer, "supervision.resource", otel.AttrResourceID.String(id))
	defer span.End()

	h, err := s.acquireShared(ctx, id)
	if err != nil {
		logger.Warn("Skipping resource, lock not acquired", zap.Error(err))
		return
	}
	defer h.Release()

	res, err := s.registry.GetResource(id)
	if err != nil {
		logger.Debug("Resource deregistered before probe")
		return
	}

	probeErr := s.resources.Probe(ctx, res.Endpoint)
	t.probe(probeErr == nil)
	s.metrics.RecordProbe(ctx, id, probeErr == nil)

	if probeErr == nil {
		if err := s.registry.MarkProbeSucceeded(id); err != nil {
			logger.Debug("Could not record successful probe", zap.Error(err))
			return
		}
		s.enablePending(ctx, logger, res, t)
		return
	}

	otel.RecordError(span, probeErr)
	failures, err := s.registry.MarkProbeFailed(id)
	if err != nil {
		logger.Debug("Could not record failed probe", zap.Error(err))
		return
	}
	logger.Warn("Resource probe failed",
		zap.Int("consecutive_failures", failures),
		zap.Int("status_code", httpclient.StatusCode(probeErr)),
		zap.Error(probeErr))

	if failures < s.deadThreshold {
		return
	}

	// Deregistration takes the exclusive lock
	h.Release()
	dereg, err := s.registry.DeregisterResource(ctx, id)
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			logger.Error("Failed to deregister dead resource", zap.Error(err))
		}
		return
	}
	t.deregister(id, dereg.RemovedCapabilities)
	s.metrics.RecordDeregistration(ctx, id)
	logger.Info("Deregistered unresponsive resource",
		zap.Int("consecutive_failures", failures),
		zap.Strings("removed_capabilities", dereg.RemovedCapabilities),
		zap.Int("affected_subscriptions", len(dereg.AffectedSubscriptions)))
}

// acquireShared waits for the shared lock of id. The request is withdrawn
// when ctx ends first.
func (s *supervisor) acquireShared(ctx context.Context, id string) (*lock.Handle, error) {
	future := s.registry.Locks().AcquireAsync(id, lock.Shared)
	select {
	case h := <-future.Done():
		return h, nil
	case <-ctx.Done():
		future.Cancel()
		return nil, fmt.Errorf("waiting for lock on %q: %w", id, ctx.Err())
	}
}

// enablePending asks the resource to serve every subscription it supports
// but does not serve yet. Failures are left for the next cycle.
func (s *supervisor) enablePending(ctx context.Context, logger *zap.Logger, res registry.Resource, t *tally) {
	pending, err := s.registry.PendingSubscriptions(res.ID)
	if err != nil {
		logger.Debug("Could not list pending subscriptions", zap.Error(err))
		return
	}

	for _, p := range pending {
		subLogger := logger.With(zap.String("subscription_id", p.Subscription.ID))

		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			return struct{}{}, s.resources.Enable(ctx, res.Endpoint, p.Subscription)
		},
			backoff.WithBackOff(backoff.NewConstantBackOff(s.enableBackoff)),
			backoff.WithMaxTries(uint(s.enableRetries)+1),
		)
		s.metrics.RecordEnable(ctx, res.ID, err == nil)
		if err != nil {
			t.enable(false)
			subLogger.Warn("Failed to enable subscription",
				zap.Int("status_code", httpclient.StatusCode(err)),
				zap.Error(err))
			continue
		}

		if err := s.registry.MarkEnabled(res.ID, p.Subscription.ID); err != nil {
			// Removed while the call was in flight
			t.enable(false)
			subLogger.Debug("Enabled subscription is gone", zap.Error(err))
			continue
		}
		t.enable(true)
		subLogger.Debug("Enabled subscription")
	}
}

// tally accumulates the outcome of the per-resource tasks of a cycle
type tally struct {
	mu             sync.Mutex
	probed         int
	probeFailures  int
	enabled        int
	enableFailures int
	deregistered   []string
	removedCaps    []string
}

func (t *tally) probe(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probed++
	if !ok {
		t.probeFailures++
	}
}

func (t *tally) enable(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.enabled++
	} else {
		t.enableFailures++
	}
}

func (t *tally) deregister(id string, removedCaps []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deregistered = append(t.deregistered, id)
	t.removedCaps = append(t.removedCaps, removedCaps...)
}

func (t *tally) result(cycleID string) CycleResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	deregistered := slices.Clone(t.deregistered)
	slices.Sort(deregistered)
	removedCaps := slices.Clone(t.removedCaps)
	slices.Sort(removedCaps)
	return CycleResult{
		CycleID:             cycleID,
		Probed:              t.probed,
		ProbeFailures:       t.probeFailures,
		Enabled:             t.enabled,
		EnableFailures:      t.enableFailures,
		Deregistered:        deregistered,
		RemovedCapabilities: removedCaps,
	}
}
