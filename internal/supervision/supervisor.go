package supervision

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/notify"
	"github.com/stacklok/coordination-registry/internal/registry"
	"github.com/stacklok/coordination-registry/internal/remote"
	"github.com/stacklok/coordination-registry/internal/telemetry"
)

const (
	// DefaultInterval is the time between supervision cycles
	DefaultInterval = 5 * time.Minute

	// DefaultDeadThreshold is the number of consecutive failed probes after
	// which a resource is deregistered
	DefaultDeadThreshold = 3

	// DefaultMaxInFlight bounds the resources processed concurrently
	DefaultMaxInFlight = 10

	// DefaultEnableRetries is the number of retries of a failed enable call
	DefaultEnableRetries = 1

	// DefaultEnableBackoff is the pause before retrying an enable call
	DefaultEnableBackoff = 500 * time.Millisecond

	// DefaultOwnerCheckInterval is the time between owner keep-alive checks
	DefaultOwnerCheckInterval = time.Minute
)

// Supervisor runs supervision cycles on a fixed interval
type Supervisor interface {
	// Start runs a cycle immediately and then one per interval.
	// Blocks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for an in-flight cycle to finish
	Stop() error

	// RunCycle runs a single cycle. Cycles never overlap.
	RunCycle(ctx context.Context) CycleResult

	// ExpireOwners removes owners whose keep-alive elapsed together with
	// their subscriptions and returns their ids
	ExpireOwners(ctx context.Context) []string
}

// Snapshotter persists the registry after a cycle changed it
type Snapshotter interface {
	SaveSnapshot(ctx context.Context) error
}

// CycleResult summarizes one supervision cycle
type CycleResult struct {
	CycleID        string
	Probed         int
	ProbeFailures  int
	Enabled        int
	EnableFailures int
	Deregistered   []string
	Notifications  notify.Result

	// RemovedCapabilities lists capabilities that lost their last supporter
	RemovedCapabilities     []string
	CapabilityNotifications notify.CapabilityResult
}

// Changed reports whether the cycle modified persisted registry state
func (r CycleResult) Changed() bool {
	return len(r.Deregistered) > 0 ||
		r.Notifications.Delivered > 0 ||
		len(r.CapabilityNotifications.RemovedWatches) > 0
}

type supervisor struct {
	registry   *registry.Registry
	resources  remote.ResourceClient
	dispatcher notify.Dispatcher
	notifier   notify.CapabilityNotifier
	owners     OwnerRemover

	interval           time.Duration
	ownerCheckInterval time.Duration
	deadThreshold      int
	maxInFlight        int
	enableRetries      int
	enableBackoff      time.Duration

	snapshotter Snapshotter
	metrics     *telemetry.SupervisionMetrics
	logger      *zap.Logger
	tracer      trace.Tracer

	cycleMu  sync.Mutex
	expiryMu sync.Mutex

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option configures the supervisor
type Option func(*supervisor)

// WithInterval sets the time between cycles
func WithInterval(d time.Duration) Option {
	return func(s *supervisor) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithOwnerCheckInterval sets the time between owner keep-alive checks
func WithOwnerCheckInterval(d time.Duration) Option {
	return func(s *supervisor) {
		if d > 0 {
			s.ownerCheckInterval = d
		}
	}
}

// WithCapabilityNotifier sets the notifier told about capabilities removed
// by deregistering dead resources
func WithCapabilityNotifier(n notify.CapabilityNotifier) Option {
	return func(s *supervisor) {
		s.notifier = n
	}
}

// WithDeadThreshold sets the consecutive probe failures that deregister a resource
func WithDeadThreshold(n int) Option {
	return func(s *supervisor) {
		if n > 0 {
			s.deadThreshold = n
		}
	}
}

// WithMaxInFlight sets how many resources are processed at once
func WithMaxInFlight(n int) Option {
	return func(s *supervisor) {
		if n > 0 {
			s.maxInFlight = n
		}
	}
}

// WithEnableRetries sets how often a failed enable call is retried within a cycle
func WithEnableRetries(n int) Option {
	return func(s *supervisor) {
		if n >= 0 {
			s.enableRetries = n
		}
	}
}

// WithEnableBackoff sets the pause between enable attempts
func WithEnableBackoff(d time.Duration) Option {
	return func(s *supervisor) {
		if d >= 0 {
			s.enableBackoff = d
		}
	}
}

// WithSnapshotter sets the snapshotter invoked after cycles that changed state
func WithSnapshotter(snap Snapshotter) Option {
	return func(s *supervisor) {
		s.snapshotter = snap
	}
}

// WithMetrics sets the supervision metrics
func WithMetrics(m *telemetry.SupervisionMetrics) Option {
	return func(s *supervisor) {
		s.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for cycle spans
func WithTracer(t trace.Tracer) Option {
	return func(s *supervisor) {
		s.tracer = t
	}
}

// New creates a supervisor for reg
func New(
	reg *registry.Registry,
	resources remote.ResourceClient,
	dispatcher notify.Dispatcher,
	opts ...Option,
) Supervisor {
	s := &supervisor{
		registry:           reg,
		resources:          resources,
		dispatcher:         dispatcher,
		owners:             reg,
		interval:           DefaultInterval,
		ownerCheckInterval: DefaultOwnerCheckInterval,
		deadThreshold:      DefaultDeadThreshold,
		maxInFlight:        DefaultMaxInFlight,
		enableRetries:      DefaultEnableRetries,
		enableBackoff:      DefaultEnableBackoff,
		logger:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start implements Supervisor
func (s *supervisor) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancelFunc = cancel
	s.done = done
	s.mu.Unlock()

	defer func() {
		cancel()
		close(done)
		s.logger.Info("Supervision loop stopped")
	}()

	s.logger.Info("Starting supervision loop",
		zap.Duration("interval", s.interval),
		zap.Duration("owner_check_interval", s.ownerCheckInterval),
		zap.Int("dead_threshold", s.deadThreshold))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	ownerTicker := time.NewTicker(s.ownerCheckInterval)
	defer ownerTicker.Stop()

	// Cycles run detached from loop cancellation so Stop drains them
	cycleCtx := context.WithoutCancel(loopCtx)

	s.RunCycle(cycleCtx)
	for {
		select {
		case <-ticker.C:
			s.RunCycle(cycleCtx)
		case <-ownerTicker.C:
			s.ExpireOwners(cycleCtx)
		case <-loopCtx.Done():
			return nil
		}
	}
}

// Stop implements Supervisor
func (s *supervisor) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancelFunc, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	s.logger.Info("Stopping supervision loop")
	cancel()
	<-done
	return nil
}
