// Package service is the inbound entry point of the coordination registry. It
// wraps the registry with snapshot persistence, best-effort cleanup calls to
// resources, capability change callbacks and registry size metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/httpclient"
	"github.com/stacklok/coordination-registry/internal/lock"
	"github.com/stacklok/coordination-registry/internal/notify"
	"github.com/stacklok/coordination-registry/internal/persistence"
	"github.com/stacklok/coordination-registry/internal/registry"
	"github.com/stacklok/coordination-registry/internal/remote"
	"github.com/stacklok/coordination-registry/internal/telemetry"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go Service

// ErrNotReady is returned by CheckReadiness before the snapshot was loaded
var ErrNotReady = errors.New("service is not ready")

// DefaultDisableTimeout bounds the best-effort disable calls made when a
// subscription is removed
const DefaultDisableTimeout = 5 * time.Second

// Service defines the inbound registry operations. Every mutating call
// persists a snapshot afterwards.
type Service interface {
	// CheckReadiness reports whether the stored snapshot has been loaded
	CheckReadiness(ctx context.Context) error

	// LoadSnapshot restores capabilities, subscriptions and capability
	// watches from storage. Any load failure is logged and the registry
	// starts empty.
	LoadSnapshot(ctx context.Context) error

	// SaveSnapshot writes the current capabilities, subscriptions and
	// capability watches to storage
	SaveSnapshot(ctx context.Context) error

	RegisterResource(ctx context.Context, id, endpoint string) error
	DeregisterResource(ctx context.Context, id string) (*registry.Deregistration, error)
	ListResources(ctx context.Context) []registry.Resource

	RegisterCapability(ctx context.Context, id string, schema []byte, resourceID string) (bool, error)
	WithdrawCapability(ctx context.Context, id, resourceID string) error

	RegisterSubscription(ctx context.Context, spec registry.SubscriptionSpec) error
	RemoveSubscription(ctx context.Context, id string) (*registry.SubscriptionRemoval, error)
	RemoveSubscriptionsForOwner(ctx context.Context, owner string) []registry.SubscriptionRemoval
	GetSubscriptionsForCapability(ctx context.Context, capabilityID string) []registry.Subscription
	GetSubscriptionsForOwner(ctx context.Context, owner string) []registry.Subscription

	// RegisterOwner starts or refreshes keep-alive supervision of an owner.
	// Owners are kept in memory only.
	RegisterOwner(ctx context.Context, id string, keepAlive time.Duration) (bool, error)
	KeepAliveOwner(ctx context.Context, id string) error
	RemoveOwner(ctx context.Context, id string) error
	ListOwners(ctx context.Context) []registry.Owner

	RegisterCapabilityWatch(ctx context.Context, spec registry.CapabilityWatchSpec) error
	RemoveCapabilityWatch(ctx context.Context, id string) error
	ListCapabilityWatches(ctx context.Context) []registry.CapabilityWatch

	GetStatus(ctx context.Context) registry.Status
}

type coordinationService struct {
	registry  *registry.Registry
	gateway   persistence.Gateway
	resources remote.ResourceClient
	notifier  notify.CapabilityNotifier

	disableTimeout time.Duration
	logger         *zap.Logger
	metrics        *telemetry.RegistryMetrics
	now            func() time.Time

	saveMu sync.Mutex
	ready  atomic.Bool
}

// Option configures the service
type Option func(*coordinationService)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *coordinationService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the registry size metrics
func WithMetrics(m *telemetry.RegistryMetrics) Option {
	return func(s *coordinationService) {
		s.metrics = m
	}
}

// WithCapabilityNotifier sets the notifier told about registered and removed
// capabilities. Without one no capability callbacks are made.
func WithCapabilityNotifier(n notify.CapabilityNotifier) Option {
	return func(s *coordinationService) {
		s.notifier = n
	}
}

// WithDisableTimeout sets the timeout of each disable call on subscription removal
func WithDisableTimeout(d time.Duration) Option {
	return func(s *coordinationService) {
		if d > 0 {
			s.disableTimeout = d
		}
	}
}

// New creates the service. resources may be nil, in which case removed
// subscriptions are not disabled at their resources.
func New(
	reg *registry.Registry,
	gateway persistence.Gateway,
	resources remote.ResourceClient,
	opts ...Option,
) Service {
	s := &coordinationService{
		registry:       reg,
		gateway:        gateway,
		resources:      resources,
		disableTimeout: DefaultDisableTimeout,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckReadiness implements Service.CheckReadiness
func (s *coordinationService) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return ErrNotReady
	}
	return nil
}

// LoadSnapshot implements Service.LoadSnapshot
func (s *coordinationService) LoadSnapshot(ctx context.Context) error {
	snap, err := s.gateway.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, persistence.ErrFatalConfig) {
			s.logger.Error("Ignoring unusable snapshot, starting empty", zap.Error(err))
		} else {
			s.logger.Error("Failed to load snapshot, starting empty", zap.Error(err))
		}
		snap = &persistence.Snapshot{}
	}
	if snap == nil {
		snap = &persistence.Snapshot{}
	}

	if err := s.registry.Restore(snap.Capabilities, snap.Subscriptions); err != nil {
		// Entries that could be restored are kept
		s.logger.Error("Snapshot restored partially", zap.Error(err))
	}
	if skipped := s.registry.RestoreCapabilityWatches(snap.CapabilityWatches); skipped > 0 {
		s.logger.Error("Capability watches restored partially", zap.Int("skipped", skipped))
	}
	s.recordSizes(ctx)
	s.ready.Store(true)
	return nil
}

// SaveSnapshot implements Service.SaveSnapshot
func (s *coordinationService) SaveSnapshot(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	caps, subs := s.registry.Snapshot()
	if err := s.gateway.SaveSnapshot(ctx, &persistence.Snapshot{
		SavedAt:           s.now().UTC(),
		Capabilities:      caps,
		Subscriptions:     subs,
		CapabilityWatches: s.registry.ListCapabilityWatches(),
	}); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// afterMutation persists and measures the registry. A failed save is logged;
// the mutation itself already happened.
func (s *coordinationService) afterMutation(ctx context.Context, op string) {
	s.recordSizes(ctx)
	if err := s.SaveSnapshot(ctx); err != nil {
		s.logger.Error("Snapshot not saved", zap.String("operation", op), zap.Error(err))
	}
}

func (s *coordinationService) recordSizes(ctx context.Context) {
	st := s.registry.Status()
	s.metrics.RecordSizes(ctx, st.ResourceCount, st.CapabilityCount, st.SubscriptionCount)
}

// RegisterResource implements Service.RegisterResource
func (s *coordinationService) RegisterResource(ctx context.Context, id, endpoint string) error {
	if err := s.registry.RegisterResource(ctx, id, endpoint); err != nil {
		return err
	}
	s.afterMutation(ctx, "register_resource")
	return nil
}

// DeregisterResource implements Service.DeregisterResource
func (s *coordinationService) DeregisterResource(ctx context.Context, id string) (*registry.Deregistration, error) {
	dereg, err := s.registry.DeregisterResource(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := make([]registry.CapabilityChange, 0, len(dereg.RemovedCapabilities))
	for _, capID := range dereg.RemovedCapabilities {
		changes = append(changes, registry.CapabilityChange{CapabilityID: capID})
	}
	s.notifyCapabilities(ctx, changes)
	s.afterMutation(ctx, "deregister_resource")
	return dereg, nil
}

// ListResources implements Service.ListResources
func (s *coordinationService) ListResources(_ context.Context) []registry.Resource {
	return s.registry.ListResources()
}

// RegisterCapability implements Service.RegisterCapability
func (s *coordinationService) RegisterCapability(
	ctx context.Context, id string, schema []byte, resourceID string,
) (bool, error) {
	created, err := s.registry.RegisterCapability(ctx, id, schema, resourceID)
	if err != nil {
		return false, err
	}
	if created {
		change := registry.CapabilityChange{CapabilityID: id, Registered: true}
		// The stored schema may come from a restored snapshot
		if c, err := s.registry.GetCapability(id); err == nil {
			change.Schema = c.Schema
		}
		s.notifyCapabilities(ctx, []registry.CapabilityChange{change})
	}
	s.afterMutation(ctx, "register_capability")
	return created, nil
}

// WithdrawCapability implements Service.WithdrawCapability
func (s *coordinationService) WithdrawCapability(ctx context.Context, id, resourceID string) error {
	removed, err := s.registry.WithdrawCapability(ctx, id, resourceID)
	if err != nil {
		return err
	}
	if removed {
		s.notifyCapabilities(ctx, []registry.CapabilityChange{{CapabilityID: id}})
	}
	s.afterMutation(ctx, "withdraw_capability")
	return nil
}

// RegisterSubscription implements Service.RegisterSubscription
func (s *coordinationService) RegisterSubscription(ctx context.Context, spec registry.SubscriptionSpec) error {
	if err := s.registry.RegisterSubscription(ctx, spec); err != nil {
		return err
	}
	s.afterMutation(ctx, "register_subscription")
	return nil
}

// RemoveSubscription implements Service.RemoveSubscription
func (s *coordinationService) RemoveSubscription(ctx context.Context, id string) (*registry.SubscriptionRemoval, error) {
	removal, err := s.registry.RemoveSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	s.disableAt(ctx, removal)
	s.afterMutation(ctx, "remove_subscription")
	return removal, nil
}

// RemoveSubscriptionsForOwner implements Service.RemoveSubscriptionsForOwner
func (s *coordinationService) RemoveSubscriptionsForOwner(ctx context.Context, owner string) []registry.SubscriptionRemoval {
	removals := s.registry.RemoveSubscriptionsForOwner(ctx, owner)
	if len(removals) == 0 {
		return removals
	}
	for i := range removals {
		s.disableAt(ctx, &removals[i])
	}
	s.afterMutation(ctx, "remove_owner_subscriptions")
	return removals
}

// GetSubscriptionsForCapability implements Service.GetSubscriptionsForCapability
func (s *coordinationService) GetSubscriptionsForCapability(_ context.Context, capabilityID string) []registry.Subscription {
	return s.registry.GetSubscriptionsForCapability(capabilityID)
}

// GetSubscriptionsForOwner implements Service.GetSubscriptionsForOwner
func (s *coordinationService) GetSubscriptionsForOwner(_ context.Context, owner string) []registry.Subscription {
	return s.registry.GetSubscriptionsForOwner(owner)
}

// RegisterOwner implements Service.RegisterOwner
func (s *coordinationService) RegisterOwner(_ context.Context, id string, keepAlive time.Duration) (bool, error) {
	return s.registry.RegisterOwner(id, keepAlive)
}

// KeepAliveOwner implements Service.KeepAliveOwner
func (s *coordinationService) KeepAliveOwner(_ context.Context, id string) error {
	return s.registry.KeepAlive(id)
}

// RemoveOwner implements Service.RemoveOwner
func (s *coordinationService) RemoveOwner(_ context.Context, id string) error {
	return s.registry.RemoveOwner(id)
}

// ListOwners implements Service.ListOwners
func (s *coordinationService) ListOwners(_ context.Context) []registry.Owner {
	return s.registry.ListOwners()
}

// RegisterCapabilityWatch implements Service.RegisterCapabilityWatch
func (s *coordinationService) RegisterCapabilityWatch(ctx context.Context, spec registry.CapabilityWatchSpec) error {
	if err := s.registry.RegisterCapabilityWatch(ctx, spec); err != nil {
		return err
	}
	s.afterMutation(ctx, "register_capability_watch")
	return nil
}

// RemoveCapabilityWatch implements Service.RemoveCapabilityWatch
func (s *coordinationService) RemoveCapabilityWatch(ctx context.Context, id string) error {
	if err := s.registry.RemoveCapabilityWatch(ctx, id); err != nil {
		return err
	}
	s.afterMutation(ctx, "remove_capability_watch")
	return nil
}

// ListCapabilityWatches implements Service.ListCapabilityWatches
func (s *coordinationService) ListCapabilityWatches(_ context.Context) []registry.CapabilityWatch {
	return s.registry.ListCapabilityWatches()
}

// GetStatus implements Service.GetStatus
func (s *coordinationService) GetStatus(_ context.Context) registry.Status {
	return s.registry.Status()
}

// notifyCapabilities tells capability watches about changes. Watches that
// keep failing are removed by the notifier and persisted by the caller.
func (s *coordinationService) notifyCapabilities(ctx context.Context, changes []registry.CapabilityChange) {
	if s.notifier == nil || len(changes) == 0 {
		return
	}
	result := s.notifier.NotifyCapabilityChanges(ctx, changes)
	if result.Failed > 0 {
		s.logger.Warn("Some capability watches were not notified",
			zap.Int("delivered", result.Delivered),
			zap.Int("failed", result.Failed),
			zap.Strings("removed_watches", result.RemovedWatches))
	}
}

// disableAt asks every resource that served the removed subscription to stop.
// Each call holds the resource's shared lock so it cannot overlap a
// deregistration. Failures are logged only; the resource drops unknown
// subscriptions itself.
func (s *coordinationService) disableAt(ctx context.Context, removal *registry.SubscriptionRemoval) {
	if s.resources == nil {
		return
	}
	for _, at := range removal.EnabledAt {
		callCtx, cancel := context.WithTimeout(ctx, s.disableTimeout)
		err := s.disableUnderLock(callCtx, at, removal.Subscription.ID)
		cancel()
		if err != nil {
			s.logger.Warn("Failed to disable removed subscription",
				zap.String("subscription_id", removal.Subscription.ID),
				zap.String("resource_id", at.ResourceID),
				zap.Int("status_code", httpclient.StatusCode(err)),
				zap.Error(err))
		}
	}
}

func (s *coordinationService) disableUnderLock(ctx context.Context, at registry.EnabledAt, subscriptionID string) error {
	h, err := s.registry.Locks().Acquire(ctx, at.ResourceID, lock.Shared)
	if err != nil {
		return fmt.Errorf("failed to lock resource %q: %w", at.ResourceID, err)
	}
	defer h.Release()
	return s.resources.Disable(ctx, at.Endpoint, subscriptionID)
}
