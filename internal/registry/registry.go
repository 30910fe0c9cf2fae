// Package registry implements the in-memory coordination registry: the
// resources being supervised, the capabilities they advertise and the
// subscriptions consumers hold against those capabilities.
//
// The registry owns all three collections. Mutations that span collections
// (deregistering a resource, removing an emptied capability) run under the
// resource's exclusive lock from package lock and a short registry-wide
// mutex, so readers never observe a half-applied cascade. Read operations
// return copies and only ever hold the mutex for the duration of that copy.
//
// Subscriptions are never removed as a side effect. A subscription whose
// capability disappears stays registered and reports the capability as not
// found until a resource registers the capability again.
package registry

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/lock"
)

// Registry stores resources, capabilities and subscriptions.
// Create one with New and share it by reference.
type Registry struct {
	// mu guards every map below. It is held only for in-memory updates and
	// copies, never across I/O or lock acquisition.
	mu sync.RWMutex

	resources     map[string]*resourceEntry
	capabilities  map[string]*capabilityEntry
	subscriptions map[string]*Subscription

	subsByCapability map[string]map[string]struct{}
	subsByOwner      map[string]map[string]struct{}

	owners  map[string]*Owner
	watches map[string]*CapabilityWatch

	// schemaCatalog remembers schemas of capabilities restored from a
	// snapshot that no live resource supports yet.
	schemaCatalog map[string]json.RawMessage

	locks          *lock.Manager
	logger         *zap.Logger
	validateParams bool
	now            func() time.Time
}

// Option configures a Registry
type Option func(*Registry)

// WithLockManager sets the per-resource lock manager. Components that need
// to coordinate with registry mutations must share the same manager.
func WithLockManager(m *lock.Manager) Option {
	return func(r *Registry) {
		r.locks = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithParamValidation makes RegisterSubscription validate params against the
// capability schema whenever the capability resolves.
func WithParamValidation(enabled bool) Option {
	return func(r *Registry) {
		r.validateParams = enabled
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		resources:        make(map[string]*resourceEntry),
		capabilities:     make(map[string]*capabilityEntry),
		subscriptions:    make(map[string]*Subscription),
		subsByCapability: make(map[string]map[string]struct{}),
		subsByOwner:      make(map[string]map[string]struct{}),
		owners:           make(map[string]*Owner),
		watches:          make(map[string]*CapabilityWatch),
		schemaCatalog:    make(map[string]json.RawMessage),
		logger:           zap.NewNop(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.locks == nil {
		r.locks = lock.NewManager()
	}
	return r
}

// Locks returns the per-resource lock manager used by the registry
func (r *Registry) Locks() *lock.Manager {
	return r.locks
}

// Status returns the sizes of the three collections
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Status{
		ResourceCount:     len(r.resources),
		CapabilityCount:   len(r.capabilities),
		SubscriptionCount: len(r.subscriptions),
	}
}

// Size returns the total number of entities in the registry
func (r *Registry) Size() int {
	s := r.Status()
	return s.ResourceCount + s.CapabilityCount + s.SubscriptionCount
}

// ListAll returns a consistent copy of all three collections
func (r *Registry) ListAll() Contents {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Contents{
		Resources:     r.listResourcesLocked(),
		Capabilities:  r.listCapabilitiesLocked(),
		Subscriptions: r.listSubscriptionsLocked(),
	}
}

type resourceEntry struct {
	id           string
	endpoint     string
	alive        bool
	failures     int
	registeredAt time.Time
	lastProbe    *time.Time
	capabilities map[string]struct{}
	enabled      map[string]struct{}
}

func (e *resourceEntry) snapshot() Resource {
	res := Resource{
		ID:                   e.id,
		Endpoint:             e.endpoint,
		Alive:                e.alive,
		ConsecutiveFailures:  e.failures,
		Capabilities:         sortedKeys(e.capabilities),
		EnabledSubscriptions: sortedKeys(e.enabled),
		RegisteredAt:         e.registeredAt,
	}
	if e.lastProbe != nil {
		t := *e.lastProbe
		res.LastProbe = &t
	}
	return res
}

type capabilityEntry struct {
	id         string
	schema     json.RawMessage
	compiled   *compiledSchema
	supporters map[string]struct{}
}

func (e *capabilityEntry) snapshot() Capability {
	return Capability{
		ID:                    e.id,
		Schema:                slices.Clone(e.schema),
		SupportingResourceIDs: sortedKeys(e.supporters),
	}
}

func copySubscription(s *Subscription) Subscription {
	c := *s
	c.Params = slices.Clone(s.Params)
	if s.LastReportedEnabled != nil {
		v := *s.LastReportedEnabled
		c.LastReportedEnabled = &v
	}
	return c
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(m))
}

func addToIndex(index map[string]map[string]struct{}, key, id string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[id] = struct{}{}
}

func removeFromIndex(index map[string]map[string]struct{}, key, id string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(index, key)
	}
}
