package registry

import (
	"encoding/json"
	"time"
)

// Resource is a remote endpoint offering capabilities, e.g. a RIC or a data producer
type Resource struct {
	// ID uniquely identifies the resource
	ID string `json:"id"`

	// Endpoint is the base URL used for probe and enable calls
	Endpoint string `json:"endpoint"`

	// Alive reports the result of the latest probe. New resources start alive.
	Alive bool `json:"alive"`

	// ConsecutiveFailures counts failed probes since the last successful one
	ConsecutiveFailures int `json:"consecutiveFailures"`

	// Capabilities lists the capability ids the resource supports
	Capabilities []string `json:"capabilities,omitempty"`

	// EnabledSubscriptions lists subscriptions confirmed enabled at the resource
	EnabledSubscriptions []string `json:"enabledSubscriptions,omitempty"`

	RegisteredAt time.Time  `json:"registeredAt"`
	LastProbe    *time.Time `json:"lastProbe,omitempty"`
}

// Capability is a typed offering such as a policy type or an information type
type Capability struct {
	ID string `json:"id"`

	// Schema is an opaque JSON document. When present it is a JSON Schema
	// that subscription params may be validated against.
	Schema json.RawMessage `json:"schema,omitempty"`

	// SupportingResourceIDs is never empty for a registered capability
	SupportingResourceIDs []string `json:"supportingResourceIds"`
}

// Subscription is a consumer's standing request against a capability,
// e.g. a policy instance or an information job.
type Subscription struct {
	ID string `json:"id"`

	// CapabilityID may reference a capability that does not exist (orphaned)
	CapabilityID string `json:"capabilityId"`

	Owner       string          `json:"owner"`
	CallbackURL string          `json:"callbackUrl,omitempty"`
	StatusURL   string          `json:"statusUrl,omitempty"`
	Params      json.RawMessage `json:"params,omitempty"`

	// LastReportedEnabled is the last status delivered to StatusURL; nil when
	// nothing has been delivered yet.
	LastReportedEnabled *bool `json:"lastReportedEnabled,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// SubscriptionSpec carries the caller-supplied fields of a new subscription
type SubscriptionSpec struct {
	ID           string
	CapabilityID string
	Owner        string
	CallbackURL  string
	StatusURL    string
	Params       json.RawMessage
}

// Status holds the collection sizes of the registry
type Status struct {
	ResourceCount     int `json:"resourceCount"`
	CapabilityCount   int `json:"capabilityCount"`
	SubscriptionCount int `json:"subscriptionCount"`
}

// Contents is a point-in-time copy of all three collections
type Contents struct {
	Resources     []Resource
	Capabilities  []Capability
	Subscriptions []Subscription
}

// Deregistration describes the effect of removing a resource
type Deregistration struct {
	Resource Resource

	// RemovedCapabilities lists capabilities whose support set became empty
	RemovedCapabilities []string

	// AffectedSubscriptions lists subscriptions against capabilities the
	// resource supported. They are kept in the registry.
	AffectedSubscriptions []string
}

// EnabledAt identifies a resource where a subscription was enabled
type EnabledAt struct {
	ResourceID string
	Endpoint   string
}

// SubscriptionRemoval describes a removed subscription and where it had been enabled
type SubscriptionRemoval struct {
	Subscription Subscription
	EnabledAt    []EnabledAt
}

// StatusChange is a subscription whose effective enabled state differs from
// the state last reported to its owner.
type StatusChange struct {
	Subscription Subscription
	Enabled      bool
}

// PendingEnable is a subscription that should be enabled at a resource
type PendingEnable struct {
	Subscription Subscription
	Capability   Capability
}

// Owner is a consumer that registered itself for keep-alive supervision.
// An owner that stops refreshing within its interval loses its subscriptions.
type Owner struct {
	ID string `json:"id"`

	// KeepAliveInterval is the longest accepted silence. Zero disables expiry.
	KeepAliveInterval time.Duration `json:"keepAliveInterval"`

	LastSeen     time.Time `json:"lastSeen"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Expired reports whether the owner has been silent for longer than its interval
func (o Owner) Expired(now time.Time) bool {
	return o.KeepAliveInterval > 0 && now.Sub(o.LastSeen) > o.KeepAliveInterval
}

// CapabilityWatch asks for a callback whenever a capability is registered
// or removed.
type CapabilityWatch struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner,omitempty"`
	CallbackURL string    `json:"callbackUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CapabilityWatchSpec carries the caller-supplied fields of a new watch
type CapabilityWatchSpec struct {
	ID          string
	Owner       string
	CallbackURL string
}

// CapabilityChange describes a capability that appeared or disappeared
type CapabilityChange struct {
	CapabilityID string
	Schema       json.RawMessage
	Registered   bool
}
