package registry

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// RegisterSubscription adds a subscription. The capability does not have to
// exist; such a subscription is orphaned until the capability is registered.
func (r *Registry) RegisterSubscription(_ context.Context, spec SubscriptionSpec) error {
	if err := validateSpec(spec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subscriptions[spec.ID]; exists {
		return conflict(KindSubscription, spec.ID)
	}

	if r.validateParams {
		if c, ok := r.capabilities[spec.CapabilityID]; ok {
			if err := c.compiled.validate(spec.Params); err != nil {
				return invalid(KindSubscription, spec.ID, "params do not match capability schema", err)
			}
		}
	}

	sub := &Subscription{
		ID:           spec.ID,
		CapabilityID: spec.CapabilityID,
		Owner:        spec.Owner,
		CallbackURL:  spec.CallbackURL,
		StatusURL:    spec.StatusURL,
		Params:       slices.Clone(spec.Params),
		CreatedAt:    r.now(),
	}
	r.insertSubscriptionLocked(sub)

	_, resolves := r.capabilities[spec.CapabilityID]
	r.logger.Info("Registered subscription",
		zap.String("subscription", spec.ID),
		zap.String("capability", spec.CapabilityID),
		zap.String("owner", spec.Owner),
		zap.Bool("capability_resolves", resolves))
	return nil
}

// RemoveSubscription removes a subscription and reports the resources it was
// enabled at, so the caller can ask them to stop serving it.
func (r *Registry) RemoveSubscription(_ context.Context, id string) (*SubscriptionRemoval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[id]
	if !ok {
		return nil, notFound(KindSubscription, id)
	}
	removal := r.removeSubscriptionLocked(sub)

	r.logger.Info("Removed subscription",
		zap.String("subscription", id),
		zap.Int("enabled_at", len(removal.EnabledAt)))
	return &removal, nil
}

// RemoveSubscriptionsForOwner removes every subscription held by owner
func (r *Registry) RemoveSubscriptionsForOwner(_ context.Context, owner string) []SubscriptionRemoval {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := sortedKeys(r.subsByOwner[owner])
	removals := make([]SubscriptionRemoval, 0, len(ids))
	for _, id := range ids {
		removals = append(removals, r.removeSubscriptionLocked(r.subscriptions[id]))
	}

	if len(removals) > 0 {
		r.logger.Info("Removed subscriptions for owner",
			zap.String("owner", owner),
			zap.Int("count", len(removals)))
	}
	return removals
}

// GetSubscription returns a copy of the subscription
func (r *Registry) GetSubscription(id string) (Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subscriptions[id]
	if !ok {
		return Subscription{}, notFound(KindSubscription, id)
	}
	return copySubscription(sub), nil
}

// GetSubscriptionsForCapability returns the subscriptions against capabilityID,
// whether or not the capability currently resolves.
func (r *Registry) GetSubscriptionsForCapability(capabilityID string) []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(r.subsByCapability[capabilityID])
}

// GetSubscriptionsForOwner returns the subscriptions held by owner
func (r *Registry) GetSubscriptionsForOwner(owner string) []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(r.subsByOwner[owner])
}

// ListSubscriptions returns copies of all subscriptions ordered by id
func (r *Registry) ListSubscriptions() []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listSubscriptionsLocked()
}

// CapabilityForSubscription resolves the capability a subscription refers to.
// It returns a NotFoundError of kind KindCapability for an orphaned subscription.
func (r *Registry) CapabilityForSubscription(id string) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subscriptions[id]
	if !ok {
		return Capability{}, notFound(KindSubscription, id)
	}
	c, ok := r.capabilities[sub.CapabilityID]
	if !ok {
		return Capability{}, notFound(KindCapability, sub.CapabilityID)
	}
	return c.snapshot(), nil
}

// IsSubscriptionEnabled reports the effective enabled state: the capability
// resolves and an alive supporting resource has the subscription enabled.
func (r *Registry) IsSubscriptionEnabled(id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subscriptions[id]
	if !ok {
		return false, notFound(KindSubscription, id)
	}
	return r.effectiveEnabledLocked(sub), nil
}

func (r *Registry) listSubscriptionsLocked() []Subscription {
	ids := make([]string, 0, len(r.subscriptions))
	for id := range r.subscriptions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Subscription, 0, len(ids))
	for _, id := range ids {
		out = append(out, copySubscription(r.subscriptions[id]))
	}
	return out
}

func (r *Registry) collectLocked(set map[string]struct{}) []Subscription {
	ids := sortedKeys(set)
	out := make([]Subscription, 0, len(ids))
	for _, id := range ids {
		out = append(out, copySubscription(r.subscriptions[id]))
	}
	return out
}

func (r *Registry) insertSubscriptionLocked(sub *Subscription) {
	r.subscriptions[sub.ID] = sub
	addToIndex(r.subsByCapability, sub.CapabilityID, sub.ID)
	addToIndex(r.subsByOwner, sub.Owner, sub.ID)
}

func (r *Registry) removeSubscriptionLocked(sub *Subscription) SubscriptionRemoval {
	removal := SubscriptionRemoval{Subscription: copySubscription(sub)}

	ids := make([]string, 0, len(r.resources))
	for resID, res := range r.resources {
		if _, enabled := res.enabled[sub.ID]; enabled {
			ids = append(ids, resID)
		}
	}
	slices.Sort(ids)
	for _, resID := range ids {
		res := r.resources[resID]
		delete(res.enabled, sub.ID)
		removal.EnabledAt = append(removal.EnabledAt, EnabledAt{ResourceID: resID, Endpoint: res.endpoint})
	}

	delete(r.subscriptions, sub.ID)
	removeFromIndex(r.subsByCapability, sub.CapabilityID, sub.ID)
	removeFromIndex(r.subsByOwner, sub.Owner, sub.ID)
	return removal
}

func (r *Registry) effectiveEnabledLocked(sub *Subscription) bool {
	c, ok := r.capabilities[sub.CapabilityID]
	if !ok {
		return false
	}
	for resID := range c.supporters {
		res, ok := r.resources[resID]
		if !ok || !res.alive {
			continue
		}
		if _, enabled := res.enabled[sub.ID]; enabled {
			return true
		}
	}
	return false
}

func validateSpec(spec SubscriptionSpec) error {
	if strings.TrimSpace(spec.ID) == "" {
		return invalid(KindSubscription, spec.ID, "id must not be empty", nil)
	}
	if strings.TrimSpace(spec.CapabilityID) == "" {
		return invalid(KindSubscription, spec.ID, "capability id must not be empty", nil)
	}
	if spec.StatusURL != "" {
		if err := validateEndpoint(spec.StatusURL); err != nil {
			return invalid(KindSubscription, spec.ID, "status url must be an absolute http(s) URL", err)
		}
	}
	if len(spec.Params) > 0 && !json.Valid(spec.Params) {
		return invalid(KindSubscription, spec.ID, "params must be a JSON document", nil)
	}
	return nil
}
