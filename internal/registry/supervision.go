package registry

import (
	"slices"
)

// The methods in this file are called by the supervision loop while it holds
// a shared lock on the resource. They only take the registry mutex.

// MarkProbeSucceeded records a successful probe: the resource is alive and
// its failure counter is reset.
func (r *Registry) MarkProbeSucceeded(resourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[resourceID]
	if !ok {
		return notFound(KindResource, resourceID)
	}
	now := r.now()
	res.alive = true
	res.failures = 0
	res.lastProbe = &now
	return nil
}

// MarkProbeFailed records a failed probe and returns the number of
// consecutive failures. Subscriptions enabled at the resource are forgotten
// and enabled again once the resource recovers.
func (r *Registry) MarkProbeFailed(resourceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[resourceID]
	if !ok {
		return 0, notFound(KindResource, resourceID)
	}
	now := r.now()
	res.alive = false
	res.failures++
	res.lastProbe = &now
	clear(res.enabled)
	return res.failures, nil
}

// PendingSubscriptions returns the subscriptions against capabilities the
// resource supports that are not yet enabled at it.
func (r *Registry) PendingSubscriptions(resourceID string) ([]PendingEnable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[resourceID]
	if !ok {
		return nil, notFound(KindResource, resourceID)
	}

	var pending []PendingEnable
	for _, capID := range sortedKeys(res.capabilities) {
		c, ok := r.capabilities[capID]
		if !ok {
			continue
		}
		for _, subID := range sortedKeys(r.subsByCapability[capID]) {
			if _, enabled := res.enabled[subID]; enabled {
				continue
			}
			pending = append(pending, PendingEnable{
				Subscription: copySubscription(r.subscriptions[subID]),
				Capability:   c.snapshot(),
			})
		}
	}
	return pending, nil
}

// MarkEnabled records that the resource confirmed it serves the subscription.
// It fails when either side disappeared while the enable call was in flight.
func (r *Registry) MarkEnabled(resourceID, subscriptionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[resourceID]
	if !ok {
		return notFound(KindResource, resourceID)
	}
	sub, ok := r.subscriptions[subscriptionID]
	if !ok {
		return notFound(KindSubscription, subscriptionID)
	}
	if _, supported := res.capabilities[sub.CapabilityID]; !supported {
		return notFound(KindCapability, sub.CapabilityID)
	}
	res.enabled[subscriptionID] = struct{}{}
	return nil
}

// StatusChanges returns every subscription whose effective enabled state
// differs from the state last reported to its owner. A subscription that was
// never reported always shows up.
func (r *Registry) StatusChanges() []StatusChange {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.subscriptions))
	for id := range r.subscriptions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var changes []StatusChange
	for _, id := range ids {
		sub := r.subscriptions[id]
		enabled := r.effectiveEnabledLocked(sub)
		if sub.LastReportedEnabled != nil && *sub.LastReportedEnabled == enabled {
			continue
		}
		changes = append(changes, StatusChange{Subscription: copySubscription(sub), Enabled: enabled})
	}
	return changes
}

// SetLastReported stores the status last delivered to the subscription owner
func (r *Registry) SetLastReported(subscriptionID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[subscriptionID]
	if !ok {
		return notFound(KindSubscription, subscriptionID)
	}
	sub.LastReportedEnabled = &enabled
	return nil
}
