package registry

import (
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Snapshot returns the persistable part of the registry: live capabilities,
// capabilities remembered from an earlier restore, and all subscriptions.
// Resources are not persisted; they register again after a restart.
func (r *Registry) Snapshot() ([]Capability, []Subscription) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := r.listCapabilitiesLocked()
	for id, schema := range r.schemaCatalog {
		caps = append(caps, Capability{ID: id, Schema: slices.Clone(schema)})
	}
	slices.SortFunc(caps, func(a, b Capability) int {
		return strings.Compare(a.ID, b.ID)
	})
	return caps, r.listSubscriptionsLocked()
}

// Restore seeds the registry from a snapshot. Capabilities go to the schema
// catalog and become live when a resource registers them. Subscriptions keep
// their last reported status. Entries that are malformed or already present
// are skipped and reported in the returned error; the rest are restored.
func (r *Registry) Restore(caps []Capability, subs []Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, c := range caps {
		if c.ID == "" {
			errs = append(errs, invalid(KindCapability, c.ID, "id must not be empty", nil))
			continue
		}
		if _, err := compileSchema(c.ID, c.Schema); err != nil {
			errs = append(errs, invalid(KindCapability, c.ID, "schema is not a valid JSON Schema", err))
			continue
		}
		if _, live := r.capabilities[c.ID]; live {
			continue
		}
		if len(c.Schema) > 0 {
			r.schemaCatalog[c.ID] = slices.Clone(c.Schema)
		}
	}

	restored := 0
	for i := range subs {
		s := subs[i]
		spec := SubscriptionSpec{
			ID:           s.ID,
			CapabilityID: s.CapabilityID,
			Owner:        s.Owner,
			CallbackURL:  s.CallbackURL,
			StatusURL:    s.StatusURL,
			Params:       s.Params,
		}
		if err := validateSpec(spec); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, exists := r.subscriptions[s.ID]; exists {
			errs = append(errs, conflict(KindSubscription, s.ID))
			continue
		}
		sub := copySubscription(&s)
		if sub.CreatedAt.IsZero() {
			sub.CreatedAt = r.now()
		}
		r.insertSubscriptionLocked(&sub)
		restored++
	}

	r.logger.Info("Restored registry snapshot",
		zap.Int("catalog_capabilities", len(r.schemaCatalog)),
		zap.Int("subscriptions", restored),
		zap.Int("skipped", len(errs)))
	return errors.Join(errs...)
}
