package registry

import (
	"maps"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RegisterOwner starts keep-alive supervision of an owner. Registering an
// existing owner refreshes it and replaces its interval; the returned bool
// is true when the owner is new.
func (r *Registry) RegisterOwner(id string, keepAlive time.Duration) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, invalid(KindOwner, id, "id must not be empty", nil)
	}
	if keepAlive < 0 {
		return false, invalid(KindOwner, id, "keep-alive interval must not be negative", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if o, ok := r.owners[id]; ok {
		o.KeepAliveInterval = keepAlive
		o.LastSeen = now
		return false, nil
	}

	r.owners[id] = &Owner{
		ID:                id,
		KeepAliveInterval: keepAlive,
		LastSeen:          now,
		RegisteredAt:      now,
	}
	r.logger.Info("Registered owner",
		zap.String("owner", id),
		zap.Duration("keep_alive", keepAlive))
	return true, nil
}

// KeepAlive refreshes a registered owner
func (r *Registry) KeepAlive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.owners[id]
	if !ok {
		return notFound(KindOwner, id)
	}
	o.LastSeen = r.now()
	return nil
}

// GetOwner returns a copy of a registered owner
func (r *Registry) GetOwner(id string) (Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.owners[id]
	if !ok {
		return Owner{}, notFound(KindOwner, id)
	}
	return *o, nil
}

// ListOwners returns all registered owners ordered by id
func (r *Registry) ListOwners() []Owner {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owners := make([]Owner, 0, len(r.owners))
	for _, id := range slices.Sorted(maps.Keys(r.owners)) {
		owners = append(owners, *r.owners[id])
	}
	return owners
}

// RemoveOwner stops supervising an owner. Its subscriptions are untouched.
func (r *Registry) RemoveOwner(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owners[id]; !ok {
		return notFound(KindOwner, id)
	}
	delete(r.owners, id)
	r.logger.Info("Removed owner", zap.String("owner", id))
	return nil
}

// ExpiredOwners returns the ids of owners whose keep-alive interval elapsed
func (r *Registry) ExpiredOwners() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	var expired []string
	for id, o := range r.owners {
		if o.Expired(now) {
			expired = append(expired, id)
		}
	}
	slices.Sort(expired)
	return expired
}

// RemoveExpiredOwner removes an owner only if it is still expired, so a
// keep-alive racing with the expiry pass wins. It reports whether the owner
// was removed.
func (r *Registry) RemoveExpiredOwner(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.owners[id]
	if !ok || !o.Expired(r.now()) {
		return false
	}
	delete(r.owners, id)
	r.logger.Info("Owner keep-alive expired",
		zap.String("owner", id),
		zap.Time("last_seen", o.LastSeen))
	return true
}
