package registry

import (
	"context"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// RegisterCapabilityWatch adds a watch that is called back on every
// capability registration and removal.
func (r *Registry) RegisterCapabilityWatch(_ context.Context, spec CapabilityWatchSpec) error {
	if strings.TrimSpace(spec.ID) == "" {
		return invalid(KindCapabilityWatch, spec.ID, "id must not be empty", nil)
	}
	if err := validateEndpoint(spec.CallbackURL); err != nil {
		return invalid(KindCapabilityWatch, spec.ID, "callback url must be an absolute http(s) URL", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.watches[spec.ID]; exists {
		return conflict(KindCapabilityWatch, spec.ID)
	}
	r.watches[spec.ID] = &CapabilityWatch{
		ID:          spec.ID,
		Owner:       spec.Owner,
		CallbackURL: spec.CallbackURL,
		CreatedAt:   r.now(),
	}

	r.logger.Info("Registered capability watch",
		zap.String("watch", spec.ID),
		zap.String("owner", spec.Owner))
	return nil
}

// RemoveCapabilityWatch removes a watch
func (r *Registry) RemoveCapabilityWatch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.watches[id]; !ok {
		return notFound(KindCapabilityWatch, id)
	}
	delete(r.watches, id)
	r.logger.Info("Removed capability watch", zap.String("watch", id))
	return nil
}

// GetCapabilityWatch returns a copy of a watch
func (r *Registry) GetCapabilityWatch(id string) (CapabilityWatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.watches[id]
	if !ok {
		return CapabilityWatch{}, notFound(KindCapabilityWatch, id)
	}
	return *w, nil
}

// ListCapabilityWatches returns all watches ordered by id
func (r *Registry) ListCapabilityWatches() []CapabilityWatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	watches := make([]CapabilityWatch, 0, len(r.watches))
	for _, id := range slices.Sorted(maps.Keys(r.watches)) {
		watches = append(watches, *r.watches[id])
	}
	return watches
}

// RestoreCapabilityWatches seeds watches from a snapshot. Malformed or
// duplicate entries are skipped and counted in the returned value.
func (r *Registry) RestoreCapabilityWatches(watches []CapabilityWatch) int {
	skipped := 0
	for _, w := range watches {
		err := r.RegisterCapabilityWatch(context.Background(), CapabilityWatchSpec{
			ID:          w.ID,
			Owner:       w.Owner,
			CallbackURL: w.CallbackURL,
		})
		if err != nil {
			r.logger.Warn("Skipping persisted capability watch", zap.String("watch", w.ID), zap.Error(err))
			skipped++
			continue
		}
		if !w.CreatedAt.IsZero() {
			r.mu.Lock()
			r.watches[w.ID].CreatedAt = w.CreatedAt
			r.mu.Unlock()
		}
	}
	return skipped
}
