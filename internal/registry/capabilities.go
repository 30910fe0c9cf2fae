package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/lock"
)

// RegisterCapability records that resourceID supports capability id. The
// capability is created on first registration and reported through created;
// later registrations only extend its support set. The schema of an existing
// capability is never replaced.
func (r *Registry) RegisterCapability(
	ctx context.Context, id string, schema json.RawMessage, resourceID string,
) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, invalid(KindCapability, id, "id must not be empty", nil)
	}

	h, err := r.locks.Acquire(ctx, resourceID, lock.Exclusive)
	if err != nil {
		return false, fmt.Errorf("failed to lock resource %q: %w", resourceID, err)
	}
	defer h.Release()

	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[resourceID]
	if !ok {
		return false, notFound(KindResource, resourceID)
	}

	if c, exists := r.capabilities[id]; exists {
		c.supporters[resourceID] = struct{}{}
		res.capabilities[id] = struct{}{}
		return false, nil
	}

	if len(schema) == 0 {
		schema = r.schemaCatalog[id]
	}
	compiled, err := compileSchema(id, schema)
	if err != nil {
		return false, invalid(KindCapability, id, "schema is not a valid JSON Schema", err)
	}

	r.capabilities[id] = &capabilityEntry{
		id:         id,
		schema:     slices.Clone(schema),
		compiled:   compiled,
		supporters: map[string]struct{}{resourceID: {}},
	}
	delete(r.schemaCatalog, id)
	res.capabilities[id] = struct{}{}

	r.logger.Info("Registered capability",
		zap.String("capability", id),
		zap.String("resource", resourceID),
		zap.Int("subscriptions", len(r.subsByCapability[id])))
	return true, nil
}

// WithdrawCapability records that resourceID no longer supports capability
// id. A capability left without support is removed, which is reported by the
// returned bool; its subscriptions stay.
func (r *Registry) WithdrawCapability(ctx context.Context, id, resourceID string) (bool, error) {
	h, err := r.locks.Acquire(ctx, resourceID, lock.Exclusive)
	if err != nil {
		return false, fmt.Errorf("failed to lock resource %q: %w", resourceID, err)
	}
	defer h.Release()

	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[resourceID]
	if !ok {
		return false, notFound(KindResource, resourceID)
	}
	if _, supported := res.capabilities[id]; !supported {
		return false, notFound(KindCapability, id)
	}

	delete(res.capabilities, id)
	for subID := range r.subsByCapability[id] {
		delete(res.enabled, subID)
	}
	removed := r.dropSupportLocked(id, resourceID)

	r.logger.Info("Withdrew capability",
		zap.String("capability", id),
		zap.String("resource", resourceID),
		zap.Bool("capability_removed", removed))
	return removed, nil
}

// GetCapability returns a copy of the capability
func (r *Registry) GetCapability(id string) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.capabilities[id]
	if !ok {
		return Capability{}, notFound(KindCapability, id)
	}
	return c.snapshot(), nil
}

// ListCapabilities returns copies of all live capabilities ordered by id
func (r *Registry) ListCapabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listCapabilitiesLocked()
}

func (r *Registry) listCapabilitiesLocked() []Capability {
	ids := make([]string, 0, len(r.capabilities))
	for id := range r.capabilities {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Capability, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.capabilities[id].snapshot())
	}
	return out
}
