package registry

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/lock"
)

// RegisterResource adds a resource. New resources start alive with zero failures.
func (r *Registry) RegisterResource(ctx context.Context, id, endpoint string) error {
	if strings.TrimSpace(id) == "" {
		return invalid(KindResource, id, "id must not be empty", nil)
	}
	if err := validateEndpoint(endpoint); err != nil {
		return invalid(KindResource, id, "endpoint must be an absolute http(s) URL", err)
	}

	h, err := r.locks.Acquire(ctx, id, lock.Exclusive)
	if err != nil {
		return fmt.Errorf("failed to lock resource %q: %w", id, err)
	}
	defer h.Release()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[id]; exists {
		return conflict(KindResource, id)
	}
	r.resources[id] = &resourceEntry{
		id:           id,
		endpoint:     strings.TrimRight(endpoint, "/"),
		alive:        true,
		registeredAt: r.now(),
		capabilities: make(map[string]struct{}),
		enabled:      make(map[string]struct{}),
	}

	r.logger.Info("Registered resource", zap.String("resource", id), zap.String("endpoint", endpoint))
	return nil
}

// DeregisterResource removes a resource, drops it from every capability it
// supported and removes capabilities left without support. Subscriptions are
// kept. A second call for the same id returns a NotFoundError.
func (r *Registry) DeregisterResource(ctx context.Context, id string) (*Deregistration, error) {
	h, err := r.locks.Acquire(ctx, id, lock.Exclusive)
	if err != nil {
		return nil, fmt.Errorf("failed to lock resource %q: %w", id, err)
	}
	defer h.Release()

	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, notFound(KindResource, id)
	}

	result := &Deregistration{Resource: res.snapshot()}
	affected := make(map[string]struct{})
	for capID := range res.capabilities {
		for subID := range r.subsByCapability[capID] {
			affected[subID] = struct{}{}
		}
		if r.dropSupportLocked(capID, id) {
			result.RemovedCapabilities = append(result.RemovedCapabilities, capID)
		}
	}
	delete(r.resources, id)

	slices.Sort(result.RemovedCapabilities)
	result.AffectedSubscriptions = sortedKeys(affected)

	r.logger.Info("Deregistered resource",
		zap.String("resource", id),
		zap.Strings("removed_capabilities", result.RemovedCapabilities),
		zap.Int("affected_subscriptions", len(result.AffectedSubscriptions)))
	return result, nil
}

// GetResource returns a copy of the resource
func (r *Registry) GetResource(id string) (Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return Resource{}, notFound(KindResource, id)
	}
	return res.snapshot(), nil
}

// ListResources returns copies of all resources ordered by id
func (r *Registry) ListResources() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listResourcesLocked()
}

func (r *Registry) listResourcesLocked() []Resource {
	ids := make([]string, 0, len(r.resources))
	for id := range r.resources {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.resources[id].snapshot())
	}
	return out
}

// dropSupportLocked removes resourceID from the capability's support set and
// removes the capability once nobody supports it. It reports whether the
// capability was removed. The caller holds r.mu.
func (r *Registry) dropSupportLocked(capID, resourceID string) bool {
	c, ok := r.capabilities[capID]
	if !ok {
		return false
	}
	delete(c.supporters, resourceID)
	if len(c.supporters) > 0 {
		return false
	}
	delete(r.capabilities, capID)
	r.logger.Info("Removed capability without supporting resources", zap.String("capability", capID))
	return true
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
