package supervision

import (
	"context"

	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/otel"
	"github.com/stacklok/coordination-registry/internal/registry"
)

// OwnerRemover removes the subscriptions of an owner whose keep-alive
// expired. The service implementation also disables them at their resources
// and persists the registry; the registry itself only forgets them.
type OwnerRemover interface {
	RemoveSubscriptionsForOwner(ctx context.Context, owner string) []registry.SubscriptionRemoval
}

// WithOwnerRemover sets what removes the subscriptions of expired owners.
// Defaults to the registry.
func WithOwnerRemover(r OwnerRemover) Option {
	return func(s *supervisor) {
		if r != nil {
			s.owners = r
		}
	}
}

// ExpireOwners implements Supervisor
func (s *supervisor) ExpireOwners(ctx context.Context) []string {
	s.expiryMu.Lock()
	defer s.expiryMu.Unlock()

	ctx, span := otel.StartSpan(ctx, s.tracer, "supervision.ExpireOwners")
	defer span.End()

	var expired []string
	for _, id := range s.registry.ExpiredOwners() {
		// A keep-alive may have arrived since the listing
		if !s.registry.RemoveExpiredOwner(id) {
			continue
		}
		expired = append(expired, id)
		s.removeOwnerSubscriptions(ctx, id)
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(expired)))
	return expired
}

func (s *supervisor) removeOwnerSubscriptions(ctx context.Context, owner string) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "supervision.owner", otel.AttrOwner.String(owner))
	defer span.End()

	removals := s.owners.RemoveSubscriptionsForOwner(ctx, owner)
	span.SetAttributes(otel.AttrResultCount.Int(len(removals)))
	s.logger.Info("Removed subscriptions of expired owner",
		zap.String("owner", owner),
		zap.Int("subscriptions", len(removals)))
}
