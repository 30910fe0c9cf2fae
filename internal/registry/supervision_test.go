package registry_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/coordination-registry/internal/registry"
)

func TestProbeMarks(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	mustRegisterResource(t, r, "ric-1")
	mustRegisterCapability(t, r, "type-1", "ric-1")
	mustRegisterSubscription(t, r, "job-1", "type-1", "owner-1")
	require.NoError(t, r.MarkEnabled("ric-1", "job-1"))

	failures, err := r.MarkProbeFailed("ric-1")
	require.NoError(t, err)
	assert.Equal(t, 1, failures)
	failures, err = r.MarkProbeFailed("ric-1")
	require.NoError(t, err)
	assert.Equal(t, 2, failures)

	res, err := r.GetResource("ric-1")
	require.NoError(t, err)
	assert.False(t, res.Alive)
	assert.Equal(t, 2, res.ConsecutiveFailures)
	assert.Empty(t, res.EnabledSubscriptions, "enabled set is cleared while the resource is down")
	require.NotNil(t, res.LastProbe)

	require.NoError(t, r.MarkProbeSucceeded("ric-1"))
	res, err = r.GetResource("ric-1")
	require.NoError(t, err)
	assert.True(t, res.Alive)
	assert.Zero(t, res.ConsecutiveFailures)

	_, err = r.MarkProbeFailed("missing")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.ErrorIs(t, r.MarkProbeSucceeded("missing"), registry.ErrNotFound)
}

func TestPendingSubscriptions(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	mustRegisterResource(t, r, "ric-1")
	mustRegisterCapability(t, r, "type-1", "ric-1")
	mustRegisterCapability(t, r, "type-2", "ric-1")
	mustRegisterSubscription(t, r, "job-1", "type-1", "owner-1")
	mustRegisterSubscription(t, r, "job-2", "type-2", "owner-1")
	mustRegisterSubscription(t, r, "job-3", "type-3", "owner-1")

	pending, err := r.PendingSubscriptions("ric-1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "job-1", pending[0].Subscription.ID)
	assert.Equal(t, "type-1", pending[0].Capability.ID)
	assert.Equal(t, "job-2", pending[1].Subscription.ID)

	require.NoError(t, r.MarkEnabled("ric-1", "job-1"))
	pending, err = r.PendingSubscriptions("ric-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "job-2", pending[0].Subscription.ID)

	_, err = r.PendingSubscriptions("missing")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestMarkEnabled_Errors(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	mustRegisterResource(t, r, "ric-1")
	mustRegisterCapability(t, r, "type-1", "ric-1")
	mustRegisterSubscription(t, r, "job-1", "type-1", "owner-1")
	mustRegisterSubscription(t, r, "job-2", "type-2", "owner-1")

	tests := []struct {
		name       string
		resourceID string
		subID      string
		wantKind   registry.Kind
	}{
		{name: "unknown resource", resourceID: "ric-9", subID: "job-1", wantKind: registry.KindResource},
		{name: "unknown subscription", resourceID: "ric-1", subID: "job-9", wantKind: registry.KindSubscription},
		{name: "capability not supported", resourceID: "ric-1", subID: "job-2", wantKind: registry.KindCapability},
	}

	for _, tt := range tests {
		err := r.MarkEnabled(tt.resourceID, tt.subID)
		var nf *registry.NotFoundError
		require.ErrorAs(t, err, &nf, tt.name)
		assert.Equal(t, tt.wantKind, nf.Kind, tt.name)
	}
}

func TestStatusChanges(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	mustRegisterResource(t, r, "ric-1")
	mustRegisterResource(t, r, "ric-2")
	mustRegisterCapability(t, r, "type-1", "ric-1")
	mustRegisterCapability(t, r, "type-1", "ric-2")
	mustRegisterSubscription(t, r, "job-1", "type-1", "owner-1")
	mustRegisterSubscription(t, r, "job-2", "orphan-type", "owner-2")

	// Never reported: both show up with their current state.
	changes := r.StatusChanges()
	require.Len(t, changes, 2)
	assert.False(t, changes[0].Enabled)
	assert.False(t, changes[1].Enabled)

	require.NoError(t, r.SetLastReported("job-1", false))
	require.NoError(t, r.SetLastReported("job-2", false))
	assert.Empty(t, r.StatusChanges(), "unchanged state produces no change")

	require.NoError(t, r.MarkEnabled("ric-1", "job-1"))
	changes = r.StatusChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, "job-1", changes[0].Subscription.ID)
	assert.True(t, changes[0].Enabled)

	enabled, err := r.IsSubscriptionEnabled("job-1")
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, r.SetLastReported("job-1", true))
	assert.Empty(t, r.StatusChanges())

	// ric-1 goes down; ric-2 supports the capability but never enabled job-1.
	_, err = r.MarkProbeFailed("ric-1")
	require.NoError(t, err)
	changes = r.StatusChanges()
	require.Len(t, changes, 1)
	assert.False(t, changes[0].Enabled)

	require.NoError(t, r.MarkEnabled("ric-2", "job-1"))
	assert.Empty(t, r.StatusChanges(), "another alive resource keeps the subscription enabled")

	_, err = r.IsSubscriptionEnabled("missing")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.ErrorIs(t, r.SetLastReported("missing", true), registry.ErrNotFound)
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	schema := json.RawMessage(`{"type":"object","required":["threshold"]}`)

	source := newTestRegistry(t)
	mustRegisterResource(t, source, "ric-1")
	_, err := source.RegisterCapability(context.Background(), "type-1", schema, "ric-1")
	require.NoError(t, err)
	mustRegisterSubscription(t, source, "job-1", "type-1", "owner-1")
	require.NoError(t, source.SetLastReported("job-1", true))

	caps, subs := source.Snapshot()
	require.Len(t, caps, 1)
	require.Len(t, subs, 1)

	target := newTestRegistry(t, registry.WithParamValidation(true))
	require.NoError(t, target.Restore(caps, subs))

	// Restored capabilities are not live until a resource supports them.
	assert.Equal(t, registry.Status{SubscriptionCount: 1}, target.Status())
	sub, err := target.GetSubscription("job-1")
	require.NoError(t, err)
	require.NotNil(t, sub.LastReportedEnabled)
	assert.True(t, *sub.LastReportedEnabled)

	// The catalog is still part of the next snapshot.
	caps2, _ := target.Snapshot()
	require.Len(t, caps2, 1)
	assert.JSONEq(t, string(schema), string(caps2[0].Schema))

	// Registering without a schema picks up the remembered one.
	mustRegisterResource(t, target, "ric-1")
	created, err := target.RegisterCapability(context.Background(), "type-1", nil, "ric-1")
	require.NoError(t, err)
	assert.True(t, created)

	c, err := target.GetCapability("type-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(schema), string(c.Schema))

	err = target.RegisterSubscription(context.Background(), registry.SubscriptionSpec{
		ID: "job-2", CapabilityID: "type-1", Owner: "owner-1", Params: json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, registry.ErrInvalidArgument, "remembered schema is enforced")

	caps3, _ := target.Snapshot()
	assert.Len(t, caps3, 1, "live capability is not duplicated by the catalog")
}

func TestRestore_SkipsBadEntries(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	mustRegisterSubscription(t, r, "job-1", "type-1", "owner-1")

	err := r.Restore(
		[]registry.Capability{
			{ID: "good", Schema: json.RawMessage(`{"type":"object"}`)},
			{ID: "bad", Schema: json.RawMessage(`{"type":`)},
			{ID: ""},
		},
		[]registry.Subscription{
			{ID: "job-1", CapabilityID: "type-1", Owner: "owner-1"},
			{ID: "job-2", CapabilityID: "good", Owner: "owner-2"},
			{ID: "", CapabilityID: "good"},
		},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrInvalidArgument)
	assert.ErrorIs(t, err, registry.ErrConflict)

	assert.Len(t, r.ListSubscriptions(), 2)
	sub, getErr := r.GetSubscription("job-2")
	require.NoError(t, getErr)
	assert.Equal(t, fixedNow, sub.CreatedAt)

	caps, _ := r.Snapshot()
	require.Len(t, caps, 1)
	assert.Equal(t, "good", caps[0].ID)
}
