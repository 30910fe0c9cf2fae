package supervision_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/stacklok/coordination-registry/internal/httpclient"
	"github.com/stacklok/coordination-registry/internal/notify"
	"github.com/stacklok/coordination-registry/internal/registry"
	"github.com/stacklok/coordination-registry/internal/remote"
	"github.com/stacklok/coordination-registry/internal/supervision"
)

// fakeResource serves the health and subscription endpoints of a resource
type fakeResource struct {
	healthy atomic.Bool

	mu      sync.Mutex
	enabled map[string]string
}

func newFakeResource(t *testing.T) (*fakeResource, *httptest.Server) {
	t.Helper()

	res := &fakeResource{enabled: make(map[string]string)}
	res.healthy.Store(true)

	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if !res.healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Put("/subscriptions/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		res.mu.Lock()
		res.enabled[chi.URLParam(r, "id")] = gjson.GetBytes(body, "capabilityId").String()
		res.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return res, server
}

func (f *fakeResource) enabledCapability(subID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	capID, ok := f.enabled[subID]
	return capID, ok
}

// fakeOwner records the statuses posted to it
type fakeOwner struct {
	mu       sync.Mutex
	statuses []string
}

func newFakeOwner(t *testing.T) (*fakeOwner, *httptest.Server) {
	t.Helper()

	owner := &fakeOwner{}
	router := chi.NewRouter()
	router.Post("/status", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		owner.mu.Lock()
		owner.statuses = append(owner.statuses, gjson.GetBytes(body, "status").String())
		owner.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return owner, server
}

func (o *fakeOwner) received() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.statuses...)
}

// newFakeWatcher records capability callbacks as "<capability>=<status>"
func newFakeWatcher(t *testing.T) (*fakeOwner, *httptest.Server) {
	t.Helper()

	watcher := &fakeOwner{}
	router := chi.NewRouter()
	router.Post("/capabilities", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		watcher.mu.Lock()
		watcher.statuses = append(watcher.statuses,
			gjson.GetBytes(body, "capabilityId").String()+"="+gjson.GetBytes(body, "status").String())
		watcher.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return watcher, server
}

func TestSupervision_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resource, resourceServer := newFakeResource(t)
	owner, ownerServer := newFakeOwner(t)
	watcher, watcherServer := newFakeWatcher(t)

	reg := registry.New()
	client := httpclient.NewDefaultClient(2 * time.Second)
	sup := supervision.New(reg,
		remote.NewHTTPResourceClient(client, remote.WithProbeTimeout(time.Second)),
		notify.NewHTTPDispatcher(reg, client, notify.WithRateLimit(0)),
		supervision.WithDeadThreshold(2),
		supervision.WithEnableBackoff(0),
		supervision.WithCapabilityNotifier(notify.NewHTTPCapabilityNotifier(reg, client, notify.WithRateLimit(0))),
	)
	require.NoError(t, reg.RegisterCapabilityWatch(ctx, registry.CapabilityWatchSpec{
		ID:          "watch-1",
		CallbackURL: watcherServer.URL + "/capabilities",
	}))

	require.NoError(t, reg.RegisterResource(ctx, "ric-1", resourceServer.URL))
	created, err := reg.RegisterCapability(ctx, "pt-1", []byte(`{"type":"object"}`), "ric-1")
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, reg.RegisterSubscription(ctx, registry.SubscriptionSpec{
		ID:           "sub-1",
		CapabilityID: "pt-1",
		Owner:        "alice",
		StatusURL:    ownerServer.URL + "/status",
		Params:       []byte(`{"threshold":5}`),
	}))

	// Healthy resource: the subscription is enabled and the owner told so
	result := sup.RunCycle(ctx)
	assert.Equal(t, 1, result.Enabled)
	capID, ok := resource.enabledCapability("sub-1")
	require.True(t, ok)
	assert.Equal(t, "pt-1", capID)
	assert.Equal(t, []string{notify.StatusEnabled}, owner.received())

	// Nothing changed: no new enable calls or notifications
	result = sup.RunCycle(ctx)
	assert.Zero(t, result.Enabled)
	assert.Zero(t, result.Notifications.Delivered)
	assert.Equal(t, []string{notify.StatusEnabled}, owner.received())

	// First failed probe disables the subscription
	resource.healthy.Store(false)
	result = sup.RunCycle(ctx)
	assert.Equal(t, 1, result.ProbeFailures)
	assert.Empty(t, result.Deregistered)
	assert.Equal(t, []string{notify.StatusEnabled, notify.StatusDisabled}, owner.received())

	// Reaching the threshold deregisters the resource and its only capability
	result = sup.RunCycle(ctx)
	assert.Equal(t, []string{"ric-1"}, result.Deregistered)
	assert.Equal(t, registry.Status{SubscriptionCount: 1}, reg.Status())
	assert.Len(t, owner.received(), 2, "status was already reported as disabled")
	assert.Equal(t, []string{"pt-1"}, result.RemovedCapabilities)
	assert.Equal(t, 1, result.CapabilityNotifications.Delivered)
	assert.Equal(t, []string{"pt-1=DEREGISTERED"}, watcher.received())

	// The subscription survives but its capability no longer resolves
	_, err = reg.GetSubscription("sub-1")
	require.NoError(t, err)
	_, err = reg.CapabilityForSubscription("sub-1")
	require.ErrorIs(t, err, registry.ErrNotFound)

	// The resource comes back and re-registers; the orphan is served again
	resource.healthy.Store(true)
	require.NoError(t, reg.RegisterResource(ctx, "ric-1", resourceServer.URL))
	_, err = reg.RegisterCapability(ctx, "pt-1", nil, "ric-1")
	require.NoError(t, err)

	result = sup.RunCycle(ctx)
	assert.Equal(t, 1, result.Enabled)
	assert.Equal(t, []string{notify.StatusEnabled, notify.StatusDisabled, notify.StatusEnabled}, owner.received())

	enabled, err := reg.IsSubscriptionEnabled("sub-1")
	require.NoError(t, err)
	assert.True(t, enabled)
}
