package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/coordination-registry/internal/httpclient"
	httpmocks "github.com/stacklok/coordination-registry/internal/httpclient/mocks"
	"github.com/stacklok/coordination-registry/internal/notify"
	"github.com/stacklok/coordination-registry/internal/notify/mocks"
	"github.com/stacklok/coordination-registry/internal/registry"
)

func watchRegistry(t *testing.T, watches ...registry.CapabilityWatchSpec) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, w := range watches {
		require.NoError(t, reg.RegisterCapabilityWatch(context.Background(), w))
	}
	return reg
}

func unavailable(url string) error {
	return httpclient.NewTransientIOError(http.MethodPost, url,
		httpclient.NewHTTPError(http.StatusServiceUnavailable, url, "unavailable"))
}

func TestNotifyCapabilityChanges_FansOutToEveryWatch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := httpmocks.NewMockClient(ctrl)
	reg := watchRegistry(t,
		registry.CapabilityWatchSpec{ID: "w-1", CallbackURL: "http://a.example.com/types"},
		registry.CapabilityWatchSpec{ID: "w-2", CallbackURL: "http://b.example.com/types"},
	)

	var (
		mu       sync.Mutex
		received = make(map[string][]string)
	)
	client.EXPECT().
		Post(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, url string, body []byte) ([]byte, error) {
			mu.Lock()
			defer mu.Unlock()
			received[url] = append(received[url],
				gjson.GetBytes(body, "capabilityId").String()+"="+gjson.GetBytes(body, "status").String())
			return nil, nil
		}).
		Times(4)

	notifier := notify.NewHTTPCapabilityNotifier(reg, client, notify.WithRateLimit(0))
	result := notifier.NotifyCapabilityChanges(context.Background(), []registry.CapabilityChange{
		{CapabilityID: "pt-1", Schema: json.RawMessage(`{"type":"object"}`), Registered: true},
		{CapabilityID: "pt-2"},
	})

	assert.Equal(t, notify.CapabilityResult{Delivered: 4}, result)
	for _, url := range []string{"http://a.example.com/types", "http://b.example.com/types"} {
		assert.ElementsMatch(t, []string{"pt-1=REGISTERED", "pt-2=DEREGISTERED"}, received[url])
	}
	assert.Len(t, reg.ListCapabilityWatches(), 2)
}

func TestNotifyCapabilityChanges_Body(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := httpmocks.NewMockClient(ctrl)
	reg := watchRegistry(t, registry.CapabilityWatchSpec{ID: "w-1", CallbackURL: "http://a.example.com/types"})

	client.EXPECT().
		Post(gomock.Any(), "http://a.example.com/types", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, body []byte) ([]byte, error) {
			assert.JSONEq(t,
				`{"capabilityId":"pt-1","schema":{"type":"object"},"status":"REGISTERED"}`,
				string(body))
			return nil, nil
		})

	notifier := notify.NewHTTPCapabilityNotifier(reg, client, notify.WithRateLimit(0))
	result := notifier.NotifyCapabilityChanges(context.Background(), []registry.CapabilityChange{
		{CapabilityID: "pt-1", Schema: json.RawMessage(`{"type":"object"}`), Registered: true},
	})
	assert.Equal(t, 1, result.Delivered)
}

func TestNotifyCapabilityChanges_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := httpmocks.NewMockClient(ctrl)
	reg := watchRegistry(t, registry.CapabilityWatchSpec{ID: "w-1", CallbackURL: "http://a.example.com/types"})

	gomock.InOrder(
		client.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, unavailable("http://a.example.com/types")).Times(2),
		client.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil),
	)

	notifier := notify.NewHTTPCapabilityNotifier(reg, client,
		notify.WithRateLimit(0),
		notify.WithCallbackRetries(3, 0))
	result := notifier.NotifyCapabilityChanges(context.Background(), []registry.CapabilityChange{
		{CapabilityID: "pt-1", Registered: true},
	})

	assert.Equal(t, notify.CapabilityResult{Delivered: 1}, result)
	_, err := reg.GetCapabilityWatch("w-1")
	assert.NoError(t, err)
}

func TestNotifyCapabilityChanges_RemovesFailingWatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{
			name:      "retries exhausted",
			err:       unavailable("http://bad.example.com/types"),
			wantCalls: 3,
		},
		{
			name:      "client error is not retried",
			err:       httpclient.NewHTTPError(http.StatusNotFound, "http://bad.example.com/types", "no such path"),
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := httpmocks.NewMockClient(ctrl)
			reg := watchRegistry(t,
				registry.CapabilityWatchSpec{ID: "good", CallbackURL: "http://good.example.com/types"},
				registry.CapabilityWatchSpec{ID: "bad", CallbackURL: "http://bad.example.com/types"},
			)

			client.EXPECT().Post(gomock.Any(), "http://good.example.com/types", gomock.Any()).Return(nil, nil)
			client.EXPECT().Post(gomock.Any(), "http://bad.example.com/types", gomock.Any()).
				Return(nil, tt.err).Times(tt.wantCalls)

			notifier := notify.NewHTTPCapabilityNotifier(reg, client,
				notify.WithRateLimit(0),
				notify.WithCallbackRetries(2, 0))
			result := notifier.NotifyCapabilityChanges(context.Background(), []registry.CapabilityChange{
				{CapabilityID: "pt-1"},
			})

			assert.Equal(t, notify.CapabilityResult{Delivered: 1, Failed: 1, RemovedWatches: []string{"bad"}}, result)
			watches := reg.ListCapabilityWatches()
			require.Len(t, watches, 1)
			assert.Equal(t, "good", watches[0].ID)
		})
	}
}

func TestNotifyCapabilityChanges_CancelledContextKeepsWatches(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := httpmocks.NewMockClient(ctrl)
	store := mocks.NewMockWatchStore(ctrl)
	store.EXPECT().ListCapabilityWatches().Return([]registry.CapabilityWatch{
		{ID: "w-1", CallbackURL: "http://a.example.com/types"},
	})
	// No RemoveCapabilityWatch call is expected

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notifier := notify.NewHTTPCapabilityNotifier(store, client, notify.WithRateLimit(1))
	result := notifier.NotifyCapabilityChanges(ctx, []registry.CapabilityChange{{CapabilityID: "pt-1"}})
	assert.Equal(t, notify.CapabilityResult{Failed: 1}, result)
}

func TestNotifyCapabilityChanges_NothingToDo(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := httpmocks.NewMockClient(ctrl)

	// No watches: the client is never called
	notifier := notify.NewHTTPCapabilityNotifier(watchRegistry(t), client)
	assert.Equal(t, notify.CapabilityResult{},
		notifier.NotifyCapabilityChanges(context.Background(), []registry.CapabilityChange{{CapabilityID: "pt-1"}}))

	// No changes: the store is not consulted
	store := mocks.NewMockWatchStore(ctrl)
	notifier = notify.NewHTTPCapabilityNotifier(store, client)
	assert.Equal(t, notify.CapabilityResult{}, notifier.NotifyCapabilityChanges(context.Background(), nil))
}
