package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/coordination-registry/internal/config"
	"github.com/stacklok/coordination-registry/internal/notify"
	notifymocks "github.com/stacklok/coordination-registry/internal/notify/mocks"
	"github.com/stacklok/coordination-registry/internal/persistence"
	remotemocks "github.com/stacklok/coordination-registry/internal/remote/mocks"
)

func TestCoordinationApp_StartStop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	resources := remotemocks.NewMockResourceClient(ctrl)
	dispatcher := notifymocks.NewMockDispatcher(ctrl)

	probed := make(chan struct{}, 1)
	resources.EXPECT().Probe(gomock.Any(), "http://ric-1.example.com").DoAndReturn(
		func(context.Context, string) error {
			select {
			case probed <- struct{}{}:
			default:
			}
			return nil
		}).MinTimes(1)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(notify.Result{}).MinTimes(1)

	snapshotPath := filepath.Join(t.TempDir(), "snapshot.json")
	cfg := &config.Config{
		Supervision: &config.SupervisionConfig{Interval: "1h"},
		Persistence: &persistence.Config{Driver: persistence.DriverFile, Path: snapshotPath},
		Resources:   []config.ResourceConfig{{ID: "ric-1", Endpoint: "http://ric-1.example.com"}},
	}

	app, err := NewCoordinationApp(context.Background(),
		WithConfig(cfg),
		WithAddress("127.0.0.1:0"),
		WithResourceClient(resources),
		WithDispatcher(dispatcher),
	)
	require.NoError(t, err)
	assert.Same(t, cfg, app.GetConfig())
	assert.Equal(t, "127.0.0.1:0", app.GetHTTPServer().Addr)

	started := make(chan error, 1)
	go func() { started <- app.Start() }()

	select {
	case <-probed:
	case <-time.After(5 * time.Second):
		t.Fatal("supervision cycle did not run")
	}

	require.NoError(t, app.Stop(5*time.Second))

	select {
	case err := <-started:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	reopened, err := persistence.Open(persistence.Config{Driver: persistence.DriverFile, Path: snapshotPath})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	snap, err := reopened.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, persistence.FormatVersion, snap.FormatVersion)
}

func TestCoordinationApp_StopWithoutStart(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app, err := NewCoordinationApp(context.Background(),
		WithConfig(&config.Config{}),
		WithResourceClient(remotemocks.NewMockResourceClient(ctrl)),
		WithDispatcher(notifymocks.NewMockDispatcher(ctrl)),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Stop(time.Second) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Stop blocked without Start")
	}
}
