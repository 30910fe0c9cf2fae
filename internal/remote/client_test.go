package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/coordination-registry/internal/httpclient"
	"github.com/stacklok/coordination-registry/internal/httpclient/mocks"
	"github.com/stacklok/coordination-registry/internal/registry"
	"github.com/stacklok/coordination-registry/internal/remote"
)

func TestProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		setup    func(m *mocks.MockClient)
		wantErr  bool
	}{
		{
			name:     "healthy resource",
			endpoint: "http://ric-1:8080",
			setup: func(m *mocks.MockClient) {
				m.EXPECT().Get(gomock.Any(), "http://ric-1:8080/health").Return([]byte(`{}`), nil)
			},
		},
		{
			name:     "endpoint with base path",
			endpoint: "http://ric-1:8080/a1-p",
			setup: func(m *mocks.MockClient) {
				m.EXPECT().Get(gomock.Any(), "http://ric-1:8080/a1-p/health").Return(nil, nil)
			},
		},
		{
			name:     "unhealthy resource",
			endpoint: "http://ric-1:8080",
			setup: func(m *mocks.MockClient) {
				m.EXPECT().Get(gomock.Any(), gomock.Any()).
					Return(nil, httpclient.NewTransientIOError("GET", "http://ric-1:8080/health",
						httpclient.NewHTTPError(503, "http://ric-1:8080/health", "503 Service Unavailable")))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockClient := mocks.NewMockClient(ctrl)
			tt.setup(mockClient)

			err := remote.NewHTTPResourceClient(mockClient).Probe(context.Background(), tt.endpoint)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, httpclient.ErrTransientIO)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProbe_AppliesTimeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) ([]byte, error) {
			deadline, ok := ctx.Deadline()
			require.True(t, ok, "probe must carry a deadline")
			assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
			return nil, nil
		})

	client := remote.NewHTTPResourceClient(mockClient, remote.WithProbeTimeout(time.Second))
	require.NoError(t, client.Probe(context.Background(), "http://ric-1"))
}

func TestEnable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sub := registry.Subscription{
		ID:           "job 1",
		CapabilityID: "type-1",
		Owner:        "owner-1",
		CallbackURL:  "http://owner-1/results",
		Params:       json.RawMessage(`{"threshold":5}`),
	}

	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().Put(gomock.Any(), "http://ric-1/subscriptions/job%201", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, body []byte) ([]byte, error) {
			assert.Equal(t, "job 1", gjson.GetBytes(body, "id").String())
			assert.Equal(t, "type-1", gjson.GetBytes(body, "capabilityId").String())
			assert.Equal(t, "owner-1", gjson.GetBytes(body, "owner").String())
			assert.Equal(t, "http://owner-1/results", gjson.GetBytes(body, "callbackUrl").String())
			assert.Equal(t, int64(5), gjson.GetBytes(body, "params.threshold").Int())
			return nil, nil
		})

	require.NoError(t, remote.NewHTTPResourceClient(mockClient).Enable(context.Background(), "http://ric-1", sub))
}

func TestEnable_Failure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cause := httpclient.NewTransientIOError("PUT", "http://ric-1/subscriptions/job-1", errors.New("connection refused"))
	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, cause)

	err := remote.NewHTTPResourceClient(mockClient).Enable(context.Background(), "http://ric-1",
		registry.Subscription{ID: "job-1"})
	require.ErrorIs(t, err, httpclient.ErrTransientIO)
	assert.Contains(t, err.Error(), "enable failed")
}

func TestDisable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().Delete(gomock.Any(), "http://ric-1/subscriptions/job-1").Return(nil)

	require.NoError(t, remote.NewHTTPResourceClient(mockClient).Disable(context.Background(), "http://ric-1", "job-1"))
}
