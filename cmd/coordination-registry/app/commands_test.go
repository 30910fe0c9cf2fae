package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/stacklok/coordination-registry/internal/persistence"
	"github.com/stacklok/coordination-registry/internal/registry"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd(nil)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, runtime.Version(), gjson.Get(out, "go_version").String())
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, gjson.Get(out, "platform").String())
	assert.True(t, gjson.Get(out, "version").Exists())

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "coordination-registry ")

	_, err = execute(t, "version", "--format", "yaml")
	assert.ErrorContains(t, err, `unsupported format "yaml"`)
}

func TestServeCmd_RequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "serve")
	assert.ErrorContains(t, err, "configuration file is required")

	_, err = execute(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to load configuration")
}

func writeSnapshotConfig(t *testing.T, snap *persistence.Snapshot) string {
	t.Helper()

	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "snapshot.json")
	if snap != nil {
		gw, err := persistence.Open(persistence.Config{Driver: persistence.DriverFile, Path: snapshotPath})
		require.NoError(t, err)
		require.NoError(t, gw.SaveSnapshot(context.Background(), snap))
		require.NoError(t, gw.Close())
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	content := "persistence:\n  driver: file\n  path: " + snapshotPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath
}

func TestSnapshotShowCmd(t *testing.T) {
	t.Parallel()

	enabled := true
	created := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	cfgPath := writeSnapshotConfig(t, &persistence.Snapshot{
		Capabilities: []registry.Capability{
			{ID: "qos", Schema: []byte(`{"type":"object"}`), SupportingResourceIDs: []string{"ric-1"}},
		},
		Subscriptions: []registry.Subscription{
			{ID: "sub-1", CapabilityID: "qos", Owner: "alice", LastReportedEnabled: &enabled, CreatedAt: created},
			{ID: "sub-2", CapabilityID: "steering", Owner: "bob", CreatedAt: created},
		},
	})

	t.Run("table", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "snapshot", "show", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Snapshot format "+persistence.FormatVersion)
		for _, want := range []string{"qos", " bytes", "sub-1", "alice", "enabled", "sub-2", "steering", "bob", "2026-05-04T03:02:01Z"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "snapshot", "show", "--config", cfgPath, "--format", "json")
		require.NoError(t, err)
		assert.Equal(t, persistence.FormatVersion, gjson.Get(out, "formatVersion").String())
		assert.Equal(t, "qos", gjson.Get(out, "capabilities.0.id").String())
		assert.Equal(t, []any{"sub-1", "sub-2"}, gjson.Get(out, "subscriptions.#.id").Value())
		assert.True(t, gjson.Get(out, "subscriptions.0.lastReportedEnabled").Bool())
	})
}

func TestSnapshotShowCmd_Empty(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "snapshot", "show", "--config", writeSnapshotConfig(t, nil))
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot is empty")
}

func TestLastReported(t *testing.T) {
	t.Parallel()

	yes, no := true, false
	assert.Equal(t, "-", lastReported(nil))
	assert.Equal(t, "enabled", lastReported(&yes))
	assert.Equal(t, "disabled", lastReported(&no))
}
