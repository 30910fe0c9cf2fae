package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	// DefaultLockTimeout bounds the wait for the snapshot file lock
	DefaultLockTimeout = 5 * time.Second

	lockRetryDelay = 50 * time.Millisecond
)

// fileGateway keeps the snapshot in a single JSON document. Writes go to a
// temporary file that is renamed over the document. A sibling .lock file
// serializes access between processes sharing the path; mu does the same
// within this process.
type fileGateway struct {
	mu          sync.Mutex
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
	logger      *zap.Logger
}

func newFileGateway(path string, lockTimeout time.Duration, logger *zap.Logger) *fileGateway {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &fileGateway{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// LoadSnapshot reads the snapshot document
func (f *fileGateway) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	if err := f.ensureDir(); err != nil {
		return nil, err
	}
	unlock, err := f.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// #nosec G304 -- path comes from the service configuration
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.logger.Info("No snapshot file found, starting empty", zap.String("path", f.path))
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", f.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &FatalConfigError{Source: f.path, Err: err}
	}
	if err := checkFormat(f.path, snap.FormatVersion); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveSnapshot writes the snapshot document atomically
func (f *fileGateway) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		snap = &Snapshot{}
	}
	stored := *snap
	stored.FormatVersion = FormatVersion
	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := f.ensureDir(); err != nil {
		return err
	}
	unlock, err := f.acquire(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary snapshot file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	f.logger.Debug("Saved snapshot",
		zap.String("path", f.path),
		zap.Int("capabilities", len(snap.Capabilities)),
		zap.Int("subscriptions", len(snap.Subscriptions)),
		zap.Int("capability_watches", len(snap.CapabilityWatches)))
	return nil
}

// Close releases the lock file handle
func (f *fileGateway) Close() error {
	return f.lock.Close()
}

func (f *fileGateway) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return nil
}

// acquire takes the file lock, exclusive for writes and shared for reads
func (f *fileGateway) acquire(ctx context.Context, exclusive bool) (func(), error) {
	f.mu.Lock()
	lockCtx, cancel := context.WithTimeout(ctx, f.lockTimeout)
	defer cancel()

	try := f.lock.TryRLockContext
	if exclusive {
		try = f.lock.TryLockContext
	}
	locked, err := try(lockCtx, lockRetryDelay)
	if err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("failed to lock snapshot file %s: %w", f.lock.Path(), err)
	}
	if !locked {
		f.mu.Unlock()
		return nil, fmt.Errorf("snapshot file %s is locked by another process", f.lock.Path())
	}
	return func() {
		_ = f.lock.Unlock()
		f.mu.Unlock()
	}, nil
}
