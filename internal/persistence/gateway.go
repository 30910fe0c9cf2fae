// Package persistence stores registry snapshots so capabilities and
// subscriptions survive a restart. Resources are not persisted; they
// re-register on their own.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/registry"
	"github.com/stacklok/coordination-registry/internal/versions"
)

//go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks -source=gateway.go Gateway

// Driver names accepted by Open
const (
	DriverNone   = "none"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// FormatVersion is the snapshot format written by this build. Snapshots
// written with a newer format are rejected.
const FormatVersion = "1.0.0"

// ErrFatalConfig is matched by every *FatalConfigError
var ErrFatalConfig = errors.New("fatal persistence configuration error")

// Gateway loads and saves registry snapshots
type Gateway interface {
	// LoadSnapshot returns the stored snapshot, or an empty one when nothing
	// was saved yet. A stored snapshot that cannot be decoded yields a
	// *FatalConfigError.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// SaveSnapshot replaces the stored snapshot
	SaveSnapshot(ctx context.Context, snap *Snapshot) error

	// Close releases the underlying storage
	Close() error
}

// Snapshot is the persisted part of the registry
type Snapshot struct {
	FormatVersion     string                     `json:"formatVersion"`
	SavedAt           time.Time                  `json:"savedAt"`
	Capabilities      []registry.Capability      `json:"capabilities"`
	Subscriptions     []registry.Subscription    `json:"subscriptions"`
	CapabilityWatches []registry.CapabilityWatch `json:"capabilityWatches,omitempty"`
}

// Empty reports whether the snapshot holds no entries
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Capabilities) == 0 && len(s.Subscriptions) == 0 && len(s.CapabilityWatches) == 0)
}

// checkFormat rejects snapshots this build cannot read
func checkFormat(source, version string) error {
	if version == "" {
		return nil
	}
	if versions.IsNewerVersion(version, FormatVersion) {
		return &FatalConfigError{
			Source: source,
			Err:    fmt.Errorf("snapshot format %s is newer than supported %s", version, FormatVersion),
		}
	}
	return nil
}

// FatalConfigError reports stored state that cannot be used
type FatalConfigError struct {
	Source string
	Err    error
}

func (e *FatalConfigError) Error() string {
	return fmt.Sprintf("unusable snapshot in %s: %v", e.Source, e.Err)
}

// Unwrap returns the decoding error
func (e *FatalConfigError) Unwrap() error {
	return e.Err
}

// Is matches ErrFatalConfig
func (*FatalConfigError) Is(target error) bool {
	return target == ErrFatalConfig
}

// Config selects and configures a driver
type Config struct {
	// Driver is one of none, file or sqlite. Empty means none.
	Driver string `yaml:"driver"`

	// Path is the snapshot file or the sqlite database file
	Path string `yaml:"path"`

	// LockTimeout bounds the wait for the file lock. Defaults to DefaultLockTimeout.
	LockTimeout time.Duration `yaml:"lockTimeout"`
}

// Option configures a gateway
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Open creates the gateway selected by cfg
func Open(cfg Config, opts ...Option) (Gateway, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", DriverNone:
		return noneGateway{}, nil
	case DriverFile:
		if cfg.Path == "" {
			return nil, errors.New("file persistence requires a path")
		}
		return newFileGateway(cfg.Path, cfg.LockTimeout, o.logger), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, errors.New("sqlite persistence requires a path")
		}
		gw, err := openSQLite(cfg.Path, o.logger)
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.Driver)
	}
}

// noneGateway keeps nothing
type noneGateway struct{}

func (noneGateway) LoadSnapshot(context.Context) (*Snapshot, error) {
	return &Snapshot{}, nil
}

func (noneGateway) SaveSnapshot(context.Context, *Snapshot) error {
	return nil
}

func (noneGateway) Close() error {
	return nil
}
