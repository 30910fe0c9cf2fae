// Package config loads the coordination registry configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/coordination-registry/internal/notify"
	"github.com/stacklok/coordination-registry/internal/persistence"
	"github.com/stacklok/coordination-registry/internal/remote"
	"github.com/stacklok/coordination-registry/internal/supervision"
	"github.com/stacklok/coordination-registry/internal/telemetry"
)

const (
	// DefaultAddress is the listen address of the ops server
	DefaultAddress = ":8080"

	// DefaultNotificationTimeout bounds a single status delivery
	DefaultNotificationTimeout = 10 * time.Second
)

// Option configures how the configuration is loaded
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}
		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config is the root of the configuration file
type Config struct {
	Server       *ServerConfig       `yaml:"server,omitempty"`
	Supervision  *SupervisionConfig  `yaml:"supervision,omitempty"`
	Notification *NotificationConfig `yaml:"notification,omitempty"`
	Persistence  *persistence.Config `yaml:"persistence,omitempty"`
	Validation   *ValidationConfig   `yaml:"validation,omitempty"`
	Telemetry    *telemetry.Config   `yaml:"telemetry,omitempty"`

	// Resources are registered at startup, before the first supervision cycle
	Resources []ResourceConfig `yaml:"resources,omitempty"`
}

// ServerConfig configures the ops server
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`
}

// SupervisionConfig tunes the supervision loop. Durations use Go syntax ("30s", "5m").
type SupervisionConfig struct {
	Interval      string `yaml:"interval,omitempty"`
	DeadThreshold int    `yaml:"deadThreshold,omitempty"`
	MaxInFlight   int    `yaml:"maxInFlight,omitempty"`

	// EnableRetries is the number of retries after a failed enable call.
	// nil means the default, 0 disables retries.
	EnableRetries *int   `yaml:"enableRetries,omitempty"`
	EnableBackoff string `yaml:"enableBackoff,omitempty"`

	// ProbeTimeout bounds a single health probe
	ProbeTimeout string `yaml:"probeTimeout,omitempty"`

	// OwnerCheckInterval is the time between owner keep-alive checks
	OwnerCheckInterval string `yaml:"ownerCheckInterval,omitempty"`
}

// NotificationConfig tunes status delivery to subscription owners
type NotificationConfig struct {
	MaxInFlight int `yaml:"maxInFlight,omitempty"`

	// RatePerSecond caps deliveries per second. A negative value disables the cap.
	RatePerSecond float64 `yaml:"ratePerSecond,omitempty"`
	Timeout       string  `yaml:"timeout,omitempty"`

	// CallbackRetries is the number of retries of a failed capability watch
	// callback before the watch is dropped. nil means the default.
	CallbackRetries *int   `yaml:"callbackRetries,omitempty"`
	CallbackBackoff string `yaml:"callbackBackoff,omitempty"`
}

// ValidationConfig controls optional checks on registration
type ValidationConfig struct {
	// Params validates subscription parameters against the capability schema
	Params bool `yaml:"params"`
}

// ResourceConfig is a resource registered from the configuration file
type ResourceConfig struct {
	ID           string             `yaml:"id"`
	Endpoint     string             `yaml:"endpoint"`
	Capabilities []CapabilityConfig `yaml:"capabilities,omitempty"`
}

// CapabilityConfig is a capability supported by a configured resource
type CapabilityConfig struct {
	ID string `yaml:"id"`

	// SchemaFile points at a JSON schema for the subscription parameters.
	// Relative paths are resolved against the configuration file directory.
	SchemaFile string `yaml:"schemaFile,omitempty"`
}

// LoadConfig reads, parses and validates the configuration
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.resolveSchemaFiles(filepath.Dir(loaderCfg.path))
	return &cfg, nil
}

func (c *Config) resolveSchemaFiles(baseDir string) {
	for i := range c.Resources {
		for j := range c.Resources[i].Capabilities {
			capCfg := &c.Resources[i].Capabilities[j]
			if capCfg.SchemaFile != "" && !filepath.IsAbs(capCfg.SchemaFile) {
				capCfg.SchemaFile = filepath.Join(baseDir, capCfg.SchemaFile)
			}
		}
	}
}

// GetAddress returns the ops server address
func (c *Config) GetAddress() string {
	if c.Server == nil || c.Server.Address == "" {
		return DefaultAddress
	}
	return c.Server.Address
}

// GetPersistence returns the persistence settings, defaulting to no persistence
func (c *Config) GetPersistence() persistence.Config {
	if c.Persistence == nil {
		return persistence.Config{Driver: persistence.DriverNone}
	}
	return *c.Persistence
}

// ParamValidation reports whether subscription params are validated
func (c *Config) ParamValidation() bool {
	return c.Validation != nil && c.Validation.Params
}

// GetInterval returns the supervision interval
func (s *SupervisionConfig) GetInterval() time.Duration {
	if s == nil {
		return supervision.DefaultInterval
	}
	return durationOr(s.Interval, supervision.DefaultInterval)
}

// GetDeadThreshold returns the number of failed probes before deregistration
func (s *SupervisionConfig) GetDeadThreshold() int {
	if s == nil || s.DeadThreshold == 0 {
		return supervision.DefaultDeadThreshold
	}
	return s.DeadThreshold
}

// GetMaxInFlight returns the number of resources supervised concurrently
func (s *SupervisionConfig) GetMaxInFlight() int {
	if s == nil || s.MaxInFlight == 0 {
		return supervision.DefaultMaxInFlight
	}
	return s.MaxInFlight
}

// GetEnableRetries returns the number of retries after a failed enable call
func (s *SupervisionConfig) GetEnableRetries() int {
	if s == nil || s.EnableRetries == nil {
		return supervision.DefaultEnableRetries
	}
	return *s.EnableRetries
}

// GetEnableBackoff returns the pause between enable attempts
func (s *SupervisionConfig) GetEnableBackoff() time.Duration {
	if s == nil {
		return supervision.DefaultEnableBackoff
	}
	return durationOr(s.EnableBackoff, supervision.DefaultEnableBackoff)
}

// GetProbeTimeout returns the health probe timeout
func (s *SupervisionConfig) GetProbeTimeout() time.Duration {
	if s == nil {
		return remote.DefaultProbeTimeout
	}
	return durationOr(s.ProbeTimeout, remote.DefaultProbeTimeout)
}

// GetOwnerCheckInterval returns the time between owner keep-alive checks
func (s *SupervisionConfig) GetOwnerCheckInterval() time.Duration {
	if s == nil {
		return supervision.DefaultOwnerCheckInterval
	}
	return durationOr(s.OwnerCheckInterval, supervision.DefaultOwnerCheckInterval)
}

// GetMaxInFlight returns the number of concurrent deliveries
func (n *NotificationConfig) GetMaxInFlight() int {
	if n == nil || n.MaxInFlight == 0 {
		return notify.DefaultMaxInFlight
	}
	return n.MaxInFlight
}

// GetRatePerSecond returns the delivery rate cap. Zero or less means unlimited.
func (n *NotificationConfig) GetRatePerSecond() float64 {
	if n == nil || n.RatePerSecond == 0 {
		return notify.DefaultRatePerSecond
	}
	if n.RatePerSecond < 0 {
		return 0
	}
	return n.RatePerSecond
}

// GetTimeout returns the timeout of a single delivery
func (n *NotificationConfig) GetTimeout() time.Duration {
	if n == nil {
		return DefaultNotificationTimeout
	}
	return durationOr(n.Timeout, DefaultNotificationTimeout)
}

// GetCallbackRetries returns the retries of a failed capability callback
func (n *NotificationConfig) GetCallbackRetries() int {
	if n == nil || n.CallbackRetries == nil {
		return notify.DefaultCallbackRetries
	}
	return *n.CallbackRetries
}

// GetCallbackBackoff returns the first wait between capability callback retries
func (n *NotificationConfig) GetCallbackBackoff() time.Duration {
	if n == nil {
		return notify.DefaultCallbackBackoff
	}
	return durationOr(n.CallbackBackoff, notify.DefaultCallbackBackoff)
}

// durationOr parses value, which validate has already checked
func durationOr(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateSupervision(c.Supervision); err != nil {
		return err
	}
	if err := validateNotification(c.Notification); err != nil {
		return err
	}
	if err := validatePersistence(c.Persistence); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	seen := make(map[string]bool)
	for i := range c.Resources {
		res := &c.Resources[i]
		if res.ID == "" {
			return fmt.Errorf("resources[%d]: id is required", i)
		}
		if seen[res.ID] {
			return fmt.Errorf("resources[%d]: duplicate resource id '%s'", i, res.ID)
		}
		seen[res.ID] = true

		if err := validateResource(res, fmt.Sprintf("resources[%d] (%s)", i, res.ID)); err != nil {
			return err
		}
	}

	return nil
}

func validateSupervision(s *SupervisionConfig) error {
	if s == nil {
		return nil
	}
	for _, d := range []struct{ name, value string }{
		{"interval", s.Interval},
		{"enableBackoff", s.EnableBackoff},
		{"probeTimeout", s.ProbeTimeout},
		{"ownerCheckInterval", s.OwnerCheckInterval},
	} {
		if err := validateDuration(d.value, "supervision."+d.name); err != nil {
			return err
		}
	}
	if s.DeadThreshold < 0 {
		return fmt.Errorf("supervision.deadThreshold must not be negative")
	}
	if s.MaxInFlight < 0 {
		return fmt.Errorf("supervision.maxInFlight must not be negative")
	}
	if s.EnableRetries != nil && *s.EnableRetries < 0 {
		return fmt.Errorf("supervision.enableRetries must not be negative")
	}
	return nil
}

func validateNotification(n *NotificationConfig) error {
	if n == nil {
		return nil
	}
	if n.MaxInFlight < 0 {
		return fmt.Errorf("notification.maxInFlight must not be negative")
	}
	if n.CallbackRetries != nil && *n.CallbackRetries < 0 {
		return fmt.Errorf("notification.callbackRetries must not be negative")
	}
	if err := validateDuration(n.CallbackBackoff, "notification.callbackBackoff"); err != nil {
		return err
	}
	return validateDuration(n.Timeout, "notification.timeout")
}

func validatePersistence(p *persistence.Config) error {
	if p == nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(p.Driver)) {
	case "", persistence.DriverNone:
		return nil
	case persistence.DriverFile, persistence.DriverSQLite:
		if p.Path == "" {
			return fmt.Errorf("persistence.path is required for driver '%s'", p.Driver)
		}
		return nil
	default:
		return fmt.Errorf("persistence.driver must be one of none, file or sqlite, got '%s'", p.Driver)
	}
}

func validateDuration(value, field string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30s', '5m'): %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}

func validateResource(res *ResourceConfig, prefix string) error {
	if res.Endpoint == "" {
		return fmt.Errorf("%s: endpoint is required", prefix)
	}
	u, err := url.Parse(res.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s: endpoint must be an absolute http(s) URL", prefix)
	}

	caps := make(map[string]bool)
	for j, capCfg := range res.Capabilities {
		if capCfg.ID == "" {
			return fmt.Errorf("%s: capabilities[%d]: id is required", prefix, j)
		}
		if caps[capCfg.ID] {
			return fmt.Errorf("%s: capabilities[%d]: duplicate capability id '%s'", prefix, j, capCfg.ID)
		}
		caps[capCfg.ID] = true
	}
	return nil
}
