package app

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	coordapp "github.com/stacklok/coordination-registry/internal/app"
	"github.com/stacklok/coordination-registry/internal/config"
	"github.com/stacklok/coordination-registry/internal/logging"
	"github.com/stacklok/coordination-registry/internal/telemetry"
	"github.com/stacklok/coordination-registry/internal/versions"
)

const defaultGracefulTimeout = 30 * time.Second

func newServeCmd(logger *zap.Logger) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordination registry",
		Long: `Run the coordination registry: restore the stored snapshot, register the
configured resources, start the supervision loop and serve the ops endpoints
(/health, /readiness, /status, /version, /metrics).

The configuration file (--config) sets supervision, notification, persistence,
validation and telemetry options. It can also be given through
COORD_REGISTRY_CONFIG.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v, logger)
		},
	}

	cmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	cmd.Flags().String("address", "", "Address of the ops server, overrides server.address")
	cmd.Flags().Duration("shutdown-timeout", defaultGracefulTimeout, "Time allowed for a graceful shutdown")
	mustBindFlags(v, cmd, "config", "address", "shutdown-timeout")

	return cmd
}

// newViper returns a viper instance reading COORD_REGISTRY_* variables
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(logging.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func mustBindFlags(v *viper.Viper, cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", name, err))
		}
	}
}

func loadConfig(v *viper.Viper) (*config.Config, string, error) {
	path := v.GetString("config")
	if path == "" {
		return nil, "", fmt.Errorf("a configuration file is required (--config)")
	}
	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, path, nil
}

func runServe(ctx context.Context, v *viper.Viper, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, path, err := loadConfig(v)
	if err != nil {
		return err
	}
	logger.Info("Loaded configuration",
		zap.String("path", path),
		zap.Int("resources", len(cfg.Resources)),
		zap.String("persistence", cfg.GetPersistence().Driver))

	if cfg.Telemetry != nil && cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = versions.GetVersionInfo().Version
	}
	tel, err := telemetry.New(ctx,
		telemetry.WithTelemetryConfig(cfg.Telemetry),
		telemetry.WithLogger(logger.Named("telemetry")),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down telemetry", zap.Error(err))
		}
	}()

	opts := []coordapp.AppOption{
		coordapp.WithConfig(cfg),
		coordapp.WithLogger(logger),
		coordapp.WithMeterProvider(tel.MeterProvider()),
		coordapp.WithTracerProvider(tel.TracerProvider()),
		coordapp.WithMetricsHandler(tel.MetricsHandler()),
	}
	if addr := v.GetString("address"); addr != "" {
		opts = append(opts, coordapp.WithAddress(addr))
	}

	registryApp, err := coordapp.NewCoordinationApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build coordination registry: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- registryApp.Start() }()

	select {
	case err := <-serveErr:
		_ = registryApp.Stop(v.GetDuration("shutdown-timeout"))
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	if err := registryApp.Stop(v.GetDuration("shutdown-timeout")); err != nil {
		return err
	}
	return <-serveErr
}
