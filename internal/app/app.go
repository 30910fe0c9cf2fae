// Package app wires the coordination registry components together and
// manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/config"
)

// CoordinationApp runs the supervision loop and the ops HTTP server
type CoordinationApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server
	logger     *zap.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	supervised chan struct{}
	started    atomic.Bool
}

// Start launches the supervision loop in the background and serves the ops
// endpoints. It blocks until the HTTP server stops.
func (app *CoordinationApp) Start() error {
	app.started.Store(true)
	go func() {
		defer close(app.supervised)
		if err := app.components.Supervisor.Start(app.ctx); err != nil {
			app.logger.Error("Supervision loop failed", zap.Error(err))
		}
	}()

	app.logger.Info("Ops server listening", zap.String("address", app.httpServer.Addr))
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop drains the supervision loop, saves a final snapshot and shuts the
// HTTP server down within timeout
func (app *CoordinationApp) Stop(timeout time.Duration) error {
	app.logger.Info("Shutting down coordination registry")

	if err := app.components.Supervisor.Stop(); err != nil {
		app.logger.Error("Failed to stop supervision loop", zap.Error(err))
	}
	app.cancelFunc()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if app.started.Load() {
		select {
		case <-app.supervised:
		case <-shutdownCtx.Done():
			app.logger.Warn("Supervision loop did not stop before the shutdown timeout")
		}
	}

	if err := app.components.Service.SaveSnapshot(shutdownCtx); err != nil {
		app.logger.Error("Failed to save final snapshot", zap.Error(err))
	}

	var errs []error
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}
	if err := app.components.Gateway.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close persistence: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	app.logger.Info("Shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *CoordinationApp) GetConfig() *config.Config {
	return app.config
}

// GetComponents returns the wired components
func (app *CoordinationApp) GetComponents() *AppComponents {
	return app.components
}

// GetHTTPServer returns the ops HTTP server
func (app *CoordinationApp) GetHTTPServer() *http.Server {
	return app.httpServer
}
