// Package main is the entry point of the coordination registry.
package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/cmd/coordination-registry/app"
	"github.com/stacklok/coordination-registry/internal/logging"
)

func main() {
	level, known := logging.LevelFromEnv()
	logger := logging.New(level)
	defer func() { _ = logger.Sync() }()

	if !known {
		logger.Warn("Invalid log level, using INFO")
	}
	zap.ReplaceGlobals(logger)

	if err := app.NewRootCmd(logger).Execute(); err != nil {
		logger.Error("Command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
