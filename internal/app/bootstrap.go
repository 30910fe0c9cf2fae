package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/config"
	"github.com/stacklok/coordination-registry/internal/service"
)

// RegisterStaticResources registers the resources listed in the
// configuration together with their capabilities. A resource or capability
// that cannot be registered is logged and skipped, so startup continues with
// a partial state. Only a cancelled context stops the registration.
func RegisterStaticResources(
	ctx context.Context,
	svc service.Service,
	resources []config.ResourceConfig,
	logger *zap.Logger,
) error {
	registered := 0
	for _, res := range resources {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("registration of configured resources interrupted: %w", err)
		}

		if err := svc.RegisterResource(ctx, res.ID, res.Endpoint); err != nil {
			logger.Error("Skipping configured resource",
				zap.String("resource", res.ID),
				zap.Error(err))
			continue
		}
		registered++

		for _, capCfg := range res.Capabilities {
			if err := registerStaticCapability(ctx, svc, res.ID, capCfg, logger); err != nil {
				logger.Error("Skipping configured capability",
					zap.String("resource", res.ID),
					zap.String("capability", capCfg.ID),
					zap.Error(err))
			}
		}
	}

	if len(resources) > 0 {
		logger.Info("Registered configured resources",
			zap.Int("count", registered),
			zap.Int("skipped", len(resources)-registered))
	}
	return nil
}

func registerStaticCapability(
	ctx context.Context,
	svc service.Service,
	resourceID string,
	capCfg config.CapabilityConfig,
	logger *zap.Logger,
) error {
	var schema []byte
	if capCfg.SchemaFile != "" {
		data, err := os.ReadFile(capCfg.SchemaFile)
		if err != nil {
			return fmt.Errorf("failed to read schema: %w", err)
		}
		schema = data
	}

	created, err := svc.RegisterCapability(ctx, capCfg.ID, schema, resourceID)
	if err != nil {
		return err
	}
	logger.Debug("Registered configured capability",
		zap.String("resource", resourceID),
		zap.String("capability", capCfg.ID),
		zap.Bool("created", created))
	return nil
}
