package app

import (
	"github.com/stacklok/coordination-registry/internal/persistence"
	"github.com/stacklok/coordination-registry/internal/registry"
	"github.com/stacklok/coordination-registry/internal/service"
	"github.com/stacklok/coordination-registry/internal/supervision"
)

// AppComponents groups the long-lived parts of a running registry
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Registry holds the in-memory registry state
	Registry *registry.Registry

	// Service is the inbound entry point used by callers and bootstrap
	Service service.Service

	// Supervisor runs the periodic supervision cycles
	Supervisor supervision.Supervisor

	// Gateway stores snapshots and is closed on shutdown
	Gateway persistence.Gateway
}
