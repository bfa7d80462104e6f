package api

import (
	"github.com/JaimeStill/smartwaste/internal/config"
	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/internal/infrastructure"
	"github.com/JaimeStill/smartwaste/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Verifier   identity.Verifier
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure, verifier identity.Verifier) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Registry:  infra.Registry,
			Metrics:   infra.Metrics,
		},
		Pagination: cfg.API.Pagination,
		Verifier:   verifier,
	}
}
