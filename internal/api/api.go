// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/smartwaste/internal/config"
	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/internal/infrastructure"
	"github.com/JaimeStill/smartwaste/pkg/middleware"
	"github.com/JaimeStill/smartwaste/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// OIDC discovery, when configured, runs here against the issuer.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	verifier, err := identity.NewVerifier(infra.Lifecycle.Context(), &cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("identity verifier: %w", err)
	}

	runtime := NewRuntime(cfg, infra, verifier)
	domain := NewDomain(cfg, runtime)

	public, err := openAPIRoutes(cfg)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime, public)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))

	return m, nil
}
