package api

import (
	"net/http"

	"github.com/JaimeStill/smartwaste/internal/config"
	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/internal/workflow"
	"github.com/JaimeStill/smartwaste/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
	public routes.Group,
) {
	maxBody := cfg.API.MaxBodySizeBytes()

	claimsGroup := domain.Claims.Handler().Routes()
	claimsGroup.Middleware = append(
		claimsGroup.Middleware,
		identity.Require(runtime.Logger, identity.RoleCollector, identity.RoleAdmin),
	)

	routes.Register(mux, public, routes.Group{
		Middleware: []func(http.Handler) http.Handler{
			identity.Authenticate(runtime.Verifier, runtime.Logger),
		},
		Children: []routes.Group{
			domain.Reports.Handler(maxBody).Routes(),
			claimsGroup,
			workflow.NewHandler(domain.Workflow, runtime.Logger, maxBody).Routes(),
			domain.Categories.Handler().Routes(),
			domain.Notifications.Handler().Routes(),
			newPhotoHandler(runtime.Storage, runtime.Logger, cfg.API.MaxPhotoSizeBytes()).routes(),
		},
	})
}
