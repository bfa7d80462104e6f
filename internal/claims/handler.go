package claims

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/pkg/handlers"
	"github.com/JaimeStill/smartwaste/pkg/pagination"
	"github.com/JaimeStill/smartwaste/pkg/routes"
)

// Handler provides HTTP endpoints for claim lookups.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler over sys.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "claims"),
		pagination: pagination,
	}
}

// Routes returns the route group for claim endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/claims",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// List returns a page of the caller's claims.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := identity.FromContext(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	page := pagination.FromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), actor, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns one claim by id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	actor, err := identity.FromContext(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	c, err := h.sys.Find(r.Context(), actor, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}
