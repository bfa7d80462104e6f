package workflow

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/pkg/handlers"
	"github.com/JaimeStill/smartwaste/pkg/routes"
)

// Handler exposes the claim and completion workflows over HTTP.
type Handler struct {
	rt          *Runtime
	logger      *slog.Logger
	maxBodySize int64
}

// NewHandler creates a Handler over rt.
func NewHandler(rt *Runtime, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		rt:          rt,
		logger:      logger.With("handler", "workflow"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the workflow routes, nested under the report and claim
// prefixes they act on.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Children: []routes.Group{
			{
				Prefix: "/reports",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/{id}/claim", Handler: h.Claim},
					{Method: "GET", Pattern: "/{id}/result", Handler: h.View},
				},
			},
			{
				Prefix: "/claims",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/{id}/complete", Handler: h.Complete},
				},
			},
		},
	}
}

// Claim assigns the report in the path to the calling collector.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	result, err := Claim(r.Context(), h.rt, id, actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Complete completes the claim in the path.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	cmd, err := handlers.DecodeJSON[CompleteCommand](r, h.maxBodySize)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	cmd.ClaimID = id

	result, err := Complete(r.Context(), h.rt, actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// View returns the report with its latest claim, category and documents.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	view, err := View(r.Context(), h.rt, id, actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, view)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (identity.Identity, uuid.UUID, bool) {
	actor, err := identity.FromContext(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return identity.Identity{}, uuid.Nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return identity.Identity{}, uuid.Nil, false
	}

	return actor, id, true
}
