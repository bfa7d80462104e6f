package reports

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/pkg/handlers"
	"github.com/JaimeStill/smartwaste/pkg/pagination"
	"github.com/JaimeStill/smartwaste/pkg/routes"
)

// ErrInvalidID indicates a malformed report id in the request path.
var ErrInvalidID = errors.New("invalid report id")

// Handler provides HTTP endpoints for report operations.
type Handler struct {
	sys         System
	logger      *slog.Logger
	pagination  pagination.Config
	maxBodySize int64
}

// NewHandler creates a Handler over sys.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "reports"),
		pagination:  pagination,
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group for report endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reports",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "", Handler: h.Submit},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/documents", Handler: h.Documents},
		},
	}
}

// Submit creates a report owned by the calling citizen.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, err := identity.FromContext(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	cmd, err := handlers.DecodeJSON[SubmitCommand](r, h.maxBodySize)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	rep, err := h.sys.Submit(r.Context(), actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, rep)
}

// List returns a page of reports visible to the caller.
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

// Find returns one report by id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	rep, err := h.sys.Find(r.Context(), actor, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rep)
}

// Documents returns the evidence files attached to a report.
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}

	docs, err := h.sys.Documents(r.Context(), actor, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, docs)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (identity.Identity, uuid.UUID, bool) {
	actor, err := identity.FromContext(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return actor, uuid.Nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return actor, uuid.Nil, false
	}

	return actor, id, true
}
