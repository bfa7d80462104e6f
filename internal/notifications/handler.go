package notifications

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/pkg/handlers"
	"github.com/JaimeStill/smartwaste/pkg/pagination"
	"github.com/JaimeStill/smartwaste/pkg/routes"
)

// Handler provides HTTP endpoints for the caller's notifications.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler over sys.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "notifications"),
		pagination: pagination,
	}
}

// Routes returns the route group for notification endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/notifications",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/unread", Handler: h.Unread},
			{Method: "POST", Pattern: "/{id}/read", Handler: h.MarkRead},
		},
	}
}

// List returns a page of the caller's notifications, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := identity.FromContext(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	page := pagination.FromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), actor.UserID, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Unread returns the caller's unread notification count.
func (h *Handler) Unread(w http.ResponseWriter, r *http.Request) {
	actor, err := identity.FromContext(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	count, err := h.sys.UnreadCount(r.Context(), actor.UserID)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead marks one of the caller's notifications as read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
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

	if err := h.sys.MarkRead(r.Context(), id, actor.UserID); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
