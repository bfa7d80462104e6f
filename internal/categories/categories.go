// Package categories resolves classifier labels to waste category ids.
package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/smartwaste/pkg/handlers"
	"github.com/JaimeStill/smartwaste/pkg/query"
	"github.com/JaimeStill/smartwaste/pkg/repository"
	"github.com/JaimeStill/smartwaste/pkg/routes"
)

// ErrNotFound indicates no category has the requested id.
var ErrNotFound = errors.New("category not found")

// UnknownID is the seeded category used when a label cannot be resolved.
const UnknownID = 0

// fallback covers the canonical labels when the table has no matching row.
var fallback = map[string]int{
	"organic":    1,
	"recyclable": 2,
	"hazardous":  3,
}

// Category is one row of the waste category table.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Resolver maps a classifier label to a category id.
type Resolver interface {
	Resolve(ctx context.Context, label string) int
}

// System provides category lookups.
type System interface {
	Resolver
	Handler() *Handler
	List(ctx context.Context) ([]Category, error)
	Find(ctx context.Context, id int) (*Category, error)
}

var projection = query.
	NewProjectionMap("public", "waste_categories", "wc").
	Project("id", "ID").
	Project("name", "Name")

type repo struct {
	db     repository.Querier
	logger *slog.Logger
}

// New creates the category System over db.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "categories"),
	}
}

func (r *repo) Handler() *Handler {
	return &Handler{sys: r, logger: r.logger.With("handler", "categories")}
}

func (r *repo) List(ctx context.Context) ([]Category, error) {
	q, args := query.NewBuilder(projection, query.SortField{Field: "ID"}).Build()
	items, err := repository.QueryMany(ctx, r.db, q, args, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

func (r *repo) Find(ctx context.Context, id int) (*Category, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	c, err := repository.QueryOne(ctx, r.db, q, args, scanCategory)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &c, nil
}

// Resolve returns the id of the category whose name matches label
// case-insensitively, then the canonical fallback, then UnknownID.
// Lookup failures are logged and resolved through the fallback.
func (r *repo) Resolve(ctx context.Context, label string) int {
	label = strings.TrimSpace(label)
	if label == "" {
		return UnknownID
	}

	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE LOWER(wc.name) = LOWER($1) LIMIT 1",
		projection.Columns(), projection.From(),
	)

	c, err := repository.QueryOne(ctx, r.db, q, []any{label}, scanCategory)
	switch {
	case err == nil:
		return c.ID
	case !errors.Is(err, sql.ErrNoRows):
		r.logger.Warn("category lookup failed", "label", label, "error", err)
	}

	return Fallback(label)
}

// Fallback maps the canonical labels without consulting the table.
func Fallback(label string) int {
	if id, ok := fallback[strings.ToLower(strings.TrimSpace(label))]; ok {
		return id
	}
	return UnknownID
}

func scanCategory(s repository.Scanner) (Category, error) {
	var c Category
	err := s.Scan(&c.ID, &c.Name)
	return c, err
}

// Handler provides HTTP endpoints for categories.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// Routes returns the route group for category endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/categories",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
		},
	}
}

// List returns every category ordered by id.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.sys.List(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, items)
}
