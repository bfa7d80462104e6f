package claims

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/pkg/pagination"
)

// System defines read access to claims. Claims are created and completed
// only by the workflows.
type System interface {
	Handler() *Handler

	Find(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Claim, error)
	List(
		ctx context.Context,
		actor identity.Identity,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[HistoryEntry], error)
}

type repo struct {
	store      Store
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the claim System over db.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		store:      NewStore(db),
		logger:     logger.With("system", "claims"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Find(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Claim, error) {
	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(identity.RoleAdmin) && !c.HeldBy(actor.UserID) {
		return nil, ErrForbidden
	}
	return c, nil
}

// List returns the caller's task history; admins may list any collector.
func (r *repo) List(
	ctx context.Context,
	actor identity.Identity,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[HistoryEntry], error) {
	page.Normalize(r.pagination)
	if !actor.Is(identity.RoleAdmin) {
		filters.CollectorID = &actor.UserID
	}
	return r.store.List(ctx, page, filters)
}
