package reports

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/identity"
	"github.com/JaimeStill/smartwaste/pkg/pagination"
)

// System defines the report operations exposed to callers outside the
// workflows. Every operation is scoped by the acting identity.
type System interface {
	Handler(maxBodySize int64) *Handler

	Submit(ctx context.Context, actor identity.Identity, cmd SubmitCommand) (*Report, error)
	Find(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Report, error)
	List(
		ctx context.Context,
		actor identity.Identity,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Report], error)
	Documents(ctx context.Context, actor identity.Identity, id uuid.UUID) ([]Document, error)
}

type repo struct {
	store      Store
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the report System over db.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		store:      NewStore(db),
		logger:     logger.With("system", "reports"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxBodySize)
}

func (r *repo) Submit(ctx context.Context, actor identity.Identity, cmd SubmitCommand) (*Report, error) {
	if !actor.Is(identity.RoleCitizen) {
		return nil, fmt.Errorf("%w: only citizens submit reports", ErrForbidden)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	rep, err := r.store.Insert(ctx, actor.UserID, cmd)
	if err != nil {
		return nil, err
	}

	r.logger.Info("report submitted", "id", rep.ID, "citizen_id", rep.CitizenID)
	return rep, nil
}

func (r *repo) Find(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Report, error) {
	rep, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanView(actor, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *repo) List(
	ctx context.Context,
	actor identity.Identity,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Report], error) {
	page.Normalize(r.pagination)
	return r.store.List(ctx, page, Scope(actor, filters))
}

func (r *repo) Documents(ctx context.Context, actor identity.Identity, id uuid.UUID) ([]Document, error) {
	if _, err := r.Find(ctx, actor, id); err != nil {
		return nil, err
	}
	return r.store.Documents(ctx, id)
}

// CanView reports whether actor may read rep: admins see everything,
// citizens their own reports, collectors pending reports and the ones
// assigned to them.
func CanView(actor identity.Identity, rep *Report) error {
	switch actor.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleCitizen:
		if rep.CitizenID == actor.UserID {
			return nil
		}
	case identity.RoleCollector:
		if rep.Status == StatusPending || rep.AssignedTo(actor.UserID) {
			return nil
		}
	}
	return ErrForbidden
}

// Scope narrows filters to what actor may list. Citizens only see their
// own reports. Collectors see the open queue, or their own assignments
// when they filter by collector.
func Scope(actor identity.Identity, f Filters) Filters {
	switch actor.Role {
	case identity.RoleCitizen:
		f.CitizenID = &actor.UserID
	case identity.RoleCollector:
		if f.CollectorID != nil {
			f.CollectorID = &actor.UserID
		} else {
			pending := StatusPending
			f.Status = &pending
		}
	}
	return f
}
