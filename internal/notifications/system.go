package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/pkg/pagination"
	"github.com/JaimeStill/smartwaste/pkg/query"
	"github.com/JaimeStill/smartwaste/pkg/repository"
)

// Notifier records a notification for a user.
type Notifier interface {
	Notify(ctx context.Context, userID, reportID uuid.UUID, typ Type, message string) error
}

// System manages notifications. Reads and updates are always scoped to
// the recipient.
type System interface {
	Notifier
	Handler() *Handler

	List(
		ctx context.Context,
		userID uuid.UUID,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Notification], error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the notification System over db.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "notifications"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Notify(ctx context.Context, userID, reportID uuid.UUID, typ Type, message string) error {
	if _, err := ParseType(string(typ)); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO public.notifications (user_id, report_id, type, message, is_read)
		VALUES ($1, $2, $3, $4, FALSE)`,
		userID, reportID, typ, message,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	r.logger.Info("notification recorded", "user_id", userID, "report_id", reportID, "type", typ)
	return nil
}

func (r *repo) List(
	ctx context.Context,
	userID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Notification], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort).WhereEquals("UserID", userID)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanNotification)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db,
		"UPDATE public.notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2",
		id, userID,
	)
	return repository.MapError(err, ErrNotFound, ErrNotFound)
}

func (r *repo) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM public.notifications WHERE user_id = $1 AND is_read = FALSE",
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
