package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/pkg/pagination"
	"github.com/JaimeStill/smartwaste/pkg/query"
	"github.com/JaimeStill/smartwaste/pkg/repository"
)

// Store is data access for reports, bound to either a pool or a
// transaction. Every status change is a compare-and-swap UPDATE; a lost
// race surfaces as ErrConflict and never as a partial write.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Report, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Insert(ctx context.Context, citizenID uuid.UUID, cmd SubmitCommand) (*Report, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Report], error)

	// MarkClaimed moves a pending, unassigned report to claimed and assigns
	// collectorID. Returns ErrConflict when the report exists but is not
	// available and ErrNotFound when it does not exist.
	MarkClaimed(ctx context.Context, id, collectorID uuid.UUID) (*Report, error)

	// MarkCompleted moves a claimed report held by collectorID to completed.
	// Returns ErrConflict when the report is not claimed by collectorID.
	MarkCompleted(ctx context.Context, id, collectorID uuid.UUID) (*Report, error)

	AddDocument(ctx context.Context, reportID uuid.UUID, docType, filePath string) (*Document, error)
	Documents(ctx context.Context, reportID uuid.UUID) ([]Document, error)
}

type store struct {
	db repository.DBTX
}

// NewStore returns a Store that runs its statements on db.
func NewStore(db repository.DBTX) Store {
	return &store{db: db}
}

func (s *store) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	r, err := repository.QueryOne(ctx, s.db, q, args, scanReport)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrConflict)
	}
	return &r, nil
}

func (s *store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return repository.Exists(ctx, s.db, "SELECT 1 FROM public.reports WHERE id = $1", id)
}

func (s *store) Insert(ctx context.Context, citizenID uuid.UUID, cmd SubmitCommand) (*Report, error) {
	var lat, lng *float64
	if cmd.Location != nil {
		lat, lng = &cmd.Location.Lat, &cmd.Location.Lng
	}

	q := fmt.Sprintf(`
		INSERT INTO public.reports AS r (citizen_id, description, photo_path, gps_lat, gps_lng)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, projection.Columns())

	args := []any{citizenID, cmd.Description, cmd.PhotoPath, lat, lng}

	r, err := repository.QueryOne(ctx, s.db, q, args, scanReport)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return &r, nil
}

func (s *store) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Report], error) {
	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanReport)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *store) MarkClaimed(ctx context.Context, id, collectorID uuid.UUID) (*Report, error) {
	q := fmt.Sprintf(`
		UPDATE public.reports AS r
		SET status = 'claimed', collector_id = $2, assigned_at = NOW()
		WHERE r.id = $1 AND r.status = 'pending' AND r.collector_id IS NULL
		RETURNING %s`, projection.Columns())

	return s.transition(ctx, q, id, collectorID)
}

func (s *store) MarkCompleted(ctx context.Context, id, collectorID uuid.UUID) (*Report, error) {
	q := fmt.Sprintf(`
		UPDATE public.reports AS r
		SET status = 'completed', completed_at = NOW()
		WHERE r.id = $1 AND r.collector_id = $2 AND r.status = 'claimed'
		RETURNING %s`, projection.Columns())

	return s.transition(ctx, q, id, collectorID)
}

// transition runs a conditional UPDATE. Zero affected rows is resolved to
// ErrNotFound or ErrConflict with an existence probe.
func (s *store) transition(ctx context.Context, q string, id, collectorID uuid.UUID) (*Report, error) {
	r, err := repository.QueryOne(ctx, s.db, q, []any{id, collectorID}, scanReport)
	if err == nil {
		return &r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		if repository.IsCheckViolation(err) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return nil, fmt.Errorf("transition report %s: %w", id, err)
	}

	exists, err := s.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("probe report %s: %w", id, err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrConflict
}

func (s *store) AddDocument(ctx context.Context, reportID uuid.UUID, docType, filePath string) (*Document, error) {
	q := `
		INSERT INTO public.report_documents (report_id, doc_type, file_path)
		VALUES ($1, $2, $3)
		RETURNING id, report_id, doc_type, file_path, created_at`

	d, err := repository.QueryOne(ctx, s.db, q, []any{reportID, docType, filePath}, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("insert report document: %w", err)
	}
	return &d, nil
}

func (s *store) Documents(ctx context.Context, reportID uuid.UUID) ([]Document, error) {
	q := `
		SELECT id, report_id, doc_type, file_path, created_at
		FROM public.report_documents
		WHERE report_id = $1
		ORDER BY created_at DESC`

	docs, err := repository.QueryMany(ctx, s.db, q, []any{reportID}, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query report documents: %w", err)
	}
	return docs, nil
}
