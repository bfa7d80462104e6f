package claims

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

// Store is data access for claims, bound to either a pool or a transaction.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Claim, error)

	// GetForReport loads a claim scoped by both its id and its report id.
	GetForReport(ctx context.Context, id, reportID uuid.UUID) (*Claim, error)
	LatestForReport(ctx context.Context, reportID uuid.UUID) (*Claim, error)

	// Insert creates an active claim. A second active claim on the same
	// report violates the partial unique index and returns ErrConflict.
	Insert(ctx context.Context, reportID, collectorID uuid.UUID) (*Claim, error)

	// MarkCompleted completes an active claim held by p.CollectorID on
	// p.ReportID. Returns ErrNotFound when the claim does not belong to the
	// report and ErrConflict when it exists but is not completable.
	MarkCompleted(ctx context.Context, p CompleteParams) (*Claim, error)

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[HistoryEntry], error)
}

type store struct {
	db repository.DBTX
}

// NewStore returns a Store that runs its statements on db.
func NewStore(db repository.DBTX) Store {
	return &store{db: db}
}

func (s *store) Get(ctx context.Context, id uuid.UUID) (*Claim, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, s.db, q, args, scanClaim)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrConflict)
	}
	return &c, nil
}

func (s *store) GetForReport(ctx context.Context, id, reportID uuid.UUID) (*Claim, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE c.id = $1 AND c.report_id = $2",
		projection.Columns(), projection.From(),
	)

	c, err := repository.QueryOne(ctx, s.db, q, []any{id, reportID}, scanClaim)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrConflict)
	}
	return &c, nil
}

func (s *store) LatestForReport(ctx context.Context, reportID uuid.UUID) (*Claim, error) {
	q, args := query.NewBuilder(projection, defaultSort).
		WhereEquals("ReportID", reportID).
		BuildFirst()

	c, err := repository.QueryOne(ctx, s.db, q, args, scanClaim)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrConflict)
	}
	return &c, nil
}

func (s *store) Insert(ctx context.Context, reportID, collectorID uuid.UUID) (*Claim, error) {
	q := fmt.Sprintf(`
		INSERT INTO public.report_claims AS c (report_id, collector_id, status)
		VALUES ($1, $2, 'claimed')
		RETURNING %s`, projection.Columns())

	c, err := repository.QueryOne(ctx, s.db, q, []any{reportID, collectorID}, scanClaim)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: report %s already has an active claim", ErrConflict, reportID)
		}
		return nil, fmt.Errorf("insert claim: %w", err)
	}
	return &c, nil
}

func (s *store) MarkCompleted(ctx context.Context, p CompleteParams) (*Claim, error) {
	q := fmt.Sprintf(`
		UPDATE public.report_claims AS c
		SET status = 'completed',
		    verified_waste_text = $4,
		    ai_category_id = $5,
		    ai_confidence = $6,
		    cleanup_photo_path = $7,
		    notes = $8,
		    completed_at = NOW()
		WHERE c.id = $1 AND c.report_id = $2 AND c.collector_id = $3 AND c.status = 'claimed'
		RETURNING %s`, projection.Columns())

	args := []any{
		p.ClaimID,
		p.ReportID,
		p.CollectorID,
		p.VerifiedText,
		p.CategoryID,
		p.Confidence,
		p.CleanupPhoto,
		p.Notes,
	}

	c, err := repository.QueryOne(ctx, s.db, q, args, scanClaim)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("complete claim %s: %w", p.ClaimID, err)
		}
		exists, err := repository.Exists(
			ctx, s.db,
			"SELECT 1 FROM public.report_claims WHERE id = $1 AND report_id = $2",
			p.ClaimID, p.ReportID,
		)
		if err != nil {
			return nil, fmt.Errorf("probe claim %s: %w", p.ClaimID, err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: claim %s is not active for this collector", ErrConflict, p.ClaimID)
	}
	return &c, nil
}

func (s *store) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[HistoryEntry], error) {
	qb := query.NewBuilder(historyProjection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count claims: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanHistory)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}
