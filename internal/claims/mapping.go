package claims

import (
	"database/sql"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/pkg/query"
	"github.com/JaimeStill/smartwaste/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "report_claims", "c").
	Project("id", "ID").
	Project("report_id", "ReportID").
	Project("collector_id", "CollectorID").
	Project("claimed_at", "ClaimedAt").
	Project("status", "Status").
	Project("verified_waste_text", "VerifiedText").
	Project("ai_category_id", "AICategoryID").
	Project("ai_confidence", "AIConfidence").
	Project("cleanup_photo_path", "CleanupPhotoPath").
	Project("completed_at", "CompletedAt").
	Project("notes", "Notes")

var historyProjection = query.
	NewProjectionMap("public", "report_claims", "c").
	Project("id", "ID").
	Project("report_id", "ReportID").
	Project("collector_id", "CollectorID").
	Project("claimed_at", "ClaimedAt").
	Project("status", "Status").
	Project("verified_waste_text", "VerifiedText").
	Project("ai_category_id", "AICategoryID").
	Project("ai_confidence", "AIConfidence").
	Project("cleanup_photo_path", "CleanupPhotoPath").
	Project("completed_at", "CompletedAt").
	Project("notes", "Notes").
	Join("public", "reports", "r", "JOIN", "r.id = c.report_id").
	Project("description", "ReportDescription").
	Join("public", "waste_categories", "wc", "LEFT JOIN", "wc.id = c.ai_category_id").
	Project("name", "CategoryName")

var defaultSort = query.SortField{
	Field:      "ClaimedAt",
	Descending: true,
}

// Filters narrows claim listings. Nil fields are ignored.
type Filters struct {
	CollectorID *uuid.UUID `json:"collector_id,omitempty"`
	ReportID    *uuid.UUID `json:"report_id,omitempty"`
	Status      *Status    `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	if f.CollectorID != nil {
		b.WhereEquals("CollectorID", *f.CollectorID)
	}
	if f.ReportID != nil {
		b.WhereEquals("ReportID", *f.ReportID)
	}
	if f.Status != nil {
		b.WhereEquals("Status", string(*f.Status))
	}
	return b
}

// FiltersFromQuery extracts filters from URL query parameters. Malformed
// values are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if id, err := uuid.Parse(values.Get("collector_id")); err == nil {
		f.CollectorID = &id
	}
	if id, err := uuid.Parse(values.Get("report_id")); err == nil {
		f.ReportID = &id
	}
	if s, err := ParseStatus(values.Get("status")); err == nil {
		f.Status = &s
	}

	return f
}

type nullableClaim struct {
	verifiedText sql.NullString
	categoryID   sql.NullInt64
	confidence   sql.NullFloat64
	cleanupPhoto sql.NullString
	completedAt  sql.NullTime
	notes        sql.NullString
}

func (n *nullableClaim) targets(c *Claim) []any {
	return []any{
		&c.ID,
		&c.ReportID,
		&c.CollectorID,
		&c.ClaimedAt,
		&c.Status,
		&n.verifiedText,
		&n.categoryID,
		&n.confidence,
		&n.cleanupPhoto,
		&n.completedAt,
		&n.notes,
	}
}

func (n *nullableClaim) apply(c *Claim) {
	if n.verifiedText.Valid {
		c.VerifiedText = &n.verifiedText.String
	}
	if n.categoryID.Valid {
		id := int(n.categoryID.Int64)
		c.AICategoryID = &id
	}
	if n.confidence.Valid {
		c.AIConfidence = &n.confidence.Float64
	}
	if n.cleanupPhoto.Valid {
		c.CleanupPhotoPath = &n.cleanupPhoto.String
	}
	if n.completedAt.Valid {
		c.CompletedAt = &n.completedAt.Time
	}
	if n.notes.Valid {
		c.Notes = &n.notes.String
	}
}

func scanClaim(s repository.Scanner) (Claim, error) {
	var (
		c Claim
		n nullableClaim
	)
	if err := s.Scan(n.targets(&c)...); err != nil {
		return c, err
	}
	n.apply(&c)
	return c, nil
}

func scanHistory(s repository.Scanner) (HistoryEntry, error) {
	var (
		h        HistoryEntry
		n        nullableClaim
		category sql.NullString
	)
	targets := append(n.targets(&h.Claim), &h.ReportDescription, &category)
	if err := s.Scan(targets...); err != nil {
		return h, err
	}
	n.apply(&h.Claim)
	if category.Valid {
		h.CategoryName = &category.String
	}
	return h, nil
}
