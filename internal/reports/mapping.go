package reports

import (
	"database/sql"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/pkg/query"
	"github.com/JaimeStill/smartwaste/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "reports", "r").
	Project("id", "ID").
	Project("citizen_id", "CitizenID").
	Project("collector_id", "CollectorID").
	Project("description", "Description").
	Project("photo_path", "PhotoPath").
	Project("gps_lat", "Lat").
	Project("gps_lng", "Lng").
	Project("status", "Status").
	Project("created_at", "CreatedAt").
	Project("assigned_at", "AssignedAt").
	Project("completed_at", "CompletedAt").
	Project("result_path", "ResultPath")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters narrows report listings. Nil fields are ignored.
type Filters struct {
	Status      *Status    `json:"status,omitempty"`
	CitizenID   *uuid.UUID `json:"citizen_id,omitempty"`
	CollectorID *uuid.UUID `json:"collector_id,omitempty"`
	Search      *string    `json:"search,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.WhereSearch(f.Search, "Description")
	if f.Status != nil {
		b.WhereEquals("Status", string(*f.Status))
	}
	if f.CitizenID != nil {
		b.WhereEquals("CitizenID", *f.CitizenID)
	}
	if f.CollectorID != nil {
		b.WhereEquals("CollectorID", *f.CollectorID)
	}
	return b
}

// FiltersFromQuery extracts filters from URL query parameters. Malformed
// values are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s, err := ParseStatus(values.Get("status")); err == nil {
		f.Status = &s
	}
	if id, err := uuid.Parse(values.Get("citizen_id")); err == nil {
		f.CitizenID = &id
	}
	if id, err := uuid.Parse(values.Get("collector_id")); err == nil {
		f.CollectorID = &id
	}
	if s := values.Get("search"); s != "" {
		f.Search = &s
	}

	return f
}

func scanReport(s repository.Scanner) (Report, error) {
	var (
		r           Report
		collectorID uuid.NullUUID
		photoPath   sql.NullString
		lat, lng    sql.NullFloat64
		assignedAt  sql.NullTime
		completedAt sql.NullTime
		resultPath  sql.NullString
	)

	err := s.Scan(
		&r.ID,
		&r.CitizenID,
		&collectorID,
		&r.Description,
		&photoPath,
		&lat,
		&lng,
		&r.Status,
		&r.CreatedAt,
		&assignedAt,
		&completedAt,
		&resultPath,
	)
	if err != nil {
		return r, err
	}

	if collectorID.Valid {
		r.CollectorID = &collectorID.UUID
	}
	if photoPath.Valid {
		r.PhotoPath = &photoPath.String
	}
	if lat.Valid && lng.Valid {
		r.Location = &Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	if assignedAt.Valid {
		r.AssignedAt = &assignedAt.Time
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	if resultPath.Valid {
		r.ResultPath = &resultPath.String
	}

	return r, nil
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(&d.ID, &d.ReportID, &d.DocType, &d.FilePath, &d.CreatedAt)
	return d, err
}
