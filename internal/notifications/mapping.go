package notifications

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/pkg/query"
	"github.com/JaimeStill/smartwaste/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "notifications", "n").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("report_id", "ReportID").
	Project("type", "Type").
	Project("message", "Message").
	Project("is_read", "IsRead").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters narrows a user's notification listing.
type Filters struct {
	Type   *Type `json:"type,omitempty"`
	IsRead *bool `json:"is_read,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	if f.Type != nil {
		b.WhereEquals("Type", string(*f.Type))
	}
	if f.IsRead != nil {
		b.WhereEquals("IsRead", *f.IsRead)
	}
	return b
}

// FiltersFromQuery reads type and is_read parameters. Malformed values
// are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t, err := ParseType(values.Get("type")); err == nil {
		f.Type = &t
	}
	if read, err := strconv.ParseBool(values.Get("is_read")); err == nil {
		f.IsRead = &read
	}

	return f
}

func scanNotification(s repository.Scanner) (Notification, error) {
	var (
		n        Notification
		reportID uuid.NullUUID
	)
	err := s.Scan(&n.ID, &n.UserID, &reportID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt)
	if reportID.Valid {
		n.ReportID = &reportID.UUID
	}
	return n, err
}
