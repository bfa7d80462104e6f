// Package reports implements the citizen report domain: submission,
// lookup, listing, and the conditional state transitions the claim and
// completion workflows drive.
package reports

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang/geo/s2"
	"github.com/google/uuid"
)

const maxDescriptionLength = 2000

// DocCleanupPhoto is the report_documents type for a collector's cleanup photo.
const DocCleanupPhoto = "cleanup_photo"

// Location is a WGS84 coordinate in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects coordinates outside the valid latitude/longitude range.
func (l Location) Validate() error {
	if !s2.LatLngFromDegrees(l.Lat, l.Lng).IsValid() {
		return fmt.Errorf("%w: coordinates out of range (%f, %f)", ErrValidation, l.Lat, l.Lng)
	}
	return nil
}

// Report is a citizen-submitted waste dumping observation.
type Report struct {
	ID          uuid.UUID  `json:"id"`
	CitizenID   uuid.UUID  `json:"citizen_id"`
	CollectorID *uuid.UUID `json:"collector_id"`
	Description string     `json:"description"`
	PhotoPath   *string    `json:"photo_path"`
	Location    *Location  `json:"location"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	AssignedAt  *time.Time `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at"`
	ResultPath  *string    `json:"result_path"`
}

// AssignedTo reports whether userID is the report's collector.
func (r *Report) AssignedTo(userID uuid.UUID) bool {
	return r.CollectorID != nil && *r.CollectorID == userID
}

// Document is an evidence file attached to a report.
type Document struct {
	ID        uuid.UUID `json:"id"`
	ReportID  uuid.UUID `json:"report_id"`
	DocType   string    `json:"doc_type"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitCommand carries a new report. PhotoPath is an opaque storage key
// returned by the photo upload endpoint.
type SubmitCommand struct {
	Description string    `json:"description"`
	PhotoPath   *string   `json:"photo_path,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

// Validate trims the description and checks the command.
func (c *SubmitCommand) Validate() error {
	c.Description = strings.TrimSpace(c.Description)
	if c.Description == "" {
		return fmt.Errorf("%w: description required", ErrValidation)
	}
	if utf8.RuneCountInString(c.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, maxDescriptionLength)
	}
	if c.PhotoPath != nil {
		p := strings.TrimSpace(*c.PhotoPath)
		if p == "" {
			c.PhotoPath = nil
		} else {
			c.PhotoPath = &p
		}
	}
	if c.Location != nil {
		return c.Location.Validate()
	}
	return nil
}
