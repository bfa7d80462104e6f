// Package claims persists collector claims on reports. At most one claim
// per report is active at a time; completion happens exactly once.
package claims

import (
	"time"

	"github.com/google/uuid"
)

// Claim is a collector's commitment to resolve one report.
type Claim struct {
	ID               uuid.UUID  `json:"id"`
	ReportID         uuid.UUID  `json:"report_id"`
	CollectorID      uuid.UUID  `json:"collector_id"`
	ClaimedAt        time.Time  `json:"claimed_at"`
	Status           Status     `json:"status"`
	VerifiedText     *string    `json:"verified_waste_text"`
	AICategoryID     *int       `json:"ai_category_id"`
	AIConfidence     *float64   `json:"ai_confidence"`
	CleanupPhotoPath *string    `json:"cleanup_photo_path"`
	CompletedAt      *time.Time `json:"completed_at"`
	Notes            *string    `json:"notes"`
}

// HeldBy reports whether collectorID owns the claim.
func (c *Claim) HeldBy(collectorID uuid.UUID) bool {
	return c.CollectorID == collectorID
}

// HistoryEntry is a claim joined with its report and resolved category,
// as shown in a collector's task history.
type HistoryEntry struct {
	Claim
	ReportDescription string  `json:"report_description"`
	CategoryName      *string `json:"category_name"`
}

// CompleteParams carries the values written when a claim is completed.
// The update is scoped by ClaimID, ReportID and CollectorID together.
type CompleteParams struct {
	ClaimID      uuid.UUID
	ReportID     uuid.UUID
	CollectorID  uuid.UUID
	VerifiedText string
	CategoryID   int
	Confidence   float64
	CleanupPhoto *string
	Notes        string
}
