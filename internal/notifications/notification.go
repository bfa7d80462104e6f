// Package notifications records messages for users about their reports.
package notifications

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification.
type Type string

const (
	TypeClaimed   Type = "claimed"
	TypeCompleted Type = "completed"
	TypeGeneral   Type = "general"
)

// ParseType validates s as a Type.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeClaimed, TypeCompleted, TypeGeneral:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

func (t *Type) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan notification type: unsupported type %T", src)
	}

	parsed, err := ParseType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Type) Value() (driver.Value, error) {
	return string(t), nil
}

// Notification is one message addressed to a user.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ReportID  *uuid.UUID `json:"report_id"`
	Type      Type       `json:"type"`
	Message   string     `json:"message"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}

// ClaimedMessage is sent to a citizen when a collector claims their report.
func ClaimedMessage(reportID uuid.UUID) string {
	return fmt.Sprintf("Your report #%s was claimed by a collector.", reportID)
}

// CompletedMessage is sent to a citizen when their report is resolved.
func CompletedMessage(reportID uuid.UUID) string {
	return fmt.Sprintf("Your report #%s has been completed.", reportID)
}
