package reports

import (
	"database/sql/driver"
	"fmt"
)

// Status is the report lifecycle state. Transitions only move forward,
// pending to claimed to completed, and are enforced by the store's
// conditional updates.
type Status string

const (
	StatusPending   Status = "pending"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
)

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusClaimed, StatusCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan report status: unsupported type %T", src)
	}

	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s Status) Value() (driver.Value, error) {
	if _, err := ParseStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}
