package claims

import (
	"database/sql/driver"
	"fmt"
)

// Status is the claim state. A claim is created claimed and completed
// exactly once.
type Status string

const (
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
)

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusClaimed, StatusCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// CanTransition reports whether s may move directly to next.
func (s Status) CanTransition(next Status) bool {
	return s == StatusClaimed && next == StatusCompleted
}

func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan claim status: unsupported type %T", src)
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
