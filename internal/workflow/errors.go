package workflow

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/smartwaste/internal/claims"
	"github.com/JaimeStill/smartwaste/internal/reports"
)

// Sentinel errors for workflow operations. Domain errors from the stores
// are wrapped in one of these before leaving the package.
var (
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")
)

// MapHTTPStatus maps workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// translate classifies a store error into a workflow sentinel.
func translate(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isAny(err, ErrValidation, ErrConflict, ErrForbidden, ErrNotFound, ErrPersistence):
		return err
	case isAny(err, reports.ErrValidation):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	case isAny(err, reports.ErrForbidden, claims.ErrForbidden):
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	case isAny(err, reports.ErrNotFound, claims.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case isAny(err, reports.ErrConflict, claims.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}

// outcome labels err for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// ErrInvalidID indicates a malformed id in the request path.
var ErrInvalidID = errors.New("invalid id")
