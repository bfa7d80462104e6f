package reports

import (
	"errors"
	"net/http"
)

// Domain errors for report operations.
var (
	ErrNotFound      = errors.New("report not found")
	ErrConflict      = errors.New("report is not in the expected state")
	ErrForbidden     = errors.New("report belongs to another user")
	ErrInvalidStatus = errors.New("invalid report status")
	ErrValidation    = errors.New("invalid report")
)

// MapHTTPStatus maps report domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
