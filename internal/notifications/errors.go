package notifications

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound    = errors.New("notification not found")
	ErrInvalidType = errors.New("invalid notification type")
	ErrInvalidID   = errors.New("invalid notification id")
)

// MapHTTPStatus maps notification errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
