package claims

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("claim not found")
	ErrConflict      = errors.New("claim is not active")
	ErrForbidden     = errors.New("claim belongs to another collector")
	ErrInvalidStatus = errors.New("invalid claim status")
	ErrInvalidID     = errors.New("invalid claim id")
)

// MapHTTPStatus maps claim domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
