package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/JaimeStill/smartwaste/pkg/handlers"
)

// Authenticate verifies the bearer token on every request and attaches the
// resulting Identity to the request context.
func Authenticate(v Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("middleware", "identity")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrUnauthenticated)
				return
			}

			id, err := v.Verify(r.Context(), token)
			if err != nil {
				handlers.RespondError(w, logger, http.StatusUnauthorized, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// Require rejects callers whose role is not one of roles.
func Require(logger *slog.Logger, roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := FromContext(r.Context())
			if err != nil {
				handlers.RespondError(w, logger, http.StatusUnauthorized, err)
				return
			}
			if !slices.Contains(roles, id.Role) {
				handlers.RespondError(w, logger, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MapHTTPStatus maps identity errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
