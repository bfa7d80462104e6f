// Package identity carries the authenticated caller through a request.
// Workflows receive the Identity explicitly; nothing reads it from ambient
// state.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("role not permitted")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidRole     = errors.New("invalid role")
)

// Role is the caller's application role.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleCollector Role = "collector"
	RoleAdmin     Role = "admin"
)

// ParseRole validates s as a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCitizen, RoleCollector, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Identity is an authenticated (user, role) pair.
type Identity struct {
	UserID uuid.UUID `json:"userId"`
	Role   Role      `json:"role"`
}

func (i Identity) Is(role Role) bool {
	return i.Role == role
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity attached by the authentication
// middleware, or ErrUnauthenticated.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}
