package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/config"
)

// Verifier turns a raw bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// NewVerifier returns an OIDC verifier when an issuer is configured and an
// HMAC verifier otherwise. OIDC discovery runs against ctx.
func NewVerifier(ctx context.Context, cfg *config.IdentityConfig) (Verifier, error) {
	if cfg.UsesOIDC() {
		return NewOIDCVerifier(ctx, cfg.Issuer, cfg.Audience, cfg.RoleClaim)
	}
	return NewHMACVerifier([]byte(cfg.HMACSecret), cfg.Audience, cfg.RoleClaim), nil
}

type oidcVerifier struct {
	verifier  *oidc.IDTokenVerifier
	roleClaim string
}

// NewOIDCVerifier discovers issuer's signing keys and verifies tokens
// issued for audience.
func NewOIDCVerifier(ctx context.Context, issuer, audience, roleClaim string) (Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery %s: %w", issuer, err)
	}

	return &oidcVerifier{
		verifier:  provider.Verifier(&oidc.Config{ClientID: audience}),
		roleClaim: roleClaim,
	}, nil
}

func (v *oidcVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return fromClaims(idToken.Subject, claims[v.roleClaim])
}

type hmacVerifier struct {
	secret    []byte
	audience  string
	roleClaim string
}

// NewHMACVerifier verifies HS256 tokens signed with secret. Audience is
// checked only when non-empty.
func NewHMACVerifier(secret []byte, audience, roleClaim string) Verifier {
	return &hmacVerifier{secret: secret, audience: audience, roleClaim: roleClaim}
}

func (v *hmacVerifier) Verify(_ context.Context, token string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return fromClaims(sub, claims[v.roleClaim])
}

// SignHMAC issues an HS256 token for id that expires after ttl. The role is
// written under roleClaim, which must match the verifier's.
func SignHMAC(secret []byte, id Identity, audience, roleClaim string, ttl time.Duration) (string, error) {
	if roleClaim == "" {
		roleClaim = "role"
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     id.UserID.String(),
		roleClaim: string(id.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if audience != "" {
		claims["aud"] = audience
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func fromClaims(sub string, role any) (Identity, error) {
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	s, _ := role.(string)
	r, err := ParseRole(s)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return Identity{UserID: userID, Role: r}, nil
}
