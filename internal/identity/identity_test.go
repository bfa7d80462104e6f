package identity_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JaimeStill/smartwaste/internal/identity"
)

var (
	secret = []byte("0123456789abcdef0123456789abcdef")
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func sign(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestHMACVerify(t *testing.T) {
	v := identity.NewHMACVerifier(secret, "", "role")
	user := uuid.New()
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   func() string
		wantErr bool
	}{
		{
			name: "valid collector",
			token: func() string {
				tok, err := identity.SignHMAC(secret, identity.Identity{UserID: user, Role: identity.RoleCollector}, "", "role", time.Hour)
				if err != nil {
					t.Fatal(err)
				}
				return tok
			},
		},
		{
			name: "expired",
			token: func() string {
				return sign(t, jwt.MapClaims{"sub": user.String(), "role": "citizen", "exp": time.Now().Add(-time.Hour).Unix()}, jwt.SigningMethodHS256, secret)
			},
			wantErr: true,
		},
		{
			name: "missing exp",
			token: func() string {
				return sign(t, jwt.MapClaims{"sub": user.String(), "role": "citizen"}, jwt.SigningMethodHS256, secret)
			},
			wantErr: true,
		},
		{
			name: "wrong secret",
			token: func() string {
				return sign(t, jwt.MapClaims{"sub": user.String(), "role": "citizen", "exp": future}, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"))
			},
			wantErr: true,
		},
		{
			name: "wrong algorithm",
			token: func() string {
				return sign(t, jwt.MapClaims{"sub": user.String(), "role": "citizen", "exp": future}, jwt.SigningMethodHS512, secret)
			},
			wantErr: true,
		},
		{
			name: "subject not uuid",
			token: func() string {
				return sign(t, jwt.MapClaims{"sub": "42", "role": "citizen", "exp": future}, jwt.SigningMethodHS256, secret)
			},
			wantErr: true,
		},
		{
			name: "unknown role",
			token: func() string {
				return sign(t, jwt.MapClaims{"sub": user.String(), "role": "superuser", "exp": future}, jwt.SigningMethodHS256, secret)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(context.Background(), tt.token())
			if tt.wantErr {
				if !errors.Is(err, identity.ErrInvalidToken) {
					t.Errorf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id.UserID != user || id.Role != identity.RoleCollector {
				t.Errorf("identity: got %+v", id)
			}
		})
	}
}

func TestHMACAudience(t *testing.T) {
	v := identity.NewHMACVerifier(secret, "smartwaste", "role")
	id := identity.Identity{UserID: uuid.New(), Role: identity.RoleCitizen}

	good, _ := identity.SignHMAC(secret, id, "smartwaste", "role", time.Hour)
	if _, err := v.Verify(context.Background(), good); err != nil {
		t.Errorf("matching audience rejected: %v", err)
	}

	bad, _ := identity.SignHMAC(secret, id, "other", "role", time.Hour)
	if _, err := v.Verify(context.Background(), bad); err == nil {
		t.Error("foreign audience accepted")
	}
}

func TestHMACCustomRoleClaim(t *testing.T) {
	v := identity.NewHMACVerifier(secret, "", "app_role")
	id := identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin}

	tok, err := identity.SignHMAC(secret, id, "", "app_role", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("token signed under app_role rejected: %v", err)
	}
	if got != id {
		t.Errorf("identity: got %+v, want %+v", got, id)
	}

	def, _ := identity.SignHMAC(secret, id, "", "role", time.Hour)
	if _, err := v.Verify(context.Background(), def); !errors.Is(err, identity.ErrInvalidToken) {
		t.Errorf("token without app_role: got %v, want ErrInvalidToken", err)
	}
}

func TestAuthenticateAndRequire(t *testing.T) {
	v := identity.NewHMACVerifier(secret, "", "role")
	collector := identity.Identity{UserID: uuid.New(), Role: identity.RoleCollector}
	citizen := identity.Identity{UserID: uuid.New(), Role: identity.RoleCitizen}

	var seen identity.Identity
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := identity.Authenticate(v, logger)(identity.Require(logger, identity.RoleCollector)(final))

	token := func(id identity.Identity) string {
		tok, err := identity.SignHMAC(secret, id, "", "role", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + token(citizen), http.StatusForbidden},
		{"collector", "Bearer " + token(collector), http.StatusOK},
		{"lowercase scheme", "bearer " + token(collector), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = identity.Identity{}
			req := httptest.NewRequest(http.MethodPost, "/reports/1/claim", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && seen != collector {
				t.Errorf("identity in context: got %+v, want %+v", seen, collector)
			}
		})
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, err := identity.FromContext(context.Background()); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("got %v, want ErrUnauthenticated", err)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{identity.ErrForbidden, http.StatusForbidden},
		{identity.ErrUnauthenticated, http.StatusUnauthorized},
		{identity.ErrInvalidToken, http.StatusUnauthorized},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := identity.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
