package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zuritech/duka-api/internal/models"
	"github.com/zuritech/duka-api/pkg/token"
)

func newAuth(t *testing.T) (*Authenticator, *token.Issuer) {
	t.Helper()
	issuer := token.NewIssuer("test-secret", time.Hour)
	return NewAuthenticator(issuer), issuer
}

func signedToken(t *testing.T, issuer *token.Issuer, role models.Role) string {
	t.Helper()
	signed, err := issuer.Generate(&models.User{ID: "u1", Email: "u1@duka.ke", Role: role})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return signed
}

func TestRequiredRejectsMissingAndBadTokens(t *testing.T) {
	auth, issuer := newAuth(t)
	handler := auth.Required(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.UserID != "u1" {
			t.Error("claims missing from context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
		{"valid", "Bearer " + signedToken(t, issuer, models.RoleUser), http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestAdminOnlyChecksRoleFromClaims(t *testing.T) {
	auth, issuer := newAuth(t)
	handler := auth.AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPatch, "/admin/orders/x/status", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, issuer, models.RoleUser))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("user token: status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/admin/orders/x/status", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, issuer, models.RoleAdmin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin token: status = %d, want 200", rec.Code)
	}
}

func TestOptionalFallsBackToGuest(t *testing.T) {
	auth, issuer := newAuth(t)

	var owner string
	handler := auth.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner = OwnerID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if owner != models.GuestUserID {
		t.Errorf("anonymous owner = %q, want guest", owner)
	}

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, issuer, models.RoleUser))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if owner != "u1" {
		t.Errorf("authenticated owner = %q, want u1", owner)
	}
}

func TestRequestIDIsEchoedAndGenerated(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestIDFromContext(r.Context()) == "" {
			t.Error("request id missing from context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("echoed id = %q, want abc-123", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}
