package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verdanthq/verdant-backend/pkg/auth"
	"github.com/verdanthq/verdant-backend/pkg/config"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"github.com/verdanthq/verdant-backend/pkg/logger"
)

type stubSessionChecker struct {
	active map[string]bool
	err    error
}

func (s *stubSessionChecker) HasSession(_ context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.active[accessID], nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func middlewareJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "middleware-test-secret",
		Issuer:                 "verdant-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, roles enums.RoleSet, jti string) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Roles:  roles,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func captureIdentity(t *testing.T, got *identity.Identity, ok *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *ok = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticateResolvesBearerToken(t *testing.T) {
	t.Parallel()

	cfg := middlewareJWTConfig()
	userID := uuid.New()
	jti := uuid.NewString()
	sessions := &stubSessionChecker{active: map[string]bool{jti: true}}

	var got identity.Identity
	var ok bool
	handler := Authenticate(cfg, sessions, testLogger())(captureIdentity(t, &got, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, userID, enums.RoleCustomer, jti))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if !ok || !got.IsAuthenticated() {
		t.Fatal("expected authenticated identity in context")
	}
	if *got.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, got.UserID)
	}
	if !got.Roles.Has(enums.RoleCustomer) {
		t.Fatal("expected customer role carried over from claims")
	}
}

func TestAuthenticateLeavesAnonymousRequestsAlone(t *testing.T) {
	t.Parallel()

	var got identity.Identity
	var ok bool
	handler := Authenticate(middlewareJWTConfig(), &stubSessionChecker{}, testLogger())(captureIdentity(t, &got, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected anonymous request to pass, got %d", rec.Code)
	}
	if ok && got.IsAuthenticated() {
		t.Fatal("expected no authenticated identity")
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	t.Parallel()

	cfg := middlewareJWTConfig()
	userID := uuid.New()
	jti := uuid.NewString()

	cases := []struct {
		name     string
		header   string
		sessions *stubSessionChecker
	}{
		{
			name:     "malformed header",
			header:   "Token abc",
			sessions: &stubSessionChecker{},
		},
		{
			name:     "garbage token",
			header:   "Bearer not-a-jwt",
			sessions: &stubSessionChecker{},
		},
		{
			name:     "revoked session",
			header:   "Bearer " + mintToken(t, cfg, userID, enums.RoleCustomer, jti),
			sessions: &stubSessionChecker{active: map[string]bool{}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler := Authenticate(cfg, tc.sessions, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequireAuthBlocksAnonymous(t *testing.T) {
	t.Parallel()

	handler := RequireAuth(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireStaffChecksRole(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	cases := []struct {
		name  string
		roles enums.RoleSet
		want  int
	}{
		{name: "staff allowed", roles: enums.RoleStaff, want: http.StatusNoContent},
		{name: "customer forbidden", roles: enums.RoleCustomer, want: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler := RequireStaff(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := identity.WithContext(req.Context(), identity.Identity{UserID: &userID, Roles: tc.roles})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req.WithContext(ctx))

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRequireBloggerAdmitsStaff(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	handler := RequireBlogger(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := identity.WithContext(req.Context(), identity.Identity{UserID: &userID, Roles: enums.RoleStaff})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected staff to pass blogger gate, got %d", rec.Code)
	}
}
