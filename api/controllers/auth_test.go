package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authsvc "github.com/verdanthq/verdant-backend/internal/auth"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"github.com/verdanthq/verdant-backend/pkg/logger"
)

type stubAuthService struct {
	authsvc.Service

	loginReq    authsvc.LoginRequest
	loginTokens []string
	loginResult *authsvc.LoginResponse
	loginErr    error

	registered *authsvc.RegisterRequest
	resent     []string
}

func (s *stubAuthService) Login(_ context.Context, req authsvc.LoginRequest, guestTokens []string) (*authsvc.LoginResponse, error) {
	s.loginReq = req
	s.loginTokens = guestTokens
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	if s.loginResult != nil {
		return s.loginResult, nil
	}
	return &authsvc.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubAuthService) Register(_ context.Context, req authsvc.RegisterRequest) (*authsvc.RegisterResponse, error) {
	s.registered = &req
	return &authsvc.RegisterResponse{}, nil
}

func (s *stubAuthService) ResendVerification(_ context.Context, email string) error {
	s.resent = append(s.resent, email)
	return nil
}

func controllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestLoginForwardsGuestTokens(t *testing.T) {
	t.Parallel()

	svc := &stubAuthService{}
	handler := Login(svc, controllerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"hunter22"}`))
	ctx := identity.WithContext(req.Context(), identity.Identity{
		GuestToken: "guest-cookie",
		SessionKey: "session-cookie",
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.loginReq.Email != "alice@example.com" {
		t.Fatalf("unexpected login email %q", svc.loginReq.Email)
	}
	if len(svc.loginTokens) != 2 || svc.loginTokens[0] != "guest-cookie" || svc.loginTokens[1] != "session-cookie" {
		t.Fatalf("guest tokens not forwarded, got %v", svc.loginTokens)
	}
}

func TestLoginMapsServiceErrors(t *testing.T) {
	t.Parallel()

	svc := &stubAuthService{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := Login(svc, controllerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"wrong-password"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid credentials") {
		t.Fatalf("expected public message in body, got %s", rec.Body.String())
	}
}

func TestRegisterRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	svc := &stubAuthService{}
	handler := Register(svc, controllerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"email":"not-an-email","password":"short"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.registered != nil {
		t.Fatal("service must not be called with an invalid payload")
	}
}

func TestRegisterReturnsCreated(t *testing.T) {
	t.Parallel()

	svc := &stubAuthService{}
	handler := Register(svc, controllerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"first_name":"Alice","last_name":"Moss","email":"alice@example.com","password":"longenough"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.registered == nil || svc.registered.Email != "alice@example.com" {
		t.Fatal("expected register payload forwarded to service")
	}
}

func TestResendVerificationAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	svc := &stubAuthService{}
	handler := ResendVerification(svc, controllerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/resend-verification",
		strings.NewReader(`{"email":"nobody@example.com"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.resent) != 1 || svc.resent[0] != "nobody@example.com" {
		t.Fatalf("expected resend forwarded, got %v", svc.resent)
	}
}
