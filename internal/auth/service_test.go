package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/verdanthq/verdant-backend/internal/cart"
	"github.com/verdanthq/verdant-backend/internal/users"
	pkgAuth "github.com/verdanthq/verdant-backend/pkg/auth"
	"github.com/verdanthq/verdant-backend/pkg/auth/session"
	"github.com/verdanthq/verdant-backend/pkg/config"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/mail"
	"github.com/verdanthq/verdant-backend/pkg/security"
	"gorm.io/gorm"
)

type fakeUserStore struct {
	byEmail  map[string]*models.User
	byID     map[uuid.UUID]*models.User
	profiles map[uuid.UUID]*models.CustomerProfile
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail:  map[string]*models.User{},
		byID:     map[uuid.UUID]*models.User{},
		profiles: map[uuid.UUID]*models.CustomerProfile{},
	}
}

func (f *fakeUserStore) add(u *models.User) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	u, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (f *fakeUserStore) SetEmailVerified(_ context.Context, id uuid.UUID) error {
	u, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.EmailVerified = true
	return nil
}

func (f *fakeUserStore) CreateTx(_ context.Context, _ *gorm.DB, dto users.CreateUserDTO) (*models.User, error) {
	if _, exists := f.byEmail[dto.Email]; exists {
		return nil, fmt.Errorf("duplicate key value violates unique constraint")
	}
	u := &models.User{
		ID:           uuid.New(),
		Email:        dto.Email,
		PasswordHash: dto.PasswordHash,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		Roles:        enums.RoleCustomer,
		IsActive:     true,
	}
	f.add(u)
	return u, nil
}

func (f *fakeUserStore) CreateCustomerProfileTx(_ context.Context, _ *gorm.DB, profile *models.CustomerProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	f.profiles[profile.UserID] = profile
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	if provided != "refresh-"+oldAccessID {
		return "", "", session.ErrInvalidRefreshToken
	}
	next := "rotated-" + oldAccessID
	return next, "refresh-" + next, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubReconciler struct {
	result cart.ReconcileResult
	err    error
	tokens []string
	userID uuid.UUID
	calls  int
}

func (s *stubReconciler) Reconcile(_ context.Context, userID uuid.UUID, tokens []string) (cart.ReconcileResult, error) {
	s.calls++
	s.userID = userID
	s.tokens = tokens
	return s.result, s.err
}

type captureMailer struct {
	sent []mail.Message
}

func (c *captureMailer) Send(_ context.Context, msg mail.Message) mail.NotificationResult {
	c.sent = append(c.sent, msg)
	return mail.NotificationResult{Kind: msg.Kind, Recipient: msg.To, Delivered: true, Attempts: 1}
}

type memoryVerifyStore struct {
	values map[string]string
}

func newMemoryVerifyStore() *memoryVerifyStore {
	return &memoryVerifyStore{values: map[string]string{}}
}

func (m *memoryVerifyStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = fmt.Sprintf("%v", value)
	return nil
}

func (m *memoryVerifyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryVerifyStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryVerifyStore) VerificationKey(token string) string {
	return "vd:verify:email:" + token
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "verdant-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

type authFixture struct {
	svc        Service
	store      *fakeUserStore
	sessions   *stubSessionManager
	reconciler *stubReconciler
	mailer     *captureMailer
	verifier   *Verifier
	verifyKV   *memoryVerifyStore
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := newFakeUserStore()
	sessions := &stubSessionManager{}
	reconciler := &stubReconciler{}
	mailer := &captureMailer{}
	verifyKV := newMemoryVerifyStore()
	verifier, err := NewVerifier(verifyKV, time.Hour)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	svc, err := NewService(ServiceParams{
		UserRepo:       store,
		DB:             stubTxRunner{},
		SessionManager: sessions,
		CartReconciler: reconciler,
		Verifier:       verifier,
		Mailer:         mailer,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &authFixture{
		svc:        svc,
		store:      store,
		sessions:   sessions,
		reconciler: reconciler,
		mailer:     mailer,
		verifier:   verifier,
		verifyKV:   verifyKV,
	}
}

func (f *authFixture) seedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Avery",
		LastName:     "Reed",
		Roles:        enums.RoleCustomer,
		IsActive:     true,
	}
	f.store.add(u)
	return u
}

func TestLoginReconcilesGuestCart(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	u := f.seedUser(t, "avery@example.com", "correct horse")
	f.reconciler.result = cart.ReconcileResult{Merged: 2, Reparented: 1}

	resp, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "  Avery@Example.com ",
		Password: "correct horse",
	}, []string{"guest-token-1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if f.reconciler.calls != 1 {
		t.Fatalf("expected one reconcile call, got %d", f.reconciler.calls)
	}
	if f.reconciler.userID != u.ID {
		t.Fatalf("reconciled wrong user: %s", f.reconciler.userID)
	}
	if resp.CartMerged != 2 || resp.CartAdopted != 1 {
		t.Fatalf("unexpected reconcile counts merged=%d adopted=%d", resp.CartMerged, resp.CartAdopted)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
	if u.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != u.ID {
		t.Fatalf("token carries wrong user %s", claims.UserID)
	}
	if len(f.sessions.generated) != 1 || f.sessions.generated[0] != claims.ID {
		t.Fatalf("session not keyed by jti: %v vs %s", f.sessions.generated, claims.ID)
	}
}

func TestLoginSucceedsWhenReconcileFails(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.seedUser(t, "avery@example.com", "correct horse")
	f.reconciler.err = fmt.Errorf("redis down")

	resp, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "avery@example.com",
		Password: "correct horse",
	}, []string{"guest-token-1"})
	if err != nil {
		t.Fatalf("login should not fail on reconcile error: %v", err)
	}
	if resp.CartMerged != 0 || resp.CartAdopted != 0 {
		t.Fatal("expected zero reconcile counts on failure")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.seedUser(t, "avery@example.com", "correct horse")

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "avery@example.com", "wrong"},
		{"unknown email", "nobody@example.com", "correct horse"},
		{"empty email", "", "correct horse"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.svc.Login(context.Background(), LoginRequest{Email: tc.email, Password: tc.password}, nil)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if typed.Message() != invalidCredentialsMessage {
				t.Fatalf("credential failures must not leak detail: %q", typed.Message())
			}
		})
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	u := f.seedUser(t, "avery@example.com", "correct horse")
	u.IsActive = false

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "avery@example.com", Password: "correct horse"}, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if f.reconciler.calls != 0 {
		t.Fatal("reconcile must not run for failed logins")
	}
}

func TestRegisterCreatesUserAndProfile(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	phone := "555-0100"
	address := "12 Fern Way"

	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		FirstName: "Avery",
		LastName:  "Reed",
		Email:     " Avery@Example.com ",
		Password:  "correct horse",
		Phone:     &phone,
		Address:   &address,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User == nil || resp.User.Email != "avery@example.com" {
		t.Fatalf("unexpected user %+v", resp.User)
	}

	stored := f.store.byEmail["avery@example.com"]
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.Roles != enums.RoleCustomer {
		t.Fatalf("new users must start as customers, got %s", stored.Roles)
	}
	if stored.EmailVerified {
		t.Fatal("new users must start unverified")
	}
	ok, err := security.VerifyPassword("correct horse", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}

	profile := f.store.profiles[stored.ID]
	if profile == nil {
		t.Fatal("customer profile not created")
	}
	if profile.Phone != phone || profile.Address != address {
		t.Fatalf("profile fields not applied: %+v", profile)
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected one verification email, got %d", len(f.mailer.sent))
	}
	msg := f.mailer.sent[0]
	if msg.Kind != verificationMailKind || msg.To != "avery@example.com" {
		t.Fatalf("unexpected mail %+v", msg)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.seedUser(t, "avery@example.com", "correct horse")

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "avery@example.com",
		Password:  "another pass",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatal("no email should go out for a failed registration")
	}
}

func TestVerifyEmailRoundTrip(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		FirstName: "Avery",
		LastName:  "Reed",
		Email:     "avery@example.com",
		Password:  "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Lift the token out of the email body the way a user would.
	body := f.mailer.sent[0].PlainTxt
	idx := strings.LastIndex(body, " ")
	token := body[idx+1:]

	if err := f.svc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !f.store.byID[resp.User.ID].EmailVerified {
		t.Fatal("user not marked verified")
	}

	// Tokens are single use.
	err = f.svc.VerifyEmail(context.Background(), token)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on reuse, got %v", err)
	}
}

func TestVerifyEmailRejectsUnknownToken(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	err := f.svc.VerifyEmail(context.Background(), "no-such-token")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResendVerification(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	u := f.seedUser(t, "avery@example.com", "correct horse")

	if err := f.svc.ResendVerification(context.Background(), " Avery@Example.com "); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(f.mailer.sent))
	}

	// Unknown addresses and verified accounts both look like success.
	if err := f.svc.ResendVerification(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown address must not error: %v", err)
	}
	u.EmailVerified = true
	if err := f.svc.ResendVerification(context.Background(), "avery@example.com"); err != nil {
		t.Fatalf("verified account must not error: %v", err)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("no further email expected, got %d", len(f.mailer.sent))
	}
}

func TestRefreshRotatesTokensAndReloadsRoles(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	u := f.seedUser(t, "avery@example.com", "correct horse")

	login, err := f.svc.Login(context.Background(), LoginRequest{Email: "avery@example.com", Password: "correct horse"}, nil)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Grant a role between login and refresh; the new token must carry it.
	u.Roles = u.Roles.Grant(enums.RoleBlogger)

	resp, err := f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if !claims.Roles.Has(enums.RoleBlogger) {
		t.Fatal("refreshed token missing newly granted role")
	}
}

func TestRefreshRejectsMismatchedPair(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.seedUser(t, "avery@example.com", "correct horse")

	login, err := f.svc.Login(context.Background(), LoginRequest{Email: "avery@example.com", Password: "correct horse"}, nil)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err = f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "refresh-of-someone-else",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRejectsDisabledAccount(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	u := f.seedUser(t, "avery@example.com", "correct horse")

	login, err := f.svc.Login(context.Background(), LoginRequest{Email: "avery@example.com", Password: "correct horse"}, nil)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	u.IsActive = false

	_, err = f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	if err := f.svc.Logout(context.Background(), "access-123"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(f.sessions.revoked) != 1 || f.sessions.revoked[0] != "access-123" {
		t.Fatalf("session not revoked: %v", f.sessions.revoked)
	}

	err := f.svc.Logout(context.Background(), "  ")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
