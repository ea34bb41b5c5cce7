package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/security"

	goredis "github.com/redis/go-redis/v9"
)

const verificationTokenBytes = 32

type verificationStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	VerificationKey(token string) string
}

// Verifier issues and redeems single-use email verification tokens backed
// by redis. Tokens expire on their own; redemption deletes them.
type Verifier struct {
	store verificationStore
	ttl   time.Duration
}

// NewVerifier builds a Verifier with the given token lifetime.
func NewVerifier(store verificationStore, ttl time.Duration) (*Verifier, error) {
	if store == nil {
		return nil, fmt.Errorf("verification store is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("verification token ttl must be positive")
	}
	return &Verifier{store: store, ttl: ttl}, nil
}

// Issue creates a fresh token bound to the user id.
func (v *Verifier) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := security.GenerateToken(verificationTokenBytes)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
	}
	key := v.store.VerificationKey(token)
	if err := v.store.Set(ctx, key, userID.String(), v.ttl); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store verification token")
	}
	return token, nil
}

// Redeem resolves a token to the user it was issued for and consumes it.
func (v *Verifier) Redeem(ctx context.Context, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "verification token is required")
	}
	key := v.store.VerificationKey(token)
	raw, err := v.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification token is invalid or expired")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification token")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse verification token payload")
	}
	if err := v.store.Del(ctx, key); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume verification token")
	}
	return userID, nil
}
