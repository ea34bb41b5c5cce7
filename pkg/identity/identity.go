// Package identity carries the resolved actor of a request: an authenticated
// user, an anonymous guest, or both kinds of anonymous token at once.
package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/enums"
)

// Identity describes who is acting on a request. UserID is nil for guests.
// GuestToken comes from the persistent guest cookie, SessionKey from the
// per-browser session cookie, and FormToken from an explicit request field.
type Identity struct {
	UserID     *uuid.UUID
	Roles      enums.RoleSet
	GuestToken string
	SessionKey string
	FormToken  string
}

// IsAuthenticated reports whether a signed-in user backs this identity.
func (id Identity) IsAuthenticated() bool {
	return id.UserID != nil
}

// IsStaff reports whether the actor holds the staff role.
func (id Identity) IsStaff() bool {
	return id.IsAuthenticated() && id.Roles.Has(enums.RoleStaff)
}

// IsBlogger reports whether the actor holds the blogger role.
func (id Identity) IsBlogger() bool {
	return id.IsAuthenticated() && id.Roles.Has(enums.RoleBlogger)
}

// CandidateTokens returns the anonymous tokens to match against, ordered by
// trust: guest cookie first, then session key, then any form-supplied token.
// Empty and duplicate values are dropped.
func (id Identity) CandidateTokens() []string {
	ordered := []string{id.GuestToken, id.SessionKey, id.FormToken}
	tokens := make([]string, 0, len(ordered))
	seen := make(map[string]struct{}, len(ordered))
	for _, token := range ordered {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

// MatchesToken reports whether any candidate token equals the stored one.
func (id Identity) MatchesToken(stored string) bool {
	if stored == "" {
		return false
	}
	for _, token := range id.CandidateTokens() {
		if token == stored {
			return true
		}
	}
	return false
}

type contextKey struct{}

// WithContext stores the identity on the context.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext retrieves the identity stored by the middleware, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
