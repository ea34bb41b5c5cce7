package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/verdanthq/verdant-backend/api/responses"
	"github.com/verdanthq/verdant-backend/pkg/auth"
	"github.com/verdanthq/verdant-backend/pkg/config"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"github.com/verdanthq/verdant-backend/pkg/logger"
)

type sessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Authenticate resolves a bearer token into the request identity. A
// missing Authorization header leaves the request anonymous; a header
// that is present but invalid is rejected outright.
func Authenticate(cfg config.JWTConfig, sessions sessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "authorization header must be a bearer token"))
				return
			}

			claims, err := auth.ParseAccessToken(cfg, strings.TrimSpace(parts[1]))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "access token is missing a session id"))
				return
			}

			active, err := sessions.HasSession(r.Context(), claims.ID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed"))
				return
			}
			if !active {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "session has been revoked"))
				return
			}

			userID := claims.UserID
			id, _ := identity.FromContext(r.Context())
			id.UserID = &userID
			id.Roles = claims.Roles

			ctx := identity.WithContext(r.Context(), id)
			ctx = logg.WithUserID(ctx, userID.String())
			ctx = logg.WithActorRoles(ctx, claims.Roles.String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that did not authenticate as a user.
func RequireAuth(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identity.FromContext(r.Context())
			if !ok || !id.IsAuthenticated() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
