package middleware

import (
	"net/http"

	"github.com/verdanthq/verdant-backend/api/responses"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"github.com/verdanthq/verdant-backend/pkg/logger"
)

// RequireStaff rejects requests from non-staff users.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireIdentity(logg, identity.Identity.IsStaff, "staff access required")
}

// RequireBlogger admits bloggers and staff.
func RequireBlogger(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireIdentity(logg, func(id identity.Identity) bool {
		return id.IsBlogger() || id.IsStaff()
	}, "blogger access required")
}

func requireIdentity(logg *logger.Logger, allowed func(identity.Identity) bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identity.FromContext(r.Context())
			if !ok || !id.IsAuthenticated() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !allowed(id) {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
