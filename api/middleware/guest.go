package middleware

import (
	"net/http"
	"strings"

	"github.com/verdanthq/verdant-backend/pkg/config"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"github.com/verdanthq/verdant-backend/pkg/logger"
	"github.com/verdanthq/verdant-backend/pkg/security"
)

const (
	guestTokenHeader = "X-Guest-Token"
	guestTokenQuery  = "guest_token"
	guestTokenBytes  = 32
)

// GuestIdentity attaches guest tracking tokens to the request identity.
// First-time visitors get a long-lived guest cookie plus a per-browser
// session cookie so carts and comments survive before signup. Tokens
// supplied explicitly on the request ride along as the form token.
func GuestIdentity(cfg config.GuestConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := identity.FromContext(r.Context())

			id.GuestToken = cookieValue(r, cfg.CookieName)
			if id.GuestToken == "" {
				token, err := security.GenerateToken(guestTokenBytes)
				if err == nil {
					id.GuestToken = token
					http.SetCookie(w, &http.Cookie{
						Name:     cfg.CookieName,
						Value:    token,
						Path:     "/",
						MaxAge:   int(cfg.CookieTTL.Seconds()),
						HttpOnly: true,
						Secure:   cfg.CookieSecure,
						SameSite: http.SameSiteLaxMode,
					})
				} else {
					logg.Error(r.Context(), "guest.token.mint_failed", err)
				}
			}

			id.SessionKey = cookieValue(r, cfg.SessionCookieName)
			if id.SessionKey == "" {
				token, err := security.GenerateToken(guestTokenBytes)
				if err == nil {
					id.SessionKey = token
					http.SetCookie(w, &http.Cookie{
						Name:     cfg.SessionCookieName,
						Value:    token,
						Path:     "/",
						HttpOnly: true,
						Secure:   cfg.CookieSecure,
						SameSite: http.SameSiteLaxMode,
					})
				}
			}

			id.FormToken = strings.TrimSpace(r.Header.Get(guestTokenHeader))
			if id.FormToken == "" {
				id.FormToken = strings.TrimSpace(r.URL.Query().Get(guestTokenQuery))
			}

			ctx := identity.WithContext(r.Context(), id)
			if id.GuestToken != "" && !id.IsAuthenticated() {
				ctx = logg.WithGuestToken(ctx, id.GuestToken)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
