package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/verdanthq/verdant-backend/api/responses"
	"github.com/verdanthq/verdant-backend/pkg/config"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/logger"
)

// RateLimiterStore is the slice of the cache client the limiter needs.
type RateLimiterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy caps attempts per client IP and per submitted
// email within a rolling window.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func LoginRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		name:       "login",
		window:     cfg.LoginWindow,
		ipLimit:    cfg.LoginIPLimit,
		emailLimit: cfg.LoginEmailLimit,
	}
}

func RegisterRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		name:       "register",
		window:     cfg.RegisterWindow,
		ipLimit:    cfg.RegisterIPLimit,
		emailLimit: cfg.RegisterEmailLimit,
	}
}

// AuthRateLimit throttles credential endpoints. Limiter outages fail
// open so an unavailable store never locks everyone out.
func AuthRateLimit(store RateLimiterStore, policy AuthRateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := clientIP(r); ip != "" && policy.ipLimit > 0 {
				key := store.RateLimitKey(fmt.Sprintf("ip:%s:%s", policy.name, ip))
				count, err := store.IncrWithTTL(ctx, key, policy.window)
				if err != nil {
					logg.Error(ctx, "auth.rate_limit.store_error", err)
				} else if count > int64(policy.ipLimit) {
					respondRateLimited(ctx, logg, w, policy.name, "ip")
					return
				}
			}

			if email := extractEmail(r); email != "" && policy.emailLimit > 0 {
				key := store.RateLimitKey(fmt.Sprintf("email:%s:%s", policy.name, hashValue(email)))
				count, err := store.IncrWithTTL(ctx, key, policy.window)
				if err != nil {
					logg.Error(ctx, "auth.rate_limit.store_error", err)
				} else if count > int64(policy.emailLimit) {
					respondRateLimited(ctx, logg, w, policy.name, "email")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy, scope string) {
	ctx = logg.WithFields(ctx, map[string]any{
		"policy": policy,
		"scope":  scope,
	})
	logg.Warn(ctx, "auth.rate_limit.blocked")
	responses.WriteError(ctx, logg, w,
		pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// extractEmail peeks at the JSON body for an email field and restores
// the body for the handler.
func extractEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
