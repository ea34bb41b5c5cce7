package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/verdanthq/verdant-backend/api/responses"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady reports readiness by probing the database and cache.
func HealthReady(db, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok", "cache": "ok"}
		healthy := true

		if db == nil || db.Ping(ctx) != nil {
			checks["database"] = "unavailable"
			healthy = false
		}
		if cache == nil || cache.Ping(ctx) != nil {
			checks["cache"] = "unavailable"
			healthy = false
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, status, checks)
	}
}
