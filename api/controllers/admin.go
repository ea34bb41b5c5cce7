package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdanthq/verdant-backend/api/responses"
	"github.com/verdanthq/verdant-backend/api/validators"
	adminsvc "github.com/verdanthq/verdant-backend/internal/admin"
	"github.com/verdanthq/verdant-backend/pkg/logger"
)

// AdminDashboard returns moderation counts and recent queue items.
func AdminDashboard(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard, err := svc.Dashboard(r.Context(), actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

// AdminApprovePost publishes a draft and promotes its author when a
// blogger request is tied to the post.
func AdminApprovePost(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApprovePost(r.Context(), actorFrom(r), postID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminApproveBloggerRequest grants the blogger role for a pending
// request.
func AdminApproveBloggerRequest(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApproveBloggerRequest(r.Context(), actorFrom(r), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
