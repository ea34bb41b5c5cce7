package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/verdanthq/verdant-backend/api/responses"
	"github.com/verdanthq/verdant-backend/api/validators"
	blogsvc "github.com/verdanthq/verdant-backend/internal/blog"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/logger"
	"github.com/verdanthq/verdant-backend/pkg/pagination"
)

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// ListPosts returns published posts, newest first.
func ListPosts(svc blogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListPublished(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// GetPost returns a post with its visible comments.
func GetPost(svc blogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "post slug is required"))
			return
		}

		detail, err := svc.GetPost(r.Context(), actorFrom(r), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type createPostRequest struct {
	Title            string  `json:"title" validate:"required,min=3,max=200"`
	Content          string  `json:"content" validate:"required"`
	Excerpt          string  `json:"excerpt" validate:"max=500"`
	FeaturedImageURL *string `json:"featured_image_url,omitempty"`
}

// CreatePost drafts a new post for a blogger.
func CreatePost(svc blogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPostRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.CreatePost(r.Context(), actorFrom(r), blogsvc.CreatePostInput{
			Title:            payload.Title,
			Content:          payload.Content,
			Excerpt:          payload.Excerpt,
			FeaturedImageURL: payload.FeaturedImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, post)
	}
}

type addCommentRequest struct {
	Name    string  `json:"name" validate:"max=120"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Content string  `json:"content" validate:"required,min=1,max=4000"`
}

// AddComment attaches a comment to a published post.
func AddComment(svc blogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "post slug is required"))
			return
		}

		var payload addCommentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ip := clientIPValue(r)
		comment, err := svc.AddComment(r.Context(), actorFrom(r), slug, blogsvc.AddCommentInput{
			Name:      payload.Name,
			Email:     payload.Email,
			Content:   payload.Content,
			IPAddress: ip,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, comment)
	}
}

type updateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// UpdateComment edits a comment owned by the caller.
func UpdateComment(svc blogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCommentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		comment, err := svc.UpdateComment(r.Context(), actorFrom(r), commentID, payload.Content)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, comment)
	}
}

// DeleteComment removes a comment owned by the caller.
func DeleteComment(svc blogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteComment(r.Context(), actorFrom(r), commentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ApproveComment publishes a pending comment.
func ApproveComment(svc blogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		comment, err := svc.ApproveComment(r.Context(), actorFrom(r), commentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, comment)
	}
}

// ListPendingComments pages through the moderation queue, oldest first.
func ListPendingComments(svc blogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListPendingComments(r.Context(), actorFrom(r), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func clientIPValue(r *http.Request) *string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return &ip
		}
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	if host == "" {
		return nil
	}
	return &host
}
