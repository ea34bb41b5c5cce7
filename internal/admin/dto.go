package admin

import (
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/mail"
)

// DashboardCounts are the headline numbers on the staff landing page.
type DashboardCounts struct {
	Users              int64 `json:"users"`
	PendingRequests    int64 `json:"pending_blogger_requests"`
	UnapprovedComments int64 `json:"unapproved_comments"`
	PendingBookings    int64 `json:"pending_bookings"`
	DraftPosts         int64 `json:"draft_posts"`
}

// DraftPostDTO is a row in the recent-drafts list.
type DraftPostDTO struct {
	ID        uuid.UUID  `json:"id"`
	AuthorID  *uuid.UUID `json:"author_id,omitempty"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	CreatedAt time.Time  `json:"created_at"`
}

// PendingBookingDTO is a row in the recent-bookings list.
type PendingBookingDTO struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Size      string     `json:"size"`
	Quantity  int        `json:"quantity"`
	Date      time.Time  `json:"date"`
	CreatedAt time.Time  `json:"created_at"`
}

// PendingRequestDTO is a row in the recent-requests list.
type PendingRequestDTO struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	PostID      *uuid.UUID `json:"post_id,omitempty"`
	Reason      string     `json:"reason"`
	RequestedAt time.Time  `json:"requested_at"`
}

// DashboardDTO is the full staff dashboard payload.
type DashboardDTO struct {
	Counts          DashboardCounts     `json:"counts"`
	RecentDrafts    []DraftPostDTO      `json:"recent_drafts"`
	RecentBookings  []PendingBookingDTO `json:"recent_bookings"`
	RecentRequests  []PendingRequestDTO `json:"recent_requests"`
	GeneratedAtUnix int64               `json:"generated_at"`
}

// ApprovePostResult reports everything the approval transaction did plus the
// outcome of the follow-up email.
type ApprovePostResult struct {
	PostID           uuid.UUID                `json:"post_id"`
	Slug             string                   `json:"slug"`
	AuthorPromoted   bool                     `json:"author_promoted"`
	RequestsApproved int64                    `json:"requests_approved"`
	Email            *mail.NotificationResult `json:"-"`
}

// ApproveRequestResult reports a standalone blogger request approval.
type ApproveRequestResult struct {
	RequestID uuid.UUID `json:"request_id"`
	UserID    uuid.UUID `json:"user_id"`
}

func draftsFromModels(rows []models.Post) []DraftPostDTO {
	out := make([]DraftPostDTO, 0, len(rows))
	for i := range rows {
		p := &rows[i]
		out = append(out, DraftPostDTO{
			ID:        p.ID,
			AuthorID:  p.AuthorID,
			Title:     p.Title,
			Slug:      p.Slug,
			CreatedAt: p.CreatedAt,
		})
	}
	return out
}

func bookingsFromModels(rows []models.Booking) []PendingBookingDTO {
	out := make([]PendingBookingDTO, 0, len(rows))
	for i := range rows {
		b := &rows[i]
		out = append(out, PendingBookingDTO{
			ID:        b.ID,
			UserID:    b.UserID,
			Size:      b.Size.String(),
			Quantity:  b.Quantity,
			Date:      b.Date,
			CreatedAt: b.CreatedAt,
		})
	}
	return out
}

func requestsFromModels(rows []models.BloggerRequest) []PendingRequestDTO {
	out := make([]PendingRequestDTO, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		out = append(out, PendingRequestDTO{
			ID:          r.ID,
			UserID:      r.UserID,
			PostID:      r.PostID,
			Reason:      r.Reason,
			RequestedAt: r.RequestedAt,
		})
	}
	return out
}
