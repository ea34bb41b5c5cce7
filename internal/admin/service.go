package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"github.com/verdanthq/verdant-backend/pkg/logger"
	"github.com/verdanthq/verdant-backend/pkg/mail"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const recentItemLimit = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Count(ctx context.Context) (int64, error)
	ListPendingRequests(ctx context.Context) ([]models.BloggerRequest, error)
	FindBloggerRequest(ctx context.Context, id uuid.UUID) (*models.BloggerRequest, error)
	ApproveRequestTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	ApproveRequestsForPostTx(ctx context.Context, tx *gorm.DB, postID uuid.UUID) (int64, error)
}

type userPromoter interface {
	PromoteToBloggerTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type postStore interface {
	FindPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	PublishTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CountByStatus(ctx context.Context, status enums.PostStatus) (int64, error)
	ListByStatus(ctx context.Context, status enums.PostStatus, limit int) ([]models.Post, error)
}

type commentStore interface {
	CountUnapproved(ctx context.Context) (int64, error)
}

type bookingStore interface {
	CountByStatus(ctx context.Context, status enums.BookingStatus) (int64, error)
	ListByStatus(ctx context.Context, status enums.BookingStatus) ([]models.Booking, error)
}

type notificationWriter interface {
	CreateTx(ctx context.Context, tx *gorm.DB, n *models.Notification) error
}

// Service exposes the staff-only aggregation and approval operations.
type Service interface {
	Dashboard(ctx context.Context, actor identity.Identity) (*DashboardDTO, error)
	ApprovePost(ctx context.Context, actor identity.Identity, postID uuid.UUID) (*ApprovePostResult, error)
	ApproveBloggerRequest(ctx context.Context, actor identity.Identity, requestID uuid.UUID) (*ApproveRequestResult, error)
}

type service struct {
	db            txRunner
	users         userStore
	promoter      userPromoter
	posts         postStore
	comments      commentStore
	bookings      bookingStore
	notifications notificationWriter
	mailer        mail.Mailer
	logg          *logger.Logger
}

// ServiceParams bundles the dependencies of the admin service.
type ServiceParams struct {
	DB            txRunner
	Users         userStore
	Promoter      userPromoter
	Posts         postStore
	Comments      commentStore
	Bookings      bookingStore
	Notifications notificationWriter
	Mailer        mail.Mailer
	Logger        *logger.Logger
}

// NewService constructs the admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Users == nil || params.Promoter == nil {
		return nil, fmt.Errorf("user store and promoter are required")
	}
	if params.Posts == nil || params.Comments == nil || params.Bookings == nil {
		return nil, fmt.Errorf("post, comment and booking stores are required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification writer is required")
	}
	if params.Mailer == nil {
		params.Mailer = mail.NoopMailer{}
	}
	return &service{
		db:            params.DB,
		users:         params.Users,
		promoter:      params.Promoter,
		posts:         params.Posts,
		comments:      params.Comments,
		bookings:      params.Bookings,
		notifications: params.Notifications,
		mailer:        params.Mailer,
		logg:          params.Logger,
	}, nil
}

// Dashboard assembles the read-only counters and recent items staff see on
// the landing page.
func (s *service) Dashboard(ctx context.Context, actor identity.Identity) (*DashboardDTO, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}

	userCount, err := s.users.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
	}
	pendingRequests, err := s.users.ListPendingRequests(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending requests")
	}
	unapprovedComments, err := s.comments.CountUnapproved(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unapproved comments")
	}
	pendingBookingCount, err := s.bookings.CountByStatus(ctx, enums.BookingStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count pending bookings")
	}
	draftCount, err := s.posts.CountByStatus(ctx, enums.PostStatusDraft)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count draft posts")
	}

	drafts, err := s.posts.ListByStatus(ctx, enums.PostStatusDraft, recentItemLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list draft posts")
	}
	pendingBookings, err := s.bookings.ListByStatus(ctx, enums.BookingStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending bookings")
	}
	if len(pendingBookings) > recentItemLimit {
		pendingBookings = pendingBookings[:recentItemLimit]
	}
	requests := pendingRequests
	if len(requests) > recentItemLimit {
		requests = requests[:recentItemLimit]
	}

	return &DashboardDTO{
		Counts: DashboardCounts{
			Users:              userCount,
			PendingRequests:    int64(len(pendingRequests)),
			UnapprovedComments: unapprovedComments,
			PendingBookings:    pendingBookingCount,
			DraftPosts:         draftCount,
		},
		RecentDrafts:    draftsFromModels(drafts),
		RecentBookings:  bookingsFromModels(pendingBookings),
		RecentRequests:  requestsFromModels(requests),
		GeneratedAtUnix: time.Now().UTC().Unix(),
	}, nil
}

// ApprovePost publishes a draft and carries out the paperwork in one
// transaction: the author becomes a blogger, any role requests tied to the
// post are approved, and a dashboard notification is written. The email that
// follows is best effort and never rolls anything back.
func (s *service) ApprovePost(ctx context.Context, actor identity.Identity, postID uuid.UUID) (*ApprovePostResult, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}

	post, err := s.posts.FindPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load post")
	}
	if post.Status == enums.PostStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "post is already published").
			WithDetails(map[string]string{"post_id": post.ID.String()})
	}

	var requestsApproved int64
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.posts.PublishTx(ctx, tx, post.ID); err != nil {
			return fmt.Errorf("publish post: %w", err)
		}
		if post.AuthorID == nil {
			return nil
		}
		if err := s.promoter.PromoteToBloggerTx(ctx, tx, *post.AuthorID); err != nil {
			return fmt.Errorf("promote author: %w", err)
		}
		approved, err := s.users.ApproveRequestsForPostTx(ctx, tx, post.ID)
		if err != nil {
			return fmt.Errorf("approve linked requests: %w", err)
		}
		requestsApproved = approved
		notification := &models.Notification{
			UserID:  *post.AuthorID,
			Message: fmt.Sprintf("Your post %q has been published.", post.Title),
		}
		if err := s.notifications.CreateTx(ctx, tx, notification); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve post")
	}

	result := &ApprovePostResult{
		PostID:           post.ID,
		Slug:             post.Slug,
		AuthorPromoted:   post.AuthorID != nil,
		RequestsApproved: requestsApproved,
	}
	if post.AuthorID != nil {
		result.Email = s.notifyAuthor(ctx, *post.AuthorID, post.Title)
	}
	return result, nil
}

// ApproveBloggerRequest grants the blogger role off a standalone request.
func (s *service) ApproveBloggerRequest(ctx context.Context, actor identity.Identity, requestID uuid.UUID) (*ApproveRequestResult, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}

	request, err := s.users.FindBloggerRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load request")
	}
	if request.Approved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is already approved")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.promoter.PromoteToBloggerTx(ctx, tx, request.UserID); err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
		if err := s.users.ApproveRequestTx(ctx, tx, request.ID); err != nil {
			return fmt.Errorf("approve request: %w", err)
		}
		notification := &models.Notification{
			UserID:  request.UserID,
			Message: "Your blogger request has been approved.",
		}
		if err := s.notifications.CreateTx(ctx, tx, notification); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve blogger request")
	}

	return &ApproveRequestResult{
		RequestID: request.ID,
		UserID:    request.UserID,
	}, nil
}

// notifyAuthor emails the post author. Lookup and delivery problems are
// collected and logged together; the caller still gets a result to report.
func (s *service) notifyAuthor(ctx context.Context, authorID uuid.UUID, title string) *mail.NotificationResult {
	var sideEffects error

	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		sideEffects = multierr.Append(sideEffects, fmt.Errorf("load author: %w", err))
	}

	var result mail.NotificationResult
	if author != nil {
		result = s.mailer.Send(ctx, mail.Message{
			Kind:     "post_published",
			To:       author.Email,
			ToName:   author.FirstName + " " + author.LastName,
			Subject:  "Your post has been published",
			PlainTxt: fmt.Sprintf("Good news! Your post %q is now live.", title),
			HTML:     fmt.Sprintf("<p>Good news! Your post <strong>%s</strong> is now live.</p>", title),
		})
		if result.Err != nil {
			sideEffects = multierr.Append(sideEffects, result.Err)
		}
	}

	if sideEffects != nil && s.logg != nil {
		lctx := s.logg.WithUserID(ctx, authorID.String())
		s.logg.Error(lctx, "post approval side effects failed", sideEffects)
	}
	return &result
}
