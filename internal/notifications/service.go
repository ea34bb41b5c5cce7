package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/pagination"
	"gorm.io/gorm"
)

// NotificationDTO is the outward representation of a notification.
type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Page is one page of a user's notifications.
type Page struct {
	Notifications []NotificationDTO `json:"notifications"`
	Unread        int64             `json:"unread"`
	NextCursor    string            `json:"next_cursor,omitempty"`
}

// Service exposes the user-scoped notification operations.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo NotificationRepository
}

// NewService constructs the notification service.
func NewService(repo NotificationRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	return &service{repo: repo}, nil
}

// List returns one page of the user's notifications with the unread count.
func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, err := s.repo.ListForUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread")
	}

	page, next := pagination.TrimToPage(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	out := make([]NotificationDTO, 0, len(page))
	for i := range page {
		out = append(out, fromModel(&page[i]))
	}
	return &Page{Notifications: out, Unread: unread, NextCursor: next}, nil
}

// MarkRead stamps one notification. Users can only touch their own.
func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	n, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load notification")
	}
	if n.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	if n.ReadAt != nil {
		return nil
	}
	if err := s.repo.MarkRead(ctx, notificationID, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	return nil
}

// MarkAllRead stamps every unread notification the user has.
func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark all notifications read")
	}
	return nil
}

func fromModel(n *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Message:   n.Message,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
