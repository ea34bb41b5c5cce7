package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"gorm.io/gorm"
)

// Service exposes booking reads and the status state machine.
type Service interface {
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.Booking, error)
	ListPending(ctx context.Context) ([]models.Booking, error)
	SetStatus(ctx context.Context, actor identity.Identity, bookingID uuid.UUID, status enums.BookingStatus) (*models.Booking, error)
	Cancel(ctx context.Context, actor identity.Identity, bookingID uuid.UUID) (*models.Booking, error)
}

type service struct {
	repo BookingRepository
}

// NewService wires the bookings service.
func NewService(repo BookingRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bookings")
	}
	return rows, nil
}

func (s *service) ListPending(ctx context.Context) ([]models.Booking, error) {
	rows, err := s.repo.ListByStatus(ctx, enums.BookingStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending bookings")
	}
	return rows, nil
}

// SetStatus moves a booking through the state machine. Only staff may
// approve or reject; owners go through Cancel instead.
func (s *service) SetStatus(ctx context.Context, actor identity.Identity, bookingID uuid.UUID, status enums.BookingStatus) (*models.Booking, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid booking status")
	}
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	return s.transition(ctx, bookingID, status)
}

// Cancel lets the booking owner withdraw a pending booking. Staff may cancel
// any booking.
func (s *service) Cancel(ctx context.Context, actor identity.Identity, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		if !actor.IsAuthenticated() || booking.UserID == nil || *booking.UserID != *actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another user")
		}
	}
	return s.apply(ctx, booking, enums.BookingStatusCancelled)
}

func (s *service) transition(ctx context.Context, bookingID uuid.UUID, status enums.BookingStatus) (*models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, booking, status)
}

func (s *service) apply(ctx context.Context, booking *models.Booking, status enums.BookingStatus) (*models.Booking, error) {
	if !booking.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking status transition disallowed").
			WithDetails(map[string]string{
				"from": string(booking.Status),
				"to":   string(status),
			})
	}
	booking.Status = status
	if _, err := s.repo.Update(ctx, booking); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update booking")
	}
	return booking, nil
}

func (s *service) load(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
	}
	return booking, nil
}
