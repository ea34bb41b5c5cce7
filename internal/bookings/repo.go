package bookings

import (
	"context"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"gorm.io/gorm"
)

// BookingRepository defines the persistence surface required by the service.
type BookingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error)
	ListByStatus(ctx context.Context, status enums.BookingStatus) ([]models.Booking, error)
	Update(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	CountByStatus(ctx context.Context, status enums.BookingStatus) (int64, error)
}

// Repository is the GORM-backed booking store.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a booking repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateAllTx inserts bookings inside the caller's transaction. Checkout uses
// this so clearing the cart and creating bookings commit together.
func (r *Repository) CreateAllTx(ctx context.Context, tx *gorm.DB, rows []models.Booking) error {
	if len(rows) == 0 {
		return nil
	}
	conn := r.db
	if tx != nil {
		conn = tx
	}
	return conn.WithContext(ctx).Create(&rows).Error
}

// FindByID loads one booking with its service.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListForUser returns the user's bookings, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	var rows []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByStatus returns bookings in the given status, oldest first so
// operators work the queue in arrival order.
func (r *Repository) ListByStatus(ctx context.Context, status enums.BookingStatus) ([]models.Booking, error) {
	var rows []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Update saves the provided booking.
func (r *Repository) Update(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if err := r.db.WithContext(ctx).Save(booking).Error; err != nil {
		return nil, err
	}
	return booking, nil
}

// CountByStatus returns the number of bookings in the given status.
func (r *Repository) CountByStatus(ctx context.Context, status enums.BookingStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
