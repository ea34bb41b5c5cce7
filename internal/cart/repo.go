package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository is the GORM-backed cart line store.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) LineRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new cart line.
func (r *Repository) Create(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// Update saves the provided cart line.
func (r *Repository) Update(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	if err := r.db.WithContext(ctx).Save(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// Delete removes the cart line by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CartLine{}).Error
}

// FindByID loads one cart line with its service.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("id = ?", id).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ListForUser returns the user's cart lines oldest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	var rows []models.CartLine
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("user_id = ?", userID).
		Order("added_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListForTokens returns cart lines owned by any of the anonymous tokens.
func (r *Repository) ListForTokens(ctx context.Context, tokens []string) ([]models.CartLine, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	var rows []models.CartLine
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("session_token IN ?", tokens).
		Order("added_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindUserLine locates the user's line matching (service, size, date), if any.
func (r *Repository) FindUserLine(ctx context.Context, userID, serviceID uuid.UUID, size enums.ServiceSize, date *time.Time) (*models.CartLine, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND service_id = ? AND size = ?", userID, serviceID, size)
	return firstLine(applyDate(query, date))
}

// FindTokenLine locates the guest line matching (service, size, date), if any.
func (r *Repository) FindTokenLine(ctx context.Context, token string, serviceID uuid.UUID, size enums.ServiceSize, date *time.Time) (*models.CartLine, error) {
	query := r.db.WithContext(ctx).
		Where("session_token = ? AND service_id = ? AND size = ?", token, serviceID, size)
	return firstLine(applyDate(query, date))
}

// DeleteForUser removes every cart line owned by the user.
func (r *Repository) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartLine{}).Error
}

func applyDate(query *gorm.DB, date *time.Time) *gorm.DB {
	if date == nil {
		return query.Where("date IS NULL")
	}
	return query.Where("date = ?", *date)
}

func firstLine(query *gorm.DB) (*models.CartLine, error) {
	var line models.CartLine
	if err := query.First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}
