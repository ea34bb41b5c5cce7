package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"gorm.io/gorm"
)

// UserRepository defines the persistence surface required by the service
// layer and by auth.
type UserRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, dto CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetEmailVerified(ctx context.Context, id uuid.UUID) error
	GrantRoleTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, role enums.RoleSet) error
	Count(ctx context.Context) (int64, error)

	CreateCustomerProfileTx(ctx context.Context, tx *gorm.DB, profile *models.CustomerProfile) error
	FindCustomerProfile(ctx context.Context, userID uuid.UUID) (*models.CustomerProfile, error)
	UpdateCustomerProfile(ctx context.Context, profile *models.CustomerProfile) error
	EnsureBloggerProfileTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	FindBloggerProfile(ctx context.Context, userID uuid.UUID) (*models.BloggerProfile, error)

	CreateBloggerRequest(ctx context.Context, req *models.BloggerRequest) error
	ListPendingRequests(ctx context.Context) ([]models.BloggerRequest, error)
	HasPendingRequest(ctx context.Context, userID uuid.UUID) (bool, error)
	FindBloggerRequest(ctx context.Context, id uuid.UUID) (*models.BloggerRequest, error)
	ApproveRequestTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	ApproveRequestsForPostTx(ctx context.Context, tx *gorm.DB, postID uuid.UUID) (int64, error)
}

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// CreateTx inserts a new user, optionally inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, dto CreateUserDTO) (*models.User, error) {
	user := &models.User{
		Email:        dto.Email,
		PasswordHash: dto.PasswordHash,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		Roles:        enums.RoleCustomer,
		IsActive:     true,
	}
	if err := r.conn(tx).WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// SetEmailVerified marks the user's address as verified.
func (r *Repository) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("email_verified", true).Error
}

// GrantRoleTx adds a role bit to the user's role set.
func (r *Repository) GrantRoleTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, role enums.RoleSet) error {
	var user models.User
	conn := r.conn(tx).WithContext(ctx)
	if err := conn.First(&user, "id = ?", id).Error; err != nil {
		return err
	}
	return conn.Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("roles", user.Roles.Grant(role)).Error
}

// Count returns the total number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// CreateCustomerProfileTx inserts a customer profile row.
func (r *Repository) CreateCustomerProfileTx(ctx context.Context, tx *gorm.DB, profile *models.CustomerProfile) error {
	return r.conn(tx).WithContext(ctx).Create(profile).Error
}

// FindCustomerProfile loads the customer profile for a user.
func (r *Repository) FindCustomerProfile(ctx context.Context, userID uuid.UUID) (*models.CustomerProfile, error) {
	var profile models.CustomerProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateCustomerProfile saves the provided profile.
func (r *Repository) UpdateCustomerProfile(ctx context.Context, profile *models.CustomerProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// EnsureBloggerProfileTx creates an empty blogger profile unless one exists.
func (r *Repository) EnsureBloggerProfileTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	conn := r.conn(tx).WithContext(ctx)
	var existing models.BloggerProfile
	err := conn.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return conn.Create(&models.BloggerProfile{UserID: userID}).Error
}

// FindBloggerProfile loads the blogger profile for a user.
func (r *Repository) FindBloggerProfile(ctx context.Context, userID uuid.UUID) (*models.BloggerProfile, error) {
	var profile models.BloggerProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateBloggerRequest inserts a role request.
func (r *Repository) CreateBloggerRequest(ctx context.Context, req *models.BloggerRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// ListPendingRequests returns unapproved requests oldest first.
func (r *Repository) ListPendingRequests(ctx context.Context) ([]models.BloggerRequest, error) {
	var rows []models.BloggerRequest
	err := r.db.WithContext(ctx).
		Where("approved = ?", false).
		Order("requested_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// HasPendingRequest reports whether the user already has an open request.
func (r *Repository) HasPendingRequest(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BloggerRequest{}).
		Where("user_id = ? AND approved = ?", userID, false).
		Count(&count).Error
	return count > 0, err
}

// FindBloggerRequest loads one role request by id.
func (r *Repository) FindBloggerRequest(ctx context.Context, id uuid.UUID) (*models.BloggerRequest, error) {
	var req models.BloggerRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ApproveRequestTx marks a single request as approved inside the caller's
// transaction.
func (r *Repository) ApproveRequestTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Model(&models.BloggerRequest{}).
		Where("id = ?", id).
		UpdateColumn("approved", true).Error
}

// ApproveRequestsForPostTx marks requests tied to the post as approved.
func (r *Repository) ApproveRequestsForPostTx(ctx context.Context, tx *gorm.DB, postID uuid.UUID) (int64, error) {
	result := r.conn(tx).WithContext(ctx).
		Model(&models.BloggerRequest{}).
		Where("post_id = ? AND approved = ?", postID, false).
		UpdateColumn("approved", true)
	return result.RowsAffected, result.Error
}
