package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"gorm.io/gorm"
)

// User represents the canonical identity entity. Roles are a closed bitset;
// every registered user starts as a customer.
type User struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Email         string        `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash  string        `gorm:"column:password_hash;not null"`
	FirstName     string        `gorm:"column:first_name;not null"`
	LastName      string        `gorm:"column:last_name;not null"`
	Roles         enums.RoleSet `gorm:"column:roles;not null;default:1"`
	EmailVerified bool          `gorm:"column:email_verified;not null;default:false"`
	IsActive      bool          `gorm:"column:is_active;not null;default:true"`
	LastLoginAt   *time.Time    `gorm:"column:last_login_at"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsStaff reports whether the user carries the staff role.
func (u *User) IsStaff() bool {
	return u.Roles.Has(enums.RoleStaff)
}

// IsBlogger reports whether the user carries the blogger role.
func (u *User) IsBlogger() bool {
	return u.Roles.Has(enums.RoleBlogger)
}
