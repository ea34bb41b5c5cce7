package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerProfile is created automatically alongside every user.
type CustomerProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Phone     string    `gorm:"column:phone;not null;default:''"`
	Address   string    `gorm:"column:address;not null;default:''"`
	Approved  bool      `gorm:"column:approved;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *CustomerProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BloggerProfile exists only for users holding the blogger role.
type BloggerProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Bio       string    `gorm:"column:bio;not null;default:''"`
	AvatarURL *string   `gorm:"column:avatar_url"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *BloggerProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BloggerRequest records a customer asking for publishing rights. Approval
// promotes the user and creates their blogger profile; a request may be tied
// to the draft post that prompted it.
type BloggerRequest struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	PostID      *uuid.UUID `gorm:"column:post_id;type:uuid;index"`
	Reason      string     `gorm:"column:reason;not null"`
	Approved    bool       `gorm:"column:approved;not null;default:false"`
	RequestedAt time.Time  `gorm:"column:requested_at;autoCreateTime"`
}

func (r *BloggerRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
