package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is attached to a post by either a registered author (AuthorID set)
// or an anonymous visitor identified by SessionToken. Ownership never changes
// after creation; the token only grants edit/delete rights to the original
// guest browser.
type Comment struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PostID       uuid.UUID  `gorm:"column:post_id;type:uuid;not null;index"`
	AuthorID     *uuid.UUID `gorm:"column:author_id;type:uuid;index"`
	Name         string     `gorm:"column:name;not null;default:''"`
	Email        *string    `gorm:"column:email"`
	Content      string     `gorm:"column:content;not null"`
	Approved     bool       `gorm:"column:approved;not null;default:false"`
	SessionToken *string    `gorm:"column:session_token;type:varchar(64);index"`
	IPAddress    *string    `gorm:"column:ip_address"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsAnonymous reports whether the comment was left without an account.
func (c *Comment) IsAnonymous() bool {
	return c.AuthorID == nil
}
