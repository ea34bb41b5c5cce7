package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"gorm.io/gorm"
)

// CartLine is one cart entry owned by exactly one identity: either an
// authenticated user (UserID set) or an anonymous browser session
// (SessionToken set). Reconciliation at login clears the token and sets the
// user id; the two are never both set.
type CartLine struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserID       *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	SessionToken *string           `gorm:"column:session_token;type:varchar(64);index"`
	ServiceID    uuid.UUID         `gorm:"column:service_id;type:uuid;not null"`
	Service      *CatalogService   `gorm:"foreignKey:ServiceID"`
	Size         enums.ServiceSize `gorm:"column:size;type:varchar(10);not null;default:'small'"`
	Quantity     int               `gorm:"column:quantity;not null;default:1"`
	Date         *time.Time        `gorm:"column:date;type:date"`
	AddedAt      time.Time         `gorm:"column:added_at;autoCreateTime"`
}

func (l *CartLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// OwnedByUser reports whether the line belongs to the given user.
func (l *CartLine) OwnedByUser(userID uuid.UUID) bool {
	return l.UserID != nil && *l.UserID == userID
}

// OwnedBySession reports whether the line belongs to the given guest token.
func (l *CartLine) OwnedBySession(token string) bool {
	return l.SessionToken != nil && token != "" && *l.SessionToken == token
}
