package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"gorm.io/gorm"
)

// Booking is a confirmed cart line awaiting operator review. The user and
// service references survive deletion of either side so history is kept.
type Booking struct {
	ID        uuid.UUID           `gorm:"type:uuid;primaryKey"`
	UserID    *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	ServiceID *uuid.UUID          `gorm:"column:service_id;type:uuid"`
	Service   *CatalogService     `gorm:"foreignKey:ServiceID"`
	Size      enums.ServiceSize   `gorm:"column:size;type:varchar(10);not null;default:'small'"`
	Quantity  int                 `gorm:"column:quantity;not null;default:1"`
	Date      time.Time           `gorm:"column:date;type:date;not null"`
	Status    enums.BookingStatus `gorm:"column:status;type:varchar(10);not null;default:'pending'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
