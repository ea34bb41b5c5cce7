package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"gorm.io/gorm"
)

// CatalogService is a bookable lawn-care service with per-size pricing.
// A missing price means the size is not offered.
type CatalogService struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Description string           `gorm:"column:description;not null;default:''"`
	SmallPrice  *decimal.Decimal `gorm:"column:small_price;type:numeric(7,2)"`
	MediumPrice *decimal.Decimal `gorm:"column:medium_price;type:numeric(7,2)"`
	LargePrice  *decimal.Decimal `gorm:"column:large_price;type:numeric(7,2)"`
	ImageURL    *string          `gorm:"column:image_url"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *CatalogService) TableName() string {
	return "services"
}

func (s *CatalogService) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PriceFor returns the price of the requested size, reporting whether the
// size is offered at all.
func (s *CatalogService) PriceFor(size enums.ServiceSize) (decimal.Decimal, bool) {
	var price *decimal.Decimal
	switch size {
	case enums.ServiceSizeSmall:
		price = s.SmallPrice
	case enums.ServiceSizeMedium:
		price = s.MediumPrice
	case enums.ServiceSizeLarge:
		price = s.LargePrice
	}
	if price == nil {
		return decimal.Zero, false
	}
	return *price, true
}
