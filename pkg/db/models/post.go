package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"gorm.io/gorm"
)

// Post is a blog entry. Authors are soft references: deleting a user keeps
// their published posts.
type Post struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey"`
	AuthorID         *uuid.UUID       `gorm:"column:author_id;type:uuid;index"`
	Title            string           `gorm:"column:title;not null"`
	Content          string           `gorm:"column:content;not null"`
	Slug             string           `gorm:"column:slug;not null;uniqueIndex"`
	Excerpt          string           `gorm:"column:excerpt;not null;default:''"`
	FeaturedImageURL *string          `gorm:"column:featured_image_url"`
	Status           enums.PostStatus `gorm:"column:status;type:varchar(10);not null;default:'draft'"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
