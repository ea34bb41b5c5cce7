package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/repo"
)

// ServiceRepository defines the persistence surface for the service catalog.
type ServiceRepository interface {
	List(ctx context.Context) ([]models.CatalogService, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CatalogService, error)
	Create(ctx context.Context, svc *models.CatalogService) (*models.CatalogService, error)
	Update(ctx context.Context, svc *models.CatalogService) (*models.CatalogService, error)
}

// Repository is the GORM-backed catalog repository.
type Repository struct {
	repo.Base
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// List returns all services ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.CatalogService, error) {
	var rows []models.CatalogService
	if err := r.DB(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a single service.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CatalogService, error) {
	var svc models.CatalogService
	if err := r.DB(ctx).Where("id = ?", id).First(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

// Create inserts a new catalog service.
func (r *Repository) Create(ctx context.Context, svc *models.CatalogService) (*models.CatalogService, error) {
	if err := r.DB(ctx).Create(svc).Error; err != nil {
		return nil, err
	}
	return svc, nil
}

// Update saves the provided service.
func (r *Repository) Update(ctx context.Context, svc *models.CatalogService) (*models.CatalogService, error) {
	if err := r.DB(ctx).Save(svc).Error; err != nil {
		return nil, err
	}
	return svc, nil
}
