package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service exposes catalog reads used by the storefront and cart.
type Service interface {
	List(ctx context.Context) ([]models.CatalogService, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CatalogService, error)
	PriceFor(ctx context.Context, id uuid.UUID, size enums.ServiceSize) (*models.CatalogService, error)
}

type service struct {
	repo ServiceRepository
}

// NewService wires the catalog service.
func NewService(repo ServiceRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]models.CatalogService, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list services")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.CatalogService, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id is required")
	}
	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load service")
	}
	return svc, nil
}

// PriceFor loads the service and verifies it offers the requested size.
func (s *service) PriceFor(ctx context.Context, id uuid.UUID, size enums.ServiceSize) (*models.CatalogService, error) {
	if !size.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service size")
	}
	svc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, offered := svc.PriceFor(size); !offered {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size not offered for this service")
	}
	return svc, nil
}
