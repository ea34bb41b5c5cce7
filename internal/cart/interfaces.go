package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"gorm.io/gorm"
)

// LineRepository defines the persistence surface required by the cart service.
type LineRepository interface {
	WithTx(tx *gorm.DB) LineRepository
	Create(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	Update(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CartLine, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	ListForTokens(ctx context.Context, tokens []string) ([]models.CartLine, error)
	FindUserLine(ctx context.Context, userID, serviceID uuid.UUID, size enums.ServiceSize, date *time.Time) (*models.CartLine, error)
	FindTokenLine(ctx context.Context, token string, serviceID uuid.UUID, size enums.ServiceSize, date *time.Time) (*models.CartLine, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}
