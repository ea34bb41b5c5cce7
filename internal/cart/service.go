package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/identity"
	"github.com/verdanthq/verdant-backend/pkg/logger"
	"github.com/verdanthq/verdant-backend/pkg/metrics"
	"github.com/verdanthq/verdant-backend/pkg/types"
	"gorm.io/gorm"
)

const maxLineQuantity = 99

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type serviceLoader interface {
	PriceFor(ctx context.Context, id uuid.UUID, size enums.ServiceSize) (*models.CatalogService, error)
}

type bookingWriter interface {
	CreateAllTx(ctx context.Context, tx *gorm.DB, rows []models.Booking) error
}

// AddLineInput is the payload for adding a service to the cart.
type AddLineInput struct {
	ServiceID uuid.UUID
	Size      enums.ServiceSize
	Quantity  int
	Date      *time.Time
}

// ReconcileResult reports what happened to guest lines at sign-in.
type ReconcileResult struct {
	Merged     int
	Reparented int
}

// Service exposes cart operations for both guests and signed-in users.
type Service interface {
	AddLine(ctx context.Context, actor identity.Identity, input AddLineInput) (*models.CartLine, error)
	Summary(ctx context.Context, actor identity.Identity) (*types.CartSummary, error)
	UpdateQuantity(ctx context.Context, actor identity.Identity, lineID uuid.UUID, quantity int) (*models.CartLine, error)
	RemoveLine(ctx context.Context, actor identity.Identity, lineID uuid.UUID) error
	Reconcile(ctx context.Context, userID uuid.UUID, tokens []string) (ReconcileResult, error)
	Checkout(ctx context.Context, userID uuid.UUID) ([]models.Booking, error)
}

type service struct {
	repo     LineRepository
	tx       txRunner
	catalog  serviceLoader
	bookings bookingWriter
	metrics  *metrics.Metrics
	logg     *logger.Logger
}

// NewService builds the cart service backed by the provided stack.
func NewService(repo LineRepository, tx txRunner, catalog serviceLoader, bookings bookingWriter, m *metrics.Metrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if bookings == nil {
		return nil, fmt.Errorf("booking writer required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		catalog:  catalog,
		bookings: bookings,
		metrics:  m,
		logg:     logg,
	}, nil
}

// AddLine upserts a cart entry for the actor. An existing line with the same
// service, size and date absorbs the added quantity instead of duplicating.
func (s *service) AddLine(ctx context.Context, actor identity.Identity, input AddLineInput) (*models.CartLine, error) {
	if input.ServiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id is required")
	}
	if !input.Size.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid service size")
	}
	if input.Quantity <= 0 || input.Quantity > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}

	ownerToken, err := s.resolveOwner(actor)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.PriceFor(ctx, input.ServiceID, input.Size); err != nil {
		return nil, err
	}

	existing, err := s.findOwnedLine(ctx, actor, ownerToken, input)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup cart line")
	}
	if existing != nil {
		existing.Quantity += input.Quantity
		if existing.Quantity > maxLineQuantity {
			existing.Quantity = maxLineQuantity
		}
		if _, err := s.repo.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
		return existing, nil
	}

	line := &models.CartLine{
		ServiceID: input.ServiceID,
		Size:      input.Size,
		Quantity:  input.Quantity,
		Date:      input.Date,
	}
	if actor.IsAuthenticated() {
		line.UserID = actor.UserID
	} else {
		token := ownerToken
		line.SessionToken = &token
	}
	if _, err := s.repo.Create(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
	}
	return line, nil
}

// Summary returns the actor's cart as the {items, total, count} contract.
func (s *service) Summary(ctx context.Context, actor identity.Identity) (*types.CartSummary, error) {
	lines, err := s.linesFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	summary := &types.CartSummary{
		Items: make([]types.CartSummaryItem, 0, len(lines)),
		Total: decimal.Zero,
	}
	for i := range lines {
		line := &lines[i]
		price := decimal.Zero
		serviceName := ""
		var image *string
		if line.Service != nil {
			serviceName = line.Service.Name
			image = line.Service.ImageURL
			if p, offered := line.Service.PriceFor(line.Size); offered {
				price = p
			}
		}
		subtotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		summary.Items = append(summary.Items, types.CartSummaryItem{
			ID:       line.ID.String(),
			Service:  serviceName,
			Size:     string(line.Size),
			Quantity: line.Quantity,
			Price:    price,
			Subtotal: subtotal,
			Image:    image,
		})
		summary.Total = summary.Total.Add(subtotal)
	}
	// Count is the number of cart lines, not the quantity sum.
	summary.Count = len(summary.Items)
	return summary, nil
}

// UpdateQuantity changes the line quantity after an ownership check.
func (s *service) UpdateQuantity(ctx context.Context, actor identity.Identity, lineID uuid.UUID, quantity int) (*models.CartLine, error) {
	if quantity <= 0 || quantity > maxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity out of range")
	}
	line, err := s.ownedLine(ctx, actor, lineID)
	if err != nil {
		return nil, err
	}
	line.Quantity = quantity
	if _, err := s.repo.Update(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	return line, nil
}

// RemoveLine deletes the line after an ownership check.
func (s *service) RemoveLine(ctx context.Context, actor identity.Identity, lineID uuid.UUID) error {
	line, err := s.ownedLine(ctx, actor, lineID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, line.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
	}
	return nil
}

// Reconcile folds guest cart lines into the signing-in user's cart in a
// single transaction. Lines matching an existing user line on (service, size,
// date) add their quantity and disappear; the rest are re-parented onto the
// user with their token cleared. Quantities are never lost.
func (s *service) Reconcile(ctx context.Context, userID uuid.UUID, tokens []string) (ReconcileResult, error) {
	var result ReconcileResult
	if userID == uuid.Nil {
		return result, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(tokens) == 0 {
		return result, nil
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guestLines, err := repo.ListForTokens(ctx, tokens)
		if err != nil {
			return err
		}

		for i := range guestLines {
			guest := &guestLines[i]

			existing, err := repo.FindUserLine(ctx, userID, guest.ServiceID, guest.Size, guest.Date)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			if existing != nil {
				existing.Quantity += guest.Quantity
				if _, err := repo.Update(ctx, existing); err != nil {
					return err
				}
				if err := repo.Delete(ctx, guest.ID); err != nil {
					return err
				}
				result.Merged++
				continue
			}

			guest.UserID = &userID
			guest.SessionToken = nil
			if _, err := repo.Update(ctx, guest); err != nil {
				return err
			}
			result.Reparented++
		}
		return nil
	})
	if err != nil {
		s.metrics.IncReconcileFailure()
		return ReconcileResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reconcile cart")
	}

	s.metrics.AddReconcileMerged(result.Merged)
	s.metrics.AddReconcileReparented(result.Reparented)
	if s.logg != nil && (result.Merged > 0 || result.Reparented > 0) {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"user_id":    userID.String(),
			"merged":     result.Merged,
			"reparented": result.Reparented,
		})
		s.logg.Info(ctx, "guest cart reconciled")
	}
	return result, nil
}

// Checkout converts the user's cart lines into pending bookings and clears
// the cart atomically. Every line needs a scheduled date.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	lines, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	rows := make([]models.Booking, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		if line.Date == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "every cart line needs a scheduled date").
				WithDetails(map[string]string{"line_id": line.ID.String()})
		}
		serviceID := line.ServiceID
		rows = append(rows, models.Booking{
			UserID:    &userID,
			ServiceID: &serviceID,
			Size:      line.Size,
			Quantity:  line.Quantity,
			Date:      *line.Date,
			Status:    enums.BookingStatusPending,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.bookings.CreateAllTx(ctx, tx, rows); err != nil {
			return err
		}
		return s.repo.WithTx(tx).DeleteForUser(ctx, userID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout cart")
	}
	return rows, nil
}

func (s *service) resolveOwner(actor identity.Identity) (string, error) {
	if actor.IsAuthenticated() {
		return "", nil
	}
	tokens := actor.CandidateTokens()
	if len(tokens) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "guest token required")
	}
	return tokens[0], nil
}

func (s *service) findOwnedLine(ctx context.Context, actor identity.Identity, ownerToken string, input AddLineInput) (*models.CartLine, error) {
	if actor.IsAuthenticated() {
		return s.repo.FindUserLine(ctx, *actor.UserID, input.ServiceID, input.Size, input.Date)
	}
	return s.repo.FindTokenLine(ctx, ownerToken, input.ServiceID, input.Size, input.Date)
}

func (s *service) linesFor(ctx context.Context, actor identity.Identity) ([]models.CartLine, error) {
	if actor.IsAuthenticated() {
		lines, err := s.repo.ListForUser(ctx, *actor.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
		}
		return lines, nil
	}
	tokens := actor.CandidateTokens()
	if len(tokens) == 0 {
		return nil, nil
	}
	lines, err := s.repo.ListForTokens(ctx, tokens)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
	}
	return lines, nil
}

// ownedLine loads the line and enforces that the actor may touch it. Staff
// bypass is intentionally absent here: carts are private.
func (s *service) ownedLine(ctx context.Context, actor identity.Identity, lineID uuid.UUID) (*models.CartLine, error) {
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
	}
	line, err := s.repo.FindByID(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}

	if actor.IsAuthenticated() {
		if line.OwnedByUser(*actor.UserID) {
			return line, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart line belongs to another user")
	}
	if line.SessionToken != nil && actor.MatchesToken(*line.SessionToken) {
		return line, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart line belongs to another session")
}
