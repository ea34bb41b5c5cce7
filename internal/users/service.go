package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"gorm.io/gorm"
)

// UpdateProfileInput carries editable customer profile fields.
type UpdateProfileInput struct {
	Phone   *string
	Address *string
}

// Service exposes profile and blogger-request operations.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
	RequestBloggerRole(ctx context.Context, userID uuid.UUID, reason string, postID *uuid.UUID) (*BloggerRequestDTO, error)
	ListPendingBloggerRequests(ctx context.Context) ([]BloggerRequestDTO, error)
	PromoteToBloggerTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type service struct {
	repo UserRepository
}

// NewService wires the users service.
func NewService(repo UserRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildProfile(ctx, user)
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.FindCustomerProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer profile")
		}
		profile = &models.CustomerProfile{UserID: userID}
		if err := s.repo.CreateCustomerProfileTx(ctx, nil, profile); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer profile")
		}
	}

	if input.Phone != nil {
		profile.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		profile.Address = strings.TrimSpace(*input.Address)
	}
	if err := s.repo.UpdateCustomerProfile(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update customer profile")
	}

	return s.buildProfile(ctx, user)
}

// RequestBloggerRole files a request to publish on the blog. Only approved
// customers may apply, and one open request per user is enough.
func (s *service) RequestBloggerRole(ctx context.Context, userID uuid.UUID, reason string, postID *uuid.UUID) (*BloggerRequestDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Roles.Has(enums.RoleBlogger) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already a blogger")
	}

	profile, err := s.repo.FindCustomerProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer profile required before applying")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer profile")
	}
	if !profile.Approved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer account is not approved yet")
	}

	pending, err := s.repo.HasPendingRequest(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check pending requests")
	}
	if pending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a blogger request is already pending")
	}

	req := &models.BloggerRequest{
		UserID: userID,
		PostID: postID,
		Reason: strings.TrimSpace(reason),
	}
	if err := s.repo.CreateBloggerRequest(ctx, req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create blogger request")
	}
	dto := requestFromModel(req)
	return &dto, nil
}

func (s *service) ListPendingBloggerRequests(ctx context.Context) ([]BloggerRequestDTO, error) {
	rows, err := s.repo.ListPendingRequests(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list blogger requests")
	}
	dtos := make([]BloggerRequestDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, requestFromModel(&rows[i]))
	}
	return dtos, nil
}

// PromoteToBloggerTx grants the blogger role and ensures a blogger profile
// exists, inside the caller's transaction. Admin approval flows use this.
func (s *service) PromoteToBloggerTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.repo.GrantRoleTx(ctx, tx, userID, enums.RoleBlogger); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "grant blogger role")
	}
	if err := s.repo.EnsureBloggerProfileTx(ctx, tx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure blogger profile")
	}
	return nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *service) buildProfile(ctx context.Context, user *models.User) (*ProfileDTO, error) {
	dto := &ProfileDTO{User: *FromModel(user)}

	customer, err := s.repo.FindCustomerProfile(ctx, user.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer profile")
	}
	if customer != nil {
		dto.Customer = &CustomerProfileDTO{
			Phone:    customer.Phone,
			Address:  customer.Address,
			Approved: customer.Approved,
		}
	}

	if user.Roles.Has(enums.RoleBlogger) {
		blogger, err := s.repo.FindBloggerProfile(ctx, user.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load blogger profile")
		}
		if blogger != nil {
			dto.Blogger = &BloggerProfileDTO{Bio: blogger.Bio}
			if blogger.AvatarURL != nil {
				dto.Blogger.AvatarURL = *blogger.AvatarURL
			}
		}
	}
	return dto, nil
}
