package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/verdanthq/verdant-backend/internal/users"
	"github.com/verdanthq/verdant-backend/pkg/db"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/mail"
	"github.com/verdanthq/verdant-backend/pkg/security"
	"gorm.io/gorm"
)

const verificationMailKind = "email_verification"

// Register creates the user and their customer profile in one transaction,
// then issues a verification token and emails it. The email is best effort.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.users.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing email: %w", err)
		}

		user, err := s.users.CreateTx(ctx, tx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: hash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
			}
			return fmt.Errorf("create user: %w", err)
		}

		profile := &models.CustomerProfile{UserID: user.ID}
		if req.Phone != nil {
			profile.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Address != nil {
			profile.Address = strings.TrimSpace(*req.Address)
		}
		if err := s.users.CreateCustomerProfileTx(ctx, tx, profile); err != nil {
			return fmt.Errorf("create customer profile: %w", err)
		}

		created = user
		return nil
	})
	if err != nil {
		if e := pkgerrors.As(err); e != nil {
			return nil, e
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register user")
	}

	s.sendVerification(ctx, created)

	return &RegisterResponse{User: users.FromModel(created)}, nil
}

// ResendVerification issues a fresh token for an unverified account. The
// response is identical whether or not the email exists, so the endpoint
// cannot be used to probe for accounts.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if user.EmailVerified || !user.IsActive {
		return nil
	}
	s.sendVerification(ctx, user)
	return nil
}

// VerifyEmail redeems a verification token and marks the account verified.
func (s *service) VerifyEmail(ctx context.Context, token string) error {
	if s.verifier == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "email verification is not configured")
	}
	userID, err := s.verifier.Redeem(ctx, token)
	if err != nil {
		return err
	}
	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark email verified")
	}
	return nil
}

func (s *service) sendVerification(ctx context.Context, user *models.User) {
	if s.verifier == nil || s.mailer == nil || user == nil {
		return
	}
	token, err := s.verifier.Issue(ctx, user.ID)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "failed to issue verification token", err)
		}
		return
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	s.mailer.Send(ctx, mail.Message{
		Kind:     verificationMailKind,
		To:       user.Email,
		ToName:   name,
		Subject:  "Verify your email address",
		PlainTxt: fmt.Sprintf("Welcome! Confirm your email with this code: %s", token),
		HTML:     fmt.Sprintf("<p>Welcome! Confirm your email with this code:</p><p><strong>%s</strong></p>", token),
	})
}
