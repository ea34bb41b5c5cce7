package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/verdanthq/verdant-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Roles         []string   `json:"roles"`
	EmailVerified bool       `json:"email_verified"`
	IsActive      bool       `json:"is_active"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ProfileDTO bundles the user with their optional profile records.
type ProfileDTO struct {
	User     UserDTO             `json:"user"`
	Customer *CustomerProfileDTO `json:"customer,omitempty"`
	Blogger  *BloggerProfileDTO  `json:"blogger,omitempty"`
}

// CustomerProfileDTO is the transport shape of a customer profile.
type CustomerProfileDTO struct {
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Approved bool   `json:"approved"`
}

// BloggerProfileDTO is the transport shape of a blogger profile.
type BloggerProfileDTO struct {
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// BloggerRequestDTO is the transport shape of a pending role request.
type BloggerRequestDTO struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	PostID      *uuid.UUID `json:"post_id,omitempty"`
	Reason      string     `json:"reason"`
	Approved    bool       `json:"approved"`
	RequestedAt time.Time  `json:"requested_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Roles:         u.Roles.Names(),
		EmailVerified: u.EmailVerified,
		IsActive:      u.IsActive,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func requestFromModel(r *models.BloggerRequest) BloggerRequestDTO {
	return BloggerRequestDTO{
		ID:          r.ID,
		UserID:      r.UserID,
		PostID:      r.PostID,
		Reason:      r.Reason,
		Approved:    r.Approved,
		RequestedAt: r.RequestedAt,
	}
}
