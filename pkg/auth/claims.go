package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/verdanthq/verdant-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	Roles         enums.RoleSet
	EmailVerified bool
	JTI           string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID        uuid.UUID     `json:"user_id"`
	Roles         enums.RoleSet `json:"roles"`
	EmailVerified bool          `json:"email_verified"`
	jwt.RegisteredClaims
}
