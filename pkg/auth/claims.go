package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	Email         string
	EmailVerified bool
	Role          enums.Role
	JTI           string
}

// AccessTokenClaims is the typed JWT issued by the identity service.
type AccessTokenClaims struct {
	UserID        uuid.UUID  `json:"user_id"`
	Email         string     `json:"email,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	Role          enums.Role `json:"role"`
	jwt.RegisteredClaims
}
