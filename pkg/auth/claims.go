package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID string
	Role   enums.Role
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID string     `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the caller identity carried by the claims.
func (c *AccessTokenClaims) Principal() Principal {
	return Principal{UserID: c.UserID, Role: c.Role}
}
