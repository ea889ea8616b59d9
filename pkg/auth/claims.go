package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Status enums.UserStatus
	Roles  []enums.SystemRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
//
// Status and roles are embedded so middleware can short-circuit obviously
// dead sessions, but the session loader remains the source of truth: a
// status change takes effect on the next snapshot refresh even if the
// token still carries the old value.
type AccessTokenClaims struct {
	UserID uuid.UUID          `json:"user_id"`
	Email  string             `json:"email"`
	Status enums.UserStatus   `json:"status"`
	Roles  []enums.SystemRole `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token carries the given system role.
func (c *AccessTokenClaims) HasRole(role enums.SystemRole) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
