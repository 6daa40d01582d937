package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents JWT payload claims issued by the identity service.
type JWTClaims struct {
	UserID string   `json:"uid"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller may act on behalf of other users.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
