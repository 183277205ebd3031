package models

import "github.com/golang-jwt/jwt/v5"

const (
	RoleUser  = "user"
	RoleStaff = "staff"

	TokenTypeAccess        = "access"
	TokenTypeRefresh       = "refresh"
	TokenTypePasswordReset = "password_reset"
)

// CustomClaims represents the custom claims in our JWT tokens
type CustomClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	// Fingerprint binds a password reset token to the password hash it was issued against.
	Fingerprint string `json:"fp,omitempty"`
}

func (c *CustomClaims) IsStaff() bool {
	return c.Role == RoleStaff
}
