package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// AuthUser is the caller identity resolved from a bearer token
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// HasRole reports whether the user carries role.
func (u *AuthUser) HasRole(role string) bool {
	return u != nil && role != "" && u.Role == role
}

// AppMetadata is the provider-managed metadata block of a Supabase user
type AppMetadata struct {
	UserRole string `json:"user_role,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// TokenClaims are the claims of a Supabase access token.
// The role the service cares about lives in app_metadata.user_role,
// the top-level "role" claim is the Postgres role (authenticated, anon).
type TokenClaims struct {
	Email       string      `json:"email,omitempty"`
	Role        string      `json:"role,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

// User converts the claims to an AuthUser
func (c *TokenClaims) User() *AuthUser {
	return &AuthUser{
		ID:    c.Subject,
		Email: c.Email,
		Role:  c.AppMetadata.UserRole,
	}
}
