package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"sports-spaces-backend/pkg/models"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or shape checks
var ErrInvalidToken = errors.New("invalid token")

// JWTService verifies Supabase-issued access tokens locally with the project's JWT secret
type JWTService struct {
	secretKey []byte
}

// NewJWTService creates a JWT service
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
	}
}

// Enabled reports whether a secret is configured
func (j *JWTService) Enabled() bool {
	return len(j.secretKey) > 0
}

// GenerateToken signs an access token in the Supabase claim layout.
// Used by local development tooling and tests.
func (j *JWTService) GenerateToken(userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Email:       email,
		Role:        "authenticated",
		AppMetadata: models.AppMetadata{UserRole: role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ParseSupabaseToken validates the token and returns the user it identifies
func (j *JWTService) ParseSupabaseToken(tokenString string) (*models.AuthUser, error) {
	if !j.Enabled() {
		return nil, fmt.Errorf("%w: no verification secret configured", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims.User(), nil
}
