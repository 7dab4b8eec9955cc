package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"sports-spaces-backend/pkg/database"
	"sports-spaces-backend/pkg/models"
	"sports-spaces-backend/pkg/utils"
)

// ContextKey keys request-scoped values
type ContextKey string

const (
	TokenContextKey ContextKey = "bearer_token"
	UserContextKey  ContextKey = "user"
)

// bearerToken returns the token of an "Authorization: Bearer <token>" header, or ""
func bearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

// BearerToken stores the caller's bearer token, if any, in the request context.
// It never rejects a request; what the token is worth is decided downstream.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			r = r.WithContext(context.WithValue(r.Context(), TokenContextKey, token))
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFromContext returns the token stored by BearerToken
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(TokenContextKey).(string)
	return token
}

// RequireRole lets a request through only when its token resolves to a user with role
func RequireRole(db database.DatabaseInterface, role string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromContext(r.Context())
			if token == "" {
				token = bearerToken(r)
			}
			if token == "" {
				utils.WriteUnauthorizedResponse(w, "Missing authorization header")
				return
			}

			user, err := db.GetUserByToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, database.ErrInvalidToken) {
					logger.Warn("token rejected", zap.String("path", r.URL.Path), zap.Error(err))
					utils.WriteUnauthorizedResponse(w, "Invalid token")
					return
				}
				logger.Error("token lookup failed", zap.Error(err))
				utils.WriteInternalServerErrorResponse(w, "Failed to verify token")
				return
			}
			if !user.HasRole(role) {
				logger.Warn("insufficient role", zap.String("user", user.ID), zap.String("role", user.Role))
				utils.WriteForbiddenResponse(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
		})
	}
}

// GetUserFromContext returns the user resolved by RequireRole
func GetUserFromContext(ctx context.Context) (*models.AuthUser, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.AuthUser)
	return user, ok
}
