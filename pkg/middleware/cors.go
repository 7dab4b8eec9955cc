package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"sports-spaces-backend/pkg/config"
)

// CORS builds the go-chi/cors handler from the configured origins
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
		},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}

	// credentials cannot be combined with a wildcard origin
	if len(cfg.AllowedOrigins) == 0 || cfg.AllowedOrigins[0] == "*" || cfg.IsDevelopment() {
		corsOptions.AllowedOrigins = []string{"*"}
		corsOptions.AllowCredentials = false
	} else {
		corsOptions.AllowCredentials = true
	}

	return cors.Handler(corsOptions)
}
