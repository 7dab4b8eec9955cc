package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"sports-spaces-backend/pkg/config"
)

// RequestLogger writes one access log line per request.
// Production gets structured fields, development a coloured one-line summary.
func RequestLogger(cfg *config.Config, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			userInfo := "anonymous"
			if user, ok := GetUserFromContext(r.Context()); ok && user != nil {
				userInfo = user.ID
			}

			if cfg.IsProduction() {
				logProductionRequest(logger, r, ww, duration, userInfo)
			} else {
				logDevelopmentRequest(logger, r, ww, duration, userInfo)
			}
		})
	}
}

func logProductionRequest(logger *zap.Logger, r *http.Request, ww middleware.WrapResponseWriter, duration time.Duration, userInfo string) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", ww.Status()),
		zap.Int("bytes", ww.BytesWritten()),
		zap.Duration("duration", duration),
		zap.String("user", userInfo),
		zap.String("ip", getClientIP(r)),
		zap.String("user_agent", r.UserAgent()),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
	switch {
	case ww.Status() >= 500:
		logger.Error("request failed", fields...)
	case ww.Status() >= 400:
		logger.Warn("client error", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}

func logDevelopmentRequest(logger *zap.Logger, r *http.Request, ww middleware.WrapResponseWriter, duration time.Duration, userInfo string) {
	logger.Info(fmt.Sprintf("%s%s\033[0m \033[36m%s\033[0m %s%d\033[0m %s %s %s",
		getMethodColor(r.Method), r.Method,
		r.URL.Path,
		getStatusColor(ww.Status()), ww.Status(),
		duration,
		userInfo,
		getClientIP(r),
	))
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func getStatusColor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "\033[32m"
	case status >= 300 && status < 400:
		return "\033[33m"
	case status >= 400 && status < 500:
		return "\033[31m"
	case status >= 500:
		return "\033[35m"
	default:
		return "\033[0m"
	}
}

func getMethodColor(method string) string {
	switch method {
	case http.MethodGet:
		return "\033[34m"
	case http.MethodPost:
		return "\033[32m"
	case http.MethodPut:
		return "\033[33m"
	case http.MethodDelete:
		return "\033[31m"
	default:
		return "\033[0m"
	}
}
