package middleware

import (
	"mime"
	"net/http"
	"strings"

	"sports-spaces-backend/pkg/utils"
)

// RequireContentType rejects write requests whose media type is not one of allowed
func RequireContentType(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				utils.WriteBadRequestResponse(w, "Content-Type header is required")
				return
			}
			mediaType, _, err := mime.ParseMediaType(contentType)
			if err != nil {
				utils.WriteBadRequestResponse(w, "Malformed Content-Type header")
				return
			}
			for _, a := range allowed {
				if strings.EqualFold(mediaType, a) {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteErrorResponseWithCode(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
				"Content-Type must be one of: "+strings.Join(allowed, ", "), "")
		})
	}
}

// MaxBodySize caps the request body
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
