package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSMiddleware allows browser POS clients from allowedOrigins; development allows any origin
func CORSMiddleware(allowedOrigins []string, isDevelopment bool) func(http.Handler) http.Handler {
	if isDevelopment || len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		// Credentials cannot be combined with a wildcard origin
		AllowCredentials: len(allowedOrigins) != 1 || allowedOrigins[0] != "*",
		MaxAge:           300,
	})
}
