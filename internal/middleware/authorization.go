package middleware

import (
	"net/http"

	"stock-pos/internal/logger"

	"go.uber.org/zap"
)

// RequireAdmin lets through only tokens whose type claim is "admin".
// Denials are logged once at warn level with the caller's id.
func RequireAdmin(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorType, ok := GetActorType(r.Context())
			if !ok || actorType != AdminType {
				actorID, _ := GetActorID(r.Context())
				logger.FromContext(r.Context(), log).Warn("Access denied: admin required",
					zap.String("user_id", actorID),
					zap.String("type", actorType),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "access denied: admin privileges required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
