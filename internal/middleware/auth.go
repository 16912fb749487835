package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	ActorIDKey   contextKey = "actor_id"
	ActorTypeKey contextKey = "actor_type"
)

// AdminType is the token "type" claim value that grants catalog and stock administration
const AdminType = "admin"

// AuthMiddleware validates HS256 bearer tokens issued by the authentication service
// and stores the "id" and "type" claims in the request context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}
			if !token.Valid {
				RespondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			// Tokens without a type are authenticated but never admin
			actorID := claimString(claims["id"])
			actorType := claimString(claims["type"])

			ctx := context.WithValue(r.Context(), ActorIDKey, actorID)
			ctx = context.WithValue(ctx, ActorTypeKey, actorType)

			logger.Debug("Token accepted",
				zap.String("actor_id", actorID),
				zap.String("type", actorType),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// claimString renders a claim as a string; numeric user ids are common
func claimString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.0f", val)
	default:
		return fmt.Sprint(val)
	}
}

// GetActorID extracts the authenticated caller's id from the request context
func GetActorID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ActorIDKey).(string)
	return id, ok
}

// GetActorType extracts the token type claim from the request context
func GetActorType(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(ActorTypeKey).(string)
	return t, ok
}
