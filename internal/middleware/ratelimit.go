package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"stock-pos/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds fixed-window rate limiting settings
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

// RateLimitMiddleware counts requests per client in Redis and answers 429 once
// a client exceeds RequestsPerWindow within Window. Redis failures let the request through.
func RateLimitMiddleware(redisClient redis.Cmdable, config RateLimitConfig, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := logger.FromContext(r.Context(), log)
			key := fmt.Sprintf("%s:%s", config.KeyPrefix, clientKey(r))

			var incr *redis.IntCmd
			_, err := redisClient.TxPipelined(r.Context(), func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(r.Context(), key)
				pipe.ExpireNX(r.Context(), key, config.Window)
				return nil
			})
			if err != nil {
				reqLogger.Error("Failed to increment rate limit counter",
					zap.Error(err),
					zap.String("key", key),
				)
				next.ServeHTTP(w, r)
				return
			}
			count := incr.Val()

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))

			if count > int64(config.RequestsPerWindow) {
				ttl, err := redisClient.TTL(r.Context(), key).Result()
				if err != nil || ttl < 0 {
					ttl = config.Window
				}

				reqLogger.Warn("Rate limit exceeded",
					zap.String("key", key),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(config.RequestsPerWindow-int(count)))
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller: the token id when authenticated, otherwise the remote host
func clientKey(r *http.Request) string {
	if id, ok := GetActorID(r.Context()); ok && id != "" {
		return "actor:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
