package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"gigboard_backend/internal/logger"
	"gigboard_backend/pkg/apperrors"
)

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter - фиксированное окно на INCR+PEXPIRE. При недоступном
// Redis запросы пропускаются.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(rateLimitScript),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if l == nil || l.client == nil {
		return true
	}
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{key}, ttl, limit).Int64()
	if err != nil {
		logger.CtxWarn(ctx, "rate limiter unavailable", "error", err.Error())
		return true
	}
	return allowed == 1
}

var errTooManyRequests = apperrors.New(apperrors.CodeLimitExceeded, "request", "Too many requests", 429)

// RateLimitPerUser ограничивает число запросов пользователя в окне.
// Ставится после AuthMiddleware.
func RateLimitPerUser(limiter *RedisLimiter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			c.Next()
			return
		}
		if !limiter.Allow(c.Request.Context(), "ratelimit:"+scope+":"+userID, limit, window) {
			abortWith(c, errTooManyRequests)
			return
		}
		c.Next()
	}
}
