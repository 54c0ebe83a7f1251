package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"groupbuy-coordinator/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// NewJoinRateLimit returns a per-user token bucket over redis for the join
// endpoint. With no redis client configured the middleware is a no-op; rate
// limiting is protection, not correctness; the CAS loop stays safe without it.
func NewJoinRateLimit(cfg config.RedisConfig, rdb *redis.Client) gin.HandlerFunc {
	if !cfg.Enabled || rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}

	limiterScript := redis.NewScript(`
        local key = KEYS[1]
        local now_ms = tonumber(ARGV[1])
        local capacity = tonumber(ARGV[2])
        local interval_ms = tonumber(ARGV[3])
        local ttl_seconds = tonumber(ARGV[4])

        local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
        local tokens = tonumber(state[1])
        local last_refill = tonumber(state[2])

        if tokens == nil or last_refill == nil then
            tokens = capacity
            last_refill = now_ms
        end

        if interval_ms > 0 then
            local elapsed = math.max(0, now_ms - last_refill)
            local intervals = math.floor(elapsed / interval_ms)
            if intervals > 0 then
                tokens = math.min(capacity, tokens + intervals)
                last_refill = last_refill + (intervals * interval_ms)
            end
        end

        local allowed = 0
        if tokens > 0 then
            allowed = 1
            tokens = tokens - 1
        end

        redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
        redis.call('EXPIRE', key, ttl_seconds)
        return allowed
    `)

	ttl := int64((time.Duration(cfg.JoinBurst) * cfg.JoinRefill / time.Second) + 60)

	return func(c *gin.Context) {
		userRef, ok := GetUserRef(c)
		if !ok {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:join:%s", userRef)
		allowed, err := limiterScript.Run(c.Request.Context(), rdb, []string{key},
			time.Now().UnixMilli(),
			cfg.JoinBurst,
			cfg.JoinRefill.Milliseconds(),
			ttl,
		).Int()
		if err != nil {
			// Degrade open: a broken limiter must not block joins.
			slog.Warn("join rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if allowed == 0 {
			c.Header("Retry-After", strconv.FormatInt(int64(cfg.JoinRefill/time.Second)+1, 10))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many join attempts, slow down",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
