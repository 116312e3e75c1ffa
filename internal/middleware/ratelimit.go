package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/response"
)

// RateLimiter is a fixed-window per-IP limiter whose counters live in Redis,
// so every server process shares the same budget.
type RateLimiter struct {
	rdb      *redis.Client
	name     string
	limit    int64
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter (e.g., 10 requests per minute).
func NewRateLimiter(rdb *redis.Client, name string, limit int, interval time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:      rdb,
		name:     name,
		limit:    int64(limit),
		interval: interval,
		log:      log.With().Str("component", "rate_limiter").Str("limiter", name).Logger(),
		now:      time.Now,
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// When Redis is unavailable the request is let through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := rl.hit(c.Request.Context(), c.ClientIP())
		if err != nil {
			rl.log.Error().Err(err).Msg("Rate limit check failed")
			c.Next()
			return
		}

		if count > rl.limit {
			c.Header("Retry-After", rl.retryAfter())
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) window() int64 {
	return rl.now().UnixNano() / int64(rl.interval)
}

func (rl *RateLimiter) hit(ctx context.Context, ip string) (int64, error) {
	key := config.CacheKey.RateLimitKey(rl.name, ip, rl.window())

	pipe := rl.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, rl.interval)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (rl *RateLimiter) retryAfter() string {
	next := time.Unix(0, (rl.window()+1)*int64(rl.interval))
	secs := int(next.Sub(rl.now()).Seconds()) + 1
	return strconv.Itoa(secs)
}
