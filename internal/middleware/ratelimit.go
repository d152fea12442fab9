package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/makeasinger/lyrics-api/internal/logger"
	"github.com/makeasinger/lyrics-api/pkg/response"
)

// incrWindow counts a hit and returns {count, ttl seconds}. The expiry is set
// in the same step, and a key left without one gets it back.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("TTL", KEYS[1])
if ttl < 0 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

type RateLimiter struct {
	redis *redis.Client
	log   zerolog.Logger
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis: redisClient,
		log:   logger.WithComponent("ratelimit"),
	}
}

// Limit creates a fixed-window rate limiting middleware keyed by client IP.
// Requests pass through when redis is unavailable.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	windowSecs := int(window.Seconds())
	if windowSecs < 1 {
		windowSecs = 1
	}

	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, c.IP())

		res, err := incrWindow.Run(c.UserContext(), rl.redis, []string{key}, windowSecs).Int64Slice()
		if err != nil || len(res) != 2 {
			rl.log.Warn().Err(err).Str("key", key).Msg("rate limit check skipped")
			return c.Next()
		}
		count, ttl := res[0], res[1]

		if count > int64(maxRequests) {
			if ttl <= 0 {
				ttl = int64(windowSecs)
			}
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", ttl))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// TranscribeLimit returns a rate limiter for the transcription endpoint
func (rl *RateLimiter) TranscribeLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("transcribe", maxPerMin, time.Minute)
}
