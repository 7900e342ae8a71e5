package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares one fixed window across all API instances.
// Counter and expiry are set in a single script so two racing requests
// cannot both create an unexpiring key.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

var allowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window}
}

func (rl *RedisLimiter) Allow(c *gin.Context, key string) (bool, time.Duration) {
	result, err := allowScript.Run(c.Request.Context(), rl.rdb, []string{"ratelimit:" + key}, rl.window.Milliseconds()).Result()

	if err != nil {
		// fail open: a broken limiter should not take the API down
		return true, 0
	}

	values, ok := result.([]any)

	if !ok || len(values) < 2 {
		return true, 0
	}

	current, _ := values[0].(int64)
	ttlMillis, _ := values[1].(int64)

	if current <= int64(rl.limit) {
		return true, 0
	}

	retryAfter := time.Duration(ttlMillis) * time.Millisecond

	if retryAfter < 0 {
		retryAfter = 0
	}

	return false, retryAfter
}
