package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xpresstask/core/internal/infrastructure/logger"
)

const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

if rate <= 0 or burst <= 0 then
  return {1, burst}
end

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local delta = math.max(0, now - ts)
tokens = math.min(burst, tokens + (delta * rate) / 1000.0)

local allowed = tokens >= 1
if allowed then
  tokens = tokens - 1
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return {allowed and 1 or 0, tokens}
`

const defaultKeyPrefix = "xpresstask:ratelimit:"

// RedisStore is a token bucket per identifier kept in Redis, so every API
// instance shares one budget. It satisfies echo's RateLimiterStore.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	rate    float64
	burst   float64
	timeout time.Duration
	logger  *logger.Logger
	script  *redis.Script
	now     func() time.Time
}

// NewRedisStore creates a store refilling rate tokens per second up to burst.
func NewRedisStore(rdb *redis.Client, log *logger.Logger, rate, burst float64) *RedisStore {
	return &RedisStore{
		rdb:     rdb,
		prefix:  defaultKeyPrefix,
		rate:    rate,
		burst:   burst,
		timeout: 200 * time.Millisecond,
		logger:  log.WithComponent("ratelimit"),
		script:  redis.NewScript(tokenBucketLua),
		now:     time.Now,
	}
}

// Allow takes one token for identifier. Redis errors let the request through.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	allowed, err := s.take(ctx, s.prefix+identifier)
	if err != nil {
		s.logger.Warnw("Rate limiter unavailable, allowing request", "identifier", identifier, "error", err)
		return true, nil
	}
	return allowed, nil
}

func (s *RedisStore) take(ctx context.Context, key string) (bool, error) {
	res, err := s.script.Run(ctx, s.rdb, []string{key}, s.rate, s.burst, s.now().UnixMilli()).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit eval: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 1 {
		return false, fmt.Errorf("ratelimit invalid result")
	}

	return toInt64(values[0]) == 1, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
