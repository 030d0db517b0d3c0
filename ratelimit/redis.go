package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "session-auth:rl:"

var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local current = redis.call("INCR", key)
if current == 1 then
  redis.call("PEXPIRE", key, window_ms)
end

local ttl = redis.call("PTTL", key)
if ttl < 0 then
  ttl = window_ms
end

if current > limit then
  return {0, current, ttl}
end
return {1, current, ttl}
`)

// RedisLimiter shares counters between instances through redis. Keys are
// prefix + rule name + ":" + client key.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedis(client redis.Scripter, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, rule Rule, key string, _ time.Time) (Decision, error) {
	windowMS := rule.Window.Milliseconds()
	if windowMS <= 0 {
		return Decision{}, errors.New("[RedisLimiter.Allow] invalid rate limit window")
	}

	redisKey := l.prefix + rule.Name + ":" + key
	res, err := rateLimitScript.Run(ctx, l.client, []string{redisKey}, rule.Limit, windowMS).Int64Slice()
	if err != nil {
		return Decision{}, errors.Wrap(err, "[RedisLimiter.Allow] script")
	}
	if len(res) != 3 {
		return Decision{}, errors.New("[RedisLimiter.Allow] unexpected redis response")
	}
	allowed, count, ttlMS := res[0], res[1], res[2]

	if allowed == 1 {
		return Decision{Allowed: true, Remaining: remaining(rule, int(count))}, nil
	}
	return Decision{RetryAfter: max(time.Duration(ttlMS)*time.Millisecond, 0)}, nil
}
