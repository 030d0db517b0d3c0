package ratelimit

import (
	"context"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Route groups with their own budgets. Overrides are keyed by these names.
const (
	GroupSignup        = "signup"
	GroupLogin         = "login"
	GroupVerify        = "verify"
	GroupPasswordReset = "password_reset"
)

// Rule is the request budget of one route group: Limit requests per Window for each client.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// RuleFor builds the rule for a route group from the default budget and its override.
func RuleFor(c config.RateLimitConfig, group string) Rule {
	return Rule{
		Name:   group,
		Limit:  c.GetRateLimitRequestsFor(group),
		Window: c.GetRateLimitWindow(),
	}
}

// Decision is the outcome of one counted request.
type Decision struct {
	Allowed    bool
	Remaining  int           // requests left in the current window
	RetryAfter time.Duration // time until the window resets, set when not allowed
}

// Limiter counts requests per rule and client key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, rule Rule, key string, now time.Time) (Decision, error)
}

const pingTimeout = 2 * time.Second

// Build returns a redis backed limiter when redisAddr is set and reachable, and an in-memory
// limiter otherwise. The returned close function releases the redis client, if any.
func Build(ctx context.Context, redisAddr string, logger zerolog.Logger) (Limiter, func() error) {
	noop := func() error { return nil }
	if redisAddr == "" {
		return NewMemory(), noop
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", redisAddr).Msg("rate limit redis unavailable, using in-memory counters")
		_ = client.Close()
		return NewMemory(), noop
	}
	return NewRedis(client, ""), client.Close
}

func remaining(rule Rule, count int) int {
	return max(rule.Limit-count, 0)
}
