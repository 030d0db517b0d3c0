package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var loginRule = ratelimit.Rule{Name: ratelimit.GroupLogin, Limit: 2, Window: time.Second}

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NewMemory()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	for want := 1; want >= 0; want-- {
		decision, err := limiter.Allow(ctx, loginRule, "ip", now)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.Equal(t, want, decision.Remaining)
		require.Zero(t, decision.RetryAfter)
	}

	decision, err := limiter.Allow(ctx, loginRule, "ip", now.Add(250*time.Millisecond))
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Zero(t, decision.Remaining)
	require.Equal(t, 750*time.Millisecond, decision.RetryAfter)

	t.Run("keys are counted separately", func(t *testing.T) {
		decision, err := limiter.Allow(ctx, loginRule, "other", now)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("rules are counted separately", func(t *testing.T) {
		signup := ratelimit.Rule{Name: ratelimit.GroupSignup, Limit: 1, Window: time.Second}
		decision, err := limiter.Allow(ctx, signup, "ip", now)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.Zero(t, decision.Remaining)
	})

	t.Run("window reset", func(t *testing.T) {
		decision, err := limiter.Allow(ctx, loginRule, "ip", now.Add(time.Second))
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.Equal(t, 1, decision.Remaining)
	})
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NewMemory()
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	_, err := limiter.Allow(ctx, loginRule, "1.1.1.1", now)
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, loginRule, "2.2.2.2", now.Add(2*time.Second))
	require.NoError(t, err)
	require.Equal(t, 2, limiter.Len(), "finished windows wait for the next sweep")

	_, err = limiter.Allow(ctx, loginRule, "3.3.3.3", now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, limiter.Len())
}

func TestRedisLimiter(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	ctx := context.Background()
	limiter := ratelimit.NewRedis(client, "test:")
	rule := ratelimit.Rule{Name: ratelimit.GroupLogin, Limit: 2, Window: 500 * time.Millisecond}

	for want := 1; want >= 0; want-- {
		decision, err := limiter.Allow(ctx, rule, "ip", time.Now())
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.Equal(t, want, decision.Remaining)
	}
	require.True(t, s.Exists("test:login:ip"))

	decision, err := limiter.Allow(ctx, rule, "ip", time.Now())
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Greater(t, decision.RetryAfter, time.Duration(0))

	s.FastForward(600 * time.Millisecond)
	decision, err = limiter.Allow(ctx, rule, "ip", time.Now())
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	t.Run("invalid window", func(t *testing.T) {
		_, err := limiter.Allow(ctx, ratelimit.Rule{Name: "zero", Limit: 1}, "ip", time.Now())
		require.Error(t, err)
	})
}

func TestRuleFor(t *testing.T) {
	c, err := config.LoadFrom(map[string]string{
		"AUTH_RATE_LIMIT_REQUESTS":       "7",
		"AUTH_RATE_LIMIT_WINDOW_SECONDS": "30",
		"AUTH_RATE_LIMIT_GROUP_REQUESTS": "login:3",
	})
	require.NoError(t, err)

	require.Equal(t, ratelimit.Rule{Name: "login", Limit: 3, Window: 30 * time.Second}, ratelimit.RuleFor(c, ratelimit.GroupLogin))
	require.Equal(t, ratelimit.Rule{Name: "signup", Limit: 7, Window: 30 * time.Second}, ratelimit.RuleFor(c, ratelimit.GroupSignup))
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("memory when no address", func(t *testing.T) {
		limiter, closeFn := ratelimit.Build(ctx, "", zerolog.Nop())
		defer closeFn()
		_, ok := limiter.(*ratelimit.MemoryLimiter)
		require.True(t, ok)
	})

	t.Run("redis when reachable", func(t *testing.T) {
		s := miniredis.RunT(t)
		limiter, closeFn := ratelimit.Build(ctx, s.Addr(), zerolog.Nop())
		defer closeFn()
		_, ok := limiter.(*ratelimit.RedisLimiter)
		require.True(t, ok)
	})

	t.Run("memory when unreachable", func(t *testing.T) {
		s := miniredis.RunT(t)
		addr := s.Addr()
		s.Close()

		limiter, closeFn := ratelimit.Build(ctx, addr, zerolog.Nop())
		defer closeFn()
		_, ok := limiter.(*ratelimit.MemoryLimiter)
		require.True(t, ok)
	})
}
