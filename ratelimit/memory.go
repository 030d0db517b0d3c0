package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = time.Minute

// MemoryLimiter keeps fixed-window counters in process memory. Counters of every rule share
// one map, keyed by rule name and client key.
type MemoryLimiter struct {
	mu        sync.Mutex
	windows   map[windowKey]*window
	nextSweep time.Time
}

type windowKey struct {
	rule   string
	client string
}

type window struct {
	count   int
	resetAt time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{windows: map[windowKey]*window{}}
}

func (l *MemoryLimiter) Allow(_ context.Context, rule Rule, key string, now time.Time) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	k := windowKey{rule: rule.Name, client: key}
	w, ok := l.windows[k]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rule.Window)}
		l.windows[k] = w
	}
	if w.count >= rule.Limit {
		return Decision{RetryAfter: w.resetAt.Sub(now)}, nil
	}
	w.count++
	return Decision{Allowed: true, Remaining: remaining(rule, w.count)}, nil
}

// sweep drops finished windows at most once per sweepInterval. Callers hold mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
	l.nextSweep = now.Add(sweepInterval)
}

// Len is the number of live counters.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
