package authflowrepo

import (
	"errors"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface. Flows older
// than the TTL are treated as missing and pruned on write.
type InMemoryRepo struct {
	mu      sync.Mutex
	ttl     time.Duration
	nowFunc func() time.Time
	states  map[string]*FlowState
}

type InMemoryOption func(*InMemoryRepo)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) InMemoryOption {
	return func(r *InMemoryRepo) {
		r.nowFunc = now
	}
}

func WithTTL(ttl time.Duration) InMemoryOption {
	return func(r *InMemoryRepo) {
		r.ttl = ttl
	}
}

func NewInMemoryRepo(options ...InMemoryOption) *InMemoryRepo {
	r := &InMemoryRepo{
		ttl:     DefaultTTL,
		nowFunc: time.Now,
		states:  make(map[string]*FlowState),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *InMemoryRepo) Upsert(state string, flow *FlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	for key, existing := range r.states {
		if r.expired(existing, now) {
			delete(r.states, key)
		}
	}
	c := *flow
	r.states[state] = &c
	return nil
}

func (r *InMemoryRepo) Get(state string) (*FlowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flow, ok := r.states[state]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	if r.expired(flow, r.nowFunc()) {
		delete(r.states, state)
		return nil, autherrors.ErrNotFound
	}
	c := *flow
	return &c, nil
}

func (r *InMemoryRepo) Delete(state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

func (r *InMemoryRepo) expired(flow *FlowState, now time.Time) bool {
	return !now.Before(flow.CreatedAt.Add(r.ttl))
}
