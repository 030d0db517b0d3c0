package challenge

import (
	"sync"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

type recordKey struct {
	purpose Purpose
	userID  string
}

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	mu      sync.RWMutex
	records map[recordKey]*Record
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		records: make(map[recordKey]*Record),
	}
}

func (r *InMemoryRepo) Put(record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[recordKey{record.Purpose, record.UserID}] = cloneRecord(record)
	return nil
}

func (r *InMemoryRepo) Get(purpose Purpose, userID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[recordKey{purpose, userID}]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (r *InMemoryRepo) Delete(purpose Purpose, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, recordKey{purpose, userID})
	return nil
}

func (r *InMemoryRepo) DeleteUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.records {
		if key.userID == userID {
			delete(r.records, key)
		}
	}
	return nil
}

func cloneRecord(record *Record) *Record {
	c := *record
	if record.ConsumedAt != nil {
		consumed := *record.ConsumedAt
		c.ConsumedAt = &consumed
	}
	return &c
}
