package users

import (
	"sync"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	mu           sync.RWMutex
	users        map[string]*User
	profiles     map[string]*Profile
	emailIDs     map[string]string // email to user id
	providerKeys map[string]string // provider:subject to user id
}

// NewInMemoryRepo creates an empty user store
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		users:        make(map[string]*User),
		profiles:     make(map[string]*Profile),
		emailIDs:     make(map[string]string),
		providerKeys: make(map[string]string),
	}
}

func (r *InMemoryRepo) Create(user *User, profile *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.emailIDs[user.Email]; exists {
		return autherrors.Wrapf(autherrors.ErrAlreadyExists, "[InMemoryRepo.Create] email %s", user.Email)
	}
	if _, exists := r.users[user.ID]; exists {
		return autherrors.Wrapf(autherrors.ErrAlreadyExists, "[InMemoryRepo.Create] user %s", user.ID)
	}

	r.users[user.ID] = user.Clone()
	r.profiles[user.ID] = profile.Clone()
	r.emailIDs[user.Email] = user.ID
	return nil
}

func (r *InMemoryRepo) GetByID(id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return user.Clone(), nil
}

func (r *InMemoryRepo) GetByEmail(email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.emailIDs[email]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return r.users[id].Clone(), nil
}

func (r *InMemoryRepo) GetByProviderKey(key string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.providerKeys[key]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	user, ok := r.users[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return user.Clone(), nil
}

func (r *InMemoryRepo) LinkProvider(key, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return autherrors.ErrNotFound
	}
	if existing, ok := r.providerKeys[key]; ok && existing != userID {
		return autherrors.Wrapf(autherrors.ErrAlreadyExists, "[InMemoryRepo.LinkProvider] %s", key)
	}
	r.providerKeys[key] = userID
	return nil
}

func (r *InMemoryRepo) Update(user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return autherrors.ErrNotFound
	}
	if current.Email != user.Email {
		if owner, taken := r.emailIDs[user.Email]; taken && owner != user.ID {
			return autherrors.Wrapf(autherrors.ErrAlreadyExists, "[InMemoryRepo.Update] email %s", user.Email)
		}
		delete(r.emailIDs, current.Email)
		r.emailIDs[user.Email] = user.ID
	}
	r.users[user.ID] = user.Clone()
	return nil
}

func (r *InMemoryRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return autherrors.ErrNotFound
	}
	if r.emailIDs[user.Email] == id {
		delete(r.emailIDs, user.Email)
	}
	for key, owner := range r.providerKeys {
		if owner == id {
			delete(r.providerKeys, key)
		}
	}
	delete(r.profiles, id)
	delete(r.users, id)
	return nil
}

func (r *InMemoryRepo) GetProfile(userID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[userID]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return profile.Clone(), nil
}

func (r *InMemoryRepo) UpdateProfile(profile *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[profile.UserID]; !ok {
		return autherrors.ErrNotFound
	}
	r.profiles[profile.UserID] = profile.Clone()
	return nil
}
