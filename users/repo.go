package users

// Repo stores users and profiles. It applies no policy; callers serialise compound updates.
type Repo interface {
	// Create stores a new user and its profile. Fails with ErrAlreadyExists on a duplicate email.
	Create(user *User, profile *Profile) error

	// GetByID retrieves a user by ID
	GetByID(id string) (*User, error)

	// GetByEmail retrieves a user by normalised email
	GetByEmail(email string) (*User, error)

	// GetByProviderKey retrieves the user linked to a "provider:subject" key
	GetByProviderKey(key string) (*User, error)

	// LinkProvider maps a "provider:subject" key to a user
	LinkProvider(key, userID string) error

	// Update replaces a stored user
	Update(user *User) error

	// Delete removes a user, its profile and its provider links
	Delete(id string) error

	// GetProfile retrieves the profile for a user
	GetProfile(userID string) (*Profile, error)

	// UpdateProfile replaces a stored profile
	UpdateProfile(profile *Profile) error
}
