package challenge

// Repo stores challenge records keyed by purpose and user.
type Repo interface {
	// Put stores a record, replacing any record for the same purpose and user
	Put(record *Record) error

	// Get retrieves the record for a purpose and user
	Get(purpose Purpose, userID string) (*Record, error)

	// Delete removes the record for a purpose and user
	Delete(purpose Purpose, userID string) error

	// DeleteUser removes every record held for a user
	DeleteUser(userID string) error
}
