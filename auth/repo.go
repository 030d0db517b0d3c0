package auth

import (
	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/jrsteele09/go-session-auth/users"
)

// Repos holds the stores the Service reads and writes. Token and session state is owned
// by the Service itself.
type Repos struct {
	Users      users.Repo     // Users and profiles
	Challenges challenge.Repo // Verification and password reset codes
}
