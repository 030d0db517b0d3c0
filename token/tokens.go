package token

import "time"

// RefreshStatus is the lifecycle state of a refresh token. Used, revoked and expired are
// terminal; a used token's continuation is recorded in ReplacedBy.
type RefreshStatus string

const (
	RefreshActive  RefreshStatus = "active"
	RefreshUsed    RefreshStatus = "used"
	RefreshRevoked RefreshStatus = "revoked"
	RefreshExpired RefreshStatus = "expired"
)

// AccessToken is the server-side record of a bearer token. The JTI is the lookup key.
type AccessToken struct {
	Token     string
	JTI       string
	UserID    string
	SessionID string
	ExpiresAt time.Time
	Revoked   bool
}

// Valid reports whether the token itself is usable at now. Session state is checked separately.
func (a *AccessToken) Valid(now time.Time) bool {
	return !a.Revoked && now.Before(a.ExpiresAt)
}

// RefreshToken is the server-side record of an opaque rotation credential.
type RefreshToken struct {
	Token      string
	UserID     string
	SessionID  string
	FamilyID   string
	ExpiresAt  time.Time
	Status     RefreshStatus
	UsedAt     *time.Time
	ReplacedBy *string
}

// Pair is the access and refresh token minted together for a session.
type Pair struct {
	Access  *AccessToken
	Refresh *RefreshToken
}
