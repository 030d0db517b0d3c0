package challenge

import "time"

// Purpose separates verification codes from password reset codes. Each user holds at most
// one live record per purpose.
type Purpose string

const (
	PurposeVerification  Purpose = "verification"
	PurposePasswordReset Purpose = "password_reset"
)

// Policy bounds how long a code lives and how many wrong guesses it tolerates.
type Policy struct {
	TTL         time.Duration
	MaxAttempts int
}

// Record is a hashed one-time code. The raw code is never stored.
type Record struct {
	ID             string
	Purpose        Purpose
	UserID         string
	Email          string
	CodeHash       string // hex HMAC-SHA256 of "user_id:code"
	ExpiresAt      time.Time
	ConsumedAt     *time.Time
	Locked         bool // consumed because the attempt limit was reached
	FailedAttempts int
}

// ExpiresIn is the remaining lifetime rounded down to whole seconds, never negative.
func (r *Record) ExpiresIn(now time.Time) int {
	remaining := int(r.ExpiresAt.Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Outcome is the result of checking a presented code.
type Outcome int

const (
	OutcomeVerified Outcome = iota
	OutcomeMissing
	OutcomeExpired
	OutcomeInvalid
	OutcomeLocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeMissing:
		return "missing"
	case OutcomeExpired:
		return "expired"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeLocked:
		return "locked"
	default:
		return "unknown"
	}
}
