package auth

import (
	"time"

	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/jrsteele09/go-session-auth/internal/config"
)

const (
	defaultChallengeTTL         = 10 * time.Minute
	defaultChallengeMaxAttempts = 5
)

// Policy controls the email verification and password reset flows.
type Policy struct {
	VerificationRequired   bool
	Verification           challenge.Policy
	PasswordReset          challenge.Policy
	VerificationDebugCode  bool // return the raw verification code in the signup response
	PasswordResetDebugCode bool // return the raw reset code in the reset response
}

func DefaultPolicy() Policy {
	return Policy{
		VerificationRequired: true,
		Verification:         challenge.Policy{TTL: defaultChallengeTTL, MaxAttempts: defaultChallengeMaxAttempts},
		PasswordReset:        challenge.Policy{TTL: defaultChallengeTTL, MaxAttempts: defaultChallengeMaxAttempts},
	}
}

func PolicyFromConfig(c config.ChallengeConfig) Policy {
	return Policy{
		VerificationRequired:   c.IsEmailVerificationRequired(),
		Verification:           challenge.Policy{TTL: c.GetVerificationTTL(), MaxAttempts: c.GetVerificationMaxAttempts()},
		PasswordReset:          challenge.Policy{TTL: c.GetPasswordResetTTL(), MaxAttempts: c.GetPasswordResetMaxAttempts()},
		VerificationDebugCode:  c.IsVerificationDebugCodeEnabled(),
		PasswordResetDebugCode: c.IsPasswordResetDebugCodeEnabled(),
	}
}
