package config

import "time"

const minChallengeTTLSeconds = 60

type ChallengeConfig interface {
	GetChallengeSecret() string
	IsEmailVerificationRequired() bool
	GetVerificationTTL() time.Duration
	GetVerificationMaxAttempts() int
	IsVerificationDebugCodeEnabled() bool
	GetPasswordResetTTL() time.Duration
	GetPasswordResetMaxAttempts() int
	IsPasswordResetDebugCodeEnabled() bool
}

type Challenge struct {
	Secret                   string `env:"AUTH_CHALLENGE_SECRET"`
	VerificationRequired     bool   `env:"AUTH_EMAIL_VERIFICATION_REQUIRED" envDefault:"true"`
	VerificationTTLSeconds   int    `env:"AUTH_EMAIL_VERIFICATION_CODE_TTL_SECONDS" envDefault:"600"`
	VerificationMaxAttempts  int    `env:"AUTH_EMAIL_VERIFICATION_MAX_ATTEMPTS" envDefault:"5"`
	VerificationDebugCode    bool   `env:"AUTH_EMAIL_VERIFICATION_DEBUG_CODE_ENABLED" envDefault:"false"`
	PasswordResetTTLSeconds  int    `env:"AUTH_PASSWORD_RESET_CODE_TTL_SECONDS" envDefault:"600"`
	PasswordResetMaxAttempts int    `env:"AUTH_PASSWORD_RESET_MAX_ATTEMPTS" envDefault:"5"`
	PasswordResetDebugCode   bool   `env:"AUTH_PASSWORD_RESET_DEBUG_CODE_ENABLED" envDefault:"false"`
	smtpDelivery             bool
}

var _ ChallengeConfig = Challenge{}

// GetChallengeSecret returns the HMAC key for stored code hashes. Empty means a random key
// per process.
func (c Challenge) GetChallengeSecret() string {
	return c.Secret
}

func (c Challenge) IsEmailVerificationRequired() bool {
	return c.VerificationRequired
}

func (c Challenge) GetVerificationTTL() time.Duration {
	return time.Duration(c.VerificationTTLSeconds) * time.Second
}

func (c Challenge) GetVerificationMaxAttempts() int {
	return c.VerificationMaxAttempts
}

// IsVerificationDebugCodeEnabled is always false in smtp delivery mode.
func (c Challenge) IsVerificationDebugCodeEnabled() bool {
	return c.VerificationDebugCode && !c.smtpDelivery
}

func (c Challenge) GetPasswordResetTTL() time.Duration {
	return time.Duration(c.PasswordResetTTLSeconds) * time.Second
}

func (c Challenge) GetPasswordResetMaxAttempts() int {
	return c.PasswordResetMaxAttempts
}

// IsPasswordResetDebugCodeEnabled is always false in smtp delivery mode.
func (c Challenge) IsPasswordResetDebugCodeEnabled() bool {
	return c.PasswordResetDebugCode && !c.smtpDelivery
}
