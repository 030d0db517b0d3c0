package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	ChallengeConfig
	EmailConfig
	OAuthConfig
	RateLimitConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Token
	Challenge
	Email
	OAuth
	RateLimit
}

var _ Config = mainConfig{}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables only, ignoring the process
// environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var c mainConfig
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, errors.Wrap(err, "[config.parse] env.ParseWithOptions")
	}
	c.applyFloors()
	if err := c.RateLimit.parseTrustedProxies(); err != nil {
		return nil, errors.Wrap(err, "[config.parse]")
	}
	return c, nil
}

// applyFloors clamps values below their minimums and normalises the delivery mode.
func (c *mainConfig) applyFloors() {
	c.Token.AccessTokenTTLSeconds = max(c.Token.AccessTokenTTLSeconds, minAccessTokenTTLSeconds)
	c.Token.RefreshTokenTTLDays = max(c.Token.RefreshTokenTTLDays, minRefreshTokenTTLDays)
	c.Token.PasswordIterations = max(c.Token.PasswordIterations, minPasswordIterations)

	c.Challenge.VerificationTTLSeconds = max(c.Challenge.VerificationTTLSeconds, minChallengeTTLSeconds)
	c.Challenge.VerificationMaxAttempts = max(c.Challenge.VerificationMaxAttempts, 1)
	c.Challenge.PasswordResetTTLSeconds = max(c.Challenge.PasswordResetTTLSeconds, minChallengeTTLSeconds)
	c.Challenge.PasswordResetMaxAttempts = max(c.Challenge.PasswordResetMaxAttempts, 1)

	c.Email.SMTPTimeoutSeconds = max(c.Email.SMTPTimeoutSeconds, 1)
	c.Email.SMTPMaxAttempts = max(c.Email.SMTPMaxAttempts, 1)

	mode := DeliveryMode(strings.ToLower(strings.TrimSpace(string(c.Email.DeliveryMode))))
	switch mode {
	case DeliveryDisabled, DeliveryLog, DeliverySMTP:
		c.Email.DeliveryMode = mode
	default:
		log.Warn().Str("mode", string(c.Email.DeliveryMode)).Msg("unknown email delivery mode, falling back to log")
		c.Email.DeliveryMode = DeliveryLog
	}

	// Codes must never reach a client when real mail is being sent.
	c.Challenge.smtpDelivery = c.Email.DeliveryMode == DeliverySMTP

	c.RateLimit.Requests = max(c.RateLimit.Requests, 1)
	c.RateLimit.WindowSeconds = max(c.RateLimit.WindowSeconds, 1)
}
