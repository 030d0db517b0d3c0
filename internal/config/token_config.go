package config

import "time"

const (
	minAccessTokenTTLSeconds = 60
	minRefreshTokenTTLDays   = 1
	minPasswordIterations    = 120_000
)

type TokenConfig interface {
	GetTokenSigningSecret() string
	GetTokenSigningKeyFile() string
	GetTokenKeyID() string
	GetTokenIssuer() string
	GetTokenAudience() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetPasswordIterations() int
}

type Token struct {
	SigningSecret         string `env:"AUTH_TOKEN_SIGNING_SECRET"`
	SigningKeyFile        string `env:"AUTH_TOKEN_SIGNING_KEY_FILE"`
	KeyID                 string `env:"AUTH_TOKEN_KEY_ID"             envDefault:"session-auth-1"`
	Issuer                string `env:"AUTH_TOKEN_ISSUER"`
	Audience              string `env:"AUTH_TOKEN_AUDIENCE"`
	AccessTokenTTLSeconds int    `env:"AUTH_ACCESS_TOKEN_TTL_SECONDS" envDefault:"900"`
	RefreshTokenTTLDays   int    `env:"AUTH_REFRESH_TOKEN_TTL_DAYS"   envDefault:"30"`
	PasswordIterations    int    `env:"AUTH_PASSWORD_ITERATIONS"      envDefault:"390000"`
}

var _ TokenConfig = Token{}

// GetTokenSigningSecret returns the HMAC key for access tokens. Empty means a random key
// per process.
func (t Token) GetTokenSigningSecret() string {
	return t.SigningSecret
}

// GetTokenSigningKeyFile is a PEM private key (RSA or P-256). When set it takes precedence over
// the HMAC secret and the public key is served as a JWKS.
func (t Token) GetTokenSigningKeyFile() string {
	return t.SigningKeyFile
}

func (t Token) GetTokenKeyID() string {
	return t.KeyID
}

func (t Token) GetTokenIssuer() string {
	return t.Issuer
}

func (t Token) GetTokenAudience() string {
	return t.Audience
}

func (t Token) GetAccessTokenExpiry() time.Duration {
	return time.Duration(t.AccessTokenTTLSeconds) * time.Second
}

func (t Token) GetRefreshTokenExpiry() time.Duration {
	return time.Duration(t.RefreshTokenTTLDays) * 24 * time.Hour
}

func (t Token) GetPasswordIterations() int {
	return t.PasswordIterations
}
