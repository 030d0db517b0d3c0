package token

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/pkg/errors"
)

const (
	DefaultAccessTokenExpiry  = 15 * time.Minute
	DefaultRefreshTokenExpiry = 30 * 24 * time.Hour

	refreshTokenPrefix = "rtk_"
	refreshTokenBytes  = 32
)

// Manager mints access/refresh pairs bound to a session. Access tokens are signed JWTs whose
// jti keys the server-side record; refresh tokens are opaque random strings.
type Manager struct {
	signer             Signer
	issuer             string
	audience           string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer: signer,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = DefaultAccessTokenExpiry
	}
	if m.refreshTokenExpiry <= 0 {
		m.refreshTokenExpiry = DefaultRefreshTokenExpiry
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

func (m *Manager) RefreshTokenExpiry() time.Duration {
	return m.refreshTokenExpiry
}

// Mint creates a new access and refresh token for the session. Nothing is stored here;
// the caller records the pair.
func (m *Manager) Mint(userID, sessionID, familyID string) (*Pair, error) {
	now := m.nowFunc()

	access, err := m.createAccessToken(userID, sessionID, now)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Mint createAccessToken")
	}

	refreshValue, err := newOpaqueToken(refreshTokenPrefix, refreshTokenBytes)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Mint newOpaqueToken")
	}

	return &Pair{
		Access: access,
		Refresh: &RefreshToken{
			Token:     refreshValue,
			UserID:    userID,
			SessionID: sessionID,
			FamilyID:  familyID,
			ExpiresAt: now.Add(m.refreshTokenExpiry),
			Status:    RefreshActive,
		},
	}, nil
}

func (m *Manager) createAccessToken(userID, sessionID string, now time.Time) (*AccessToken, error) {
	jti := uuid.New().String()
	expiresAt := now.Add(m.accessTokenExpiry)

	claims := jwt.MapClaims{
		"sub": userID,           // The subject, the authenticated user
		"sid": sessionID,        // Session the token is bound to
		"iat": now.Unix(),       // Issued At: the time at which the token was issued
		"exp": expiresAt.Unix(), // Expiry: when the token will expire
		"jti": jti,              // Unique token ID, the registry lookup key
	}
	if m.issuer != "" {
		claims["iss"] = m.issuer
	}
	if m.audience != "" {
		claims["aud"] = m.audience
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	return &AccessToken{
		Token:     signed,
		JTI:       jti,
		UserID:    userID,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseAccessToken verifies the signature of a raw access token and returns its jti.
// Expiry is not checked; the registry judges it against its own clock.
func (m *Manager) ParseAccessToken(rawToken string) (string, error) {
	if strings.TrimSpace(rawToken) == "" {
		return "", autherrors.ErrInvalidToken
	}

	parsed, err := jwt.Parse(
		rawToken,
		m.signer.GetVerificationKey,
		jwt.WithoutClaimsValidation(),
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
	)
	if err != nil || !parsed.Valid {
		return "", autherrors.Wrapf(autherrors.ErrInvalidToken, "[Manager.ParseAccessToken] %v", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", autherrors.ErrInvalidToken
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return "", autherrors.Wrapf(autherrors.ErrInvalidToken, "[Manager.ParseAccessToken] missing jti")
	}
	return jti, nil
}

func newOpaqueToken(prefix string, size int) (string, error) {
	tokenBytes := make([]byte, size)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "rand.Read")
	}
	return prefix + base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}
