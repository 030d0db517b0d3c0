package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/stretchr/testify/require"
)

const (
	secretStr = "1234"
	issuer    = "com.testissuer"
	audience  = "api"
)

func newTestManager(now time.Time) *token.Manager {
	return token.New(
		token.NewHMACSigner(secretStr),
		token.WithIssuer(issuer),
		token.WithAudience(audience),
		token.WithTokenExpiry(time.Minute, time.Hour),
		token.WithNowFunc(func() time.Time { return now }),
	)
}

// TestManager_Mint tests that a pair is bound to the session and family
func TestManager_Mint(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(now)

	pair, err := m.Mint("usr_1", "sess_1", "family_1")
	require.NoError(t, err)

	require.Equal(t, "usr_1", pair.Access.UserID)
	require.Equal(t, "sess_1", pair.Access.SessionID)
	require.Equal(t, now.Add(time.Minute), pair.Access.ExpiresAt)
	require.NotEmpty(t, pair.Access.JTI)
	require.False(t, pair.Access.Revoked)

	require.True(t, strings.HasPrefix(pair.Refresh.Token, "rtk_"))
	require.Equal(t, "family_1", pair.Refresh.FamilyID)
	require.Equal(t, token.RefreshActive, pair.Refresh.Status)
	require.Equal(t, now.Add(time.Hour), pair.Refresh.ExpiresAt)
	require.Nil(t, pair.Refresh.UsedAt)
	require.Nil(t, pair.Refresh.ReplacedBy)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(pair.Access.Token, claims)
	require.NoError(t, err)
	require.Equal(t, "usr_1", claims["sub"])
	require.Equal(t, "sess_1", claims["sid"])
	require.Equal(t, issuer, claims["iss"])
	require.Equal(t, audience, claims["aud"])
	require.Equal(t, pair.Access.JTI, claims["jti"])

	other, err := m.Mint("usr_1", "sess_1", "family_1")
	require.NoError(t, err)
	require.NotEqual(t, pair.Refresh.Token, other.Refresh.Token)
	require.NotEqual(t, pair.Access.JTI, other.Access.JTI)
}

func TestManager_ParseAccessToken(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(now)
	pair, err := m.Mint("usr_1", "sess_1", "family_1")
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		jti, err := m.ParseAccessToken(pair.Access.Token)
		require.NoError(t, err)
		require.Equal(t, pair.Access.JTI, jti)
	})

	t.Run("expired token still parses", func(t *testing.T) {
		later := newTestManager(now.Add(24 * time.Hour))
		jti, err := later.ParseAccessToken(pair.Access.Token)
		require.NoError(t, err)
		require.Equal(t, pair.Access.JTI, jti)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := token.New(token.NewHMACSigner("other"))
		_, err := other.ParseAccessToken(pair.Access.Token)
		require.ErrorIs(t, err, autherrors.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ParseAccessToken("not-a-jwt")
		require.ErrorIs(t, err, autherrors.ErrInvalidToken)

		_, err = m.ParseAccessToken("")
		require.ErrorIs(t, err, autherrors.ErrInvalidToken)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := m.ParseAccessToken(pair.Refresh.Token)
		require.ErrorIs(t, err, autherrors.ErrInvalidToken)
	})
}

func TestNew_Defaults(t *testing.T) {
	m := token.New(token.NewHMACSigner(secretStr))
	require.Equal(t, token.DefaultAccessTokenExpiry, m.AccessTokenExpiry())
	require.Equal(t, token.DefaultRefreshTokenExpiry, m.RefreshTokenExpiry())
}
