package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/stretchr/testify/require"
)

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation keeps the session", func(t *testing.T) {
		f := setupTestFixture(t)
		bundle := f.signupVerified(t, testEmail)
		before, err := f.service.AuthenticateAccessToken(ctx, bundle.AccessToken)
		require.NoError(t, err)

		rotated, err := f.service.Refresh(ctx, bundle.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, bundle.RefreshToken, rotated.RefreshToken)
		require.Equal(t, testEmail, rotated.User.Email)

		after, err := f.service.AuthenticateAccessToken(ctx, rotated.AccessToken)
		require.NoError(t, err)
		require.Equal(t, before.SessionID, after.SessionID)
	})

	t.Run("reuse revokes the family", func(t *testing.T) {
		f := setupTestFixture(t)
		bundle := f.signupVerified(t, testEmail)
		other, err := f.service.LoginEmail(ctx, auth.LoginRequest{Email: testEmail, Password: testPassword})
		require.NoError(t, err)

		rotated, err := f.service.Refresh(ctx, bundle.RefreshToken)
		require.NoError(t, err)

		_, err = f.service.Refresh(ctx, bundle.RefreshToken)
		authErr := requireCode(t, err, auth.CodeRefreshReused)
		require.NotEmpty(t, authErr.UserID)

		_, err = f.service.Refresh(ctx, rotated.RefreshToken)
		requireCode(t, err, auth.CodeSessionRevoked)
		_, err = f.service.AuthenticateAccessToken(ctx, rotated.AccessToken)
		requireCode(t, err, auth.CodeTokenInvalid)

		_, err = f.service.Refresh(ctx, other.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("concurrent presentation rotates once", func(t *testing.T) {
		f := setupTestFixture(t)
		bundle := f.signupVerified(t, testEmail)

		const workers = 8
		var wg sync.WaitGroup
		results := make([]error, workers)
		start := make(chan struct{})
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, results[i] = f.service.Refresh(ctx, bundle.RefreshToken)
			}()
		}
		close(start)
		wg.Wait()

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
				continue
			}
			var authErr *auth.Error
			require.True(t, errors.As(err, &authErr))
			require.Contains(t, []auth.Code{auth.CodeRefreshReused, auth.CodeSessionRevoked}, authErr.Code)
		}
		require.Equal(t, 1, succeeded)
	})

	t.Run("invalid and expired", func(t *testing.T) {
		f := setupTestFixture(t)
		bundle := f.signupVerified(t, testEmail)

		_, err := f.service.Refresh(ctx, "")
		requireCode(t, err, auth.CodeRefreshInvalid)
		_, err = f.service.Refresh(ctx, "rtk_unknown")
		requireCode(t, err, auth.CodeRefreshInvalid)

		f.advance(14*24*time.Hour + time.Second)
		_, err = f.service.Refresh(ctx, bundle.RefreshToken)
		requireCode(t, err, auth.CodeRefreshExpired)
	})

	t.Run("deleted user", func(t *testing.T) {
		f := setupTestFixture(t)
		bundle := f.signupVerified(t, testEmail)
		user, err := f.users.GetByEmail(testEmail)
		require.NoError(t, err)
		require.NoError(t, f.users.Delete(user.ID))

		_, err = f.service.Refresh(ctx, bundle.RefreshToken)
		requireCode(t, err, auth.CodeUserNotFound)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("by refresh token", func(t *testing.T) {
		f := setupTestFixture(t)
		bundle := f.signupVerified(t, testEmail)

		revoked, err := f.service.Logout(ctx, auth.LogoutRequest{RefreshToken: bundle.RefreshToken})
		require.NoError(t, err)
		require.Equal(t, 1, revoked)

		_, err = f.service.AuthenticateAccessToken(ctx, bundle.AccessToken)
		requireCode(t, err, auth.CodeTokenInvalid)

		revoked, err = f.service.Logout(ctx, auth.LogoutRequest{AccessToken: bundle.AccessToken})
		require.NoError(t, err)
		require.Zero(t, revoked)
	})

	t.Run("tokens from two sessions", func(t *testing.T) {
		f := setupTestFixture(t)
		a := f.signupVerified(t, testEmail)
		b, err := f.service.LoginEmail(ctx, auth.LoginRequest{Email: testEmail, Password: testPassword})
		require.NoError(t, err)

		revoked, err := f.service.Logout(ctx, auth.LogoutRequest{AccessToken: a.AccessToken, RefreshToken: b.RefreshToken})
		require.NoError(t, err)
		require.Equal(t, 2, revoked)
	})

	t.Run("nothing resolves", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.service.Logout(ctx, auth.LogoutRequest{AccessToken: "garbage", RefreshToken: "rtk_garbage"})
		requireCode(t, err, auth.CodeSessionNotFound)
		_, err = f.service.Logout(ctx, auth.LogoutRequest{})
		requireCode(t, err, auth.CodeSessionNotFound)
	})
}

func TestAuthenticateAccessToken(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	bundle := f.signupVerified(t, testEmail)

	principal, err := f.service.AuthenticateAccessToken(ctx, bundle.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testEmail, principal.User.Email)
	require.NotEmpty(t, principal.SessionID)

	_, err = f.service.AuthenticateAccessToken(ctx, "")
	requireCode(t, err, auth.CodeTokenInvalid)
	_, err = f.service.AuthenticateAccessToken(ctx, "not.a.jwt")
	requireCode(t, err, auth.CodeTokenInvalid)

	f.advance(15 * time.Minute)
	_, err = f.service.AuthenticateAccessToken(ctx, bundle.AccessToken)
	requireCode(t, err, auth.CodeTokenExpired)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	first := f.signupVerified(t, testEmail)
	_, err := f.service.LoginEmail(ctx, auth.LoginRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)

	principal, err := f.service.AuthenticateAccessToken(ctx, first.AccessToken)
	require.NoError(t, err)

	views, err := f.service.ListSessions(ctx, *principal)
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.True(t, views[0].Current)
	require.False(t, views[1].Current)
	require.Equal(t, "email", views[0].Provider)
}
