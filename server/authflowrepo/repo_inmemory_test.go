package authflowrepo_test

import (
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/server/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := authflowrepo.NewInMemoryRepo(authflowrepo.WithNowFunc(func() time.Time { return now }))

	require.Error(t, repo.Upsert("", &authflowrepo.FlowState{}))
	require.Error(t, repo.Upsert("packed", nil))

	flow := &authflowrepo.FlowState{
		Provider:       "google",
		AppRedirectURI: "foodlens://oauth/google-callback",
		CodeVerifier:   "verifier",
		CreatedAt:      now,
	}
	require.NoError(t, repo.Upsert("packed", flow))

	t.Run("returns a copy", func(t *testing.T) {
		got, err := repo.Get("packed")
		require.NoError(t, err)
		require.Equal(t, flow, got)
		got.Provider = "kakao"

		again, err := repo.Get("packed")
		require.NoError(t, err)
		require.Equal(t, "google", again.Provider)
	})

	t.Run("expires after the ttl", func(t *testing.T) {
		now = now.Add(authflowrepo.DefaultTTL)
		_, err := repo.Get("packed")
		require.ErrorIs(t, err, autherrors.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Upsert("other", &authflowrepo.FlowState{CreatedAt: now}))
		require.NoError(t, repo.Delete("other"))
		_, err := repo.Get("other")
		require.ErrorIs(t, err, autherrors.ErrNotFound)
	})
}
