package users_test

import (
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
)

func newTestUser(id, email string) (*users.User, *users.Profile) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	user := &users.User{
		ID:        id,
		Email:     email,
		Provider:  users.ProviderEmail,
		Locale:    users.DefaultLocale,
		CreatedAt: now,
		UpdatedAt: now,
	}
	profile := &users.Profile{
		UserID:    id,
		Email:     email,
		Locale:    users.DefaultLocale,
		Timezone:  users.DefaultTimezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return user, profile
}

func TestInMemoryRepo_CreateAndGet(t *testing.T) {
	repo := users.NewInMemoryRepo()
	user, profile := newTestUser("usr_1", "a@x.com")
	require.NoError(t, repo.Create(user, profile))

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup, dupProfile := newTestUser("usr_2", "a@x.com")
		err := repo.Create(dup, dupProfile)
		require.ErrorIs(t, err, autherrors.ErrAlreadyExists)
	})

	t.Run("lookups", func(t *testing.T) {
		byID, err := repo.GetByID("usr_1")
		require.NoError(t, err)
		require.Equal(t, "a@x.com", byID.Email)

		byEmail, err := repo.GetByEmail("a@x.com")
		require.NoError(t, err)
		require.Equal(t, "usr_1", byEmail.ID)

		_, err = repo.GetByEmail("missing@x.com")
		require.ErrorIs(t, err, autherrors.ErrNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		byID, err := repo.GetByID("usr_1")
		require.NoError(t, err)
		byID.DisplayName = utils.Ptr("changed")

		again, err := repo.GetByID("usr_1")
		require.NoError(t, err)
		require.Nil(t, again.DisplayName)
	})
}

func TestInMemoryRepo_ProviderLinks(t *testing.T) {
	repo := users.NewInMemoryRepo()
	user, profile := newTestUser("usr_1", "g@x.com")
	require.NoError(t, repo.Create(user, profile))

	key := users.ProviderKey(users.ProviderGoogle, "sub-1")
	require.NoError(t, repo.LinkProvider(key, "usr_1"))
	require.NoError(t, repo.LinkProvider(key, "usr_1"))

	other, otherProfile := newTestUser("usr_2", "h@x.com")
	require.NoError(t, repo.Create(other, otherProfile))
	require.ErrorIs(t, repo.LinkProvider(key, "usr_2"), autherrors.ErrAlreadyExists)

	linked, err := repo.GetByProviderKey(key)
	require.NoError(t, err)
	require.Equal(t, "usr_1", linked.ID)
}

func TestInMemoryRepo_Delete(t *testing.T) {
	repo := users.NewInMemoryRepo()
	user, profile := newTestUser("usr_1", "a@x.com")
	require.NoError(t, repo.Create(user, profile))
	require.NoError(t, repo.LinkProvider("google:s", "usr_1"))

	require.NoError(t, repo.Delete("usr_1"))

	_, err := repo.GetByEmail("a@x.com")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
	_, err = repo.GetProfile("usr_1")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
	_, err = repo.GetByProviderKey("google:s")
	require.ErrorIs(t, err, autherrors.ErrNotFound)

	again, againProfile := newTestUser("usr_3", "a@x.com")
	require.NoError(t, repo.Create(again, againProfile))
}

func TestInMemoryRepo_Profile(t *testing.T) {
	repo := users.NewInMemoryRepo()
	user, profile := newTestUser("usr_1", "a@x.com")
	require.NoError(t, repo.Create(user, profile))

	stored, err := repo.GetProfile("usr_1")
	require.NoError(t, err)
	require.Equal(t, users.DefaultTimezone, stored.Timezone)

	stored.Timezone = "Asia/Seoul"
	require.NoError(t, repo.UpdateProfile(stored))

	updated, err := repo.GetProfile("usr_1")
	require.NoError(t, err)
	require.Equal(t, "Asia/Seoul", updated.Timezone)

	require.ErrorIs(t, repo.UpdateProfile(&users.Profile{UserID: "nobody"}), autherrors.ErrNotFound)
}
