package challenge_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/stretchr/testify/require"
)

const testUserID = "usr_1"

var testPolicy = challenge.Policy{TTL: 10 * time.Minute, MaxAttempts: 3}

type testFixture struct {
	repo   *challenge.InMemoryRepo
	issuer *challenge.Issuer
	now    time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo: challenge.NewInMemoryRepo(),
		now:  time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	issuer, err := challenge.NewIssuer(
		f.repo,
		challenge.WithSecret([]byte("test-secret")),
		challenge.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	f.issuer = issuer
	return f
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestIssuer_Issue(t *testing.T) {
	f := setupTestFixture(t)

	record, code, err := f.issuer.Issue(challenge.PurposeVerification, testUserID, "a@x.com", testPolicy)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
	require.NotContains(t, record.CodeHash, code)
	require.Len(t, record.CodeHash, 64)
	require.Equal(t, f.now.Add(testPolicy.TTL), record.ExpiresAt)
	require.Equal(t, 600, record.ExpiresIn(f.now))
	require.Contains(t, record.ID, "evr_")

	resetRecord, _, err := f.issuer.Issue(challenge.PurposePasswordReset, testUserID, "a@x.com", testPolicy)
	require.NoError(t, err)
	require.Contains(t, resetRecord.ID, "prs_")
}

func TestIssuer_Verify(t *testing.T) {
	t.Run("correct code verifies once", func(t *testing.T) {
		f := setupTestFixture(t)
		_, code, err := f.issuer.Issue(challenge.PurposeVerification, testUserID, "a@x.com", testPolicy)
		require.NoError(t, err)

		outcome, err := f.issuer.Verify(challenge.PurposeVerification, testUserID, code, testPolicy)
		require.NoError(t, err)
		require.Equal(t, challenge.OutcomeVerified, outcome)

		outcome, err = f.issuer.Verify(challenge.PurposeVerification, testUserID, code, testPolicy)
		require.NoError(t, err)
		require.Equal(t, challenge.OutcomeExpired, outcome)
	})

	t.Run("missing record", func(t *testing.T) {
		f := setupTestFixture(t)
		outcome, err := f.issuer.Verify(challenge.PurposeVerification, testUserID, "123456", testPolicy)
		require.NoError(t, err)
		require.Equal(t, challenge.OutcomeMissing, outcome)
	})

	t.Run("expired record", func(t *testing.T) {
		f := setupTestFixture(t)
		_, code, err := f.issuer.Issue(challenge.PurposeVerification, testUserID, "a@x.com", testPolicy)
		require.NoError(t, err)

		f.now = f.now.Add(testPolicy.TTL)
		outcome, err := f.issuer.Verify(challenge.PurposeVerification, testUserID, code, testPolicy)
		require.NoError(t, err)
		require.Equal(t, challenge.OutcomeExpired, outcome)
	})

	t.Run("purposes are separate", func(t *testing.T) {
		f := setupTestFixture(t)
		_, code, err := f.issuer.Issue(challenge.PurposeVerification, testUserID, "a@x.com", testPolicy)
		require.NoError(t, err)

		outcome, err := f.issuer.Verify(challenge.PurposePasswordReset, testUserID, code, testPolicy)
		require.NoError(t, err)
		require.Equal(t, challenge.OutcomeMissing, outcome)
	})

	t.Run("reissue supersedes previous code", func(t *testing.T) {
		f := setupTestFixture(t)
		_, first, err := f.issuer.Issue(challenge.PurposeVerification, testUserID, "a@x.com", testPolicy)
		require.NoError(t, err)
		_, second, err := f.issuer.Issue(challenge.PurposeVerification, testUserID, "a@x.com", testPolicy)
		require.NoError(t, err)

		if first != second {
			outcome, err := f.issuer.Verify(challenge.PurposeVerification, testUserID, first, testPolicy)
			require.NoError(t, err)
			require.Equal(t, challenge.OutcomeInvalid, outcome)
		}
		outcome, err := f.issuer.Verify(challenge.PurposeVerification, testUserID, second, testPolicy)
		require.NoError(t, err)
		require.Equal(t, challenge.OutcomeVerified, outcome)
	})
}

// TestIssuer_Lockout tests that the attempt limit locks the record even for the right code
func TestIssuer_Lockout(t *testing.T) {
	f := setupTestFixture(t)
	_, code, err := f.issuer.Issue(challenge.PurposeVerification, testUserID, "a@x.com", testPolicy)
	require.NoError(t, err)

	for attempt := 1; attempt < testPolicy.MaxAttempts; attempt++ {
		outcome, err := f.issuer.Verify(challenge.PurposeVerification, testUserID, wrongCode(code), testPolicy)
		require.NoError(t, err)
		require.Equal(t, challenge.OutcomeInvalid, outcome)
	}

	outcome, err := f.issuer.Verify(challenge.PurposeVerification, testUserID, wrongCode(code), testPolicy)
	require.NoError(t, err)
	require.Equal(t, challenge.OutcomeLocked, outcome)

	outcome, err = f.issuer.Verify(challenge.PurposeVerification, testUserID, code, testPolicy)
	require.NoError(t, err)
	require.Equal(t, challenge.OutcomeLocked, outcome)

	record, err := f.repo.Get(challenge.PurposeVerification, testUserID)
	require.NoError(t, err)
	require.NotNil(t, record.ConsumedAt)
	require.Equal(t, testPolicy.MaxAttempts, record.FailedAttempts)
}

func TestIssuer_Discard(t *testing.T) {
	f := setupTestFixture(t)
	first, _, err := f.issuer.Issue(challenge.PurposePasswordReset, testUserID, "a@x.com", testPolicy)
	require.NoError(t, err)
	second, _, err := f.issuer.Issue(challenge.PurposePasswordReset, testUserID, "a@x.com", testPolicy)
	require.NoError(t, err)

	require.NoError(t, f.issuer.Discard(challenge.PurposePasswordReset, testUserID, first.ID))
	_, err = f.repo.Get(challenge.PurposePasswordReset, testUserID)
	require.NoError(t, err, "a superseded id must not drop the newer record")

	require.NoError(t, f.issuer.Discard(challenge.PurposePasswordReset, testUserID, second.ID))
	_, err = f.repo.Get(challenge.PurposePasswordReset, testUserID)
	require.Error(t, err)

	_, _, err = f.issuer.Issue(challenge.PurposeVerification, testUserID, "a@x.com", testPolicy)
	require.NoError(t, err)
	require.NoError(t, f.issuer.DiscardAll(testUserID))
	_, err = f.repo.Get(challenge.PurposeVerification, testUserID)
	require.Error(t, err)
}
