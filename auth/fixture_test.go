package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/jrsteele09/go-session-auth/email"
	"github.com/jrsteele09/go-session-auth/federation"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-horse"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingDispatcher keeps every delivered message and can be told to fail.
type recordingDispatcher struct {
	mu       sync.Mutex
	messages []email.Message
	fail     bool
}

func (d *recordingDispatcher) Deliver(_ context.Context, msg email.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.Join(email.ErrDelivery, errors.New("smtp down"))
	}
	d.messages = append(d.messages, msg)
	return nil
}

func (d *recordingDispatcher) Mode() string {
	return "test"
}

func (d *recordingDispatcher) setFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

func (d *recordingDispatcher) lastCode(t *testing.T, purpose challenge.Purpose) string {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.messages) - 1; i >= 0; i-- {
		if d.messages[i].Purpose == purpose {
			return d.messages[i].Code
		}
	}
	t.Fatalf("no %s message delivered", purpose)
	return ""
}

type testFixture struct {
	service    *auth.Service
	users      *users.InMemoryRepo
	dispatcher *recordingDispatcher
	now        time.Time
}

func (f *testFixture) clock() time.Time {
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

type fixtureOption func(*fixtureSettings)

type fixtureSettings struct {
	policy    auth.Policy
	redirects *federation.RedirectPolicy
	providers federation.Providers
}

func withPolicy(mutate func(*auth.Policy)) fixtureOption {
	return func(s *fixtureSettings) {
		mutate(&s.policy)
	}
}

func withRedirects(allowed map[users.ProviderType][]string) fixtureOption {
	return func(s *fixtureSettings) {
		s.redirects = federation.NewRedirectPolicy(allowed)
	}
}

func withProviders(providers federation.Providers) fixtureOption {
	return func(s *fixtureSettings) {
		s.providers = providers
	}
}

func setupTestFixture(t *testing.T, options ...fixtureOption) *testFixture {
	t.Helper()

	settings := &fixtureSettings{policy: auth.DefaultPolicy()}
	for _, opt := range options {
		opt(settings)
	}

	f := &testFixture{
		users:      users.NewInMemoryRepo(),
		dispatcher: &recordingDispatcher{},
		now:        time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	tokens := token.New(token.NewHMACSigner("auth-test-secret"),
		token.WithTokenExpiry(15*time.Minute, 14*24*time.Hour),
		token.WithNowFunc(f.clock),
	)

	serviceOptions := []auth.ServiceOption{
		auth.WithNowTime(f.clock),
		auth.WithPolicy(settings.policy),
		auth.WithPasswordHasher(users.NewPasswordHasher(users.MinPasswordIterations)),
		auth.WithChallengeSecret([]byte("challenge-secret")),
	}
	if settings.redirects != nil {
		serviceOptions = append(serviceOptions, auth.WithRedirectPolicy(settings.redirects))
	}
	if settings.providers != nil {
		serviceOptions = append(serviceOptions, auth.WithCodeVerification(settings.providers))
	}

	service, err := auth.NewService(auth.Repos{
		Users:      f.users,
		Challenges: challenge.NewInMemoryRepo(),
	}, tokens, f.dispatcher, serviceOptions...)
	require.NoError(t, err)
	f.service = service
	return f
}

// signupVerified registers and verifies a user, returning the session from verification.
func (f *testFixture) signupVerified(t *testing.T, address string) *auth.SessionBundle {
	t.Helper()
	ctx := context.Background()

	result, err := f.service.SignupEmail(ctx, auth.SignupRequest{
		Email:       address,
		Password:    testPassword,
		DisplayName: utils.Ptr("Alice"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Verification)

	bundle, err := f.service.VerifyEmail(ctx, auth.VerifyEmailRequest{
		Email: address,
		Code:  f.dispatcher.lastCode(t, challenge.PurposeVerification),
	})
	require.NoError(t, err)
	return bundle
}

func requireCode(t *testing.T, err error, code auth.Code) *auth.Error {
	t.Helper()
	require.Error(t, err)
	var authErr *auth.Error
	require.True(t, errors.As(err, &authErr), "expected *auth.Error, got %T: %v", err, err)
	require.Equal(t, code, authErr.Code, authErr.Error())
	return authErr
}
