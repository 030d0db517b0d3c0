package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/jrsteele09/go-session-auth/email"
	"github.com/jrsteele09/go-session-auth/federation"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/ids"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const tokenTypeBearer = "Bearer"

// Service composes the credential, challenge and session components into the public
// auth operations.
//
// Every public method takes mu exactly once for its state transition and never calls
// another public method. Email delivery and provider code exchange happen outside mu.
type Service struct {
	mu sync.Mutex

	users      users.Repo
	challenges *challenge.Issuer
	registry   *sessions.Registry
	hasher     *users.PasswordHasher
	dispatcher email.Dispatcher

	policy          Policy
	redirects       *federation.RedirectPolicy
	providers       federation.Providers // providers whose codes are verified live
	challengeSecret []byte

	nowTime func() time.Time
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPolicy(policy Policy) ServiceOption {
	return func(s *Service) {
		s.policy = policy
	}
}

func WithPasswordHasher(hasher *users.PasswordHasher) ServiceOption {
	return func(s *Service) {
		s.hasher = hasher
	}
}

// WithChallengeSecret sets the HMAC key for stored challenge codes.
func WithChallengeSecret(secret []byte) ServiceOption {
	return func(s *Service) {
		s.challengeSecret = secret
	}
}

func WithRedirectPolicy(policy *federation.RedirectPolicy) ServiceOption {
	return func(s *Service) {
		s.redirects = policy
	}
}

// WithCodeVerification makes OAuth logins for these providers exchange the code with the
// provider and trust only the provider's answer.
func WithCodeVerification(providers federation.Providers) ServiceOption {
	return func(s *Service) {
		s.providers = providers
	}
}

// NewService initializes a new Service with required dependencies.
// Optional configuration can be provided via options (e.g., WithNowTime for testing).
func NewService(repos Repos, tokens *token.Manager, dispatcher email.Dispatcher, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Challenges == nil {
		return nil, errors.New("[NewService] Challenges repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}
	if dispatcher == nil {
		return nil, errors.New("[NewService] email dispatcher is required")
	}

	s := &Service{
		users:      repos.Users,
		dispatcher: dispatcher,
		policy:     DefaultPolicy(),
		nowTime:    time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	if s.hasher == nil {
		s.hasher = users.NewPasswordHasher(users.DefaultPasswordIterations)
	}
	if s.redirects == nil {
		s.redirects = federation.NewRedirectPolicy(nil)
	}

	issuer, err := challenge.NewIssuer(repos.Challenges,
		challenge.WithNowFunc(s.nowTime),
		challenge.WithSecret(s.challengeSecret),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewService] challenge.NewIssuer")
	}
	s.challenges = issuer
	s.registry = sessions.NewRegistry(tokens, sessions.WithNowFunc(s.nowTime))
	return s, nil
}

// SignupEmail registers an email/password account. With verification required the user
// is stored unverified and a code is mailed; if that mail cannot be delivered the user is
// removed again so the address stays free.
func (s *Service) SignupEmail(ctx context.Context, req SignupRequest) (result *SignupResult, err error) {
	defer func() { s.observe("signup", err) }()

	emailAddress := users.NormalizeEmail(req.Email)
	if users.ValidateEmail(emailAddress) != nil {
		return nil, NewError(CodeInvalidEmail)
	}
	if users.ValidatePasswordStrength(req.Password) != nil {
		return nil, NewError(CodeWeakPassword)
	}
	salt, hash, err := s.hasher.Create(req.Password)
	if err != nil {
		return nil, internalError(err)
	}

	var msg email.Message
	var pending *VerificationChallenge
	err = func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, err := s.users.GetByEmail(emailAddress); err == nil {
			return NewError(CodeEmailAlreadyExists)
		}

		now := s.nowTime()
		user := &users.User{
			ID:           ids.New(ids.UserPrefix),
			Email:        emailAddress,
			DisplayName:  utils.NonEmpty(strings.TrimSpace(utils.Value(req.DisplayName))),
			Provider:     users.ProviderEmail,
			Locale:       localeOrDefault(req.Locale),
			PasswordSalt: &salt,
			PasswordHash: &hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if !s.policy.VerificationRequired {
			user.EmailVerifiedAt = &now
		}
		if err := s.users.Create(user, newProfile(user)); err != nil {
			if autherrors.Is(err, autherrors.ErrAlreadyExists) {
				return NewError(CodeEmailAlreadyExists)
			}
			return internalError(err)
		}

		if !s.policy.VerificationRequired {
			bundle, err := s.openSession(user, users.ProviderEmail, req.DeviceID)
			if err != nil {
				return err
			}
			result = &SignupResult{Session: bundle}
			return nil
		}

		record, code, err := s.challenges.Issue(challenge.PurposeVerification, user.ID, user.Email, s.policy.Verification)
		if err != nil {
			return internalError(err)
		}
		expiresIn := record.ExpiresIn(now)
		pending = newVerificationChallenge(user, record, expiresIn)
		if s.policy.VerificationDebugCode {
			pending.DebugCode = utils.Ptr(code)
		}
		msg = email.Message{
			Purpose:    challenge.PurposeVerification,
			Email:      user.Email,
			Code:       code,
			TTLSeconds: max(1, expiresIn),
			UserID:     user.ID,
		}
		return nil
	}()
	if err != nil || result != nil {
		return result, err
	}

	if err := s.deliver(ctx, msg); err != nil {
		s.rollbackUnverifiedUser(msg.UserID)
		return nil, NewError(CodeEmailVerificationDeliveryFailed).forUser(msg.UserID).withCause(err)
	}
	return &SignupResult{Verification: pending}, nil
}

// rollbackUnverifiedUser removes a user created by a signup whose code never left, unless
// the user has been verified in the meantime.
func (s *Service) rollbackUnverifiedUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetByID(userID)
	if err != nil || user.IsVerified() {
		return
	}
	if err := s.challenges.DiscardAll(userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("signup rollback: discarding challenges")
	}
	if err := s.users.Delete(userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("signup rollback: deleting user")
		return
	}
	s.logger.Info().Str("user_id", userID).Msg("signup rolled back after delivery failure")
}

// LoginEmail authenticates with email and password and opens a new session family.
func (s *Service) LoginEmail(_ context.Context, req LoginRequest) (bundle *SessionBundle, err error) {
	defer func() { s.observe("login", err) }()

	emailAddress := users.NormalizeEmail(req.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetByEmail(emailAddress)
	if err != nil {
		return nil, NewError(CodeInvalidCredentials)
	}
	if !user.HasPassword() || !s.hasher.Verify(req.Password, *user.PasswordSalt, *user.PasswordHash) {
		return nil, NewError(CodeInvalidCredentials).forUser(user.ID)
	}
	if s.policy.VerificationRequired && !user.IsVerified() {
		return nil, NewError(CodeEmailNotVerified).forUser(user.ID)
	}
	return s.openSession(user, users.ProviderEmail, req.DeviceID)
}

// VerifyEmail checks a signup code. Success marks the user verified and opens a session.
func (s *Service) VerifyEmail(_ context.Context, req VerifyEmailRequest) (bundle *SessionBundle, err error) {
	defer func() { s.observe("verify_email", err) }()

	emailAddress := users.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, NewError(CodeEmailVerificationInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetByEmail(emailAddress)
	if err != nil {
		return nil, NewError(CodeEmailVerificationNotFound)
	}
	if user.Provider != users.ProviderEmail {
		return nil, NewError(CodeProviderUnsupported).forUser(user.ID)
	}
	if user.IsVerified() {
		return nil, NewError(CodeEmailAlreadyVerified).forUser(user.ID)
	}

	outcome, err := s.challenges.Verify(challenge.PurposeVerification, user.ID, code, s.policy.Verification)
	if err != nil {
		return nil, internalError(err)
	}
	switch outcome {
	case challenge.OutcomeMissing:
		return nil, NewError(CodeEmailVerificationNotFound).forUser(user.ID)
	case challenge.OutcomeExpired:
		return nil, NewError(CodeEmailVerificationExpired).forUser(user.ID)
	case challenge.OutcomeInvalid:
		return nil, NewError(CodeEmailVerificationInvalid).forUser(user.ID)
	case challenge.OutcomeLocked:
		return nil, NewError(CodeEmailVerificationLocked).forUser(user.ID)
	}

	now := s.nowTime()
	user.EmailVerifiedAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(user); err != nil {
		return nil, internalError(err)
	}
	return s.openSession(user, users.ProviderEmail, req.DeviceID)
}

// openSession starts a new session family for the user. Callers hold mu.
func (s *Service) openSession(user *users.User, provider users.ProviderType, deviceID *string) (*SessionBundle, error) {
	_, pair, err := s.registry.Open(user.ID, string(provider), utils.Clone(deviceID))
	if err != nil {
		return nil, internalError(err)
	}
	return s.newBundle(user, pair), nil
}

func (s *Service) newBundle(user *users.User, pair *token.Pair) *SessionBundle {
	return &SessionBundle{
		AccessToken:  pair.Access.Token,
		RefreshToken: pair.Refresh.Token,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(s.registry.AccessTokenExpiry() / time.Second),
		User:         newUserView(user),
	}
}

// deliver hands a code to the dispatcher. It must be called without mu held.
func (s *Service) deliver(ctx context.Context, msg email.Message) error {
	err := s.dispatcher.Deliver(ctx, msg)
	s.metrics.ObserveDelivery(string(msg.Purpose), err == nil)
	if err != nil {
		s.logger.Error().Err(err).
			Str("user_id", msg.UserID).
			Str("email", email.MaskEmail(msg.Email)).
			Str("purpose", string(msg.Purpose)).
			Msg("challenge delivery failed")
	}
	return err
}

func (s *Service) observe(operation string, err error) {
	code := "OK"
	if err != nil {
		var authErr *Error
		if autherrors.As(err, &authErr) {
			code = string(authErr.Code)
		} else {
			code = string(CodeInternal)
		}
	}
	s.metrics.ObserveOutcome(operation, code)
}

func newProfile(user *users.User) *users.Profile {
	return &users.Profile{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: utils.Clone(user.DisplayName),
		Locale:      user.Locale,
		Timezone:    users.DefaultTimezone,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func localeOrDefault(locale string) string {
	if locale = strings.TrimSpace(locale); locale != "" {
		return locale
	}
	return users.DefaultLocale
}
