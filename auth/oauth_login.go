package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-auth/federation"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/ids"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/users"
)

const federatedEmailDomain = "foodlens.local"

// OAuthLogin maps a provider identity onto a user, creating or linking one on first sight,
// and opens a new session family. Provider identities count as verified email.
func (s *Service) OAuthLogin(ctx context.Context, req OAuthLoginRequest) (bundle *SessionBundle, err error) {
	defer func() { s.observe("oauth_login", err) }()

	providerName := strings.ToLower(strings.TrimSpace(req.Provider))
	if !federation.IsSupported(providerName) {
		return nil, NewError(CodeProviderUnsupported)
	}
	provider := users.ProviderType(providerName)

	if reason := strings.TrimSpace(req.Error); reason != "" {
		if federation.IsCancellation(reason) {
			return nil, NewError(CodeProviderCancelled)
		}
		return nil, NewError(CodeProviderRejected)
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, NewError(CodeProviderInvalidCode)
	}
	state := strings.TrimSpace(req.State)
	if state == "" {
		return nil, NewError(CodeProviderInvalidState)
	}
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if !s.redirects.Allows(provider, redirectURI) {
		return nil, NewError(CodeRedirectURIMismatch)
	}

	subject := strings.TrimSpace(req.ProviderUserID)
	claimedEmail := strings.TrimSpace(req.Email)
	if verifier, ok := s.providers[provider]; ok {
		exchangeURI := redirectURI
		if req.ExchangeRedirectURI != "" {
			exchangeURI = req.ExchangeRedirectURI
		}
		identity, err := verifier.Exchange(ctx, code, exchangeURI, req.PKCEVerifier)
		if err != nil {
			return nil, providerError(err)
		}
		subject = identity.Subject
		claimedEmail = identity.Email
	}
	if subject == "" {
		subject = federation.DeriveSubject(providerName, code, state)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.resolveFederatedUser(provider, subject, claimedEmail)
	if err != nil {
		return nil, err
	}
	return s.openSession(user, provider, req.DeviceID)
}

// resolveFederatedUser finds the user for provider:subject, linking an account with the same
// email or creating a new one. Callers hold mu.
func (s *Service) resolveFederatedUser(provider users.ProviderType, subject, claimedEmail string) (*users.User, error) {
	key := users.ProviderKey(provider, subject)
	now := s.nowTime()

	user, err := s.users.GetByProviderKey(key)
	switch {
	case err == nil:
	case autherrors.Is(err, autherrors.ErrNotFound):
		if claimedEmail == "" {
			claimedEmail = fmt.Sprintf("%s_%s@%s", provider, subject, federatedEmailDomain)
		}
		user, err = s.linkOrCreate(provider, subject, users.NormalizeEmail(claimedEmail), now)
		if err != nil {
			return nil, err
		}
		if err := s.users.LinkProvider(key, user.ID); err != nil {
			return nil, internalError(err)
		}
	default:
		return nil, internalError(err)
	}

	if !user.IsVerified() {
		user.EmailVerifiedAt = &now
		user.UpdatedAt = now
		if err := s.users.Update(user); err != nil {
			return nil, internalError(err)
		}
	}
	return user, nil
}

func (s *Service) linkOrCreate(provider users.ProviderType, subject, emailAddress string, now time.Time) (*users.User, error) {
	existing, err := s.users.GetByEmail(emailAddress)
	if err == nil {
		existing.Provider = provider
		existing.ProviderSubject = utils.Ptr(subject)
		existing.UpdatedAt = now
		if err := s.users.Update(existing); err != nil {
			return nil, internalError(err)
		}
		return existing, nil
	}
	if !autherrors.Is(err, autherrors.ErrNotFound) {
		return nil, internalError(err)
	}

	user := &users.User{
		ID:              ids.New(ids.UserPrefix),
		Email:           emailAddress,
		Provider:        provider,
		ProviderSubject: utils.Ptr(subject),
		Locale:          users.DefaultLocale,
		EmailVerifiedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.Create(user, newProfile(user)); err != nil {
		return nil, internalError(err)
	}
	return user, nil
}

func providerError(err error) *Error {
	switch {
	case autherrors.Is(err, federation.ErrInvalidCode):
		return NewError(CodeProviderInvalidCode).withCause(err)
	case autherrors.Is(err, federation.ErrUnavailable):
		return NewError(CodeProviderUnavailable).withCause(err)
	default:
		return NewError(CodeProviderRejected).withCause(err)
	}
}
