package auth

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/jrsteele09/go-session-auth/email"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
)

// RequestPasswordReset mails a reset code when the address belongs to a password account.
// Other addresses get the same payload without a reset id, so the response does not reveal
// which accounts exist. A code that cannot be delivered is dropped and the failure surfaced.
func (s *Service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) (result *ResetChallenge, err error) {
	defer func() { s.observe("password_reset_request", err) }()

	emailAddress := users.NormalizeEmail(req.Email)
	if users.ValidateEmail(emailAddress) != nil {
		return nil, NewError(CodeInvalidEmail)
	}

	var msg email.Message
	var recordID string
	err = func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		user, err := s.users.GetByEmail(emailAddress)
		if err != nil || user.Provider != users.ProviderEmail || !user.HasPassword() {
			result = newResetChallenge(nil, int(s.policy.PasswordReset.TTL.Seconds()))
			return nil
		}

		record, code, err := s.challenges.Issue(challenge.PurposePasswordReset, user.ID, user.Email, s.policy.PasswordReset)
		if err != nil {
			return internalError(err)
		}
		expiresIn := record.ExpiresIn(s.nowTime())
		result = newResetChallenge(record, expiresIn)
		if s.policy.PasswordResetDebugCode {
			result.DebugCode = utils.Ptr(code)
		}
		recordID = record.ID
		msg = email.Message{
			Purpose:    challenge.PurposePasswordReset,
			Email:      user.Email,
			Code:       code,
			TTLSeconds: max(1, expiresIn),
			UserID:     user.ID,
		}
		return nil
	}()
	if err != nil || recordID == "" {
		return result, err
	}

	if err := s.deliver(ctx, msg); err != nil {
		s.discardReset(msg.UserID, recordID)
		return nil, NewError(CodePasswordResetDeliveryFailed).forUser(msg.UserID).withCause(err)
	}
	return result, nil
}

// discardReset drops an undelivered reset code unless it has been replaced or used since.
func (s *Service) discardReset(userID, recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.challenges.Discard(challenge.PurposePasswordReset, userID, recordID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("discarding undelivered reset code")
	}
}

// ConfirmPasswordReset checks a reset code, replaces the password and revokes every
// session the user holds.
func (s *Service) ConfirmPasswordReset(_ context.Context, req ConfirmPasswordResetRequest) (result *ResetResult, err error) {
	defer func() { s.observe("password_reset_confirm", err) }()

	emailAddress := users.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	if users.ValidateEmail(emailAddress) != nil {
		return nil, NewError(CodeInvalidEmail)
	}
	if users.ValidatePasswordStrength(req.NewPassword) != nil {
		return nil, NewError(CodeWeakPassword)
	}
	if code == "" {
		return nil, NewError(CodePasswordResetInvalid)
	}
	salt, hash, err := s.hasher.Create(req.NewPassword)
	if err != nil {
		return nil, internalError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Unknown and federated accounts answer like an account with no live code.
	user, err := s.users.GetByEmail(emailAddress)
	if err != nil {
		return nil, NewError(CodePasswordResetExpired)
	}
	if user.Provider != users.ProviderEmail || !user.HasPassword() {
		return nil, NewError(CodePasswordResetExpired).forUser(user.ID)
	}

	outcome, err := s.challenges.Verify(challenge.PurposePasswordReset, user.ID, code, s.policy.PasswordReset)
	if err != nil {
		return nil, internalError(err)
	}
	switch outcome {
	case challenge.OutcomeMissing, challenge.OutcomeExpired:
		return nil, NewError(CodePasswordResetExpired).forUser(user.ID)
	case challenge.OutcomeInvalid:
		return nil, NewError(CodePasswordResetInvalid).forUser(user.ID)
	case challenge.OutcomeLocked:
		return nil, NewError(CodePasswordResetLocked).forUser(user.ID)
	}

	user.PasswordSalt = &salt
	user.PasswordHash = &hash
	user.UpdatedAt = s.nowTime()
	if err := s.users.Update(user); err != nil {
		return nil, internalError(err)
	}

	revoked := s.registry.RevokeUser(user.ID, sessions.ReasonPasswordReset)
	s.logger.Info().Str("user_id", user.ID).Int("sessions_revoked", revoked).Msg("password reset")
	return &ResetResult{PasswordReset: true, SessionsRevoked: revoked}, nil
}
