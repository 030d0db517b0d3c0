package auth

import (
	"context"
	"strings"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/sessions"
)

// SessionView is the public shape of an active session.
type SessionView struct {
	ID        string  `json:"id"`
	Provider  string  `json:"provider"`
	DeviceID  *string `json:"device_id"`
	CreatedAt string  `json:"created_at"`
	Current   bool    `json:"current"`
}

// Refresh rotates a refresh token. Presenting a token that was already used revokes its
// whole family and fails with REFRESH_REUSED.
func (s *Service) Refresh(_ context.Context, refreshToken string) (bundle *SessionBundle, err error) {
	defer func() { s.observe("refresh", err) }()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, NewError(CodeRefreshInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, pair, err := s.registry.Rotate(refreshToken)
	if err != nil {
		return nil, s.sessionError(err)
	}
	user, err := s.users.GetByID(session.UserID)
	if err != nil {
		return nil, NewError(CodeUserNotFound).forUser(session.UserID)
	}
	return s.newBundle(user, pair), nil
}

// Logout revokes the sessions behind either token and reports how many were revoked.
func (s *Service) Logout(_ context.Context, req LogoutRequest) (revoked int, err error) {
	defer func() { s.observe("logout", err) }()

	accessToken := strings.TrimSpace(req.AccessToken)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	sessionIDs := s.registry.SessionIDsForTokens(accessToken, refreshToken)
	if len(sessionIDs) == 0 {
		return 0, NewError(CodeSessionNotFound)
	}
	return s.registry.RevokeSessions(sessionIDs, sessions.ReasonLogout), nil
}

// AuthenticateAccessToken resolves a bearer token to its user and session.
func (s *Service) AuthenticateAccessToken(_ context.Context, accessToken string) (principal *Principal, err error) {
	defer func() { s.observe("authenticate", err) }()

	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, NewError(CodeTokenInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.registry.Authenticate(accessToken)
	if err != nil {
		return nil, s.sessionError(err)
	}
	user, err := s.users.GetByID(record.UserID)
	if err != nil {
		return nil, NewError(CodeUserNotFound).forUser(record.UserID)
	}
	return &Principal{User: newUserView(user), SessionID: record.SessionID}, nil
}

// ListSessions returns the caller's active sessions, marking the one in use.
func (s *Service) ListSessions(_ context.Context, principal Principal) (views []SessionView, err error) {
	defer func() { s.observe("list_sessions", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.registry.ActiveSessions(principal.User.ID)
	views = make([]SessionView, 0, len(active))
	for _, session := range active {
		views = append(views, SessionView{
			ID:        session.ID,
			Provider:  session.Provider,
			DeviceID:  session.DeviceID,
			CreatedAt: utils.Value(utils.ISOTime(&session.CreatedAt)),
			Current:   session.ID == principal.SessionID,
		})
	}
	return views, nil
}

// sessionError maps a registry failure onto a client code. Callers hold mu.
func (s *Service) sessionError(err error) *Error {
	var userID, familyID string
	var failure *sessions.Error
	if autherrors.As(err, &failure) {
		userID, familyID = failure.UserID, failure.FamilyID
	}

	switch {
	case autherrors.Is(err, autherrors.ErrRefreshInvalid):
		return NewError(CodeRefreshInvalid)
	case autherrors.Is(err, autherrors.ErrRefreshExpired):
		return NewError(CodeRefreshExpired).forUser(userID)
	case autherrors.Is(err, autherrors.ErrRefreshReused):
		s.metrics.ObserveReuse()
		s.logger.Warn().
			Str("user_id", userID).
			Str("family_id", familyID).
			Msg("refresh token reuse detected, family revoked")
		return NewError(CodeRefreshReused).forUser(userID)
	case autherrors.Is(err, autherrors.ErrSessionRevoked):
		return NewError(CodeSessionRevoked).forUser(userID)
	case autherrors.Is(err, autherrors.ErrSessionNotFound):
		return NewError(CodeSessionNotFound).forUser(userID)
	case autherrors.Is(err, autherrors.ErrInvalidToken):
		return NewError(CodeTokenInvalid)
	case autherrors.Is(err, autherrors.ErrTokenExpired):
		return NewError(CodeTokenExpired).forUser(userID)
	default:
		return internalError(err)
	}
}
