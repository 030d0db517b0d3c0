package sessions

import (
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/ids"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/pkg/errors"
)

// Error carries the owner of the token that failed, where known. It unwraps to one of the
// sentinel errors in internal/errors.
type Error struct {
	Reason   error
	UserID   string
	FamilyID string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (user=%s)", e.Reason, e.UserID)
}

func (e *Error) Unwrap() error {
	return e.Reason
}

// Registry owns sessions, families and the token records minted for them.
//
// Registry is not safe for concurrent use; its owner serialises every call. Under that
// ordering an active refresh token rotates once and any later presentation sees it used.
type Registry struct {
	tokens  *token.Manager
	nowFunc func() time.Time

	sessions       map[string]*Session
	familySessions map[string][]string
	accessTokens   map[string]*token.AccessToken  // keyed by jti
	refreshTokens  map[string]*token.RefreshToken // keyed by token value
	sessionAccess  map[string][]string            // session id to jtis
	sessionRefresh map[string][]string            // session id to refresh tokens
	userSessions   map[string][]string            // user id to session ids
}

type RegistryOption func(*Registry)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowFunc = now
	}
}

func NewRegistry(tokens *token.Manager, options ...RegistryOption) *Registry {
	r := &Registry{
		tokens:         tokens,
		nowFunc:        time.Now,
		sessions:       make(map[string]*Session),
		familySessions: make(map[string][]string),
		accessTokens:   make(map[string]*token.AccessToken),
		refreshTokens:  make(map[string]*token.RefreshToken),
		sessionAccess:  make(map[string][]string),
		sessionRefresh: make(map[string][]string),
		userSessions:   make(map[string][]string),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Registry) AccessTokenExpiry() time.Duration {
	return r.tokens.AccessTokenExpiry()
}

// Open starts a new session in a new family and mints its first token pair.
func (r *Registry) Open(userID, provider string, deviceID *string) (*Session, *token.Pair, error) {
	session := &Session{
		ID:        ids.New(ids.SessionPrefix),
		FamilyID:  ids.New(ids.FamilyPrefix),
		UserID:    userID,
		Provider:  provider,
		DeviceID:  deviceID,
		CreatedAt: r.nowFunc(),
	}

	pair, err := r.tokens.Mint(userID, session.ID, session.FamilyID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Registry.Open] Mint")
	}

	r.sessions[session.ID] = session
	r.familySessions[session.FamilyID] = append(r.familySessions[session.FamilyID], session.ID)
	r.userSessions[userID] = append(r.userSessions[userID], session.ID)
	r.record(pair)
	return session.clone(), pair, nil
}

// Rotate advances a session by exchanging an active refresh token for a new pair.
//
// The checks run in a fixed order: unknown token, revoked session, expiry, then status.
// A token that is no longer active is a reuse: the whole family is revoked before the
// error is returned.
func (r *Registry) Rotate(refreshToken string) (*Session, *token.Pair, error) {
	now := r.nowFunc()

	presented, ok := r.refreshTokens[refreshToken]
	if !ok {
		return nil, nil, &Error{Reason: autherrors.ErrRefreshInvalid}
	}
	failure := func(reason error) error {
		return &Error{Reason: reason, UserID: presented.UserID, FamilyID: presented.FamilyID}
	}

	session, ok := r.sessions[presented.SessionID]
	if !ok || session.IsRevoked() {
		return nil, nil, failure(autherrors.ErrSessionRevoked)
	}

	if !now.Before(presented.ExpiresAt) {
		presented.Status = token.RefreshExpired
		return nil, nil, failure(autherrors.ErrRefreshExpired)
	}

	if presented.Status != token.RefreshActive {
		r.RevokeFamily(presented.FamilyID, ReasonRefreshReuse)
		return nil, nil, failure(autherrors.ErrRefreshReused)
	}

	pair, err := r.tokens.Mint(session.UserID, session.ID, session.FamilyID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Registry.Rotate] Mint")
	}

	presented.Status = token.RefreshUsed
	presented.UsedAt = &now
	successor := pair.Refresh.Token
	presented.ReplacedBy = &successor
	r.record(pair)
	return session.clone(), pair, nil
}

// Authenticate validates a bearer access token: lookup, then expiry, then session state.
func (r *Registry) Authenticate(rawToken string) (*token.AccessToken, error) {
	record, ok := r.lookupAccess(rawToken)
	if !ok || record.Revoked {
		return nil, &Error{Reason: autherrors.ErrInvalidToken}
	}

	if !r.nowFunc().Before(record.ExpiresAt) {
		return nil, &Error{Reason: autherrors.ErrTokenExpired, UserID: record.UserID}
	}

	session, ok := r.sessions[record.SessionID]
	if !ok || session.IsRevoked() {
		return nil, &Error{Reason: autherrors.ErrSessionRevoked, UserID: record.UserID}
	}

	c := *record
	return &c, nil
}

// SessionIDsForTokens resolves the sessions referenced by either token. Unknown tokens
// are ignored.
func (r *Registry) SessionIDsForTokens(accessToken, refreshToken string) []string {
	found := make([]string, 0, 2)
	if accessToken != "" {
		if record, ok := r.lookupAccess(accessToken); ok {
			found = append(found, record.SessionID)
		}
	}
	if refreshToken != "" {
		if record, ok := r.refreshTokens[refreshToken]; ok {
			if len(found) == 0 || found[0] != record.SessionID {
				found = append(found, record.SessionID)
			}
		}
	}
	return found
}

// RevokeSessions revokes the given sessions and every token issued under them. It returns
// how many sessions were newly revoked.
func (r *Registry) RevokeSessions(sessionIDs []string, reason RevokeReason) int {
	now := r.nowFunc()
	revoked := 0
	for _, id := range sessionIDs {
		if session, ok := r.sessions[id]; ok && !session.IsRevoked() {
			session.RevokedAt = &now
			session.RevokedReason = reason
			revoked++
		}
		r.revokeTokensForSession(id)
	}
	return revoked
}

// RevokeFamily revokes every session in the family and every token issued under them.
func (r *Registry) RevokeFamily(familyID string, reason RevokeReason) int {
	return r.RevokeSessions(r.familySessions[familyID], reason)
}

// RevokeUser revokes every session belonging to the user.
func (r *Registry) RevokeUser(userID string, reason RevokeReason) int {
	return r.RevokeSessions(r.userSessions[userID], reason)
}

// ActiveSessions returns copies of the user's unrevoked sessions, oldest first.
func (r *Registry) ActiveSessions(userID string) []*Session {
	active := make([]*Session, 0, len(r.userSessions[userID]))
	for _, id := range r.userSessions[userID] {
		if session, ok := r.sessions[id]; ok && !session.IsRevoked() {
			active = append(active, session.clone())
		}
	}
	return active
}

// Session returns a copy of a session.
func (r *Registry) Session(id string) (*Session, bool) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return session.clone(), true
}

// RefreshToken returns a copy of a refresh token record.
func (r *Registry) RefreshToken(value string) (*token.RefreshToken, bool) {
	record, ok := r.refreshTokens[value]
	if !ok {
		return nil, false
	}
	c := *record
	return &c, true
}

func (r *Registry) record(pair *token.Pair) {
	access := pair.Access
	refresh := pair.Refresh
	r.accessTokens[access.JTI] = access
	r.sessionAccess[access.SessionID] = append(r.sessionAccess[access.SessionID], access.JTI)
	r.refreshTokens[refresh.Token] = refresh
	r.sessionRefresh[refresh.SessionID] = append(r.sessionRefresh[refresh.SessionID], refresh.Token)
}

func (r *Registry) lookupAccess(rawToken string) (*token.AccessToken, bool) {
	jti, err := r.tokens.ParseAccessToken(rawToken)
	if err != nil {
		return nil, false
	}
	record, ok := r.accessTokens[jti]
	if !ok || record.Token != rawToken {
		return nil, false
	}
	return record, true
}

func (r *Registry) revokeTokensForSession(sessionID string) {
	for _, jti := range r.sessionAccess[sessionID] {
		if record, ok := r.accessTokens[jti]; ok {
			record.Revoked = true
		}
	}
	for _, value := range r.sessionRefresh[sessionID] {
		if record, ok := r.refreshTokens[value]; ok && record.Status == token.RefreshActive {
			record.Status = token.RefreshRevoked
		}
	}
}
