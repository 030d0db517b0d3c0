package sessions

import "time"

// RevokeReason records why a session was ended.
type RevokeReason string

const (
	ReasonLogout        RevokeReason = "logout"
	ReasonPasswordReset RevokeReason = "password_reset"
	ReasonRefreshReuse  RevokeReason = "refresh_reuse"
)

// Session is one authenticated device/login instance. It belongs to exactly one family;
// refresh rotation keeps the session and family and only replaces the tokens.
type Session struct {
	ID            string       // Unique session identifier
	FamilyID      string       // Family created by the login that opened the session
	UserID        string       // Owner of the session
	Provider      string       // Provider used to log in (email, google, kakao)
	DeviceID      *string      // Optional client supplied device identifier
	CreatedAt     time.Time    // When the session was opened
	RevokedAt     *time.Time   // Set once the session is revoked
	RevokedReason RevokeReason // Why the session was revoked
}

func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

func (s *Session) clone() *Session {
	c := *s
	if s.DeviceID != nil {
		device := *s.DeviceID
		c.DeviceID = &device
	}
	if s.RevokedAt != nil {
		revoked := *s.RevokedAt
		c.RevokedAt = &revoked
	}
	return &c
}
