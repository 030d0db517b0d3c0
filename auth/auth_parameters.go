package auth

import (
	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/users"
)

const (
	challengeMethod  = "email_code"
	challengeChannel = "email"
)

// SignupRequest registers an email/password account.
type SignupRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"display_name,omitempty"`
	Locale      string  `json:"locale,omitempty"`
	DeviceID    *string `json:"device_id,omitempty"`
}

type LoginRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	DeviceID *string `json:"device_id,omitempty"`
}

type VerifyEmailRequest struct {
	Email    string  `json:"email"`
	Code     string  `json:"code"`
	DeviceID *string `json:"device_id,omitempty"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type ConfirmPasswordResetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// OAuthLoginRequest carries the provider callback values. ProviderUserID and Email are
// client supplied and replaced by the provider's answer when codes are verified live.
type OAuthLoginRequest struct {
	Provider       string  `json:"-"`
	Code           string  `json:"code"`
	State          string  `json:"state"`
	RedirectURI    string  `json:"redirect_uri"`
	Error          string  `json:"error"`
	ProviderUserID string  `json:"provider_user_id"`
	Email          string  `json:"email"`
	DeviceID       *string `json:"device_id,omitempty"`

	// Set by the web bridge: the code was issued to the server's own callback, which the
	// exchange must present instead of RedirectURI.
	ExchangeRedirectURI string `json:"-"`
	PKCEVerifier        string `json:"-"`
}

type LogoutRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	Locale      *string `json:"locale"`
	Timezone    *string `json:"timezone"`
}

// UserView is the public shape of a user; it never carries password material.
type UserView struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	Name            *string `json:"name"`
	Locale          string  `json:"locale"`
	Provider        string  `json:"provider"`
	EmailVerified   bool    `json:"email_verified"`
	EmailVerifiedAt *string `json:"email_verified_at"`
}

// SessionBundle is returned by every operation that establishes or advances a session.
type SessionBundle struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	User         UserView `json:"user"`
}

type VerificationChallenge struct {
	VerificationRequired  bool     `json:"verification_required"`
	VerificationMethod    string   `json:"verification_method"`
	VerificationChannel   string   `json:"verification_channel"`
	VerificationExpiresIn int      `json:"verification_expires_in"`
	VerificationID        string   `json:"verification_id"`
	User                  UserView `json:"user"`
	DebugCode             *string  `json:"verification_debug_code,omitempty"`
}

// SignupResult holds either a session (verification off) or a pending verification.
type SignupResult struct {
	Session      *SessionBundle
	Verification *VerificationChallenge
}

// ResetChallenge is returned for every reset request, whether or not the account qualified.
type ResetChallenge struct {
	ResetRequested bool    `json:"reset_requested"`
	ResetMethod    string  `json:"reset_method"`
	ResetChannel   string  `json:"reset_channel"`
	ResetExpiresIn int     `json:"reset_expires_in"`
	ResetID        *string `json:"reset_id"`
	DebugCode      *string `json:"reset_debug_code,omitempty"`
}

type ResetResult struct {
	PasswordReset   bool `json:"password_reset"`
	SessionsRevoked int  `json:"sessions_revoked"`
}

type ProfileView struct {
	UserID      string  `json:"user_id"`
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name"`
	Locale      string  `json:"locale"`
	Timezone    string  `json:"timezone"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Principal is the authenticated caller behind an access token.
type Principal struct {
	User      UserView
	SessionID string
}

func newUserView(u *users.User) UserView {
	return UserView{
		ID:              u.ID,
		Email:           u.Email,
		Name:            utils.Clone(u.DisplayName),
		Locale:          u.Locale,
		Provider:        string(u.Provider),
		EmailVerified:   u.IsVerified(),
		EmailVerifiedAt: utils.ISOTime(u.EmailVerifiedAt),
	}
}

func newProfileView(p *users.Profile) *ProfileView {
	return &ProfileView{
		UserID:      p.UserID,
		Email:       p.Email,
		DisplayName: utils.Clone(p.DisplayName),
		Locale:      p.Locale,
		Timezone:    p.Timezone,
		CreatedAt:   utils.Value(utils.ISOTime(&p.CreatedAt)),
		UpdatedAt:   utils.Value(utils.ISOTime(&p.UpdatedAt)),
	}
}

func newVerificationChallenge(u *users.User, record *challenge.Record, expiresIn int) *VerificationChallenge {
	return &VerificationChallenge{
		VerificationRequired:  true,
		VerificationMethod:    challengeMethod,
		VerificationChannel:   challengeChannel,
		VerificationExpiresIn: expiresIn,
		VerificationID:        record.ID,
		User:                  newUserView(u),
	}
}

func newResetChallenge(record *challenge.Record, expiresIn int) *ResetChallenge {
	c := &ResetChallenge{
		ResetRequested: true,
		ResetMethod:    challengeMethod,
		ResetChannel:   challengeChannel,
		ResetExpiresIn: expiresIn,
	}
	if record != nil {
		c.ResetID = utils.Ptr(record.ID)
	}
	return c
}
