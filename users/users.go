package users

import (
	"fmt"
	"strings"
	"time"
)

// ProviderType identifies how a user authenticates
type ProviderType string

const (
	ProviderEmail  ProviderType = "email"
	ProviderGoogle ProviderType = "google"
	ProviderKakao  ProviderType = "kakao"
)

const (
	MinPasswordLength = 8
	DefaultLocale     = "ko-KR"
	DefaultTimezone   = "UTC"
)

// User is the identity record.
type User struct {
	ID              string       // Unique identifier for the user
	Email           string       // Normalised email address
	DisplayName     *string      // Optional display name
	Provider        ProviderType // Provider the account was created or linked with
	ProviderSubject *string      // Subject issued by the federated provider
	Locale          string       // Preferred locale
	PasswordSalt    *string      // Nil for federated-only accounts
	PasswordHash    *string      // Nil for federated-only accounts
	EmailVerifiedAt *time.Time   // When the email was verified
	CreatedAt       time.Time    // Date and time when the user registered
	UpdatedAt       time.Time    // Last modification
}

// Profile holds user-facing preferences, 1:1 with User.
type Profile struct {
	UserID      string
	Email       string
	DisplayName *string
	Locale      string
	Timezone    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != "" && u.PasswordSalt != nil && *u.PasswordSalt != ""
}

// Clone returns a deep copy so stores never hand out their own records.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.DisplayName = clonePtr(u.DisplayName)
	c.ProviderSubject = clonePtr(u.ProviderSubject)
	c.PasswordSalt = clonePtr(u.PasswordSalt)
	c.PasswordHash = clonePtr(u.PasswordHash)
	c.EmailVerifiedAt = clonePtr(u.EmailVerifiedAt)
	return &c
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.DisplayName = clonePtr(p.DisplayName)
	return &c
}

// ProviderKey is the lookup key for a federated identity.
func ProviderKey(provider ProviderType, subject string) string {
	return string(provider) + ":" + subject
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail only checks for an @, deliverability is proven by the verification code.
func ValidateEmail(email string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email must contain '@'")
	}
	return nil
}

// ValidatePasswordStrength checks if password meets the minimum length
func ValidatePasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	return nil
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
