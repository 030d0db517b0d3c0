package auth

import (
	"fmt"
	"net/http"
)

// Kind groups error codes by cause; the HTTP layer only needs Status.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuthn      Kind = "authn"
	KindLockout    Kind = "lockout"
	KindDelivery   Kind = "delivery"
	KindProvider   Kind = "provider"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Code is the stable, client visible identifier of a failure.
type Code string

const (
	CodeInvalidRequest                  Code = "INVALID_REQUEST"
	CodeInvalidEmail                    Code = "INVALID_EMAIL"
	CodeWeakPassword                    Code = "WEAK_PASSWORD"
	CodeEmailAlreadyExists              Code = "EMAIL_ALREADY_EXISTS"
	CodeInvalidCredentials              Code = "INVALID_CREDENTIALS"
	CodeEmailNotVerified                Code = "EMAIL_NOT_VERIFIED"
	CodeEmailVerificationNotFound       Code = "EMAIL_VERIFICATION_NOT_FOUND"
	CodeEmailAlreadyVerified            Code = "EMAIL_ALREADY_VERIFIED"
	CodeEmailVerificationExpired        Code = "EMAIL_VERIFICATION_EXPIRED"
	CodeEmailVerificationInvalid        Code = "EMAIL_VERIFICATION_INVALID"
	CodeEmailVerificationLocked         Code = "EMAIL_VERIFICATION_LOCKED"
	CodeEmailVerificationDeliveryFailed Code = "EMAIL_VERIFICATION_DELIVERY_FAILED"
	CodePasswordResetInvalid            Code = "PASSWORD_RESET_INVALID"
	CodePasswordResetExpired            Code = "PASSWORD_RESET_EXPIRED"
	CodePasswordResetLocked             Code = "PASSWORD_RESET_LOCKED"
	CodePasswordResetDeliveryFailed     Code = "PASSWORD_RESET_DELIVERY_FAILED"
	CodeProviderUnsupported             Code = "PROVIDER_UNSUPPORTED"
	CodeProviderCancelled               Code = "PROVIDER_CANCELLED"
	CodeProviderRejected                Code = "PROVIDER_REJECTED"
	CodeProviderInvalidCode             Code = "PROVIDER_INVALID_CODE"
	CodeProviderInvalidState            Code = "PROVIDER_INVALID_STATE"
	CodeProviderUnavailable             Code = "PROVIDER_UNAVAILABLE"
	CodeRedirectURIMismatch             Code = "REDIRECT_URI_MISMATCH"
	CodeRefreshInvalid                  Code = "REFRESH_INVALID"
	CodeRefreshExpired                  Code = "REFRESH_EXPIRED"
	CodeRefreshReused                   Code = "REFRESH_REUSED"
	CodeSessionRevoked                  Code = "SESSION_REVOKED"
	CodeSessionNotFound                 Code = "SESSION_NOT_FOUND"
	CodeTokenInvalid                    Code = "TOKEN_INVALID"
	CodeTokenExpired                    Code = "TOKEN_EXPIRED"
	CodeUserNotFound                    Code = "USER_NOT_FOUND"
	CodeProfileNotFound                 Code = "PROFILE_NOT_FOUND"
	CodeRateLimited                     Code = "RATE_LIMITED"
	CodeInternal                        Code = "INTERNAL_ERROR"
)

type errorSpec struct {
	kind    Kind
	status  int
	message string
}

var catalogue = map[Code]errorSpec{
	CodeInvalidRequest:                  {KindValidation, http.StatusBadRequest, "Invalid request body."},
	CodeInvalidEmail:                    {KindValidation, http.StatusBadRequest, "Invalid email format."},
	CodeWeakPassword:                    {KindValidation, http.StatusBadRequest, "Password must be at least 8 characters."},
	CodeEmailAlreadyExists:              {KindConflict, http.StatusConflict, "Email is already registered."},
	CodeInvalidCredentials:              {KindAuthn, http.StatusUnauthorized, "Invalid email or password."},
	CodeEmailNotVerified:                {KindAuthn, http.StatusForbidden, "Email verification is required before login."},
	CodeEmailVerificationNotFound:       {KindNotFound, http.StatusNotFound, "Verification request not found."},
	CodeEmailAlreadyVerified:            {KindConflict, http.StatusConflict, "Email is already verified."},
	CodeEmailVerificationExpired:        {KindAuthn, http.StatusBadRequest, "Verification code expired. Please sign up again."},
	CodeEmailVerificationInvalid:        {KindAuthn, http.StatusBadRequest, "Invalid verification code."},
	CodeEmailVerificationLocked:         {KindLockout, http.StatusTooManyRequests, "Too many invalid verification attempts."},
	CodeEmailVerificationDeliveryFailed: {KindDelivery, http.StatusServiceUnavailable, "Failed to deliver verification email."},
	CodePasswordResetInvalid:            {KindAuthn, http.StatusBadRequest, "Invalid password reset code."},
	CodePasswordResetExpired:            {KindAuthn, http.StatusBadRequest, "Password reset code expired."},
	CodePasswordResetLocked:             {KindLockout, http.StatusTooManyRequests, "Too many invalid password reset attempts."},
	CodePasswordResetDeliveryFailed:     {KindDelivery, http.StatusServiceUnavailable, "Failed to deliver password reset email."},
	CodeProviderUnsupported:             {KindValidation, http.StatusBadRequest, "Unsupported provider."},
	CodeProviderCancelled:               {KindProvider, http.StatusBadRequest, "Provider login was cancelled."},
	CodeProviderRejected:                {KindProvider, http.StatusBadRequest, "Provider login failed."},
	CodeProviderInvalidCode:             {KindProvider, http.StatusBadRequest, "Missing or invalid authorization code."},
	CodeProviderInvalidState:            {KindProvider, http.StatusBadRequest, "Missing or invalid state value."},
	CodeProviderUnavailable:             {KindProvider, http.StatusBadGateway, "Provider is unavailable."},
	CodeRedirectURIMismatch:             {KindValidation, http.StatusBadRequest, "Redirect URI mismatch."},
	CodeRefreshInvalid:                  {KindAuthn, http.StatusUnauthorized, "Invalid refresh token."},
	CodeRefreshExpired:                  {KindAuthn, http.StatusUnauthorized, "Refresh token has expired."},
	CodeRefreshReused:                   {KindAuthn, http.StatusUnauthorized, "Refresh token reuse detected. Session family was revoked."},
	CodeSessionRevoked:                  {KindAuthn, http.StatusUnauthorized, "Session has been revoked."},
	CodeSessionNotFound:                 {KindAuthn, http.StatusUnauthorized, "Session not found."},
	CodeTokenInvalid:                    {KindAuthn, http.StatusUnauthorized, "Invalid access token."},
	CodeTokenExpired:                    {KindAuthn, http.StatusUnauthorized, "Access token has expired."},
	CodeUserNotFound:                    {KindNotFound, http.StatusNotFound, "User not found."},
	CodeProfileNotFound:                 {KindNotFound, http.StatusNotFound, "Profile not found."},
	CodeRateLimited:                     {KindLockout, http.StatusTooManyRequests, "Too many requests."},
	CodeInternal:                        {KindInternal, http.StatusInternalServerError, "Internal error."},
}

// Error is the only error type returned by Service methods.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Status  int
	UserID  string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds an Error from the catalogue. Unknown codes become internal errors.
func NewError(code Code) *Error {
	spec, ok := catalogue[code]
	if !ok {
		code = CodeInternal
		spec = catalogue[CodeInternal]
	}
	return &Error{Kind: spec.kind, Code: code, Message: spec.message, Status: spec.status}
}

func (e *Error) forUser(userID string) *Error {
	e.UserID = userID
	return e
}

func (e *Error) withCause(err error) *Error {
	e.cause = err
	return e
}

func internalError(err error) *Error {
	return NewError(CodeInternal).withCause(err)
}
