package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials indicates a wrong email or password. The two
	// cases are deliberately indistinguishable to avoid user enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountLocked indicates the account is locked server-side.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidCode indicates a rejected two-factor code.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrExpiredTempToken indicates the step-up window has closed; the
	// user must restart login.
	ErrExpiredTempToken = errors.New("two-factor verification expired")
	// ErrSessionExpired indicates the refresh token was rejected and the
	// local session has been cleared.
	ErrSessionExpired = errors.New("session expired")
	// ErrWrongCurrentPassword indicates the current password supplied to
	// a password change was wrong.
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
	// ErrInvalidOrExpiredToken indicates a rejected password-reset or
	// email-verification token.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrAccessDenied indicates a route-guard denial of an admin route.
	ErrAccessDenied = errors.New("access denied")
)

// NetworkError wraps a transport-level failure where no server response
// was received. Callers may retry; the engine never retries on its own.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// PasswordPolicyError enumerates the policy rules a candidate password
// failed to meet.
type PasswordPolicyError struct {
	Violations []string
}

func (e *PasswordPolicyError) Error() string {
	return "password policy violation: " + strings.Join(e.Violations, "; ")
}
