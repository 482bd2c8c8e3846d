// Package session defines the client-side session model shared by the
// token store, the auth engine, the route guard and the API gateway.
package session

import "time"

// Status is the lifecycle state of the client session. It is owned and
// transitioned exclusively by the auth engine.
type Status string

const (
	// StatusAnonymous is the initial state: no usable access token.
	StatusAnonymous Status = "anonymous"
	// StatusPendingTwoFactor means the password was accepted and the
	// account requires a second factor before tokens are issued.
	StatusPendingTwoFactor Status = "pending_two_factor"
	// StatusAuthenticated means a valid access token is held.
	StatusAuthenticated Status = "authenticated"
	// StatusRefreshing means a token refresh is in flight.
	StatusRefreshing Status = "refreshing"
	// StatusExpired means the refresh token was rejected; the session is
	// on its way back to anonymous.
	StatusExpired Status = "expired"
)

// User is the cached profile snapshot returned by the backend. It is a
// cache of server truth, never authoritative.
type User struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	AccountNumber    string `json:"account_number"`
	IsAdmin          bool   `json:"is_admin"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	EmailVerified    bool   `json:"email_verified"`
	Currency         string `json:"currency"`
	Balance          string `json:"balance"`
}

// Session is the persisted snapshot of the authenticated state. The zero
// value is the empty, anonymous session.
type Session struct {
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	User            *User  `json:"user,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// IsZero reports whether the session is the empty default.
func (s Session) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.User == nil && !s.IsAuthenticated
}

// Admin reports whether the session belongs to an administrator.
func (s Session) Admin() bool {
	return s.User != nil && s.User.IsAdmin
}

// PendingTwoFactor describes an in-progress step-up verification. The
// temp token itself is held by the engine in locked memory and is never
// part of this value, so it cannot end up in UI state or persisted
// storage.
type PendingTwoFactor struct {
	// ExpiresAt is the absolute deadline after which the verification
	// must be restarted from login.
	ExpiresAt time.Time
}

// Expired reports whether the step-up deadline has passed at the given
// instant.
func (p PendingTwoFactor) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
