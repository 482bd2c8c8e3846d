package auth

import "github.com/chinkauchenna2021/bankauth/session"

// LoginResult is the tagged outcome of a login attempt: either the
// session is established, or a two-factor step-up is required. Exactly
// one accessor reports ok.
type LoginResult struct {
	sess    *session.Session
	pending *session.PendingTwoFactor
}

// Authenticated returns the established session if login completed
// without a second factor.
func (r *LoginResult) Authenticated() (session.Session, bool) {
	if r.sess == nil {
		return session.Session{}, false
	}
	return *r.sess, true
}

// TwoFactorRequired returns the pending step-up details if the account
// requires a second factor. The temp token stays inside the engine.
func (r *LoginResult) TwoFactorRequired() (session.PendingTwoFactor, bool) {
	if r.pending == nil {
		return session.PendingTwoFactor{}, false
	}
	return *r.pending, true
}
