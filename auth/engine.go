// Package auth implements the client-side session engine: the state
// machine driving login, two-factor step-up, logout, password flows, and
// silent token refresh. The engine is the sole mutator of the token
// store.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/chinkauchenna2021/bankauth/internal/util"
	"github.com/chinkauchenna2021/bankauth/session"
	"github.com/chinkauchenna2021/bankauth/tokenstore"
)

// defaultTwoFactorTTL bounds the step-up window when the backend does not
// supply an explicit deadline.
const defaultTwoFactorTTL = 5 * time.Minute

// pendingStepUp holds the in-flight two-factor state. The temp token
// lives in a memguard enclave (encrypted at rest in memory) and is wiped
// when the step-up resolves either way. It is never persisted.
type pendingStepUp struct {
	token     *memguard.Enclave
	expiresAt time.Time
}

type refreshFlight struct {
	done chan struct{}
	err  error
}

// Engine is the central session coordinator. Build one per process and
// share it; all methods are safe for concurrent use.
type Engine struct {
	api    API
	tokens *tokenstore.Store
	logger *slog.Logger
	now    func() time.Time

	twoFactorTTL     time.Duration
	onSessionExpired func()

	mu      sync.Mutex
	status  session.Status
	pending *pendingStepUp

	refreshMu sync.Mutex
	refresh   *refreshFlight
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the engine's time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithTwoFactorTTL overrides the fallback step-up window.
func WithTwoFactorTTL(d time.Duration) Option {
	return func(e *Engine) {
		e.twoFactorTTL = d
	}
}

// WithOnSessionExpired registers a callback invoked when a failed refresh
// clears the session. It lets the UI layer distinguish an expired session
// from a voluntary logout.
func WithOnSessionExpired(fn func()) Option {
	return func(e *Engine) {
		e.onSessionExpired = fn
	}
}

// New creates an Engine over the given API client and token store.
func New(api API, tokens *tokenstore.Store, opts ...Option) *Engine {
	e := &Engine{
		api:          api,
		tokens:       tokens,
		now:          time.Now,
		twoFactorTTL: defaultTwoFactorTTL,
		status:       session.StatusAnonymous,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return e
}

// Hydrate loads the persisted session and derives the initial status.
// Must settle before the first route-guard decision is trusted.
func (e *Engine) Hydrate(ctx context.Context) error {
	if err := e.tokens.Hydrate(ctx); err != nil {
		return err
	}
	snap := e.tokens.Read()
	e.mu.Lock()
	if snap.IsAuthenticated {
		e.status = session.StatusAuthenticated
	} else {
		e.status = session.StatusAnonymous
	}
	e.mu.Unlock()
	return nil
}

// Status returns the current lifecycle state.
func (e *Engine) Status() session.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Login exchanges credentials for either an established session or a
// pending two-factor step-up. Credential failures are returned as typed
// errors; the engine never retries on its own.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = util.NormalizeEmail(email)

	reply, err := e.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if reply.RequiresTwoFactor {
		expiresAt := reply.ExpiresAt
		if expiresAt.IsZero() {
			expiresAt = e.now().Add(e.twoFactorTTL)
		}
		e.mu.Lock()
		e.dropPendingLocked()
		e.pending = &pendingStepUp{
			token:     memguard.NewEnclave([]byte(reply.TempToken)),
			expiresAt: expiresAt,
		}
		e.status = session.StatusPendingTwoFactor
		e.mu.Unlock()

		e.logger.Info("login requires two-factor verification")
		return &LoginResult{pending: &session.PendingTwoFactor{ExpiresAt: expiresAt}}, nil
	}

	sess, err := e.commitGrant(reply.Grant)
	if err != nil {
		return nil, err
	}
	e.logger.Info("login succeeded")
	return &LoginResult{sess: &sess}, nil
}

// VerifyTwoFactor completes a pending step-up with a six-digit code. The
// code is validated locally and the deadline is checked before any
// network call is made.
func (e *Engine) VerifyTwoFactor(ctx context.Context, code string) (session.Session, error) {
	if !validTwoFactorCode(code) {
		return session.Session{}, session.ErrInvalidCode
	}

	e.mu.Lock()
	if e.pending == nil {
		e.mu.Unlock()
		return session.Session{}, session.ErrExpiredTempToken
	}
	if e.now().After(e.pending.expiresAt) {
		e.dropPendingLocked()
		e.status = session.StatusAnonymous
		e.mu.Unlock()
		return session.Session{}, session.ErrExpiredTempToken
	}
	buf, err := e.pending.token.Open()
	if err != nil {
		e.dropPendingLocked()
		e.status = session.StatusAnonymous
		e.mu.Unlock()
		return session.Session{}, session.ErrExpiredTempToken
	}
	tempToken := string(buf.Bytes())
	buf.Destroy()
	e.mu.Unlock()

	grant, err := e.api.VerifyTwoFactor(ctx, tempToken, code)
	if err != nil {
		if errors.Is(err, session.ErrExpiredTempToken) {
			e.mu.Lock()
			e.dropPendingLocked()
			e.status = session.StatusAnonymous
			e.mu.Unlock()
		}
		return session.Session{}, err
	}

	// The temp token is single-use; drop it so it cannot be re-submitted.
	e.mu.Lock()
	e.dropPendingLocked()
	e.mu.Unlock()

	sess, err := e.commitGrant(grant)
	if err != nil {
		return session.Session{}, err
	}
	e.logger.Info("two-factor verification succeeded")
	return sess, nil
}

// CancelTwoFactor abandons a pending step-up and returns to anonymous.
func (e *Engine) CancelTwoFactor() {
	e.mu.Lock()
	e.dropPendingLocked()
	if e.status == session.StatusPendingTwoFactor {
		e.status = session.StatusAnonymous
	}
	e.mu.Unlock()
}

// Logout clears the local session immediately and unconditionally, then
// makes a best-effort revocation call. Local clearing is authoritative;
// revocation failure is swallowed.
func (e *Engine) Logout(ctx context.Context) {
	accessToken := e.tokens.Read().AccessToken

	e.mu.Lock()
	e.dropPendingLocked()
	e.status = session.StatusAnonymous
	e.mu.Unlock()

	if err := e.tokens.Clear(); err != nil {
		e.logger.Warn("clearing persisted session during logout", "error", err)
	}

	if accessToken != "" {
		if err := e.api.Logout(ctx, accessToken); err != nil {
			e.logger.Debug("server-side logout revocation failed", "error", err)
		}
	}
	e.logger.Info("logged out")
}

// Refresh exchanges the stored refresh token for a new token pair.
// Concurrent callers share a single in-flight refresh. A logout that
// lands while the refresh is in flight wins: the refreshed tokens are
// discarded via the store epoch check.
func (e *Engine) Refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	if fl := e.refresh; fl != nil {
		e.refreshMu.Unlock()
		select {
		case <-fl.done:
			return fl.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	fl := &refreshFlight{done: make(chan struct{})}
	e.refresh = fl
	e.refreshMu.Unlock()

	fl.err = e.doRefresh(ctx)

	e.refreshMu.Lock()
	e.refresh = nil
	e.refreshMu.Unlock()
	close(fl.done)
	return fl.err
}

func (e *Engine) doRefresh(ctx context.Context) error {
	// Snapshot and epoch must come from the same read: a logout between
	// the two would let the refreshed tokens commit against the
	// post-logout epoch.
	snap, epoch := e.tokens.ReadWithEpoch()
	if snap.RefreshToken == "" {
		return session.ErrSessionExpired
	}

	e.mu.Lock()
	e.status = session.StatusRefreshing
	e.mu.Unlock()

	grant, err := e.api.Refresh(ctx, snap.RefreshToken)
	if err != nil {
		var netErr *session.NetworkError
		if errors.As(err, &netErr) {
			// Transport failure says nothing about token validity.
			authed := e.tokens.Read().IsAuthenticated
			e.mu.Lock()
			if authed {
				e.status = session.StatusAuthenticated
			} else {
				e.status = session.StatusAnonymous
			}
			e.mu.Unlock()
			return err
		}

		e.mu.Lock()
		e.status = session.StatusExpired
		e.mu.Unlock()
		if clearErr := e.tokens.Clear(); clearErr != nil {
			e.logger.Warn("clearing session after failed refresh", "error", clearErr)
		}
		e.mu.Lock()
		e.status = session.StatusAnonymous
		e.mu.Unlock()
		if e.onSessionExpired != nil {
			e.onSessionExpired()
		}
		e.logger.Info("refresh token rejected, session cleared")
		return session.ErrSessionExpired
	}

	next := snap
	next.AccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		next.RefreshToken = grant.RefreshToken
	}
	if grant.User != nil {
		next.User = grant.User
	}
	next.IsAuthenticated = true

	if err := e.tokens.WriteAt(epoch, next); err != nil {
		// A logout (or a fresher login) committed while we were in
		// flight; its state stands.
		e.logger.Info("discarding stale refresh result")
		return session.ErrSessionExpired
	}

	e.mu.Lock()
	e.status = session.StatusAuthenticated
	e.mu.Unlock()
	e.logger.Debug("access token refreshed")
	return nil
}

// ForgotPassword requests a password-reset email.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	return e.api.ForgotPassword(ctx, util.NormalizeEmail(email))
}

// ResetPassword completes a password reset. It deliberately does not
// authenticate the user; a leaked reset link must not grant a session.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	return e.api.ResetPassword(ctx, token, newPassword)
}

// ChangePassword changes the password of the authenticated user.
func (e *Engine) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	return e.api.ChangePassword(ctx, currentPassword, newPassword)
}

// VerifyEmail confirms an email-verification token.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	return e.api.VerifyEmail(ctx, token)
}

// RefreshProfile re-fetches the profile snapshot and updates the cached
// user. The update is epoch-checked so it cannot resurrect a session
// cleared while the fetch was in flight.
func (e *Engine) RefreshProfile(ctx context.Context) (*session.User, error) {
	epoch := e.tokens.Epoch()
	user, err := e.api.Profile(ctx)
	if err != nil {
		return nil, err
	}
	snap := e.tokens.Read()
	if !snap.IsAuthenticated {
		return user, nil
	}
	snap.User = user
	if err := e.tokens.WriteAt(epoch, snap); err != nil {
		e.logger.Debug("discarding stale profile update")
	}
	return user, nil
}

// commitGrant writes a token grant to the store and moves to
// authenticated. Grant commits are last-write-wins: a fresh
// user-initiated login supersedes whatever came before it.
func (e *Engine) commitGrant(grant *TokenGrant) (session.Session, error) {
	sess := session.Session{
		AccessToken:     grant.AccessToken,
		RefreshToken:    grant.RefreshToken,
		User:            grant.User,
		IsAuthenticated: true,
	}
	if err := e.tokens.Write(sess); err != nil {
		e.logger.Warn("persisting session", "error", err)
	}
	e.mu.Lock()
	// A grant supersedes any step-up left over from an earlier attempt;
	// its temp token must not remain submittable.
	e.dropPendingLocked()
	e.status = session.StatusAuthenticated
	e.mu.Unlock()
	return sess, nil
}

// dropPendingLocked wipes the pending step-up state. Caller holds e.mu.
func (e *Engine) dropPendingLocked() {
	e.pending = nil
}
