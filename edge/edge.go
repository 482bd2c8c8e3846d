// Package edge is the browser-facing router: it exposes the auth form
// endpoints that drive the session engine, applies the route guard at the
// edge before protected pages are served, and serves the backend API
// contract for reference.
package edge

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/chinkauchenna2021/bankauth/auth"
	"github.com/chinkauchenna2021/bankauth/guard"
	"github.com/chinkauchenna2021/bankauth/session"
	"github.com/chinkauchenna2021/bankauth/tokenstore"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Edge holds the dependencies needed by the browser-facing handlers.
type Edge struct {
	engine *auth.Engine
	tokens *tokenstore.Store
	logger *slog.Logger

	// expired latches when a failed refresh clears the session, so the
	// next session poll can show a one-time "session expired" notice.
	expired atomic.Bool
}

// Option configures the Edge.
type Option func(*Edge)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Edge) {
		e.logger = logger
	}
}

// New creates the edge router dependencies. Register the returned
// NotifySessionExpired with auth.WithOnSessionExpired at the composition
// root.
func New(engine *auth.Engine, tokens *tokenstore.Store, opts ...Option) *Edge {
	e := &Edge{
		engine: engine,
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return e
}

// NotifySessionExpired latches the one-time session-expired notice. Wire
// it to the engine's session-expired callback.
func (e *Edge) NotifySessionExpired() {
	e.expired.Store(true)
}

// Router returns a chi.Router with the auth endpoints, the guarded page
// sections, and the API contract docs mounted.
func (e *Edge) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Post("/auth/login", e.Login)
	r.Post("/auth/verify-2fa", e.VerifyTwoFactor)
	r.Post("/auth/logout", e.Logout)
	r.Post("/auth/refresh", e.Refresh)
	r.Post("/auth/forgot-password", e.ForgotPassword)
	r.Post("/auth/reset-password", e.ResetPassword)
	r.Post("/auth/change-password", e.ChangePassword)
	r.Get("/auth/verify-email/{token}", e.VerifyEmail)
	r.Get("/auth/session", e.SessionStatus)

	// Guarded page sections. The guard reads the token store fresh on
	// every navigation; the pages themselves are shells for the SPA.
	pageGuard := guard.Middleware(e.tokens)
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(pageGuard)
		r.Get("/*", e.pageShell("dashboard"))
		r.Get("/", e.pageShell("dashboard"))
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(pageGuard)
		r.Get("/*", e.pageShell("admin"))
		r.Get("/", e.pageShell("admin"))
	})

	return r
}

// LoginRequest is the browser login form payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionReply describes the current session to the front-end. Tokens
// are never included.
type SessionReply struct {
	Status         session.Status `json:"status"`
	User           *session.User  `json:"user,omitempty"`
	TwoFactor      bool           `json:"two_factor,omitempty"`
	ExpiresAt      string         `json:"expires_at,omitempty"`
	SessionExpired bool           `json:"session_expired,omitempty"`
	RedirectTo     string         `json:"redirect_to,omitempty"`
}

// Login handles POST /auth/login.
func (e *Edge) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := e.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		e.mapError(w, err)
		return
	}

	if pending, ok := result.TwoFactorRequired(); ok {
		writeJSON(w, http.StatusOK, SessionReply{
			Status:    session.StatusPendingTwoFactor,
			TwoFactor: true,
			ExpiresAt: pending.ExpiresAt.UTC().Format(time.RFC3339),
		})
		return
	}

	sess, _ := result.Authenticated()
	writeJSON(w, http.StatusOK, SessionReply{
		Status:     session.StatusAuthenticated,
		User:       sess.User,
		RedirectTo: landing(sess),
	})
}

// VerifyTwoFactorRequest is the step-up form payload.
type VerifyTwoFactorRequest struct {
	Code string `json:"code"`
}

// VerifyTwoFactor handles POST /auth/verify-2fa.
func (e *Edge) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[VerifyTwoFactorRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	sess, err := e.engine.VerifyTwoFactor(r.Context(), req.Code)
	if err != nil {
		e.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionReply{
		Status:     session.StatusAuthenticated,
		User:       sess.User,
		RedirectTo: landing(sess),
	})
}

// Logout handles POST /auth/logout. It always succeeds.
func (e *Edge) Logout(w http.ResponseWriter, r *http.Request) {
	e.engine.Logout(r.Context())
	e.expired.Store(false)
	writeJSON(w, http.StatusOK, SessionReply{Status: session.StatusAnonymous, RedirectTo: guard.LoginPath})
}

// Refresh handles POST /auth/refresh, forcing a silent token refresh.
func (e *Edge) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := e.engine.Refresh(r.Context()); err != nil {
		e.mapError(w, err)
		return
	}
	snap := e.tokens.Read()
	writeJSON(w, http.StatusOK, SessionReply{Status: session.StatusAuthenticated, User: snap.User})
}

// ForgotPasswordRequest is the reset-request form payload.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /auth/forgot-password.
func (e *Edge) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ForgotPasswordRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if err := e.engine.ForgotPassword(r.Context(), req.Email); err != nil {
		e.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResetPasswordRequest is the reset-confirmation form payload.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword handles POST /auth/reset-password. A successful reset
// does not authenticate the user.
func (e *Edge) ResetPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ResetPasswordRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if err := e.engine.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		e.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionReply{Status: session.StatusAnonymous, RedirectTo: guard.LoginPath})
}

// ChangePasswordRequest is the change-password form payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /auth/change-password.
func (e *Edge) ChangePassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ChangePasswordRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if err := e.engine.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		e.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VerifyEmail handles GET /auth/verify-email/{token}.
func (e *Edge) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if err := e.engine.VerifyEmail(r.Context(), token); err != nil {
		e.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// SessionStatus handles GET /auth/session: the front-end's bootstrap
// poll. The session-expired notice is delivered exactly once.
func (e *Edge) SessionStatus(w http.ResponseWriter, r *http.Request) {
	snap := e.tokens.Read()
	reply := SessionReply{
		Status:         e.engine.Status(),
		SessionExpired: e.expired.Swap(false),
	}
	if snap.IsAuthenticated {
		reply.User = snap.User
	}
	writeJSON(w, http.StatusOK, reply)
}

// pageShell serves a minimal shell for a guarded page section. Rendering
// the actual product pages is out of scope here; the shell exists so the
// guard has something to protect.
func (e *Edge) pageShell(section string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"section": section,
			"path":    r.URL.Path,
		})
	}
}

func landing(sess session.Session) string {
	if sess.Admin() {
		return guard.AdminHome
	}
	return guard.DashboardHome
}
