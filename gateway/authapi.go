package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/chinkauchenna2021/bankauth/auth"
	"github.com/chinkauchenna2021/bankauth/session"
)

// Compile-time check: the gateway implements the engine's API surface.
var _ auth.API = (*Client)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenReply struct {
	AccessToken       string        `json:"access_token"`
	RefreshToken      string        `json:"refresh_token"`
	User              *session.User `json:"user,omitempty"`
	RequiresTwoFactor bool          `json:"requires_two_factor,omitempty"`
	TempToken         string        `json:"temp_token,omitempty"`
	ExpiresAt         time.Time     `json:"expires_at,omitempty"`
}

func (r *tokenReply) grant() *auth.TokenGrant {
	return &auth.TokenGrant{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		User:         r.User,
	}
}

// Login posts credentials to /auth/login. The endpoint is public: no
// bearer token is attached and a 401 is a credential failure, never a
// refresh trigger.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.LoginReply, error) {
	var reply tokenReply
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &reply, requestOptions{public: true})
	if err != nil {
		return nil, err
	}
	if reply.RequiresTwoFactor {
		return &auth.LoginReply{
			RequiresTwoFactor: true,
			TempToken:         reply.TempToken,
			ExpiresAt:         reply.ExpiresAt,
		}, nil
	}
	return &auth.LoginReply{Grant: reply.grant()}, nil
}

// VerifyTwoFactor posts the temp token and code to /auth/verify-2fa.
func (c *Client) VerifyTwoFactor(ctx context.Context, tempToken, code string) (*auth.TokenGrant, error) {
	req := struct {
		TempToken string `json:"temp_token"`
		Code      string `json:"code"`
	}{TempToken: tempToken, Code: code}
	var reply tokenReply
	if err := c.do(ctx, http.MethodPost, "/auth/verify-2fa", req, &reply, requestOptions{public: true}); err != nil {
		return nil, err
	}
	return reply.grant(), nil
}

// Refresh exchanges the refresh token at /auth/refresh. This is the only
// request that ever carries the refresh token, and it travels in the
// body, never in the Authorization header.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*auth.TokenGrant, error) {
	req := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}
	var reply tokenReply
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", req, &reply, requestOptions{public: true}); err != nil {
		return nil, err
	}
	return reply.grant(), nil
}

// Logout makes the best-effort revocation call with the token captured
// before the local clear. It is never retried.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil, requestOptions{bearer: accessToken})
}

// ForgotPassword requests a reset email via /auth/forgot-password.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	req := struct {
		Email string `json:"email"`
	}{Email: email}
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", req, nil, requestOptions{public: true})
}

// ResetPassword completes a reset via /auth/reset-password.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	req := struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}{Token: token, NewPassword: newPassword}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", req, nil, requestOptions{public: true})
}

// ChangePassword changes the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	req := struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}{CurrentPassword: currentPassword, NewPassword: newPassword}
	return c.do(ctx, http.MethodPost, "/auth/change-password", req, nil, requestOptions{})
}

// VerifyEmail confirms an email-verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodGet, "/auth/verify-email/"+url.PathEscape(token), nil, nil, requestOptions{public: true})
}

// Profile fetches the authoritative profile snapshot.
func (c *Client) Profile(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &user, requestOptions{}); err != nil {
		return nil, err
	}
	return &user, nil
}
