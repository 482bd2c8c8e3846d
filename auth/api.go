package auth

import (
	"context"
	"time"

	"github.com/chinkauchenna2021/bankauth/session"
)

// TokenGrant is the backend's response to a successful credential
// exchange: a token pair plus the profile snapshot.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	User         *session.User
}

// LoginReply is the backend's response to a password check. Exactly one
// of Grant and the temp-token fields is populated.
type LoginReply struct {
	RequiresTwoFactor bool
	TempToken         string
	ExpiresAt         time.Time
	Grant             *TokenGrant
}

// API is the REST surface the engine drives. It is implemented by
// gateway.Client; tests substitute a mock. Implementations classify
// failures into the session error taxonomy.
type API interface {
	Login(ctx context.Context, email, password string) (*LoginReply, error)
	VerifyTwoFactor(ctx context.Context, tempToken, code string) (*TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)
	// Logout revokes the given access token server-side. The token is
	// passed explicitly because the local store is already cleared when
	// the call is made.
	Logout(ctx context.Context, accessToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
	Profile(ctx context.Context) (*session.User, error)
}
