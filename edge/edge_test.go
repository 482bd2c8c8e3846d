package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chinkauchenna2021/bankauth/auth"
	"github.com/chinkauchenna2021/bankauth/session"
	"github.com/chinkauchenna2021/bankauth/tokenstore"
)

// stubAPI scripts the backend responses the engine sees.
type stubAPI struct {
	loginReply *auth.LoginReply
	loginErr   error

	verifyGrant *auth.TokenGrant
	verifyErr   error

	refreshGrant *auth.TokenGrant
	refreshErr   error

	opErr error
}

func (s *stubAPI) Login(ctx context.Context, email, password string) (*auth.LoginReply, error) {
	return s.loginReply, s.loginErr
}

func (s *stubAPI) VerifyTwoFactor(ctx context.Context, tempToken, code string) (*auth.TokenGrant, error) {
	return s.verifyGrant, s.verifyErr
}

func (s *stubAPI) Refresh(ctx context.Context, refreshToken string) (*auth.TokenGrant, error) {
	return s.refreshGrant, s.refreshErr
}

func (s *stubAPI) Logout(ctx context.Context, accessToken string) error { return nil }
func (s *stubAPI) ForgotPassword(ctx context.Context, email string) error { return s.opErr }
func (s *stubAPI) ResetPassword(ctx context.Context, token, pw string) error {
	return s.opErr
}
func (s *stubAPI) ChangePassword(ctx context.Context, cur, next string) error {
	return s.opErr
}
func (s *stubAPI) VerifyEmail(ctx context.Context, token string) error { return s.opErr }
func (s *stubAPI) Profile(ctx context.Context) (*session.User, error) { return nil, s.opErr }

var _ auth.API = (*stubAPI)(nil)

func newTestEdge(t *testing.T, api auth.API) (*Edge, *httptest.Server, *tokenstore.Store) {
	t.Helper()
	store := tokenstore.New(tokenstore.NewMemoryBackend())
	engine := auth.New(api, store)
	require.NoError(t, engine.Hydrate(t.Context()))

	e := New(engine, store)
	srv := httptest.NewServer(e.Router())
	t.Cleanup(srv.Close)
	return e, srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeReply[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestEdgeLogin_Success(t *testing.T) {
	api := &stubAPI{loginReply: &auth.LoginReply{Grant: &auth.TokenGrant{
		AccessToken:  "access-secret",
		RefreshToken: "refresh-secret",
		User:         &session.User{ID: "u-1", Name: "Pat"},
	}}}
	_, srv, store := newTestEdge(t, api)

	resp := postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "user@example.com", Password: "hunter2A"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "access-secret", "tokens must never reach a response body")
	assert.NotContains(t, string(body), "refresh-secret")

	var reply SessionReply
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, session.StatusAuthenticated, reply.Status)
	assert.Equal(t, "Pat", reply.User.Name)
	assert.Equal(t, "/dashboard", reply.RedirectTo)
	assert.Equal(t, "access-secret", store.Read().AccessToken, "the token lives in the store, not the response")
}

func TestEdgeLogin_MissingFields(t *testing.T) {
	_, srv, _ := newTestEdge(t, &stubAPI{})

	resp := postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "user@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEdgeLogin_InvalidCredentials(t *testing.T) {
	_, srv, _ := newTestEdge(t, &stubAPI{loginErr: session.ErrInvalidCredentials})

	resp := postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "user@example.com", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	reply := decodeReply[ErrorResponse](t, resp)
	assert.Equal(t, "invalid_credentials", reply.Error)
}

func TestEdgeLogin_MalformedBody(t *testing.T) {
	_, srv, _ := newTestEdge(t, &stubAPI{})

	resp, err := http.Post(srv.URL+"/auth/login", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEdgeLogin_TwoFactorChallenge(t *testing.T) {
	api := &stubAPI{loginReply: &auth.LoginReply{RequiresTwoFactor: true, TempToken: "temp-secret"}}
	_, srv, store := newTestEdge(t, api)

	resp := postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "user@example.com", Password: "hunter2A"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "temp-secret", "the temp token stays inside the engine")

	var reply SessionReply
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, session.StatusPendingTwoFactor, reply.Status)
	assert.True(t, reply.TwoFactor)
	assert.NotEmpty(t, reply.ExpiresAt)
	assert.True(t, store.Read().IsZero())
}

func TestEdgeVerifyTwoFactor(t *testing.T) {
	api := &stubAPI{
		loginReply: &auth.LoginReply{RequiresTwoFactor: true, TempToken: "temp-1"},
		verifyGrant: &auth.TokenGrant{
			AccessToken: "a1", RefreshToken: "r1",
			User: &session.User{ID: "u-1", IsAdmin: true},
		},
	}
	_, srv, _ := newTestEdge(t, api)

	postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "user@example.com", Password: "hunter2A"})

	resp := postJSON(t, srv.URL+"/auth/verify-2fa", VerifyTwoFactorRequest{Code: "123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reply := decodeReply[SessionReply](t, resp)
	assert.Equal(t, session.StatusAuthenticated, reply.Status)
	assert.Equal(t, "/admin", reply.RedirectTo, "admins land on the admin home")
}

func TestEdgeVerifyTwoFactor_BadCode(t *testing.T) {
	api := &stubAPI{loginReply: &auth.LoginReply{RequiresTwoFactor: true, TempToken: "temp-1"}}
	_, srv, _ := newTestEdge(t, api)

	postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "user@example.com", Password: "hunter2A"})

	resp := postJSON(t, srv.URL+"/auth/verify-2fa", VerifyTwoFactorRequest{Code: "12"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_code", decodeReply[ErrorResponse](t, resp).Error)
}

func TestEdgeVerifyTwoFactor_NoPendingStepUp(t *testing.T) {
	_, srv, _ := newTestEdge(t, &stubAPI{})

	resp := postJSON(t, srv.URL+"/auth/verify-2fa", VerifyTwoFactorRequest{Code: "123456"})
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestEdgeSessionStatus(t *testing.T) {
	api := &stubAPI{loginReply: &auth.LoginReply{Grant: &auth.TokenGrant{
		AccessToken: "a1", RefreshToken: "r1", User: &session.User{ID: "u-1", Name: "Pat"},
	}}}
	_, srv, _ := newTestEdge(t, api)

	resp, err := http.Get(srv.URL + "/auth/session")
	require.NoError(t, err)
	reply := decodeReply[SessionReply](t, resp)
	assert.Equal(t, session.StatusAnonymous, reply.Status)
	assert.Nil(t, reply.User)

	postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "user@example.com", Password: "hunter2A"})

	resp, err = http.Get(srv.URL + "/auth/session")
	require.NoError(t, err)
	reply = decodeReply[SessionReply](t, resp)
	assert.Equal(t, session.StatusAuthenticated, reply.Status)
	require.NotNil(t, reply.User)
	assert.Equal(t, "Pat", reply.User.Name)
}

func TestEdgeSessionStatus_ExpiredNoticeDeliveredOnce(t *testing.T) {
	e, srv, _ := newTestEdge(t, &stubAPI{})
	e.NotifySessionExpired()

	resp, err := http.Get(srv.URL + "/auth/session")
	require.NoError(t, err)
	assert.True(t, decodeReply[SessionReply](t, resp).SessionExpired)

	resp, err = http.Get(srv.URL + "/auth/session")
	require.NoError(t, err)
	assert.False(t, decodeReply[SessionReply](t, resp).SessionExpired, "the notice is one-shot")
}

func TestEdgeLogout(t *testing.T) {
	api := &stubAPI{loginReply: &auth.LoginReply{Grant: &auth.TokenGrant{
		AccessToken: "a1", RefreshToken: "r1", User: &session.User{ID: "u-1"},
	}}}
	_, srv, store := newTestEdge(t, api)

	postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "user@example.com", Password: "hunter2A"})
	require.True(t, store.Read().IsAuthenticated)

	resp := postJSON(t, srv.URL+"/auth/logout", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, store.Read().IsZero())

	reply := decodeReply[SessionReply](t, resp)
	assert.Equal(t, session.StatusAnonymous, reply.Status)
	assert.Equal(t, "/auth/login", reply.RedirectTo)
}

func TestEdgeResetPassword_PolicyViolations(t *testing.T) {
	_, srv, _ := newTestEdge(t, &stubAPI{})

	resp := postJSON(t, srv.URL+"/auth/reset-password", ResetPasswordRequest{Token: "tok", NewPassword: "short"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	reply := decodeReply[ErrorResponse](t, resp)
	assert.Equal(t, "password_policy", reply.Error)
	assert.NotEmpty(t, reply.Violations)
}

func TestEdgeGuardedPages(t *testing.T) {
	api := &stubAPI{loginReply: &auth.LoginReply{Grant: &auth.TokenGrant{
		AccessToken: "a1", RefreshToken: "r1", User: &session.User{ID: "u-1"},
	}}}
	_, srv, _ := newTestEdge(t, api)

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(srv.URL + "/dashboard")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login?next=%2Fdashboard", resp.Header.Get("Location"))

	postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "user@example.com", Password: "hunter2A"})

	resp, err = client.Get(srv.URL + "/dashboard")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/admin")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestEdgeServesContractDocs(t *testing.T) {
	_, srv, _ := newTestEdge(t, &stubAPI{})

	resp, err := http.Get(srv.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
