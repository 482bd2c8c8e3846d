// Package gateway is the single HTTP entry point to the backend API. It
// attaches the bearer token to every request, intercepts authentication
// failures, and triggers exactly one shared refresh before retrying the
// original request once.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chinkauchenna2021/bankauth/internal/uuid"
	"github.com/chinkauchenna2021/bankauth/session"
	"github.com/chinkauchenna2021/bankauth/tokenstore"
)

const maxResponseBody = 1 << 20

// Refresher triggers the engine's refresh operation. Concurrent calls
// must share a single in-flight refresh; auth.Engine satisfies this.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Client is the API gateway. All outbound requests flow through it; no
// other component talks to the backend directly.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     *tokenstore.Store
	logger     *slog.Logger
	refresher  Refresher
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the structured logger. Token values are never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a gateway client for the backend at baseURL. Call
// SetRefresher once the engine exists; until then a 401 fails with
// ErrSessionExpired without attempting a refresh.
func New(baseURL string, tokens *tokenstore.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	c := &Client{
		baseURL: u,
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return c, nil
}

// SetRefresher wires the engine's refresh operation into the 401 path.
// Called once from the composition root; the engine and the gateway
// reference each other, so one side is bound after construction.
func (c *Client) SetRefresher(r Refresher) {
	c.refresher = r
}

// Do issues an authenticated resource request and decodes the JSON
// response into out (which may be nil). On a 401 it refreshes once and
// retries once; on refresh failure it returns ErrSessionExpired.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, body, out, requestOptions{})
}

type requestOptions struct {
	// public requests carry no bearer token and never trigger a refresh.
	public bool
	// bearer overrides the store-read token (used by logout revocation,
	// where the store is already cleared). Overridden requests are not
	// retried.
	bearer string
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts requestOptions) error {
	status, respBody, hadToken, err := c.send(ctx, method, path, body, opts)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !opts.public && opts.bearer == "" && hadToken {
		if err := c.refreshOnce(ctx); err != nil {
			return session.ErrSessionExpired
		}
		status, respBody, _, err = c.send(ctx, method, path, body, opts)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return session.ErrSessionExpired
		}
	}

	if status >= 400 {
		return mapAPIError(status, respBody)
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// send performs one HTTP round trip. Transport failures come back as
// NetworkError; the raw body is returned for status handling.
func (c *Client) send(ctx context.Context, method, path string, body any, opts requestOptions) (int, []byte, bool, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, false, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reqBody)
	if err != nil {
		return 0, nil, false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hadToken := false
	if !opts.public {
		token := opts.bearer
		if token == "" {
			token = c.tokens.Read().AccessToken
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			hadToken = true
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request transport failure", "method", method, "path", path)
		return 0, nil, hadToken, &session.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, hadToken, &session.NetworkError{Err: err}
	}
	return resp.StatusCode, respBody, hadToken, nil
}

// refreshOnce runs the engine's refresh. The engine already coalesces
// concurrent refreshes into one flight, so a burst of failing requests
// results in exactly one refresh call on the wire.
func (c *Client) refreshOnce(ctx context.Context) error {
	if c.refresher == nil {
		return session.ErrSessionExpired
	}
	c.logger.Debug("authentication failure, refreshing session")
	return c.refresher.Refresh(ctx)
}

// errorReply is the backend's error envelope.
type errorReply struct {
	Error      string   `json:"error"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

// mapAPIError classifies a non-2xx response into the session error
// taxonomy. Error messages never contain token material: only the
// backend's own code and message are surfaced.
func mapAPIError(status int, body []byte) error {
	var reply errorReply
	_ = json.Unmarshal(body, &reply)

	switch reply.Error {
	case "invalid_credentials":
		return session.ErrInvalidCredentials
	case "account_locked":
		return session.ErrAccountLocked
	case "invalid_code":
		return session.ErrInvalidCode
	case "expired_temp_token":
		return session.ErrExpiredTempToken
	case "wrong_current_password":
		return session.ErrWrongCurrentPassword
	case "invalid_or_expired_token":
		return session.ErrInvalidOrExpiredToken
	case "password_policy":
		violations := reply.Violations
		if len(violations) == 0 && reply.Message != "" {
			violations = []string{reply.Message}
		}
		return &session.PasswordPolicyError{Violations: violations}
	}

	switch status {
	case http.StatusUnauthorized:
		return session.ErrInvalidCredentials
	case http.StatusLocked:
		return session.ErrAccountLocked
	}

	msg := strings.TrimSpace(reply.Message)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Code: reply.Error, Message: msg}
}

// APIError is a server-reported failure outside the typed taxonomy.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

var _ error = (*APIError)(nil)
