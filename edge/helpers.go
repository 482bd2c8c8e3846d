package edge

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chinkauchenna2021/bankauth/session"
)

const maxAuthBodySize = 64 * 1024

// ErrorResponse is the error envelope returned to the front-end.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Message    string   `json:"message,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxSize int64) (T, bool) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSize))
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return v, false
	}
	return v, true
}

// mapError translates engine failures into HTTP responses. Credential
// and code failures stay inline (400-class); session expiry is the one
// failure that also forces the front-end back to login.
func (e *Edge) mapError(w http.ResponseWriter, err error) {
	var policyErr *session.PasswordPolicyError
	var netErr *session.NetworkError
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid_credentials", Message: err.Error()})
	case errors.Is(err, session.ErrAccountLocked):
		writeJSON(w, http.StatusLocked, ErrorResponse{Error: "account_locked", Message: err.Error()})
	case errors.Is(err, session.ErrInvalidCode):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid_code", Message: err.Error()})
	case errors.Is(err, session.ErrExpiredTempToken):
		writeJSON(w, http.StatusGone, ErrorResponse{Error: "expired_temp_token", Message: err.Error()})
	case errors.Is(err, session.ErrSessionExpired):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "session_expired", Message: err.Error()})
	case errors.Is(err, session.ErrWrongCurrentPassword):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "wrong_current_password", Message: err.Error()})
	case errors.Is(err, session.ErrInvalidOrExpiredToken):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_or_expired_token", Message: err.Error()})
	case errors.As(err, &policyErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "password_policy", Violations: policyErr.Violations})
	case errors.As(err, &netErr):
		e.logger.Warn("upstream request failed", "error", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "network_error", Message: "could not reach the server, please try again"})
	default:
		e.logger.Error("unexpected auth failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
