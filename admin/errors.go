package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/metacache/auth"
	"github.com/jonwraymond/metacache/metacache"
)

// ErrEpochNotBumpable is returned by /v1/epoch/bump when the configured
// epoch source has a fixed identity.
var ErrEpochNotBumpable = errors.New("admin: epoch source cannot be bumped")

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// StatusFor maps an error to its HTTP status. A store failure reported
// while loading a row is a 503 even when it also matches ErrNotFound.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, metacache.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, metacache.ErrDataAccess), errors.Is(err, metacache.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, metacache.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrKeyNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, ErrEpochNotBumpable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
	})
}

// authFailure adapts writeError to auth.FailureFunc.
func authFailure(w http.ResponseWriter, _ *http.Request, status int, err error) {
	writeError(w, status, err)
}
