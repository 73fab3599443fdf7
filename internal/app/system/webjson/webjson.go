// Package webjson writes the API's JSON responses and carries the error
// taxonomy shared by every handler: Unauthenticated (401), Forbidden (403),
// NotFound (404), Validation (400), and Upstream (degraded, never a hard
// failure except at the top-level catch-all).
package webjson

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// errorBody is the wire shape for every error response.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// BadRequest writes a 400 with the given message, optionally tagged with a
// machine-readable error code.
func BadRequest(w http.ResponseWriter, msg string, code ...string) {
	body := errorBody{Message: msg}
	if len(code) > 0 {
		body.Error = code[0]
	}
	Write(w, http.StatusBadRequest, body)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, msg string) {
	Write(w, http.StatusUnauthorized, errorBody{Message: msg})
}

// Forbidden writes a 403.
func Forbidden(w http.ResponseWriter, msg string) {
	Write(w, http.StatusForbidden, errorBody{Message: msg})
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, msg string) {
	Write(w, http.StatusNotFound, errorBody{Message: msg})
}

// ErrorLogger logs handler failures and renders generic 500 bodies. Stack
// detail is included in the response only outside production.
type ErrorLogger struct {
	log  *zap.Logger
	prod bool
}

// NewErrorLogger constructs an ErrorLogger. prod controls whether internal
// error strings leak into response bodies.
func NewErrorLogger(logger *zap.Logger, prod bool) *ErrorLogger {
	return &ErrorLogger{log: logger, prod: prod}
}

// LogServerError logs logMsg with the underlying error and writes a 500
// whose body carries userMsg (and the raw error outside production).
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.log.Error(logMsg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))

	body := errorBody{Message: userMsg}
	if !e.prod && err != nil {
		body.Error = err.Error()
	}
	Write(w, http.StatusInternalServerError, body)
}

// LogBadRequest logs at warn level and writes a 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.log.Warn(logMsg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	BadRequest(w, userMsg)
}
