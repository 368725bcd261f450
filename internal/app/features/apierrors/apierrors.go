// Package apierrors provides uniform JSON error and success responses
// for the API surface.
package apierrors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// errorBody is the JSON structure for error responses.
type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v as JSON with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error body with the given status code.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// BadRequest writes a 400 with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadRequest, msg)
}

// NotFound writes a 404 with the given message.
func NotFound(w http.ResponseWriter, msg string) {
	Error(w, http.StatusNotFound, msg)
}

// Conflict writes a 409 with the given message.
func Conflict(w http.ResponseWriter, msg string) {
	Error(w, http.StatusConflict, msg)
}

// Internal logs err and writes a generic 500. The underlying error is
// never exposed to callers.
func Internal(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	log.Error(op+" failed", zap.Error(err))
	Error(w, http.StatusInternalServerError, "internal error")
}

// Decode parses the request body as JSON into dst. On failure it writes
// a 400 and returns false; handlers should return immediately.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
