// Package httputil provides JSON response helpers shared by the HTTP
// handlers and middleware. It owns the mapping from the service error
// taxonomy to transport status codes; the service core never sees HTTP.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/apperr"
)

// errorBody is the uniform error envelope of every failed response.
type errorBody struct {
	Error struct {
		Code    string                  `json:"code"`
		Message string                  `json:"message"`
		Fields  []apperr.FieldViolation `json:"fields,omitempty"`
	} `json:"error"`
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError maps err to a status code and writes the uniform error
// body. Deadline breaches surface as timeouts; anything outside the
// taxonomy becomes an opaque 500 so internals never leak to clients.
func RespondError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = apperr.Timeout("request deadline exceeded")
	}

	var body errorBody
	var e *apperr.Error
	if errors.As(err, &e) {
		body.Error.Code = e.Kind.String()
		body.Error.Message = e.Message
		body.Error.Fields = e.Fields
		RespondJSON(w, StatusOf(e.Kind), body)
		return
	}

	body.Error.Code = "internal"
	body.Error.Message = "internal error"
	RespondJSON(w, http.StatusInternalServerError, body)
}

// StatusOf returns the HTTP status for a taxonomy kind.
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
