// Package http provides the HTTP surface of the tracker: handlers,
// routing, and middleware wiring. Handlers translate requests into
// plain service calls and render results or taxonomy errors as JSON.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"fintrack/internal/apperr"
	"fintrack/internal/httputil"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates a new account from an email and password.
	Register(ctx context.Context, email, password string) (models.User, error)
	// Login verifies credentials and returns a signed bearer token.
	Login(ctx context.Context, email, password string) (string, models.User, error)
	// Logout revokes the session behind the presented credential.
	Logout(ctx context.Context, sessionID string) error
	// Me returns the account of the acting principal.
	Me(ctx context.Context, p models.Principal) (models.User, error)
}

// AuthHandler handles HTTP requests for registration, login, logout,
// and the current-account endpoint.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
}

// credentialsRequest represents the JSON payload for registration and login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register requests.
// It expects a JSON body with "email" and "password" and responds with
// the created account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, apperr.Validation([]apperr.FieldViolation{{Field: "body", Reason: "must be a JSON object"}}))
		return
	}

	user, err := h.AuthService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/auth/login requests.
// On success it responds with the bearer token and the account, which
// the browser client attaches to subsequent requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, apperr.Validation([]apperr.FieldViolation{{Field: "body", Reason: "must be a JSON object"}}))
		return
	}

	token, user, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout requests. It revokes the session
// of the presented credential.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionFromContext(r.Context())
	if err := h.AuthService.Logout(r.Context(), sessionID); err != nil {
		httputil.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me requests.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, apperr.Unauthenticated("missing credential"))
		return
	}
	user, err := h.AuthService.Me(r.Context(), p)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, user)
}
