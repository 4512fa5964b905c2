// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"fintrack/internal/apperr"
	"fintrack/internal/httputil"
	"fintrack/internal/models"
)

type ctxKey string

const (
	principalKey ctxKey = "principal"
	sessionKey   ctxKey = "session"
)

// CredentialVerifier validates a bearer credential and yields the
// acting principal together with the session id used for revocation.
type CredentialVerifier interface {
	Verify(credential string) (models.Principal, string, error)
}

// SessionChecker reports whether an issued session is still active.
type SessionChecker interface {
	SessionActive(ctx context.Context, sessionID string) (bool, error)
}

// BearerAuth is a middleware that enforces bearer-token authentication.
//
// It extracts the credential from the Authorization header, verifies
// its signature and expiry, and confirms the session has not been
// revoked. Paths listed in skip are excluded so clients can register
// and log in without a credential.
//
// On success, it stores the resulting Principal and session id in the
// request context so handlers can retrieve them downstream.
func BearerAuth(verifier CredentialVerifier, sessions SessionChecker, skip ...string) func(http.Handler) http.Handler {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.RespondError(w, apperr.Unauthenticated("missing Authorization header"))
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				httputil.RespondError(w, apperr.Unauthenticated("invalid Authorization header format"))
				return
			}

			principal, sessionID, err := verifier.Verify(parts[1])
			if err != nil {
				httputil.RespondError(w, err)
				return
			}

			active, err := sessions.SessionActive(r.Context(), sessionID)
			if err != nil {
				httputil.RespondError(w, err)
				return
			}
			if !active {
				httputil.RespondError(w, apperr.Unauthenticated("credential has been revoked"))
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = WithSession(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal returns a context carrying the acting principal.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// WithSession returns a context carrying the session id of the
// presented credential.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// GetPrincipalFromContext extracts the authenticated principal from the
// request context. The second return is false on unauthenticated paths.
func GetPrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

// GetSessionFromContext extracts the session id of the presented
// credential. Returns an empty string if not found.
func GetSessionFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sessionKey).(string); ok {
		return s
	}
	return ""
}
