package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/apperr"
	"fintrack/internal/httputil"
	"fintrack/internal/middleware"
)

// RouterConfig carries the collaborators and environment switches the
// router needs.
type RouterConfig struct {
	// Verifier validates bearer credentials on protected routes.
	Verifier middleware.CredentialVerifier
	// Sessions rejects credentials whose session has been revoked.
	Sessions middleware.SessionChecker
	// Logger backs the request-logging middleware.
	Logger *zap.Logger
	// Verbose enables per-request logging (development).
	Verbose bool
	// StaticDir, when non-empty, enables SPA hosting with an
	// index.html fallback (production).
	StaticDir string
	// RequestTimeout is the deadline imposed on every request.
	RequestTimeout time.Duration
}

// NewRouter constructs the HTTP handler serving the tracker API.
//
// Routes:
//
//	GET    /api                         → liveness text
//	POST   /api/auth/register           → authHandler.Register (public)
//	POST   /api/auth/login              → authHandler.Login (public)
//	POST   /api/auth/logout             → authHandler.Logout
//	GET    /api/auth/me                 → authHandler.Me
//	.../api/transactions                → transactions CRUD
//	.../api/upload                      → uploads CRUD
//	.../api/admin/users                 → admin account management
//
// Middleware chain (applied in order): request logging, security
// headers, CORS (preflight answered before authentication), request
// timeout, JSON content-type enforcement, bearer authentication with
// the public auth endpoints skipped.
func NewRouter(
	authHandler *AuthHandler,
	transactions *ResourceHandler,
	uploads *ResourceHandler,
	admin *AdminHandler,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestLogging(cfg.Logger, cfg.Verbose))
	r.Use(middleware.WithSecurityHeaders())
	r.Use(middleware.WithCORS())

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(chiMiddleware.Timeout(timeout))

	r.Route("/api", func(r chi.Router) {
		// Only allow requests with Content-Type: application/json
		r.Use(chiMiddleware.AllowContentType("application/json"))
		r.Use(middleware.BearerAuth(cfg.Verifier, cfg.Sessions,
			"/api", "/api/", "/api/auth/register", "/api/auth/login"))

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("API is running"))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Route("/transactions", transactions.Routes())
		r.Route("/upload", uploads.Routes())
		r.Route("/admin", admin.Routes())

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			httputil.RespondError(w, apperr.NotFound("route not found"))
		})
	})

	if cfg.StaticDir != "" {
		r.NotFound(spaHandler(cfg.StaticDir))
	}

	return r
}

// spaHandler serves built frontend assets, falling back to index.html
// for unknown paths so client-side routing works after a full reload.
func spaHandler(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean(strings.TrimPrefix(r.URL.Path, "/")))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}
}
