package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/apperr"
	"fintrack/internal/httputil"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
)

// AdminService defines the user-management operations required by the
// admin endpoints. Role checks live in the service, not here.
type AdminService interface {
	ListUsers(ctx context.Context, p models.Principal, pageIndex, pageSize int) ([]models.User, int, error)
	SetRole(ctx context.Context, p models.Principal, userID string, role models.Role) error
	DeleteUser(ctx context.Context, p models.Principal, userID string) error
}

// AdminHandler handles HTTP requests for account administration.
type AdminHandler struct {
	// AdminService performs the underlying user-management operations.
	AdminService AdminService
}

// Routes mounts the admin endpoints onto a chi router:
//
//	GET    /users            → ListUsers
//	PATCH  /users/{id}/role  → SetRole
//	DELETE /users/{id}       → DeleteUser
func (h *AdminHandler) Routes() func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/users", h.ListUsers)
		r.Patch("/users/{id}/role", h.SetRole)
		r.Delete("/users/{id}", h.DeleteUser)
	}
}

// ListUsers handles GET /api/admin/users requests with the same page /
// pageSize parameters as record listing.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, apperr.Unauthenticated("missing credential"))
		return
	}

	pageIndex, err := queryInt(r, "page", 0)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	pageSize, err := queryInt(r, "pageSize", 20)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	users, total, err := h.AdminService.ListUsers(r.Context(), p, pageIndex, pageSize)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"items":      users,
		"totalCount": total,
		"pageIndex":  pageIndex,
		"pageSize":   pageSize,
	})
}

// SetRole handles PATCH /api/admin/users/{id}/role requests with a JSON
// body of the form {"role": "admin"}.
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, apperr.Unauthenticated("missing credential"))
		return
	}

	var req struct {
		Role models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, apperr.Validation([]apperr.FieldViolation{{Field: "body", Reason: "must be a JSON object"}}))
		return
	}

	if err := h.AdminService.SetRole(r.Context(), p, chi.URLParam(r, "id"), req.Role); err != nil {
		httputil.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser handles DELETE /api/admin/users/{id} requests.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, apperr.Unauthenticated("missing credential"))
		return
	}

	if err := h.AdminService.DeleteUser(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httputil.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
