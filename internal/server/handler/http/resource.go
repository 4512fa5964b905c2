package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/apperr"
	"fintrack/internal/httputil"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/service"
)

// ResourceService defines the CRUD operations required by the generic
// resource handler. One handler instance serves one resource type.
type ResourceService interface {
	Create(ctx context.Context, p models.Principal, payload map[string]any) (models.Record, error)
	Read(ctx context.Context, p models.Principal, id string) (models.Record, error)
	Update(ctx context.Context, p models.Principal, id string, partial map[string]any) (models.Record, error)
	Delete(ctx context.Context, p models.Principal, id string) error
	List(ctx context.Context, p models.Principal, filter service.ListFilter, pageIndex, pageSize int) (models.Page, error)
}

// ResourceHandler exposes one resource type's CRUD operations over
// HTTP. Every route group (transactions, uploads) is an instance of
// this handler over its own service.
type ResourceHandler struct {
	// Service performs the underlying resource operations.
	Service ResourceService
}

// Routes mounts the CRUD endpoints onto a chi router:
//
//	POST   /        → Create
//	GET    /        → List
//	GET    /{id}    → Read
//	PATCH  /{id}    → Update
//	DELETE /{id}    → Delete
func (h *ResourceHandler) Routes() func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Read)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	}
}

// Create handles POST requests. The body is the resource payload.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, apperr.Unauthenticated("missing credential"))
		return
	}

	payload, err := decodePayload(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	rec, err := h.Service.Create(r.Context(), p, payload)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, rec)
}

// Read handles GET /{id} requests.
func (h *ResourceHandler) Read(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, apperr.Unauthenticated("missing credential"))
		return
	}

	rec, err := h.Service.Read(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

// Update handles PATCH /{id} requests. The body carries only the fields
// to change.
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, apperr.Unauthenticated("missing credential"))
		return
	}

	partial, err := decodePayload(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	rec, err := h.Service.Update(r.Context(), p, chi.URLParam(r, "id"), partial)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /{id} requests.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, apperr.Unauthenticated("missing credential"))
		return
	}

	if err := h.Service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httputil.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET requests with pagination parameters:
//
//	page     - zero-based page index (default 0)
//	pageSize - page capacity (default 20)
//	owner    - owner filter, honored for admins only
//
// Any other query parameter filters on the payload field of the same
// name by exact string match.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
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

	filter := service.ListFilter{OwnerID: r.URL.Query().Get("owner")}
	for key, values := range r.URL.Query() {
		if key == "page" || key == "pageSize" || key == "owner" || len(values) == 0 {
			continue
		}
		if filter.Fields == nil {
			filter.Fields = make(map[string]any)
		}
		filter.Fields[key] = values[0]
	}

	page, err := h.Service.List(r.Context(), p, filter, pageIndex, pageSize)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// decodePayload reads the request body as a JSON object.
func decodePayload(r *http.Request) (map[string]any, error) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload == nil {
		return nil, apperr.Validation([]apperr.FieldViolation{{Field: "body", Reason: "must be a JSON object"}})
	}
	return payload, nil
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation([]apperr.FieldViolation{{Field: name, Reason: "must be an integer"}})
	}
	return n, nil
}
