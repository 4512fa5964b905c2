package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/apperr"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/service"
)

// fakeResourceService records the arguments of the last call and returns
// canned results.
type fakeResourceService struct {
	record models.Record
	page   models.Page
	err    error

	gotID        string
	gotPayload   map[string]any
	gotFilter    service.ListFilter
	gotPageIndex int
	gotPageSize  int
}

func (f *fakeResourceService) Create(ctx context.Context, p models.Principal, payload map[string]any) (models.Record, error) {
	f.gotPayload = payload
	return f.record, f.err
}

func (f *fakeResourceService) Read(ctx context.Context, p models.Principal, id string) (models.Record, error) {
	f.gotID = id
	return f.record, f.err
}

func (f *fakeResourceService) Update(ctx context.Context, p models.Principal, id string, partial map[string]any) (models.Record, error) {
	f.gotID = id
	f.gotPayload = partial
	return f.record, f.err
}

func (f *fakeResourceService) Delete(ctx context.Context, p models.Principal, id string) error {
	f.gotID = id
	return f.err
}

func (f *fakeResourceService) List(ctx context.Context, p models.Principal, filter service.ListFilter, pageIndex, pageSize int) (models.Page, error) {
	f.gotFilter = filter
	f.gotPageIndex = pageIndex
	f.gotPageSize = pageSize
	return f.page, f.err
}

// newResourceRouter mounts the handler the way routes.go does, with the
// given principal pre-authenticated.
func newResourceRouter(svc ResourceService, p models.Principal) http.Handler {
	h := &ResourceHandler{Service: svc}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithPrincipal(req.Context(), p)))
		})
	})
	r.Route("/transactions", h.Routes())
	return r
}

var testPrincipal = models.Principal{ID: "u1", Role: models.RoleUser}

func TestResourceHandler_Create(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		serviceErr   error
		expectedCode int
	}{
		{
			name:         "invalid JSON",
			body:         `not a json`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "null body",
			body:         `null`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "validation error from service",
			body:         `{"amount":-1}`,
			serviceErr:   apperr.Validation([]apperr.FieldViolation{{Field: "amount", Reason: "must be at least 0.01"}}),
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "created",
			body:         `{"description":"coffee","amount":3.5,"kind":"expense","occurredAt":"2025-03-01T10:00:00Z"}`,
			expectedCode: http.StatusCreated,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeResourceService{record: models.Record{ID: "r1", OwnerID: "u1"}, err: tc.serviceErr}
			router := newResourceRouter(svc, testPrincipal)

			req := httptest.NewRequest(http.MethodPost, "/transactions/", bytes.NewBufferString(tc.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.expectedCode {
				t.Errorf("status = %d; want %d; body %s", rr.Code, tc.expectedCode, rr.Body.String())
			}
		})
	}
}

func TestResourceHandler_Read(t *testing.T) {
	svc := &fakeResourceService{record: models.Record{ID: "r1", OwnerID: "u1", Version: 1}}
	router := newResourceRouter(svc, testPrincipal)

	req := httptest.NewRequest(http.MethodGet, "/transactions/r1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rr.Code, http.StatusOK)
	}
	if svc.gotID != "r1" {
		t.Errorf("id passed to service = %q; want %q", svc.gotID, "r1")
	}

	var rec models.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if rec.ID != "r1" || rec.Version != 1 {
		t.Errorf("record = %+v; want id r1 version 1", rec)
	}
}

func TestResourceHandler_ReadNotFound(t *testing.T) {
	svc := &fakeResourceService{err: apperr.NotFound("record not found")}
	router := newResourceRouter(svc, testPrincipal)

	req := httptest.NewRequest(http.MethodGet, "/transactions/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d; want %d", rr.Code, http.StatusNotFound)
	}
}

func TestResourceHandler_Update(t *testing.T) {
	svc := &fakeResourceService{record: models.Record{ID: "r1", OwnerID: "u1", Version: 2}}
	router := newResourceRouter(svc, testPrincipal)

	req := httptest.NewRequest(http.MethodPatch, "/transactions/r1", bytes.NewBufferString(`{"category":"food"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d; body %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if svc.gotID != "r1" {
		t.Errorf("id passed to service = %q; want %q", svc.gotID, "r1")
	}
	if svc.gotPayload["category"] != "food" {
		t.Errorf("partial passed to service = %v; want category food", svc.gotPayload)
	}
}

func TestResourceHandler_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := &fakeResourceService{}
		router := newResourceRouter(svc, testPrincipal)

		req := httptest.NewRequest(http.MethodDelete, "/transactions/r1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("status = %d; want %d", rr.Code, http.StatusNoContent)
		}
	})

	t.Run("missing", func(t *testing.T) {
		svc := &fakeResourceService{err: apperr.NotFound("record not found")}
		router := newResourceRouter(svc, testPrincipal)

		req := httptest.NewRequest(http.MethodDelete, "/transactions/missing", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rr.Code, http.StatusNotFound)
		}
	})
}

func TestResourceHandler_List(t *testing.T) {
	svc := &fakeResourceService{page: models.Page{Items: []models.Record{}, TotalCount: 0, PageIndex: 2, PageSize: 5}}
	router := newResourceRouter(svc, testPrincipal)

	req := httptest.NewRequest(http.MethodGet, "/transactions/?page=2&pageSize=5&owner=u2&kind=income", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d; body %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if svc.gotPageIndex != 2 || svc.gotPageSize != 5 {
		t.Errorf("paging passed to service = (%d, %d); want (2, 5)", svc.gotPageIndex, svc.gotPageSize)
	}
	if svc.gotFilter.OwnerID != "u2" {
		t.Errorf("owner filter = %q; want %q", svc.gotFilter.OwnerID, "u2")
	}
	if svc.gotFilter.Fields["kind"] != "income" {
		t.Errorf("field filter = %v; want kind=income", svc.gotFilter.Fields)
	}
}

func TestResourceHandler_ListDefaults(t *testing.T) {
	svc := &fakeResourceService{page: models.Page{Items: []models.Record{}}}
	router := newResourceRouter(svc, testPrincipal)

	req := httptest.NewRequest(http.MethodGet, "/transactions/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rr.Code, http.StatusOK)
	}
	if svc.gotPageIndex != 0 || svc.gotPageSize != 20 {
		t.Errorf("default paging = (%d, %d); want (0, 20)", svc.gotPageIndex, svc.gotPageSize)
	}
	if svc.gotFilter.Fields != nil {
		t.Errorf("field filter = %v; want nil", svc.gotFilter.Fields)
	}
}

func TestResourceHandler_ListBadPageParam(t *testing.T) {
	svc := &fakeResourceService{}
	router := newResourceRouter(svc, testPrincipal)

	req := httptest.NewRequest(http.MethodGet, "/transactions/?page=abc", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestResourceHandler_NoPrincipal(t *testing.T) {
	h := &ResourceHandler{Service: &fakeResourceService{}}
	r := chi.NewRouter()
	r.Route("/transactions", h.Routes())

	req := httptest.NewRequest(http.MethodGet, "/transactions/", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want %d", rr.Code, http.StatusUnauthorized)
	}
}
