// Package service provides the business logic of the tracker: the
// generic authenticated resource CRUD service and account management.
// Persistence is delegated to repository interfaces.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/apperr"
	"fintrack/internal/authz"
	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/internal/schema"
)

// RecordStore defines the persistence operations needed by the
// ResourceService. Implementations must apply Replace atomically so two
// concurrent updates never interleave: the expectedVersion check either
// applies the whole write or fails with a conflict.
type RecordStore interface {
	// Find fetches a single record by id within a resource type.
	Find(ctx context.Context, resource, id string) (models.Record, error)
	// FindMany returns the records matched by q, sorted by creation
	// time then id, plus the total count of the filtered set.
	FindMany(ctx context.Context, resource string, q repository.RecordQuery) ([]models.Record, int, error)
	// Insert persists a new record under a fresh id.
	Insert(ctx context.Context, resource string, rec models.Record) error
	// Replace overwrites a record iff its stored version equals
	// expectedVersion.
	Replace(ctx context.Context, resource string, rec models.Record, expectedVersion int64) error
	// Remove deletes a record by id.
	Remove(ctx context.Context, resource, id string) error
}

// ListFilter narrows a list operation. For non-admin principals the
// owner is forced to the caller regardless of what was requested.
type ListFilter struct {
	// OwnerID restricts results to one owner. Honored for admins only.
	OwnerID string
	// Fields restricts results by exact payload values.
	Fields map[string]any
}

// ResourceService is the authenticated CRUD service for one resource
// type. It validates payloads against the resource schema, enforces
// ownership through the authorization gate, and delegates persistence
// to a RecordStore. It holds no state across calls.
type ResourceService struct {
	schema      schema.Schema
	store       RecordStore
	maxPageSize int

	// now and newID are swappable for tests.
	now   func() time.Time
	newID func() string
}

// NewResourceService constructs a ResourceService for the resource type
// described by sc. maxPageSize bounds list responses.
func NewResourceService(sc schema.Schema, store RecordStore, maxPageSize int) *ResourceService {
	return &ResourceService{
		schema:      sc,
		store:       store,
		maxPageSize: maxPageSize,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Resource returns the resource type name this service manages.
func (s *ResourceService) Resource() string {
	return s.schema.Resource
}

// Create validates payload against the resource schema, assigns the
// owner, id, and timestamps, and persists the record. A payload that
// violates the schema fails with a validation error listing every
// violated field and nothing is persisted.
func (s *ResourceService) Create(ctx context.Context, p models.Principal, payload map[string]any) (models.Record, error) {
	if err := authz.Authorize(p, authz.OpCreate, ""); err != nil {
		return models.Record{}, err
	}
	if err := s.schema.Validate(payload, false); err != nil {
		return models.Record{}, err
	}

	now := s.now().UTC()
	rec := models.Record{
		ID:        s.newID(),
		OwnerID:   p.ID,
		Fields:    payload,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, s.schema.Resource, rec); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// Read fetches a record by id. Fails with NotFound when absent and with
// Forbidden when the principal does not own it and is not an admin.
func (s *ResourceService) Read(ctx context.Context, p models.Principal, id string) (models.Record, error) {
	rec, err := s.store.Find(ctx, s.schema.Resource, id)
	if err != nil {
		return models.Record{}, err
	}
	if err := authz.Authorize(p, authz.OpRead, rec.OwnerID); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// Update merges partial onto the existing record after validating only
// the fields present. The record's id and owner are immutable: attempts
// to change them through the payload are ignored, not rejected. The
// write is applied with a version check so a conflicting concurrent
// update surfaces as a conflict instead of silently losing data.
func (s *ResourceService) Update(ctx context.Context, p models.Principal, id string, partial map[string]any) (models.Record, error) {
	rec, err := s.store.Find(ctx, s.schema.Resource, id)
	if err != nil {
		return models.Record{}, err
	}
	if err := authz.Authorize(p, authz.OpUpdate, rec.OwnerID); err != nil {
		return models.Record{}, err
	}

	// id and ownerId are not schema fields; strip them before
	// validation so a client echoing the full record back does not
	// trip the unknown-field check.
	merged := rec.Clone()
	changes := make(map[string]any, len(partial))
	for k, v := range partial {
		if k == "id" || k == "ownerId" {
			continue
		}
		changes[k] = v
	}
	if err := s.schema.Validate(changes, true); err != nil {
		return models.Record{}, err
	}
	for k, v := range changes {
		merged.Fields[k] = v
	}

	expected := merged.Version
	merged.Version++
	merged.UpdatedAt = s.now().UTC()
	if err := s.store.Replace(ctx, s.schema.Resource, merged, expected); err != nil {
		return models.Record{}, err
	}
	return merged, nil
}

// Delete removes a record by id. Deleting a missing id fails with
// NotFound rather than succeeding silently, so client bugs surface.
func (s *ResourceService) Delete(ctx context.Context, p models.Principal, id string) error {
	rec, err := s.store.Find(ctx, s.schema.Resource, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(p, authz.OpDelete, rec.OwnerID); err != nil {
		return err
	}
	return s.store.Remove(ctx, s.schema.Resource, id)
}

// List returns one page of the filtered record set. Non-admin callers
// are always scoped to their own records: the owner filter they supply
// is overwritten, never widened. Results are sorted by creation time
// ascending with id as the tiebreaker so pagination is deterministic.
func (s *ResourceService) List(ctx context.Context, p models.Principal, filter ListFilter, pageIndex, pageSize int) (models.Page, error) {
	if err := authz.Authorize(p, authz.OpList, ""); err != nil {
		return models.Page{}, err
	}
	if pageSize < 1 || pageSize > s.maxPageSize {
		return models.Page{}, apperr.Validation([]apperr.FieldViolation{{
			Field:  "pageSize",
			Reason: fmt.Sprintf("must be between 1 and %d", s.maxPageSize),
		}})
	}
	if pageIndex < 0 {
		return models.Page{}, apperr.Validation([]apperr.FieldViolation{{
			Field:  "pageIndex",
			Reason: "must not be negative",
		}})
	}

	owner := filter.OwnerID
	if !p.IsAdmin() {
		owner = p.ID
	}

	items, total, err := s.store.FindMany(ctx, s.schema.Resource, repository.RecordQuery{
		OwnerID: owner,
		Fields:  filter.Fields,
		Offset:  pageIndex * pageSize,
		Limit:   pageSize,
	})
	if err != nil {
		return models.Page{}, err
	}
	if items == nil {
		items = []models.Record{}
	}
	return models.Page{
		Items:      items,
		TotalCount: total,
		PageIndex:  pageIndex,
		PageSize:   pageSize,
	}, nil
}
