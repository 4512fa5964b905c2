package repository

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"fintrack/internal/apperr"
	"fintrack/internal/models"
)

// MemoryRecordStore keeps records in process memory behind a mutex. It
// follows the same contract as PostgresRecordStore and backs both the
// development mode and the service tests.
type MemoryRecordStore struct {
	mu      sync.Mutex
	byRes   map[string]map[string]models.Record
	failing error
}

// NewMemoryRecordStore creates an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{byRes: make(map[string]map[string]models.Record)}
}

// Fail makes every subsequent call return err until Fail(nil). Used by
// tests to simulate an unavailable store.
func (s *MemoryRecordStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = err
}

func (s *MemoryRecordStore) bucket(resource string) map[string]models.Record {
	b, ok := s.byRes[resource]
	if !ok {
		b = make(map[string]models.Record)
		s.byRes[resource] = b
	}
	return b
}

// Find fetches a single record by id within a resource type.
func (s *MemoryRecordStore) Find(ctx context.Context, resource, id string) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return models.Record{}, apperr.StoreUnavailable(s.failing)
	}
	rec, ok := s.bucket(resource)[id]
	if !ok {
		return models.Record{}, apperr.NotFound("record not found")
	}
	return rec.Clone(), nil
}

// FindMany returns the sorted page matched by q plus the total count.
// Sort order is created_at ascending with id as the tiebreaker, same as
// the Postgres store.
func (s *MemoryRecordStore) FindMany(ctx context.Context, resource string, q RecordQuery) ([]models.Record, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return nil, 0, apperr.StoreUnavailable(s.failing)
	}

	var matched []models.Record
	for _, rec := range s.bucket(resource) {
		if q.OwnerID != "" && rec.OwnerID != q.OwnerID {
			continue
		}
		if !containsFields(rec.Fields, q.Fields) {
			continue
		}
		matched = append(matched, rec.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if q.Offset >= total {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total, nil
}

// Insert persists a new record.
func (s *MemoryRecordStore) Insert(ctx context.Context, resource string, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return apperr.StoreUnavailable(s.failing)
	}
	s.bucket(resource)[rec.ID] = rec.Clone()
	return nil
}

// Replace overwrites the record when the stored version still equals
// expectedVersion, otherwise fails with Conflict or NotFound.
func (s *MemoryRecordStore) Replace(ctx context.Context, resource string, rec models.Record, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return apperr.StoreUnavailable(s.failing)
	}
	existing, ok := s.bucket(resource)[rec.ID]
	if !ok {
		return apperr.NotFound("record not found")
	}
	if existing.Version != expectedVersion {
		return apperr.Conflict("record was modified concurrently")
	}
	s.bucket(resource)[rec.ID] = rec.Clone()
	return nil
}

// Remove deletes a record by id.
func (s *MemoryRecordStore) Remove(ctx context.Context, resource, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return apperr.StoreUnavailable(s.failing)
	}
	if _, ok := s.bucket(resource)[id]; !ok {
		return apperr.NotFound("record not found")
	}
	delete(s.bucket(resource), id)
	return nil
}

// containsFields reports whether every filter pair appears in fields.
// reflect.DeepEqual mirrors JSONB containment on scalar values.
func containsFields(fields, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := fields[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
