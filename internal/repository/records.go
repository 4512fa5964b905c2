// Package repository provides persistence implementations for records,
// users, and sessions against a PostgreSQL database, plus an in-memory
// record store with identical semantics.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"fintrack/internal/apperr"
	"fintrack/internal/models"
)

// RecordQuery selects and pages records inside one resource type.
type RecordQuery struct {
	// OwnerID restricts results to one owner when non-empty.
	OwnerID string
	// Fields restricts results to records whose payload contains the
	// given key/value pairs exactly.
	Fields map[string]any
	// Offset is the number of sorted records to skip.
	Offset int
	// Limit caps the number of records returned. Zero means no rows,
	// only the total count.
	Limit int
}

// PostgresRecordStore implements record persistence against PostgreSQL.
// Records are sorted by (created_at, id) so pagination is deterministic.
type PostgresRecordStore struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresRecordStore creates a new PostgresRecordStore with the
// given database connection.
func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{DB: db}
}

// Find fetches a single record by id within a resource type.
// Fails with apperr.NotFound when the record does not exist.
func (s *PostgresRecordStore) Find(ctx context.Context, resource, id string) (models.Record, error) {
	var (
		rec    models.Record
		fields []byte
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, owner_id, fields, version, created_at, updated_at
		  FROM records WHERE resource = $1 AND id = $2
	`, resource, id).Scan(&rec.ID, &rec.OwnerID, &fields, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, apperr.NotFound("record not found")
	}
	if err != nil {
		return models.Record{}, apperr.StoreUnavailable(err)
	}
	if err := json.Unmarshal(fields, &rec.Fields); err != nil {
		return models.Record{}, apperr.StoreUnavailable(fmt.Errorf("decode fields: %w", err))
	}
	return rec, nil
}

// FindMany returns the sorted page of records matched by q together
// with the total count of the whole filtered set.
func (s *PostgresRecordStore) FindMany(ctx context.Context, resource string, q RecordQuery) ([]models.Record, int, error) {
	where := `resource = $1`
	args := []any{resource}
	if q.OwnerID != "" {
		args = append(args, q.OwnerID)
		where += fmt.Sprintf(` AND owner_id = $%d`, len(args))
	}
	if len(q.Fields) > 0 {
		fieldsJSON, err := json.Marshal(q.Fields)
		if err != nil {
			return nil, 0, apperr.StoreUnavailable(fmt.Errorf("encode filter: %w", err))
		}
		args = append(args, fieldsJSON)
		where += fmt.Sprintf(` AND fields @> $%d::jsonb`, len(args))
	}

	var total int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, apperr.StoreUnavailable(err)
	}

	args = append(args, q.Limit, q.Offset)
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, owner_id, fields, version, created_at, updated_at
		  FROM records WHERE %s
		 ORDER BY created_at ASC, id ASC
		 LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.StoreUnavailable(err)
	}
	defer rows.Close()

	var items []models.Record
	for rows.Next() {
		var (
			rec    models.Record
			fields []byte
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &fields, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, 0, apperr.StoreUnavailable(fmt.Errorf("scan: %w", err))
		}
		if err := json.Unmarshal(fields, &rec.Fields); err != nil {
			return nil, 0, apperr.StoreUnavailable(fmt.Errorf("decode fields: %w", err))
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.StoreUnavailable(err)
	}
	return items, total, nil
}

// Insert persists a new record. The id must not already exist.
func (s *PostgresRecordStore) Insert(ctx context.Context, resource string, rec models.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return apperr.StoreUnavailable(fmt.Errorf("encode fields: %w", err))
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO records (resource, id, owner_id, fields, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, resource, rec.ID, rec.OwnerID, fields, rec.Version, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	return nil
}

// Replace overwrites the record identified by rec.ID, but only when the
// stored version still equals expectedVersion. A version mismatch on an
// existing record fails with apperr.Conflict; a missing record fails
// with apperr.NotFound. rec.Version must carry the new version.
func (s *PostgresRecordStore) Replace(ctx context.Context, resource string, rec models.Record, expectedVersion int64) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return apperr.StoreUnavailable(fmt.Errorf("encode fields: %w", err))
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE records
		   SET fields = $1, version = $2, updated_at = $3
		 WHERE resource = $4 AND id = $5 AND version = $6
	`, fields, rec.Version, rec.UpdatedAt, resource, rec.ID, expectedVersion)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM records WHERE resource = $1 AND id = $2)`,
		resource, rec.ID,
	).Scan(&exists)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if !exists {
		return apperr.NotFound("record not found")
	}
	return apperr.Conflict("record was modified concurrently")
}

// Remove deletes a record by id. Fails with apperr.NotFound when no
// record was deleted.
func (s *PostgresRecordStore) Remove(ctx context.Context, resource, id string) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM records WHERE resource = $1 AND id = $2`, resource, id)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if affected == 0 {
		return apperr.NotFound("record not found")
	}
	return nil
}
