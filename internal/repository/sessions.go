package repository

import (
	"context"
	"database/sql"
	"errors"

	"fintrack/internal/apperr"
	"fintrack/internal/models"
)

// PostgresSessionRepository tracks issued credentials so they can be
// revoked before expiry.
type PostgresSessionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresSessionRepository creates a new PostgresSessionRepository
// with the given database connection.
func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{DB: db}
}

// CreateSession stores a newly issued credential.
func (r *PostgresSessionRepository) CreateSession(ctx context.Context, s models.Session) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, s.ID, s.UserID, s.ExpiresAt, s.CreatedAt)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	return nil
}

// SessionActive reports whether the session exists and has not expired.
func (r *PostgresSessionRepository) SessionActive(ctx context.Context, id string) (bool, error) {
	var active bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT expires_at > now() FROM sessions WHERE id = $1
	`, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.StoreUnavailable(err)
	}
	return active, nil
}

// RevokeSession deletes one session. Revoking an already absent
// session is not an error; logout stays idempotent.
func (r *PostgresSessionRepository) RevokeSession(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return apperr.StoreUnavailable(err)
	}
	return nil
}
