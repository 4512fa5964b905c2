package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/apperr"
	"fintrack/internal/models"
)

// PostgresUserRepository implements account persistence against a
// PostgreSQL database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with
// the given database connection.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// CreateUser inserts a new account. Fails with apperr.Conflict when the
// email is already taken.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u models.User) error {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`, u.ID, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if affected == 0 {
		return apperr.Conflict("email already registered")
	}
	return nil
}

// GetUserByEmail fetches an account by email.
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1
	`, email))
}

// GetUserByID fetches an account by id.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at FROM users WHERE id = $1
	`, id))
}

func (r *PostgresUserRepository) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return models.User{}, apperr.StoreUnavailable(err)
	}
	return u, nil
}

// ListUsers returns one page of accounts ordered by creation time with
// id as the tiebreaker, plus the total account count.
func (r *PostgresUserRepository) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, apperr.StoreUnavailable(err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, email, password_hash, role, created_at FROM users
		 ORDER BY created_at ASC, id ASC
		 LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, apperr.StoreUnavailable(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, 0, apperr.StoreUnavailable(fmt.Errorf("scan: %w", err))
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.StoreUnavailable(err)
	}
	return users, total, nil
}

// UpdateUserRole changes the role of an account.
func (r *PostgresUserRepository) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if affected == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// DeleteUser removes an account. Sessions are removed by the schema's
// ON DELETE CASCADE, so revocation is atomic with the deletion.
func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if affected == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}
