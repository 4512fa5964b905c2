package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"fintrack/internal/apperr"
	"fintrack/internal/models"
)

// MemoryAccountStore keeps users and sessions in process memory. It
// backs the development mode and the auth service tests, matching the
// Postgres repositories' contract, including session removal when a
// user is deleted.
type MemoryAccountStore struct {
	mu       sync.Mutex
	users    map[string]models.User
	sessions map[string]models.Session
}

// NewMemoryAccountStore creates an empty in-memory account store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		users:    make(map[string]models.User),
		sessions: make(map[string]models.Session),
	}
}

// CreateUser inserts a new account; fails with a conflict when the
// email is taken.
func (s *MemoryAccountStore) CreateUser(ctx context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperr.Conflict("email already registered")
		}
	}
	s.users[u.ID] = u
	return nil
}

// GetUserByEmail fetches an account by email.
func (s *MemoryAccountStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFound("user not found")
}

// GetUserByID fetches an account by id.
func (s *MemoryAccountStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

// ListUsers returns one page of accounts ordered by creation time with
// id as the tiebreaker, plus the total account count.
func (s *MemoryAccountStore) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// UpdateUserRole changes an account's role.
func (s *MemoryAccountStore) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.Role = role
	s.users[id] = u
	return nil
}

// DeleteUser removes an account together with its sessions, mirroring
// the schema's ON DELETE CASCADE.
func (s *MemoryAccountStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return apperr.NotFound("user not found")
	}
	delete(s.users, id)
	for sid, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, sid)
		}
	}
	return nil
}

// CreateSession stores a newly issued credential.
func (s *MemoryAccountStore) CreateSession(ctx context.Context, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

// SessionActive reports whether the session exists and has not expired.
func (s *MemoryAccountStore) SessionActive(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	return sess.ExpiresAt.After(time.Now()), nil
}

// RevokeSession deletes one session; revoking an absent session is not
// an error.
func (s *MemoryAccountStore) RevokeSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
