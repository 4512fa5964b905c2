package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/apperr"
	"fintrack/internal/auth"
	"fintrack/internal/models"
)

// UserRepository defines the persistence operations required by the
// AuthService for accounts.
type UserRepository interface {
	// CreateUser inserts a new account; fails with a conflict when the
	// email is taken.
	CreateUser(ctx context.Context, u models.User) error
	// GetUserByEmail fetches an account by email.
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	// GetUserByID fetches an account by id.
	GetUserByID(ctx context.Context, id string) (models.User, error)
	// ListUsers returns one page of accounts plus the total count.
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, int, error)
	// UpdateUserRole changes an account's role.
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	// DeleteUser removes an account and, transitively, its sessions.
	DeleteUser(ctx context.Context, id string) error
}

// SessionRepository defines the persistence operations required for
// credential revocation.
type SessionRepository interface {
	// CreateSession stores a newly issued credential.
	CreateSession(ctx context.Context, s models.Session) error
	// SessionActive reports whether a session exists and is unexpired.
	SessionActive(ctx context.Context, id string) (bool, error)
	// RevokeSession deletes one session.
	RevokeSession(ctx context.Context, id string) error
}

// TokenIssuer signs credentials for authenticated users.
type TokenIssuer interface {
	// Issue returns the compact token and its session descriptor.
	Issue(user models.User) (string, models.Session, error)
}

// AuthService implements registration, login, logout, and admin-side
// user management.
type AuthService struct {
	users    UserRepository
	sessions SessionRepository
	issuer   TokenIssuer

	now   func() time.Time
	newID func() string
}

// NewAuthService constructs an AuthService from its collaborators.
func NewAuthService(users UserRepository, sessions SessionRepository, issuer TokenIssuer) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Register creates a new account with the user role. The email must
// look like an address and the password must be at least 8 characters;
// all violations are reported together.
func (s *AuthService) Register(ctx context.Context, email, password string) (models.User, error) {
	var violations []apperr.FieldViolation
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		violations = append(violations, apperr.FieldViolation{Field: "email", Reason: "must be a valid email address"})
	}
	if len(password) < 8 {
		violations = append(violations, apperr.FieldViolation{Field: "password", Reason: "must be at least 8 characters"})
	}
	if len(violations) > 0 {
		return models.User{}, apperr.Validation(violations)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Login verifies the credentials and returns a signed bearer token.
// Unknown emails and wrong passwords fail identically so the response
// does not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", models.User{}, apperr.Unauthenticated("invalid email or password")
		}
		return "", models.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", models.User{}, apperr.Unauthenticated("invalid email or password")
	}

	token, session, err := s.issuer.Issue(user)
	if err != nil {
		return "", models.User{}, err
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return "", models.User{}, err
	}
	return token, user, nil
}

// Logout revokes the session behind the presented credential. The same
// token fails authentication afterwards even though its signature is
// still valid.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.RevokeSession(ctx, sessionID)
}

// SessionActive reports whether the given session id is still valid.
func (s *AuthService) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	return s.sessions.SessionActive(ctx, sessionID)
}

// Me returns the account of the acting principal.
func (s *AuthService) Me(ctx context.Context, p models.Principal) (models.User, error) {
	return s.users.GetUserByID(ctx, p.ID)
}

// ListUsers returns one page of accounts. Admin only.
func (s *AuthService) ListUsers(ctx context.Context, p models.Principal, pageIndex, pageSize int) ([]models.User, int, error) {
	if !p.IsAdmin() {
		return nil, 0, apperr.Forbidden("admin role required")
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	return s.users.ListUsers(ctx, pageIndex*pageSize, pageSize)
}

// SetRole changes another account's role. Admin only; admins cannot
// demote themselves, so the system always keeps at least one admin.
func (s *AuthService) SetRole(ctx context.Context, p models.Principal, userID string, role models.Role) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}
	if !role.Valid() {
		return apperr.Validation([]apperr.FieldViolation{{Field: "role", Reason: "must be user or admin"}})
	}
	if p.ID == userID {
		return apperr.Forbidden("cannot change own role")
	}
	return s.users.UpdateUserRole(ctx, userID, role)
}

// DeleteUser removes an account and its sessions. Admin only; admins
// cannot delete themselves.
func (s *AuthService) DeleteUser(ctx context.Context, p models.Principal, userID string) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}
	if p.ID == userID {
		return apperr.Forbidden("cannot delete own account")
	}
	return s.users.DeleteUser(ctx, userID)
}
