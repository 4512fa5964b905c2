// Package models defines the core data structures for principals,
// records, users, and pagination.
package models

import "time"

// Role identifies the privilege level of a principal.
type Role string

const (
	// RoleUser is the default role: full access to owned records only.
	RoleUser Role = "user"
	// RoleAdmin may operate on any record and manage users.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the authenticated identity performing an operation.
// It is produced per request by the token verifier and never persisted.
type Principal struct {
	// ID is the unique identifier of the acting user.
	ID string
	// Role determines what the principal may do.
	Role Role
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Record is a persisted entity of one resource type. Fields carries the
// schema-validated payload; everything else is assigned by the service.
type Record struct {
	// ID is the unique identifier, assigned once at creation.
	ID string `json:"id"`
	// OwnerID is the identifier of the principal that created the record.
	// It is immutable after creation.
	OwnerID string `json:"ownerId"`
	// Fields holds the per-resource payload, validated against the
	// resource schema on every create and update.
	Fields map[string]any `json:"fields"`
	// Version is incremented on every write and used to detect
	// conflicting concurrent updates.
	Version int64 `json:"version"`
	// CreatedAt is the creation timestamp (UTC).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the last modification timestamp (UTC).
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the record so callers cannot mutate
// stored state through the returned map.
func (r Record) Clone() Record {
	cp := r
	cp.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		cp.Fields[k] = v
	}
	return cp
}

// Page is one bounded slice of a filtered, sorted record collection.
type Page struct {
	// Items are the records of this page, at most PageSize of them.
	Items []Record `json:"items"`
	// TotalCount is the size of the whole filtered set.
	TotalCount int `json:"totalCount"`
	// PageIndex is the zero-based index of this page.
	PageIndex int `json:"pageIndex"`
	// PageSize is the requested page capacity.
	PageSize int `json:"pageSize"`
}

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Email is the login name chosen by the user.
	Email string `json:"email"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte `json:"-"`
	// Role is the privilege level assigned to the user.
	Role Role `json:"role"`
	// CreatedAt is the registration timestamp (UTC).
	CreatedAt time.Time `json:"createdAt"`
}

// Session tracks one issued credential so it can be revoked before it
// expires. The token id is embedded in the JWT as the jti claim.
type Session struct {
	// ID is the token id (jti) of the issued credential.
	ID string
	// UserID is the account the credential was issued to.
	UserID string
	// ExpiresAt is when the credential stops being valid.
	ExpiresAt time.Time
	// CreatedAt is when the credential was issued.
	CreatedAt time.Time
}
