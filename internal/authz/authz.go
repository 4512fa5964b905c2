// Package authz implements the authorization gate: a deterministic,
// side-effect-free decision over (principal, operation, record owner).
package authz

import (
	"fmt"

	"fintrack/internal/apperr"
	"fintrack/internal/models"
)

// Operation names one of the five resource operations.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpList   Operation = "list"
)

// Authorize decides whether principal p may perform op against a record
// owned by targetOwnerID. Admins are allowed everything. Non-admins may
// always create and list (list results are scoped by the service, not
// denied here), and may read/update/delete only their own records.
// Returns nil on allow, apperr.Forbidden on deny.
func Authorize(p models.Principal, op Operation, targetOwnerID string) error {
	if p.IsAdmin() {
		return nil
	}
	switch op {
	case OpCreate, OpList:
		return nil
	case OpRead, OpUpdate, OpDelete:
		if p.ID == targetOwnerID {
			return nil
		}
		return apperr.Forbidden(fmt.Sprintf("not allowed to %s this record", op))
	default:
		return apperr.Forbidden(fmt.Sprintf("unknown operation %q", op))
	}
}
