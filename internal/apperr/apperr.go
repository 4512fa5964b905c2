// Package apperr defines the error taxonomy shared by the service core
// and the HTTP surface. The core returns these unmodified; the HTTP
// layer owns the mapping to status codes.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error for transport-level mapping and retry policy.
type Kind int

const (
	// KindUnauthenticated means the credential is missing, malformed, or expired.
	KindUnauthenticated Kind = iota + 1
	// KindForbidden means the principal is authenticated but not permitted.
	KindForbidden
	// KindValidation means the payload violates the resource schema.
	KindValidation
	// KindNotFound means no record exists with the given id.
	KindNotFound
	// KindConflict means a concurrent write was detected by the store.
	KindConflict
	// KindStoreUnavailable means the persistence layer failed; retryable.
	KindStoreUnavailable
	// KindTimeout means the caller-imposed deadline was exceeded.
	KindTimeout
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// FieldViolation describes one schema violation in a payload.
type FieldViolation struct {
	// Field is the payload field name.
	Field string `json:"field"`
	// Reason is a human-readable description of the violation.
	Reason string `json:"reason"`
}

// Error carries a kind, a message, an optional cause, and, for
// validation errors, the full list of field violations.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldViolation
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Field + ": " + f.Reason
		}
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, "; "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the caller may retry the operation.
// Only store unavailability is retryable.
func (e *Error) Retryable() bool { return e.Kind == KindStoreUnavailable }

// Unauthenticated builds a credential failure.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden builds a permission failure.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound builds a missing-record failure.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict builds a concurrent-write failure.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// StoreUnavailable wraps an infrastructure failure from the store.
func StoreUnavailable(cause error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: "store unavailable", cause: cause}
}

// Timeout builds a deadline failure. Produced by the HTTP surface only.
func Timeout(msg string) *Error {
	return &Error{Kind: KindTimeout, Message: msg}
}

// Validation builds a schema failure listing every violated field,
// sorted by field name for deterministic output.
func Validation(violations []FieldViolation) *Error {
	sort.Slice(violations, func(i, j int) bool {
		return violations[i].Field < violations[j].Field
	})
	return &Error{Kind: KindValidation, Message: "invalid payload", Fields: violations}
}

// KindOf extracts the taxonomy kind from err, or 0 if err is not an
// apperr.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }
