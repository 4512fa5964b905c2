// Package schema defines explicit per-resource field contracts checked
// before every persistence call. Records never reach the store with a
// payload the schema has not accepted.
package schema

import (
	"fmt"
	"time"

	"fintrack/internal/apperr"
)

// Kind is the declared type of a field value.
type Kind int

const (
	// String accepts any JSON string.
	String Kind = iota + 1
	// Number accepts any JSON number.
	Number
	// Bool accepts a JSON boolean.
	Bool
	// DateTime accepts an RFC 3339 timestamp string.
	DateTime
)

// Rule is an extra per-field constraint applied after the kind check.
// It returns a reason string, or "" when the value passes.
type Rule func(value any) string

// Field describes one payload field.
type Field struct {
	// Name is the payload key.
	Name string
	// Kind is the accepted value type.
	Kind Kind
	// Required makes the field mandatory on create.
	Required bool
	// Rule, if set, is checked after the kind check.
	Rule Rule
}

// Schema is the field-level contract for one resource type.
type Schema struct {
	// Resource is the resource type name, e.g. "transactions".
	Resource string
	// Fields are the accepted payload fields.
	Fields []Field
}

// Validate checks payload against the schema and returns an
// apperr.Validation listing every violation, or nil. With partial set,
// required fields may be absent; present fields are still fully checked.
// Unknown fields are violations: the schema is the whole contract.
func (s Schema) Validate(payload map[string]any, partial bool) error {
	var violations []apperr.FieldViolation

	known := make(map[string]Field, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = f
	}

	for name := range payload {
		if _, ok := known[name]; !ok {
			violations = append(violations, apperr.FieldViolation{
				Field: name, Reason: "unknown field",
			})
		}
	}

	for _, f := range s.Fields {
		value, present := payload[f.Name]
		if !present {
			if f.Required && !partial {
				violations = append(violations, apperr.FieldViolation{
					Field: f.Name, Reason: "required field is missing",
				})
			}
			continue
		}
		if reason := checkKind(f.Kind, value); reason != "" {
			violations = append(violations, apperr.FieldViolation{Field: f.Name, Reason: reason})
			continue
		}
		if f.Rule != nil {
			if reason := f.Rule(value); reason != "" {
				violations = append(violations, apperr.FieldViolation{Field: f.Name, Reason: reason})
			}
		}
	}

	if len(violations) > 0 {
		return apperr.Validation(violations)
	}
	return nil
}

// checkKind verifies the dynamic type of value against the declared kind.
// JSON numbers decode as float64; both float64 and int are accepted so
// payloads built in Go tests behave like decoded JSON.
func checkKind(k Kind, value any) string {
	switch k {
	case String:
		if _, ok := value.(string); !ok {
			return "must be a string"
		}
	case Number:
		switch value.(type) {
		case float64, int, int64:
		default:
			return "must be a number"
		}
	case Bool:
		if _, ok := value.(bool); !ok {
			return "must be a boolean"
		}
	case DateTime:
		s, ok := value.(string)
		if !ok {
			return "must be an RFC 3339 timestamp string"
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return "must be an RFC 3339 timestamp"
		}
	default:
		return "unsupported field kind"
	}
	return ""
}

// NonEmpty rejects empty strings.
func NonEmpty() Rule {
	return func(value any) string {
		if s, _ := value.(string); s == "" {
			return "must not be empty"
		}
		return ""
	}
}

// OneOf restricts a string field to the given values.
func OneOf(allowed ...string) Rule {
	return func(value any) string {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return ""
			}
		}
		return fmt.Sprintf("must be one of %v", allowed)
	}
}

// Min rejects numbers below the given bound.
func Min(bound float64) Rule {
	return func(value any) string {
		if asFloat(value) < bound {
			return fmt.Sprintf("must be at least %v", bound)
		}
		return ""
	}
}

// MaxLen rejects strings longer than n bytes.
func MaxLen(n int) Rule {
	return func(value any) string {
		if s, _ := value.(string); len(s) > n {
			return fmt.Sprintf("must be at most %d characters", n)
		}
		return ""
	}
}

func asFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
