package schema

import (
	"fmt"
	"math"
)

// Type enumerates the value kinds a field descriptor can require.
type Type int

const (
	String Type = iota
	Int
	Float
	Bool
	List
	Dict
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "integer"
	case Float:
		return "number"
	case Bool:
		return "boolean"
	case List:
		return "list"
	case Dict:
		return "object"
	}
	return "unknown"
}

// Field describes one payload key: its expected type, whether the caller
// must supply it, the value substituted when it is absent, and an optional
// extra constraint checked after the type check passes.
type Field struct {
	Type       Type
	Required   bool
	Default    any
	Constraint func(v any) bool
}

// Schema is a flat field-descriptor table keyed by payload key.
type Schema map[string]Field

// Result is the outcome of one validation call. Exactly one of Errors or
// Payload is meaningful: a non-empty Errors list is terminal, otherwise
// Payload holds the normalized input with defaults substituted.
type Result struct {
	Errors  []string
	Payload map[string]any
}

// OK reports whether validation succeeded.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// ErrorText joins the collected violations into a single human-readable
// message suitable for a client response.
func (r Result) ErrorText() string {
	switch len(r.Errors) {
	case 0:
		return ""
	case 1:
		return r.Errors[0]
	}
	text := r.Errors[0]
	for _, e := range r.Errors[1:] {
		text += "; " + e
	}
	return text
}

// Validate checks payload against s and returns either the violations or a
// normalized copy. The input map is never mutated. Normalization is
// idempotent: validating an already-normalized payload returns an identical
// result.
func Validate(payload map[string]any, s Schema) Result {
	var errs []string

	for key := range payload {
		if _, ok := s[key]; !ok {
			errs = append(errs, fmt.Sprintf("unexpected field %q is not a valid input", key))
		}
	}

	out := make(map[string]any, len(s))
	for key, field := range s {
		value, present := payload[key]
		if !present {
			if field.Required {
				errs = append(errs, fmt.Sprintf("%q is a required field", key))
				continue
			}
			out[key] = field.Default
			continue
		}
		if value == nil && !field.Required {
			out[key] = nil
			continue
		}
		normalized, ok := coerce(value, field.Type)
		if !ok {
			errs = append(errs, fmt.Sprintf("%q must be of type %s", key, field.Type))
			continue
		}
		if field.Constraint != nil && !field.Constraint(normalized) {
			errs = append(errs, fmt.Sprintf("%q failed its constraint check", key))
			continue
		}
		out[key] = normalized
	}

	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Payload: out}
}

// coerce checks value against the requested type and returns the normalized
// form. JSON numbers always decode as float64, so integer fields accept an
// integral float64 and normalize it to int; a second pass then sees the int
// and accepts it unchanged.
func coerce(value any, t Type) (any, bool) {
	switch t {
	case String:
		v, ok := value.(string)
		return v, ok
	case Bool:
		v, ok := value.(bool)
		return v, ok
	case Int:
		switch v := value.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			if v == math.Trunc(v) {
				return int(v), true
			}
		}
		return nil, false
	case Float:
		switch v := value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
		return nil, false
	case List:
		v, ok := value.([]any)
		return v, ok
	case Dict:
		v, ok := value.(map[string]any)
		return v, ok
	}
	return nil, false
}
