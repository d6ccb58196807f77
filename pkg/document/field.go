package document

import "fmt"

// FieldAbsentError reports a field that is missing or null.
type FieldAbsentError struct {
	Path string
}

// Error implements the error interface.
func (e *FieldAbsentError) Error() string {
	return fmt.Sprintf("field %s is absent", e.Path)
}

// FieldTypeError reports a field whose value has the wrong type.
type FieldTypeError struct {
	Path string
	Want string
	Got  string
}

// Error implements the error interface.
func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %s: expected %s, got %s", e.Path, e.Want, e.Got)
}

// Field is an optional document value.
type Field[T any] struct {
	// Value holds the decoded value when Present is true.
	Value T

	// Present is true when the field existed with a value of the right type.
	Present bool

	// Err explains why the field is not present.
	Err error
}

// Get returns the value, or the absence error when the field is not present.
func (f Field[T]) Get() (T, error) {
	if !f.Present {
		var zero T
		if f.Err == nil {
			return zero, &FieldAbsentError{Path: "<unknown>"}
		}
		return zero, f.Err
	}
	return f.Value, nil
}

// Or returns the value when present and fallback otherwise.
func (f Field[T]) Or(fallback T) T {
	if !f.Present {
		return fallback
	}
	return f.Value
}

// Some returns a present field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Present: true}
}

// Absent returns a field that is missing at path.
func Absent[T any](path string) Field[T] {
	return Field[T]{Err: &FieldAbsentError{Path: path}}
}

func mistyped[T any](path, want string, got any) Field[T] {
	return Field[T]{Err: &FieldTypeError{Path: path, Want: want, Got: typeName(got)}}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, uint64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
