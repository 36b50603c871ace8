// Package errors defines structured error types for the document store.
package errors

import (
	"fmt"
	"maps"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	// CodeConfig is returned when a model or schema is misconfigured.
	CodeConfig ErrorCode = "CONFIG"
	// CodeMissingField is returned when a required field is absent on create.
	CodeMissingField ErrorCode = "MISSING_FIELD"
	// CodeTypeMismatch is returned when a value disagrees with its declared type.
	CodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
	// CodeNotFound is returned when no record satisfies a lookup.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeStorage is returned when the storage adapter fails.
	CodeStorage ErrorCode = "STORAGE"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrConfig       = &Error{code: CodeConfig, message: "configuration error"}
	ErrMissingField = &Error{code: CodeMissingField, message: "missing required field"}
	ErrTypeMismatch = &Error{code: CodeTypeMismatch, message: "type mismatch"}
	ErrNotFound     = &Error{code: CodeNotFound, message: "not found"}
	ErrStorage      = &Error{code: CodeStorage, message: "storage error"}
)

// Error is a concrete error type with a code and optional details.
type Error struct {
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		code:    code,
		message: message,
		details: make(map[string]any),
	}
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Details returns a copy of the error details.
func (e *Error) Details() map[string]any {
	return maps.Clone(e.details)
}

// Unwrap returns the wrapped error if any.
func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.code == e.code
}

// Predefined error constructors for common cases

// Config creates a configuration error.
func Config(format string, args ...any) *Error {
	return New(CodeConfig, fmt.Sprintf(format, args...))
}

// MissingField creates an error for an absent required field.
func MissingField(field string) *Error {
	return New(CodeMissingField, fmt.Sprintf("missing required field: %s", field)).WithDetail("field", field)
}

// TypeMismatch creates an error for a value whose type disagrees with the schema.
func TypeMismatch(field, want string, got any) *Error {
	return New(CodeTypeMismatch, fmt.Sprintf("field %s: expected %s, got %T", field, want, got)).
		WithDetail("field", field).
		WithDetail("want", want).
		WithDetail("got", fmt.Sprintf("%T", got))
}

// NotFound creates a not found error for the named collection.
func NotFound(collection string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s: record not found", collection)).WithDetail("collection", collection)
}

// Storage wraps an adapter failure with the operation that triggered it.
func Storage(op string, err error) *Error {
	return New(CodeStorage, op).Wrap(err)
}
