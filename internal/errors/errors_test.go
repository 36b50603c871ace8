package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"
)

func TestIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"missing field", MissingField("name"), ErrMissingField, true},
		{"type mismatch", TypeMismatch("age", "number", "x"), ErrTypeMismatch, true},
		{"config", Config("name is required"), ErrConfig, true},
		{"not found", NotFound("User"), ErrNotFound, true},
		{"different code", MissingField("name"), ErrTypeMismatch, false},
		{"wrapped by fmt", fmt.Errorf("create: %w", MissingField("name")), ErrMissingField, true},
		{"storage keeps cause", Storage("insert", io.ErrUnexpectedEOF), io.ErrUnexpectedEOF, true},
		{"plain error", io.EOF, ErrStorage, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stderrors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestDetails(t *testing.T) {
	err := TypeMismatch("age", "number", "thirty")
	d := err.Details()
	if d["field"] != "age" || d["want"] != "number" || d["got"] != "string" {
		t.Errorf("unexpected details: %v", d)
	}
	d["field"] = "other"
	if err.Details()["field"] != "age" {
		t.Error("Details() must return a copy")
	}
	if err.Code() != CodeTypeMismatch {
		t.Errorf("Code() = %q, want %q", err.Code(), CodeTypeMismatch)
	}
}

func TestErrorString(t *testing.T) {
	if got, want := MissingField("name").Error(), "missing required field: name"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got, want := Storage("insert User", io.EOF).Error(), "insert User: EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var e *Error
	if !stderrors.As(fmt.Errorf("wrap: %w", NotFound("User")), &e) || e.Details()["collection"] != "User" {
		t.Errorf("errors.As failed to extract *Error")
	}
}
