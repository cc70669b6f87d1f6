package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	err := NewAPIError(ErrCodeValidation, "Invalid patient", "age out of range", "req-123")

	if err.Code != ErrCodeValidation {
		t.Errorf("Expected code %s, got %s", ErrCodeValidation, err.Code)
	}
	if err.RequestID != "req-123" {
		t.Errorf("Expected request ID req-123, got %s", err.RequestID)
	}
	if time.Since(err.Timestamp) > time.Minute {
		t.Error("Timestamp should be recent")
	}
	if err.Error() != "VALIDATION_ERROR: Invalid patient" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("age", "Age must be between 0 and 150", 200)

	expected := "validation error for field 'age': Age must be between 0 and 150"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
	if err.Value != 200 {
		t.Errorf("Expected value 200, got %v", err.Value)
	}
}

func TestParseErrorUnwrap(t *testing.T) {
	err := NewParseError("as directed", "no dose amount")

	if !errors.Is(err, ErrParseFailure) {
		t.Error("ParseError should match ErrParseFailure")
	}

	var pe *ParseError
	if !errors.As(err, &pe) || pe.Input != "as directed" {
		t.Error("Expected errors.As to recover the ParseError")
	}
}
