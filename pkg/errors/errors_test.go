package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidGeometry, "polygon %q is not convex", "hex")

	if err.Code != ErrCodeInvalidGeometry {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidGeometry)
	}

	if err.Message != `polygon "hex" is not convex` {
		t.Errorf("Message = %v, want %v", err.Message, `polygon "hex" is not convex`)
	}

	expected := `INVALID_GEOMETRY: polygon "hex" is not convex`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeStorage, cause, "write snapshot")

	if err.Code != ErrCodeStorage {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeStorage)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	var ve ValidationError
	ve.Add(ErrCodeInvalidTile, "tile has no name")
	ve.Add(ErrCodeDuplicateName, "connector %q declared twice", "a")

	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeTileNotFound, "tile 3"),
			code:     ErrCodeTileNotFound,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeTileNotFound, "tile 3"),
			code:     ErrCodeSelfConnection,
			expected: false,
		},
		{
			name:     "wrapped cause",
			err:      Wrap(ErrCodeInternal, New(ErrCodeMultisetUnderflow, "inner"), "outer"),
			code:     ErrCodeMultisetUnderflow,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("step 4: %w", New(ErrCodeAlreadyConnected, "x")),
			code:     ErrCodeAlreadyConnected,
			expected: true,
		},
		{
			name:     "validation issue",
			err:      ve.Err(),
			code:     ErrCodeDuplicateName,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInternal,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInternal,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"coded", New(ErrCodeShortenBelowTolerance, "x"), ErrCodeShortenBelowTolerance},
		{"wrapped", fmt.Errorf("ctx: %w", New(ErrCodeUnsupported, "x")), ErrCodeUnsupported},
		{"plain", errors.New("x"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidRule, "rule %q has no products", "r1")); got != `rule "r1" has no products` {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage() = %q, want %q", got, "plain")
	}
}

func TestIsValidation(t *testing.T) {
	var ve ValidationError
	ve.Add(ErrCodeInternal, "anything")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"geometry", New(ErrCodeInvalidGeometry, "x"), true},
		{"unknown name", New(ErrCodeUnknownName, "x"), true},
		{"validation error", ve.Err(), true},
		{"runtime contract", New(ErrCodeSelfConnection, "x"), false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidation(tt.err); got != tt.want {
				t.Errorf("IsValidation() = %v, want %v", got, tt.want)
			}
		})
	}
}
