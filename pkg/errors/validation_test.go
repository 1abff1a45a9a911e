package errors

import (
	"strings"
	"testing"
)

func TestValidationErrorCollects(t *testing.T) {
	var ve ValidationError
	if ve.Err() != nil {
		t.Fatal("Err() on an empty ValidationError should be nil")
	}

	ve.Add(ErrCodeInvalidTile, "tile %q has no shape", "a")
	ve.Append(nil)
	ve.Append(New(ErrCodeInvalidConnector, "connector off tile"))

	err := ve.Err()
	if err == nil {
		t.Fatal("Err() = nil, want error")
	}
	if got := len(ve.Issues); got != 2 {
		t.Errorf("len(Issues) = %d, want 2", got)
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "validation errors: ") || !strings.Contains(msg, "connector off tile") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestValidationErrorFlattens(t *testing.T) {
	var inner ValidationError
	inner.Add(ErrCodeDuplicateName, "x")
	inner.Add(ErrCodeUnknownName, "y")

	var outer ValidationError
	outer.Append(inner.Err())
	outer.Add(ErrCodeInvalidRule, "z")

	if got := len(outer.Issues); got != 3 {
		t.Fatalf("len(Issues) = %d, want 3", got)
	}
	for _, code := range []Code{ErrCodeDuplicateName, ErrCodeUnknownName, ErrCodeInvalidRule} {
		if !Is(outer.Err(), code) {
			t.Errorf("Is(%s) = false, want true", code)
		}
	}
}

func TestValidationErrorSingle(t *testing.T) {
	var ve ValidationError
	ve.Add(ErrCodeInvalidConfig, "steps must be positive")
	if got, want := ve.Error(), "INVALID_CONFIG: steps must be positive"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidGeometry, ErrCodeInvalidConnector, ErrCodeInvalidTile, ErrCodeInvalidRule,
		ErrCodeInvalidConfig, ErrCodeDuplicateName, ErrCodeUnknownName, ErrCodeTileNotFound,
		ErrCodeMultisetUnderflow, ErrCodeSelfConnection, ErrCodeAlreadyConnected,
		ErrCodeShortenBelowTolerance, ErrCodeInvalidState, ErrCodeStorage, ErrCodeInternal,
		ErrCodeUnsupported,
	}
	seen := make(map[Code]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate error code: %s", c)
		}
		seen[c] = true
	}
}
