// Package errors provides structured error types for the tilesim simulator.
//
// This package defines error codes and types that enable:
//   - A single taxonomy for configuration-time validation faults
//   - Immediate, coded signalling of runtime contract violations
//   - Machine-readable codes for the control API and the CLI
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Prototype or configuration validation failures (fatal before a run)
//   - *_NOT_FOUND, UNKNOWN_*: References to things that do not exist
//   - Contract codes (SELF_CONNECTION, MULTISET_UNDERFLOW, ...): runtime violations
//     that abort the current step
//   - INTERNAL, UNSUPPORTED: unexpected internal states
//
// Expected negative outcomes (a rule whose reactants are absent, an insertion blocked
// by an unmovable obstruction) are never errors; they are reported as booleans.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidGeometry, "polygon %q is not convex", name)
//	if errors.Is(err, errors.ErrCodeInvalidGeometry) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidTile, origErr, "tile %q", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Construction-time validation errors
	ErrCodeInvalidGeometry  Code = "INVALID_GEOMETRY"
	ErrCodeInvalidConnector Code = "INVALID_CONNECTOR"
	ErrCodeInvalidTile      Code = "INVALID_TILE"
	ErrCodeInvalidRule      Code = "INVALID_RULE"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeDuplicateName    Code = "DUPLICATE_NAME"
	ErrCodeUnknownName      Code = "UNKNOWN_NAME"

	// Runtime contract violations
	ErrCodeTileNotFound          Code = "TILE_NOT_FOUND"
	ErrCodeMultisetUnderflow     Code = "MULTISET_UNDERFLOW"
	ErrCodeSelfConnection        Code = "SELF_CONNECTION"
	ErrCodeAlreadyConnected      Code = "ALREADY_CONNECTED"
	ErrCodeShortenBelowTolerance Code = "SHORTEN_BELOW_TOLERANCE"
	ErrCodeInvalidState          Code = "INVALID_STATE"

	// Storage errors
	ErrCodeStorage Code = "STORAGE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// A *ValidationError matches if any of its issues carries the code.
func Is(err error, code Code) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		for _, issue := range ve.Issues {
			if Is(issue, code) {
				return true
			}
		}
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		return e.Cause != nil && Is(e.Cause, code)
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsValidation reports whether err is a construction-time validation failure.
// These errors are fatal before a simulation starts and are never retried.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	switch GetCode(err) {
	case ErrCodeInvalidGeometry, ErrCodeInvalidConnector, ErrCodeInvalidTile,
		ErrCodeInvalidRule, ErrCodeInvalidConfig, ErrCodeDuplicateName, ErrCodeUnknownName:
		return true
	}
	return false
}
