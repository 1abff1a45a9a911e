package errors

import (
	"strings"
)

// ValidationError collects every issue found while validating a prototype graph or a
// run configuration, so that one pass reports all of them.
//
// The zero value is ready to use. Call [ValidationError.Err] at the end of a
// validation pass to obtain nil when no issues were recorded.
type ValidationError struct {
	Issues []error
}

// Error joins all issue messages.
func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "validation failed: unknown validation error"
	case 1:
		return e.Issues[0].Error()
	}
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Error()
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the issues to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	return e.Issues
}

// Add records a coded issue.
func (e *ValidationError) Add(code Code, format string, args ...any) {
	e.Issues = append(e.Issues, New(code, format, args...))
}

// Append records an existing error as an issue. Nil errors are ignored, and nested
// validation errors are flattened.
func (e *ValidationError) Append(err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		e.Issues = append(e.Issues, ve.Issues...)
		return
	}
	e.Issues = append(e.Issues, err)
}

// HasIssues reports whether any issue was recorded.
func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// Err returns e when issues were recorded and nil otherwise.
func (e *ValidationError) Err() error {
	if e.HasIssues() {
		return e
	}
	return nil
}
