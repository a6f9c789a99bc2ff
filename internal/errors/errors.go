// Package errors provides the closed set of domain errors used across the
// glance engine.
//
// Usage:
//
//	// In components - return typed errors
//	if !hashed {
//	    return errors.Precondition("import requires hashing on both catalogs")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrAlreadyExists) {
//	    summary.Failed++
//	    continue
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the engine.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodePrecondition  Code = "PRECONDITION"
	CodeExtraction    Code = "EXTRACTION"
	CodeCatalog       Code = "CATALOG"
	CodeValidation    Code = "VALIDATION"
	CodeInternal      Code = "INTERNAL"
)

// Error is a domain error with a code, message, and optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	// Details carries per-field messages for validation errors.
	Details map[string]string `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrPrecondition  = &Error{Code: CodePrecondition, Message: "precondition failed"}
	ErrExtraction    = &Error{Code: CodeExtraction, Message: "extraction failed"}
	ErrCatalog       = &Error{Code: CodeCatalog, Message: "catalog error"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// AlreadyExistsf creates an already exists error with formatted message.
func AlreadyExistsf(format string, args ...any) *Error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// Precondition creates a precondition error.
func Precondition(msg string) *Error {
	return &Error{Code: CodePrecondition, Message: msg}
}

// Preconditionf creates a precondition error with formatted message.
func Preconditionf(format string, args ...any) *Error {
	return &Error{Code: CodePrecondition, Message: fmt.Sprintf(format, args...)}
}

// Extraction creates an extraction error.
func Extraction(msg string) *Error {
	return &Error{Code: CodeExtraction, Message: msg}
}

// Extractionf creates an extraction error with formatted message.
func Extractionf(format string, args ...any) *Error {
	return &Error{Code: CodeExtraction, Message: fmt.Sprintf(format, args...)}
}

// Catalog creates a catalog error.
func Catalog(msg string) *Error {
	return &Error{Code: CodeCatalog, Message: msg}
}

// Catalogf creates a catalog error with formatted message.
func Catalogf(format string, args ...any) *Error {
	return &Error{Code: CodeCatalog, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error carrying per-field
// messages.
func ValidationWithDetails(msg string, details map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}
