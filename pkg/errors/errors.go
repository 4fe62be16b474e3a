// Package errors provides structured error types for the ppm resolver.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and library packages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_* / MALFORMED_* / UNPARSEABLE_*: grammar and input failures
//   - NOT_FOUND_*: resource not found
//   - NETWORK_*: network-related errors
//   - Resolution outcomes: NO_COMPATIBLE_ARTIFACT, RESOLUTION_CONFLICT,
//     INTEGRITY_MISMATCH, UNSUPPORTED_PLATFORM, METADATA_UNAVAILABLE
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedRequirement, "missing name in %q", raw)
//	if errors.Is(err, errors.ErrCodeMalformedRequirement) {
//	    // Handle parse error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Grammar and input parsing errors. Fatal to the single value being
	// parsed; callers may skip the offending candidate where policy allows.
	ErrCodeInvalidName          Code = "INVALID_NAME"
	ErrCodeMalformedRequirement Code = "MALFORMED_REQUIREMENT"
	ErrCodeInvalidVersion       Code = "INVALID_VERSION"
	ErrCodeInvalidSpecifier     Code = "INVALID_SPECIFIER"
	ErrCodeInvalidMarker        Code = "INVALID_MARKER"
	ErrCodeUnparseableFilename  Code = "UNPARSEABLE_FILENAME"

	// Resolution failures. All of these abort the run before any lock
	// output is written.
	ErrCodeUnsupportedPlatform  Code = "UNSUPPORTED_PLATFORM"
	ErrCodeNoCompatibleArtifact Code = "NO_COMPATIBLE_ARTIFACT"
	ErrCodeResolutionConflict   Code = "RESOLUTION_CONFLICT"
	ErrCodeIntegrityMismatch    Code = "INTEGRITY_MISMATCH"
	ErrCodeMetadataUnavailable  Code = "METADATA_UNAVAILABLE"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Authentication errors (registry uploads)
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeForbidden    Code = "FORBIDDEN"

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
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
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

// Fatal reports whether err belongs to a class that aborts the whole
// resolution. No lock output may be written once a fatal error surfaces.
func Fatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeIntegrityMismatch,
		ErrCodeUnsupportedPlatform,
		ErrCodeNoCompatibleArtifact,
		ErrCodeResolutionConflict:
		return true
	}
	return false
}
