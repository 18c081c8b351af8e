// Package errors defines the upload error taxonomy used throughout FormDrop.
//
// Errors split into two severities. Request-level errors abort the whole
// request and map directly to an HTTP status (malformed framing, oversize
// stream, persistence failure). File-level errors are recoverable: they are
// attached to the per-file result entry and never abort processing of
// sibling parts.
package errors

import (
	"fmt"
	"strings"
)

// UploadError represents a request-level upload error with a machine-readable
// code, a user-facing message, and the HTTP status code to respond with.
// User-facing messages state the violated limit or rule but never internal
// paths or stack state.
type UploadError struct {
	// Code is the short error code (e.g., "BoundaryNotFound").
	Code string
	// Message is a human-readable description of the error.
	Message string
	// HTTPStatus is the HTTP status code to return (e.g., 400, 413).
	HTTPStatus int
}

// Error implements the error interface for UploadError.
func (e *UploadError) Error() string {
	return fmt.Sprintf("UploadError %s (%d): %s", e.Code, e.HTTPStatus, e.Message)
}

// WithMessage returns a copy of the UploadError with the message replaced.
// The code and status are preserved so errors.Is-style matching on the
// predefined values keeps working via Code comparison.
func (e *UploadError) WithMessage(msg string) *UploadError {
	cp := *e
	cp.Message = msg
	return &cp
}

// Pre-defined request-level errors for the fatal conditions.
var (
	// ErrRequestTooLarge is returned when the accumulated request body
	// exceeds the total-request ceiling. Accumulation halts immediately.
	ErrRequestTooLarge = &UploadError{
		Code:       "RequestTooLarge",
		Message:    "Request body exceeds the maximum allowed size",
		HTTPStatus: 413,
	}

	// ErrMissingBoundary is returned when the Content-Type header carries
	// no usable multipart boundary parameter.
	ErrMissingBoundary = &UploadError{
		Code:       "MissingBoundary",
		Message:    "Content-Type must be multipart/form-data with a boundary parameter",
		HTTPStatus: 400,
	}

	// ErrBoundaryNotFound is returned when the declared boundary token never
	// occurs in the request body.
	ErrBoundaryNotFound = &UploadError{
		Code:       "BoundaryNotFound",
		Message:    "Multipart boundary not found in request body",
		HTTPStatus: 400,
	}

	// ErrMalformedMultipart is returned for truncated or out-of-order
	// multipart framing, or a part without a header/body separator.
	ErrMalformedMultipart = &UploadError{
		Code:       "MalformedMultipart",
		Message:    "Malformed multipart request body",
		HTTPStatus: 400,
	}

	// ErrMethodNotAllowed is returned for methods other than GET and POST.
	ErrMethodNotAllowed = &UploadError{
		Code:       "MethodNotAllowed",
		Message:    "Method not allowed",
		HTTPStatus: 405,
	}

	// ErrPersistenceFailure is returned when a validated file cannot be
	// written to the uploads directory. The message is deliberately generic.
	ErrPersistenceFailure = &UploadError{
		Code:       "PersistenceFailure",
		Message:    "Failed to store uploaded files",
		HTTPStatus: 500,
	}

	// ErrInternal is the catch-all for unexpected failures, including
	// transport errors while reading the request body.
	ErrInternal = &UploadError{
		Code:       "InternalError",
		Message:    "Internal server error",
		HTTPStatus: 500,
	}
)

// FileTooLarge builds the recoverable per-file error message for a body that
// exceeds the per-file ceiling. The configured limit is included for user
// feedback.
func FileTooLarge(limit int64) string {
	return fmt.Sprintf("File exceeds the maximum allowed size of %d bytes", limit)
}

// InvalidContentType builds the recoverable per-file error message for a body
// whose sniffed signature is not on the allow-list. The detected type is
// echoed back; the client-declared header plays no part in the decision.
func InvalidContentType(detected string, allowed []string) string {
	if detected == "" {
		return fmt.Sprintf("File content type is not recognized; allowed types: %s", strings.Join(allowed, ", "))
	}
	return fmt.Sprintf("File content type %s is not allowed; allowed types: %s", detected, strings.Join(allowed, ", "))
}
