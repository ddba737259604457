// Package apperror defines the error taxonomy shared by every layer.
//
// Services and storage return these errors; handlers translate them into
// HTTP status codes in one place (handler.writeError). Anything that is not
// an *AppError is treated as an internal failure and is never shown to the
// client verbatim.
//
// Each constructor wraps one of the sentinel errors below, so callers test
// the category with errors.Is:
//
//	if errors.Is(err, apperror.ErrConflict) {
//	    // "already done" - the caller may treat this as a soft success
//	}
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream unavailable")
)

// AppError carries a category (Err), a human-readable message and, for
// validation failures, the offending field.
type AppError struct {
	Err     error
	Message string
	Field   string
	Cause   error // optional underlying error, kept for logs only
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the category and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// NotFound reports that resource with the given id does not exist (or is not
// visible to the caller).
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports that the operation was already done: duplicate slug,
// duplicate tag, repo already in a collection.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Upstream wraps a failure talking to GitHub (network error, 5xx, rate
// limit). The cause is kept for logging; clients only see the message.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
		Cause:   cause,
	}
}
