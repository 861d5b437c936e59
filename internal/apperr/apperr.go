// Package apperr carries machine-readable error codes across service
// boundaries so the HTTP layer can map failures to stable responses.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error class.
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeAuthentication   Code = "AUTHENTICATION_ERROR"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeNotFound         Code = "RESOURCE_NOT_FOUND"
	CodeConflict         Code = "RESOURCE_CONFLICT"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// FieldError points a validation failure at the offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a coded error with an optional wrapped cause and field details.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Validation builds a 400-class error with per-field detail.
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// Authentication builds a 401-class error.
func Authentication(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return &Error{Code: CodeAuthentication, Message: message}
}

// PermissionDenied builds a 403-class error naming the denied operation.
func PermissionDenied(resource, action string) *Error {
	return &Error{
		Code:    CodePermissionDenied,
		Message: fmt.Sprintf("missing permission to %s %s", action, resource),
	}
}

// NotFound builds a 404-class error naming the absent resource.
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

// Conflict builds a 409-class error, optionally bound to a field.
func Conflict(message, field string) *Error {
	e := &Error{Code: CodeConflict, Message: message}
	if field != "" {
		e.Fields = []FieldError{{Field: field, Message: message}}
	}
	return e
}

// Internal wraps an infrastructure failure. The cause is preserved for logs
// but never serialized to clients.
func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", cause: cause}
}

// CodeOf extracts the code from err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// As returns the coded error inside err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
