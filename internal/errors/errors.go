// Package errors provides the coded error type shared by every layer of the
// service. Handlers map codes to HTTP status with HTTPStatus; services and
// repositories construct errors with the helpers below and never return raw
// driver errors to callers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Code classifies an error for transport mapping and retry decisions.
type Code string

const (
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeConflict     Code = "CONFLICT"
	ErrCodeForbidden    Code = "FORBIDDEN"
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidStage Code = "INVALID_STAGE"
	ErrCodeInternal     Code = "INTERNAL"
)

// Error is the coded error carried across layers. Fields is populated for
// validation failures so callers can surface every offending field at once.
type Error struct {
	Code    Code
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s '%s' not found", resource, id)}
}

// InvalidInput reports a single invalid request field.
func InvalidInput(field, message string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Message: message, Fields: []string{field}}
}

// InvalidPayload reports every missing or invalid field of an action payload.
func InvalidPayload(fields []string) *Error {
	return &Error{
		Code:    ErrCodeInvalidInput,
		Message: "payload is missing required fields",
		Fields:  fields,
	}
}

// Forbidden reports an authorization failure.
func Forbidden(message string) *Error {
	return &Error{Code: ErrCodeForbidden, Message: message}
}

// Conflict reports a lost optimistic-concurrency race. Safe to retry after a
// re-fetch; every other code requires caller correction.
func Conflict(message string) *Error {
	return &Error{Code: ErrCodeConflict, Message: message}
}

// CodeOf extracts the code from an error chain, or ErrCodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// FieldsOf extracts the offending field list from an error chain, if any.
func FieldsOf(err error) []string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error code to its HTTP response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
