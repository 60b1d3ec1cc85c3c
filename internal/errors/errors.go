// Package errors defines the coded error type shared by the reference store,
// the services and the HTTP layer.
//
// Callers match on codes with errors.Is against the exported sentinels:
//
//	id, err := store.SaveReference(ctx, params)
//	if errors.Is(err, errors.ErrDuplicateKey) {
//	    // bib_key already taken
//	}
//
// The HTTP layer turns any *Error into a status via HTTPStatus.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code is a machine-readable error code.
type Code string

// Reference domain codes.
const (
	CodeSchema            Code = "SCHEMA"
	CodeUnknownType       Code = "UNKNOWN_TYPE"
	CodeDuplicateKey      Code = "DUPLICATE_KEY"
	CodeReferenceNotFound Code = "REFERENCE_NOT_FOUND"
	CodeUserNotFound      Code = "USER_NOT_FOUND"
	CodeDuplicateTag      Code = "DUPLICATE_TAG"
	CodeDuplicateUser     Code = "DUPLICATE_USER"
	CodeStorage           Code = "STORAGE"
)

// Generic codes.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeValidation         Code = "VALIDATION"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUpstream           Code = "UPSTREAM"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus maps a code onto the status the API responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeReferenceNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeDuplicateKey, CodeDuplicateTag, CodeDuplicateUser:
		return http.StatusConflict
	case CodeValidation, CodeUnknownType, CodeSchema:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error with an optional cause and details payload.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.cause = err
	return &cp
}

// Sentinels for errors.Is.
var (
	ErrSchema             = &Error{Code: CodeSchema, Message: "invalid schema"}
	ErrUnknownType        = &Error{Code: CodeUnknownType, Message: "unknown reference type"}
	ErrDuplicateKey       = &Error{Code: CodeDuplicateKey, Message: "bib_key already exists"}
	ErrReferenceNotFound  = &Error{Code: CodeReferenceNotFound, Message: "reference not found"}
	ErrUserNotFound       = &Error{Code: CodeUserNotFound, Message: "user not found"}
	ErrDuplicateTag       = &Error{Code: CodeDuplicateTag, Message: "tag already exists"}
	ErrDuplicateUser      = &Error{Code: CodeDuplicateUser, Message: "username already taken"}
	ErrStorage            = &Error{Code: CodeStorage, Message: "storage failure"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrUpstream           = &Error{Code: CodeUpstream, Message: "upstream failure"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// Schema reports a malformed schema definition or a seed that would orphan data.
func Schema(msg string) *Error {
	return &Error{Code: CodeSchema, Message: msg}
}

// Schemaf is Schema with a formatted message.
func Schemaf(format string, args ...any) *Error {
	return &Error{Code: CodeSchema, Message: fmt.Sprintf(format, args...)}
}

// UnknownType reports a reference type the registry does not know.
func UnknownType(typeName string) *Error {
	return &Error{Code: CodeUnknownType, Message: fmt.Sprintf("unknown reference type %q", typeName)}
}

// DuplicateKey reports a bib_key collision.
func DuplicateKey(key string) *Error {
	return &Error{Code: CodeDuplicateKey, Message: fmt.Sprintf("bib_key %q already exists", key)}
}

// ReferenceNotFound reports an edit against a missing reference.
func ReferenceNotFound(key string) *Error {
	return &Error{Code: CodeReferenceNotFound, Message: fmt.Sprintf("reference %q not found", key)}
}

// UserNotFound reports an ownership link against a missing user.
func UserNotFound(userID string) *Error {
	return &Error{Code: CodeUserNotFound, Message: fmt.Sprintf("user %q not found", userID)}
}

// DuplicateTag reports a tag name collision.
func DuplicateTag(name string) *Error {
	return &Error{Code: CodeDuplicateTag, Message: fmt.Sprintf("tag %q already exists", name)}
}

// DuplicateUser reports a username collision.
func DuplicateUser(username string) *Error {
	return &Error{Code: CodeDuplicateUser, Message: fmt.Sprintf("username %q already taken", username)}
}

// Storage wraps an engine failure.
func Storage(err error, msg string) *Error {
	return &Error{Code: CodeStorage, Message: msg, cause: err}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// InvalidCredentials creates an authentication failure.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// Upstream wraps a failure from an outside metadata provider.
func Upstream(err error, msg string) *Error {
	return &Error{Code: CodeUpstream, Message: msg, cause: err}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
