package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a machine-readable error category.
type ErrorCode string

const (
	ErrorCodeValidation       ErrorCode = "VALIDATION"
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeConflict         ErrorCode = "CONFLICT"
	ErrorCodeTransport        ErrorCode = "TRANSPORT"
)

// Error is the domain error type returned by services and stores.
type Error struct {
	Code    ErrorCode
	Message string
	Details []string
	Cause   error
}

// Sentinels for errors.Is matching by code.
var (
	ErrValidation       = &Error{Code: ErrorCodeValidation}
	ErrPermissionDenied = &Error{Code: ErrorCodePermissionDenied}
	ErrNotFound         = &Error{Code: ErrorCodeNotFound}
	ErrConflict         = &Error{Code: ErrorCodeConflict}
	ErrTransport        = &Error{Code: ErrorCodeTransport}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(string(e.Code))
	}
	if len(e.Details) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Details, ", "))
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewValidationError(message string, details ...string) *Error {
	return &Error{Code: ErrorCodeValidation, Message: message, Details: details}
}

func NewPermissionDenied(message string) *Error {
	return &Error{Code: ErrorCodePermissionDenied, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Code: ErrorCodeNotFound, Message: message}
}

func NewConflict(message string) *Error {
	return &Error{Code: ErrorCodeConflict, Message: message}
}

func NewTransportError(message string, cause error) *Error {
	return &Error{Code: ErrorCodeTransport, Message: message, Cause: cause}
}

// CodeOf returns the code of the first domain error in err's chain, or ""
// when err is not a domain error.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
