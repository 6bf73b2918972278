package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericMessage is reported when an upstream failure carries no usable message.
const GenericMessage = "Something went wrong"

// Error represents a typed error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound    = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden   = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrConflict    = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation  = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal    = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss   = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrNetwork     = New("NETWORK_ERROR", http.StatusBadGateway, "upstream unreachable")
	ErrApplication = New("APPLICATION_ERROR", http.StatusBadGateway, GenericMessage)
	ErrParse       = New("PARSE_ERROR", http.StatusBadGateway, GenericMessage)
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// MessageOf returns the human readable message carried by err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericMessage
}

// HasCode reports whether err is an *Error carrying the provided code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Network wraps a transport failure keeping the underlying message intact.
func Network(err error) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, ErrNetwork.Code, ErrNetwork.Status, err.Error())
}

// FromStatus builds an application error for a non-2xx upstream response.
func FromStatus(status int, message string) *Error {
	if message == "" {
		message = GenericMessage
	}
	code := ErrApplication.Code
	switch status {
	case http.StatusNotFound:
		code = ErrNotFound.Code
	case http.StatusConflict:
		code = ErrConflict.Code
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = ErrValidation.Code
	case http.StatusForbidden:
		code = ErrForbidden.Code
	}
	return New(code, status, message)
}
