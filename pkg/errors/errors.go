// Package errors holds the error taxonomy shared by the ingestion pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies a failure so callers can decide how far it propagates
type ErrorType string

const (
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeDatabase    ErrorType = "database"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a typed failure. Op names the operation that failed, e.g. "actor.invoke".
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s error (code %d): %s", e.Op, e.Type, e.Code, msg)
		}
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, msg)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s error: %s", e.Op, e.Type, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error without an underlying cause
func New(op string, t ErrorType, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Wrap attaches a type and operation to err. A nil err yields nil.
func Wrap(op string, t ErrorType, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Type: t, Op: op, Message: err.Error(), Err: err}
}

// TypeOf reports the ErrorType of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries an *Error of type t
func Is(err error, t ErrorType) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Type == t
}

// IsRetryable checks if an error type is worth retrying
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeDatabase, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient failure
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, 408, 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
