package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	// Pipeline failures
	ErrorTypeInvalidLink     ErrorType = "invalid_link"
	ErrorTypeDownload        ErrorType = "download"
	ErrorTypeTooSmall        ErrorType = "too_small"
	ErrorTypeSizeMismatch    ErrorType = "size_mismatch"
	ErrorTypeDirectoryCreate ErrorType = "directory_create"
	ErrorTypeSessionInit     ErrorType = "session_init"
	ErrorTypeNavigation      ErrorType = "navigation"
	ErrorTypeExtraction      ErrorType = "extraction"

	// Transport failures, all reported as download errors to the orchestrator
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a typed pipeline error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without an underlying cause
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error carrying cause
func Wrap(errorType ErrorType, message string, cause error) *Error {
	return &Error{Type: errorType, Message: message, Err: cause}
}

// TypeOf returns the type of the first *Error in err's chain, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether any *Error in err's chain has the given type
func IsType(err error, errorType ErrorType) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == errorType {
			return true
		}
		err = e.Err
	}
	return false
}

// IsTransport reports whether the type describes a transport-level failure
func IsTransport(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// TransportCause returns the first transport-level type in err's chain
func TransportCause(err error) (ErrorType, bool) {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return "", false
		}
		if IsTransport(e.Type) {
			return e.Type, true
		}
		err = e.Err
	}
	return "", false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeDownload, ErrorTypeTooSmall:
		return true
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNotFound, ErrorTypeAuth:
		// A dead link burns through the attempt budget; the budget is the bound.
		return true
	case ErrorTypeInvalidLink, ErrorTypeSizeMismatch, ErrorTypeDirectoryCreate, ErrorTypeSessionInit:
		return false
	default:
		return false
	}
}
