package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
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
	if e.Err != nil {
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
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Session intake validation faults. All caller-correctable.
	ErrInvalidDate         = New("INVALID_DATE", http.StatusBadRequest, "date must be YYYY-MM-DD or MM/DD/YYYY")
	ErrConflictingDuration = New("CONFLICTING_DURATION", http.StatusBadRequest, "fill either minutes or H:MM, not both")
	ErrMissingDuration     = New("MISSING_DURATION", http.StatusBadRequest, "enter minutes or H:MM")
	ErrNonPositiveDuration = New("NON_POSITIVE_DURATION", http.StatusBadRequest, "duration must be positive")
	ErrMalformedDuration   = New("MALFORMED_DURATION", http.StatusBadRequest, "H:MM must include a colon, e.g. 1:30")
	ErrInvalidMinutePart   = New("INVALID_MINUTE_PART", http.StatusBadRequest, "minute part must be 0-59")
	ErrInvalidService      = New("INVALID_SERVICE", http.StatusBadRequest, "invalid service")
	ErrInvalidMode         = New("INVALID_MODE", http.StatusBadRequest, "invalid mode")
	ErrEmptyField          = New("EMPTY_FIELD", http.StatusBadRequest, "required field is empty")
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
