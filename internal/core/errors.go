package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Validation errors: surfaced immediately, never retried.
	ErrClassInvalid  = &Error{Code: "CLASS_INVALID", Message: "instrument class not matched"}
	ErrOptionInvalid = &Error{Code: "OPTION_INVALID", Message: "option missing required fields"}
	ErrCodesMissing  = &Error{Code: "CODES_MISSING", Message: "no valid codes supplied"}

	// Not-found: returned as failure results, not panics.
	ErrNotFound = &Error{Code: "NOT_FOUND", Message: "no matching record"}

	// Watch/monitor state errors.
	ErrNoWatch   = &Error{Code: "NO_WATCH", Message: "nothing watched, add entries first"}
	ErrNoMonitor = &Error{Code: "NO_MONITOR", Message: "no monitor options configured"}

	// Upstream errors: per-code, never abort a batch.
	ErrFetchFailed = &Error{Code: "FETCH_FAILED", Message: "upstream fetch failed"}
	ErrNoData      = &Error{Code: "NO_DATA", Message: "no data available"}

	// Config errors.
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
)
