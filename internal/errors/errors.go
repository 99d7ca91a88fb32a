// Package errors provides the small error taxonomy this optimizer can
// actually raise. Adapted from the teacher's internal/errors package: same
// *Error shape and fluent With* builders, trimmed from its full Postgres
// SQLSTATE catalog down to the three codes a predicate pushdown pass needs
// (see codes.go) -- pushdown has no notion of constraint violations or
// transaction state, so the rest of that catalog has no home here.
package errors

import "fmt"

// Error is a pushdown-optimizer error carrying a short Code and an optional
// Detail, following the teacher's *Error shape.
type Error struct {
	Code    string
	Message string
	Detail  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail adds detail to the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error.
func (e *Error) WithDetailf(format string, args ...interface{}) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// InternalErrorf creates an internal error; GetError uses it to wrap any
// error that is not already an *Error.
func InternalErrorf(format string, args ...interface{}) *Error {
	return Newf(InternalError, format, args...)
}

// FeatureNotSupportedError creates a feature-not-supported error, raised when
// the driver is asked to rewrite a join type outside INNER/LEFT/RIGHT/FULL.
func FeatureNotSupportedError(feature string) *Error {
	return Newf(FeatureNotSupported, "%s is not supported", feature)
}

// InvariantViolationError creates an invariant-violation error: a fatal
// condition spec.md §7 says must abort optimization (e.g. a predicate
// referencing AssignUniqueId's synthesized id column).
func InvariantViolationError(message string) *Error {
	return New(InvariantViolation, message)
}

// IsError reports whether err is a pushdown Error with the given code.
func IsError(err error, code string) bool {
	if err == nil {
		return false
	}
	pErr, ok := err.(*Error)
	return ok && pErr.Code == code
}

// GetError extracts a pushdown Error from err, wrapping any other error as
// an internal error.
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	if pErr, ok := err.(*Error); ok {
		return pErr
	}
	return InternalErrorf("%v", err)
}
