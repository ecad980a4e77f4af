// Package domainerrors defines the caller-visible error taxonomy. Services
// translate infrastructure sentinels into these typed errors; transport layers
// map the codes onto HTTP statuses or dead-letter routing without string
// matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeValidation marks malformed or incomplete input. Never retried;
	// asynchronous callers route the payload to the dead-letter destination.
	CodeValidation Code = "validation_error"

	// CodeUnsupported marks an instance type / channel combination the scoring
	// table does not cover. Fatal for the message, never retried.
	CodeUnsupported Code = "unsupported_scoring_input"

	// CodeInvalidTransition marks an illegal approval status change.
	CodeInvalidTransition Code = "invalid_transition"

	// CodePeriodClosed marks an approval change attempted outside an open
	// reporting period.
	CodePeriodClosed Code = "period_closed"

	// CodeConflict marks an optimistic-concurrency conflict that survived the
	// internal retry budget.
	CodeConflict Code = "conflict"

	// CodeDependency marks an upstream failure (organization registry, period
	// lookup, persistence outage). Retryable with backoff by the caller.
	CodeDependency Code = "dependency_error"

	// CodeNotFound marks a missing candidate, approval, or period.
	CodeNotFound Code = "not_found"

	// CodeInternal marks everything else.
	CodeInternal Code = "internal_error"
)

// Error is a typed domain error carrying a classification code.
type Error struct {
	Code    Code
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New creates a typed error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is checks against sentinels.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, err: err}
}

// CodeOf extracts the classification code, defaulting to CodeInternal for
// untyped errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsRetryable reports whether a message-processing caller should redeliver.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeDependency, CodeConflict:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a code to the status the REST surface returns.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeUnsupported, CodeInvalidTransition:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePeriodClosed, CodeConflict:
		return http.StatusConflict
	case CodeDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
