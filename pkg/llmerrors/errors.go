// Package llmerrors provides structured error classification for model-service
// interactions, plus the policy table that maps each error kind to the action
// the calling agent takes (retry, fall back to a heuristic, or fail).
package llmerrors

import (
	"errors"
	"fmt"
)

// ErrorType classifies a model-boundary or validation failure.
type ErrorType int8

const (
	// ErrorTypeTimeout represents a call that exceeded its deadline.
	ErrorTypeTimeout ErrorType = iota
	// ErrorTypeTransport represents connection resets, unreachable hosts, 5xx.
	ErrorTypeTransport
	// ErrorTypeRateLimit represents 429 / quota exceeded responses.
	ErrorTypeRateLimit
	// ErrorTypeEmptyResponse represents a successful call with no content.
	ErrorTypeEmptyResponse
	// ErrorTypeCooldown represents a call rejected without contacting the
	// service because the caller's cooldown window is active.
	ErrorTypeCooldown
	// ErrorTypeParse represents model output that is not parseable as a
	// structured document.
	ErrorTypeParse
	// ErrorTypeSchema represents parseable output violating the schema
	// contract (missing field, bad enum value, out-of-range number).
	ErrorTypeSchema
	// ErrorTypeAuth represents bad credentials. Never retried.
	ErrorTypeAuth
	// ErrorTypeSessionState represents an invalid session transition, e.g. a
	// candidate reply arriving after the interview is done. Programming
	// contract violation, treated as fatal.
	ErrorTypeSessionState
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeTransport:
		return "transport"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeCooldown:
		return "cooldown"
	case ErrorTypeParse:
		return "parse"
	case ErrorTypeSchema:
		return "schema"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeSessionState:
		return "session_state"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Decision is the action an agent takes when a call fails with a given error
// kind. Kept as an explicit table rather than inline conditionals so the
// policy itself is testable.
type Decision int8

const (
	// DecisionRetry re-issues the call, subject to the retry budget.
	DecisionRetry Decision = iota
	// DecisionFallback abandons the model path and uses the deterministic
	// heuristic for this operation. Never retried.
	DecisionFallback
	// DecisionFatal surfaces the error to the caller; used only for
	// programming-contract violations, never for model-boundary failures.
	DecisionFatal
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionFallback:
		return "fallback"
	case DecisionFatal:
		return "fatal"
	default:
		return "invalid"
	}
}

// PolicyTable maps each error kind to its handling decision. Transport-class
// failures are retried; validation failures and cooldown rejections go
// straight to the fallback path; session-state violations are fatal.
//
//nolint:gochecknoglobals // policy table shared by all agents
var PolicyTable = map[ErrorType]Decision{
	ErrorTypeTimeout:       DecisionRetry,
	ErrorTypeTransport:     DecisionRetry,
	ErrorTypeRateLimit:     DecisionRetry,
	ErrorTypeEmptyResponse: DecisionRetry,
	ErrorTypeCooldown:      DecisionFallback,
	ErrorTypeParse:         DecisionFallback,
	ErrorTypeSchema:        DecisionFallback,
	ErrorTypeAuth:          DecisionFallback,
	ErrorTypeSessionState:  DecisionFatal,
	ErrorTypeUnknown:       DecisionFallback,
}

// DecideFor returns the handling decision for an error. Unclassified errors
// fall back rather than retry, so an unexpected failure can never stall the
// interview loop.
func DecideFor(err error) Decision {
	if err == nil {
		return DecisionFallback
	}
	if d, ok := PolicyTable[TypeOf(err)]; ok {
		return d
	}
	return DecisionFallback
}

// Error is a classified model-boundary error with retry metadata.
type Error struct {
	Err     error     // wrapped underlying error
	Message string    // human-readable message
	Field   string    // first violated field, for schema errors
	Type    ErrorType // classified error type
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Type == ErrorTypeSchema && e.Field != "":
		return fmt.Sprintf("model error (%s): field %q: %s", e.Type, e.Field, e.Message)
	case e.Message != "":
		return fmt.Sprintf("model error (%s): %s", e.Type, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("model error (%s): %v", e.Type, e.Err)
	default:
		return fmt.Sprintf("model error (%s)", e.Type)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the policy table retries this error kind.
func (e *Error) IsRetryable() bool {
	return PolicyTable[e.Type] == DecisionRetry
}

// Is checks if an error is of a specific classified type.
func Is(err error, errorType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errorType
	}
	return false
}

// TypeOf returns the classified type of an error, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// New creates a new classified error.
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Newf creates a new classified error with a formatted message.
func Newf(errorType ErrorType, format string, args ...any) *Error {
	return &Error{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new classified error wrapping a cause.
func Wrap(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// NewSchemaError creates a schema violation naming the first violated field.
func NewSchemaError(field, message string) *Error {
	return &Error{Type: ErrorTypeSchema, Field: field, Message: message}
}
