package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Engine error codes. Recoverable conditions carry a user-facing
// suggestion alongside the message.
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeNoCandidates        = "NO_CANDIDATES"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeTransportFailure    = "TRANSPORT_FAILURE"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// EngineError is the structured error surfaced to callers. Message and
// Suggestion are written for end users, not operators; operator detail
// travels through the wrapped cause.
type EngineError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *EngineError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error and returns the receiver.
func (e *EngineError) WithCause(err error) *EngineError {
	e.cause = err
	return e
}

// Recoverable reports whether the user can act on the error themselves
// (retry with different input) as opposed to an operational failure.
func (e *EngineError) Recoverable() bool {
	switch e.Code {
	case ErrCodeInvalidInput, ErrCodeNotFound, ErrCodeNoCandidates:
		return true
	}
	return false
}

// NewInvalidInput reports a request field that failed validation.
func NewInvalidInput(field, message string) *EngineError {
	return &EngineError{
		Code:       ErrCodeInvalidInput,
		Message:    fmt.Sprintf("Invalid %s: %s.", field, message),
		Suggestion: "Adjust the request and try again.",
	}
}

// NewDiseaseNotFound reports an unresolvable disease name. The message
// and suggestion texts are part of the UI contract.
func NewDiseaseNotFound(name string) *EngineError {
	return &EngineError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("Disease '%s' not found in our database.", name),
		Suggestion: "Please check the spelling or try using the full medical name " +
			"(e.g., 'Parkinson Disease' instead of 'Parkinsons'). " +
			"You can also try searching for related conditions.",
	}
}

// NewNoCandidates reports a successful resolution with zero candidates
// clearing the caller's score threshold.
func NewNoCandidates(minScore float64) *EngineError {
	return &EngineError{
		Code:       ErrCodeNoCandidates,
		Message:    fmt.Sprintf("No repurposing candidates scored at or above %.2f.", minScore),
		Suggestion: "Try lowering min_score to include weaker candidates, or broaden the disease term.",
	}
}

// NewUpstreamUnavailable reports evidence sources that contributed
// nothing. Only fatal when every source failed.
func NewUpstreamUnavailable(sources ...string) *EngineError {
	return &EngineError{
		Code:       ErrCodeUpstreamUnavailable,
		Message:    fmt.Sprintf("Evidence sources unavailable: %s.", strings.Join(sources, ", ")),
		Suggestion: "Results may be incomplete. Please try again in a few minutes.",
	}
}

// NewValidationFailed reports a clinical validation that produced no
// evidence at all.
func NewValidationFailed(drug, disease string) *EngineError {
	return &EngineError{
		Code:       ErrCodeValidationFailed,
		Message:    fmt.Sprintf("Clinical validation for %s in %s could not gather any evidence.", drug, disease),
		Suggestion: "The evidence services may be temporarily unavailable. Validate again later.",
	}
}

// NewTransportFailure reports a network-level failure talking to an
// upstream service.
func NewTransportFailure(err error) *EngineError {
	return &EngineError{
		Code:       ErrCodeTransportFailure,
		Message:    "A network error interrupted the request.",
		Suggestion: "Please try again. If the problem persists, contact support.",
		cause:      err,
	}
}

// NewInternal wraps an unexpected failure without leaking detail to the
// user-facing message.
func NewInternal(err error) *EngineError {
	return &EngineError{
		Code:       ErrCodeInternal,
		Message:    "An unexpected error occurred during analysis.",
		Suggestion: "Please try again or contact support if the issue persists.",
		cause:      err,
	}
}

// AsEngineError extracts an EngineError from an error chain.
func AsEngineError(err error) (*EngineError, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// IsCode reports whether err carries the given engine error code.
func IsCode(err error, code string) bool {
	if ee, ok := AsEngineError(err); ok {
		return ee.Code == code
	}
	return false
}
