package agentroute

import (
	"errors"
	"fmt"
)

// Error codes for specific failure types
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeEmptyQuery         = "EMPTY_QUERY"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrCodeRetrieval          = "RETRIEVAL_ERROR"
	ErrCodeGeneration         = "GENERATION_ERROR"
	ErrCodeVision             = "VISION_ERROR"
	ErrCodeHistory            = "HISTORY_ERROR"
	ErrCodeCache              = "CACHE_ERROR"
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
	ErrCodeCancelled          = "EXECUTION_CANCELLED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// RouteError is the error type used across the runtime. It carries a
// machine-readable code, the processing stage that produced it, and the
// underlying cause if any.
type RouteError struct {
	Code    string
	Stage   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Stage, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Stage, e.Code, e.Message)
}

// Unwrap returns the underlying cause, allowing errors.Is/As chains.
func (e *RouteError) Unwrap() error {
	return e.Cause
}

// NewError creates a new RouteError.
func NewError(code, stage, message string, cause error) *RouteError {
	return &RouteError{
		Code:    code,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// Specific error constructors

func NewEmptyQueryError() *RouteError {
	return NewError(ErrCodeEmptyQuery, "validation", "query text is empty; provide a question or an image", nil)
}

func NewValidationError(stage, message string) *RouteError {
	return NewError(ErrCodeValidation, stage, message, nil)
}

// NewBackendUnavailableError marks a hard collaborator failure: the backend
// could not be reached at all, as opposed to reaching it and getting nothing
// useful back. These are the only step errors that abort plan execution.
func NewBackendUnavailableError(stage, backend string, cause error) *RouteError {
	return NewError(ErrCodeBackendUnavailable, stage, fmt.Sprintf("backend '%s' is unavailable", backend), cause)
}

func NewRetrievalError(message string, cause error) *RouteError {
	return NewError(ErrCodeRetrieval, "retrieval", message, cause)
}

func NewGenerationError(message string, cause error) *RouteError {
	return NewError(ErrCodeGeneration, "generation", message, cause)
}

func NewVisionError(message string, cause error) *RouteError {
	return NewError(ErrCodeVision, "vision", message, cause)
}

func NewHistoryError(operation string, cause error) *RouteError {
	return NewError(ErrCodeHistory, "history", fmt.Sprintf("history operation '%s' failed", operation), cause)
}

func NewConfigurationError(message string, cause error) *RouteError {
	return NewError(ErrCodeConfiguration, "initialization", message, cause)
}

func NewCancelledError(stage string, cause error) *RouteError {
	return NewError(ErrCodeCancelled, stage, "execution cancelled", cause)
}

func NewInternalError(stage, message string, cause error) *RouteError {
	return NewError(ErrCodeInternal, stage, message, cause)
}

// IsRouteError reports whether err is (or wraps) a RouteError.
func IsRouteError(err error) bool {
	var re *RouteError
	return errors.As(err, &re)
}

// IsBackendUnavailable reports whether err is a hard collaborator failure
// that must surface to the caller instead of degrading into a fallback
// answer.
func IsBackendUnavailable(err error) bool {
	var re *RouteError
	if errors.As(err, &re) {
		return re.Code == ErrCodeBackendUnavailable
	}
	return false
}

// IsEmptyQuery reports whether err is the malformed-input rejection raised
// before planning.
func IsEmptyQuery(err error) bool {
	var re *RouteError
	if errors.As(err, &re) {
		return re.Code == ErrCodeEmptyQuery
	}
	return false
}
