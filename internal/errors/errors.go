// Package errors defines the structured AppError taxonomy shared by every
// Tekton service boundary (HTTP handlers, aish shell, workflow engine,
// context core). Handlers map an AppError's Type to a status code and a
// safe, externally-presentable message; internal details stay in logs.
package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ckoons/tekton-core/pkg/shared/logging"
)

// ErrorType classifies an AppError for status-code mapping, logging, and
// safe-message lookup.
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "invalid"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeConflict           ErrorType = "conflict"
	ErrorTypeStale              ErrorType = "stale"
	ErrorTypeUnavailable        ErrorType = "unavailable"
	ErrorTypeTimeout            ErrorType = "timeout"
	ErrorTypeOverloaded         ErrorType = "overloaded"
	ErrorTypeTaskFailed         ErrorType = "task_failed"
	ErrorTypeNoFallback         ErrorType = "no_fallback_available"
	ErrorTypeContextExhausted  ErrorType = "context_exhausted"
	ErrorTypeCIAsleep           ErrorType = "ci_asleep"
	ErrorTypeCatalogFull        ErrorType = "catalog_full"
	ErrorTypePersistenceFailure ErrorType = "persistence_failure"
	ErrorTypeEngineFault        ErrorType = "engine_fault"
	ErrorTypeInternal           ErrorType = "internal"
)

var statusCodes = map[ErrorType]int{
	ErrorTypeValidation:         http.StatusBadRequest,
	ErrorTypeNotFound:           http.StatusNotFound,
	ErrorTypeConflict:           http.StatusConflict,
	ErrorTypeStale:              http.StatusGone,
	ErrorTypeUnavailable:        http.StatusServiceUnavailable,
	ErrorTypeTimeout:            http.StatusGatewayTimeout,
	ErrorTypeOverloaded:         http.StatusTooManyRequests,
	ErrorTypeTaskFailed:         http.StatusInternalServerError,
	ErrorTypeNoFallback:         http.StatusServiceUnavailable,
	ErrorTypeContextExhausted:  http.StatusInsufficientStorage,
	ErrorTypeCIAsleep:           http.StatusServiceUnavailable,
	ErrorTypeCatalogFull:        http.StatusInsufficientStorage,
	ErrorTypePersistenceFailure: http.StatusInternalServerError,
	ErrorTypeEngineFault:        http.StatusInternalServerError,
	ErrorTypeInternal:           http.StatusInternalServerError,
}

// AppError is the structured error type returned from service boundaries.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg += fmt.Sprintf(" (%s)", e.Details)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches additional internal-only context, modifying e in place.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithDetailsf attaches formatted additional context.
func (e *AppError) WithDetailsf(format string, args ...interface{}) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// New creates an AppError of the given type with its mapped status code.
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		StatusCode: statusCodes[errType],
	}
}

// Wrap creates an AppError that records an underlying cause.
func Wrap(cause error, errType ErrorType, message string) *AppError {
	err := New(errType, message)
	err.Cause = cause
	return err
}

// Wrapf creates a Wrap error with a formatted message.
func Wrapf(cause error, errType ErrorType, format string, args ...interface{}) *AppError {
	return Wrap(cause, errType, fmt.Sprintf(format, args...))
}

// Predefined constructors, one per taxonomy entry in spec §7.

func NewValidationError(message string) *AppError { return New(ErrorTypeValidation, message) }

func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource))
}

func NewConflictError(message string) *AppError { return New(ErrorTypeConflict, message) }

func NewStaleError(resource string) *AppError {
	return New(ErrorTypeStale, fmt.Sprintf("%s is stale", resource))
}

func NewUnavailableError(component string) *AppError {
	return New(ErrorTypeUnavailable, fmt.Sprintf("%s is unavailable", component))
}

func NewTimeoutError(operation string) *AppError {
	return New(ErrorTypeTimeout, fmt.Sprintf("operation timed out: %s", operation))
}

func NewOverloadedError(component string) *AppError {
	return New(ErrorTypeOverloaded, fmt.Sprintf("%s is overloaded", component))
}

func NewTaskFailedError(taskID string, cause error) *AppError {
	return Wrap(cause, ErrorTypeTaskFailed, fmt.Sprintf("task %s failed", taskID))
}

func NewNoFallbackError(capability string) *AppError {
	return New(ErrorTypeNoFallback, fmt.Sprintf("no fallback available for capability: %s", capability))
}

func NewContextExhaustedError(sessionID string) *AppError {
	return New(ErrorTypeContextExhausted, fmt.Sprintf("context budget exhausted for session %s", sessionID))
}

func NewCIAsleepError(ciName string) *AppError {
	return New(ErrorTypeCIAsleep, fmt.Sprintf("CI %s is asleep", ciName))
}

func NewCatalogFullError(catalog string) *AppError {
	return New(ErrorTypeCatalogFull, fmt.Sprintf("catalog %s is full", catalog))
}

func NewPersistenceError(operation string, cause error) *AppError {
	return Wrap(cause, ErrorTypePersistenceFailure, fmt.Sprintf("persistence operation failed: %s", operation))
}

func NewEngineFaultError(detail string, cause error) *AppError {
	return Wrap(cause, ErrorTypeEngineFault, fmt.Sprintf("engine fault: %s", detail))
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the AppError's type, or ErrorTypeInternal for any other
// error (including nil-typed values and plain errors).
func GetType(err error) ErrorType {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode returns the HTTP status code an error should be reported
// with, defaulting to 500 for non-AppError values.
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// safeMessages holds externally-presentable text, keyed by type, so internal
// details (queries, stack traces, credentials) never leak to API clients.
type safeMessages struct {
	ResourceNotFound       string
	AuthenticationFailed   string
	OperationTimeout       string
	RateLimitExceeded      string
	ConcurrentModification string
	ComponentUnavailable   string
	TaskExecutionFailed    string
	NoFallbackAvailable    string
	ContextBudgetExhausted string
	CIUnreachable          string
	CatalogAtCapacity      string
	InternalError          string
}

// ErrorMessages is the externally-presentable message table.
var ErrorMessages = safeMessages{
	ResourceNotFound:       "The requested resource was not found",
	AuthenticationFailed:   "Authentication failed",
	OperationTimeout:       "The operation timed out",
	RateLimitExceeded:      "Rate limit exceeded, please retry later",
	ConcurrentModification: "The resource was modified by another request",
	ComponentUnavailable:   "The requested component is currently unavailable",
	TaskExecutionFailed:    "The task could not be completed",
	NoFallbackAvailable:    "No fallback implementation is available",
	ContextBudgetExhausted: "The context budget has been exhausted",
	CIUnreachable:          "The companion intelligence is not currently reachable",
	CatalogAtCapacity:      "The catalog is at capacity",
	InternalError:          "An internal error occurred",
}

// SafeErrorMessage returns text that is safe to return to an external caller.
func SafeErrorMessage(err error) string {
	appErr, ok := err.(*AppError)
	if !ok {
		return "An unexpected error occurred"
	}

	switch appErr.Type {
	case ErrorTypeValidation:
		return appErr.Message
	case ErrorTypeNotFound:
		return ErrorMessages.ResourceNotFound
	case ErrorTypeTimeout:
		return ErrorMessages.OperationTimeout
	case ErrorTypeOverloaded:
		return ErrorMessages.RateLimitExceeded
	case ErrorTypeConflict, ErrorTypeStale:
		return ErrorMessages.ConcurrentModification
	case ErrorTypeUnavailable:
		return ErrorMessages.ComponentUnavailable
	case ErrorTypeTaskFailed:
		return ErrorMessages.TaskExecutionFailed
	case ErrorTypeNoFallback:
		return ErrorMessages.NoFallbackAvailable
	case ErrorTypeContextExhausted:
		return ErrorMessages.ContextBudgetExhausted
	case ErrorTypeCIAsleep:
		return ErrorMessages.CIUnreachable
	case ErrorTypeCatalogFull:
		return ErrorMessages.CatalogAtCapacity
	default:
		return ErrorMessages.InternalError
	}
}

// LogFields builds structured logging fields for an error, emitting only
// what's available: a plain error gets just "error"; an AppError also gets
// its type, status code, and (when set) details and underlying cause.
func LogFields(err error) logging.Fields {
	fields := logging.NewFields().Error(err)

	appErr, ok := err.(*AppError)
	if !ok {
		return fields
	}

	fields["error_type"] = string(appErr.Type)
	fields["status_code"] = appErr.StatusCode
	if appErr.Details != "" {
		fields["error_details"] = appErr.Details
	}
	if appErr.Cause != nil {
		fields["underlying_error"] = appErr.Cause.Error()
	}
	return fields
}

// Chain combines multiple errors (skipping nils) into one, joined with
// " -> ", returning nil if all inputs were nil and the sole error unchanged
// if there is only one.
func Chain(errs ...error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	msgs := make([]string, len(nonNil))
	for i, e := range nonNil {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, " -> "))
}
