// Package errors provides low-level operation-error wrapping used to build
// causes before they are promoted to an internal/errors.AppError at a
// service boundary.
package errors

import "fmt"

// OperationError describes a failed operation with optional component and
// resource context, wrapping an underlying cause.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("failed to %s", e.Operation)
	if e.Component != "" {
		msg += fmt.Sprintf(", component: %s", e.Component)
	}
	if e.Resource != "" {
		msg += fmt.Sprintf(", resource: %s", e.Resource)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(", cause: %s", e.Cause)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds a minimal OperationError, used at call sites that don't
// need component/resource context.
func FailedTo(action string, cause error) *OperationError {
	return &OperationError{Operation: action, Cause: cause}
}

// FailedToWithDetails builds an OperationError with component and resource
// context.
func FailedToWithDetails(action, component, resource string, cause error) *OperationError {
	return &OperationError{Operation: action, Component: component, Resource: resource, Cause: cause}
}
