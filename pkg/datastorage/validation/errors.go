// Package validation defines the error types pkg/datastorage's
// repositories and client surface across process boundaries: a
// field-level ValidationError for malformed writes, and an RFC 7807
// "problem+json" representation for anything crossing the HTTP client.
package validation

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ValidationError reports one or more field-level failures against a
// single resource write (e.g. a workflow execution or memory item
// rejected before it reaches the store).
type ValidationError struct {
	Resource    string
	Message     string
	FieldErrors map[string]string
}

// NewValidationError builds a ValidationError with no field errors yet;
// call AddFieldError to attach them.
func NewValidationError(resource, message string) *ValidationError {
	return &ValidationError{
		Resource:    resource,
		Message:     message,
		FieldErrors: make(map[string]string),
	}
}

// AddFieldError attaches or overwrites the error for a single field.
func (e *ValidationError) AddFieldError(field, message string) {
	e.FieldErrors[field] = message
}

func (e *ValidationError) Error() string {
	if len(e.FieldErrors) == 0 {
		return fmt.Sprintf("%s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("%s: %s (%d fields)", e.Resource, e.Message, len(e.FieldErrors))
}

// ToRFC7807 converts the error into its wire representation.
func (e *ValidationError) ToRFC7807() *RFC7807Problem {
	return NewValidationErrorProblem(e.Resource, e.FieldErrors)
}

// RFC7807Problem is the "application/problem+json" shape (RFC 7807) used
// by every HTTP-facing datastorage error response.
type RFC7807Problem struct {
	Type       string                 `json:"type"`
	Title      string                 `json:"title"`
	Status     int                    `json:"status"`
	Detail     string                 `json:"detail,omitempty"`
	Instance   string                 `json:"instance,omitempty"`
	Extensions map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extensions into the top-level object alongside
// the standard RFC 7807 fields.
func (p *RFC7807Problem) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Extensions)+5)
	for k, v := range p.Extensions {
		out[k] = v
	}
	out["type"] = p.Type
	out["title"] = p.Title
	out["status"] = p.Status
	if p.Detail != "" {
		out["detail"] = p.Detail
	}
	if p.Instance != "" {
		out["instance"] = p.Instance
	}
	return json.Marshal(out)
}

func (p *RFC7807Problem) Error() string {
	return fmt.Sprintf("%s (%d): %s", p.Title, p.Status, p.Detail)
}

const problemBase = "https://tekton.dev/errors/"

// NewValidationErrorProblem builds the problem document for a rejected
// write, one field per validation failure.
func NewValidationErrorProblem(resource string, fieldErrors map[string]string) *RFC7807Problem {
	return &RFC7807Problem{
		Type:     problemBase + "validation-error",
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   fmt.Sprintf("%s failed validation", resource),
		Instance: "/audit/" + resource,
		Extensions: map[string]interface{}{
			"resource":     resource,
			"field_errors": fieldErrors,
		},
	}
}

// NewNotFoundProblem builds the problem document for a missing resource.
func NewNotFoundProblem(resource, id string) *RFC7807Problem {
	return &RFC7807Problem{
		Type:     problemBase + "not-found",
		Title:    "Resource Not Found",
		Status:   http.StatusNotFound,
		Detail:   fmt.Sprintf("%s %q was not found", resource, id),
		Instance: fmt.Sprintf("/audit/%s/%s", resource, id),
		Extensions: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewInternalErrorProblem builds the problem document for an
// unrecoverable storage-layer failure. Callers may retry.
func NewInternalErrorProblem(detail string) *RFC7807Problem {
	return &RFC7807Problem{
		Type:   problemBase + "internal-error",
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: detail,
		Extensions: map[string]interface{}{
			"retry": true,
		},
	}
}

// NewServiceUnavailableProblem builds the problem document for a
// downstream backend (Postgres, the remote datastorage HTTP API) being
// unreachable. Callers may retry.
func NewServiceUnavailableProblem(detail string) *RFC7807Problem {
	return &RFC7807Problem{
		Type:   problemBase + "service-unavailable",
		Title:  "Service Unavailable",
		Status: http.StatusServiceUnavailable,
		Detail: detail,
		Extensions: map[string]interface{}{
			"retry": true,
		},
	}
}

// NewConflictProblem builds the problem document for a uniqueness
// violation on a single field (e.g. a duplicate execution ID).
func NewConflictProblem(resource, field, value string) *RFC7807Problem {
	return &RFC7807Problem{
		Type:     problemBase + "conflict",
		Title:    "Resource Conflict",
		Status:   http.StatusConflict,
		Detail:   fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Instance: "/audit/" + resource,
		Extensions: map[string]interface{}{
			"resource": resource,
			"field":    field,
			"value":    value,
		},
	}
}
