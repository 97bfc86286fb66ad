package validation

import "strings"

// ValidateRequired returns a ValidationError listing every key in fields
// whose value is empty, or nil if all are populated.
func ValidateRequired(resource string, fields map[string]string) *ValidationError {
	var err *ValidationError
	for field, value := range fields {
		if strings.TrimSpace(value) != "" {
			continue
		}
		if err == nil {
			err = NewValidationError(resource, "one or more required fields are missing")
		}
		err.AddFieldError(field, "is required")
	}
	return err
}

// ValidateMaxLength rejects a field whose value exceeds max characters.
func ValidateMaxLength(resource, field, value string, max int) *ValidationError {
	if len(value) <= max {
		return nil
	}
	err := NewValidationError(resource, "field exceeds maximum length")
	err.AddFieldError(field, "exceeds maximum length")
	return err
}

// ValidateOneOf rejects a field whose value isn't one of allowed.
func ValidateOneOf(resource, field, value string, allowed ...string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	err := NewValidationError(resource, "field has an unrecognized value")
	err.AddFieldError(field, "must be one of: "+strings.Join(allowed, ", "))
	return err
}
