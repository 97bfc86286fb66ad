// Package logging provides structured logging field helpers shared by every
// Tekton component. It wraps logrus.Fields with a small fluent builder so
// call sites build consistent field names instead of inventing their own.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a fluent builder over logrus.Fields.
type Fields logrus.Fields

// NewFields returns an empty field set.
func NewFields() Fields {
	return Fields{}
}

// Component tags the originating component id.
func (f Fields) Component(id string) Fields {
	f["component"] = id
	return f
}

// Operation tags the logical operation name (e.g. "register", "resolve").
func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

// Resource tags the resource type and, when non-empty, its name.
func (f Fields) Resource(resourceType, name string) Fields {
	f["resource_type"] = resourceType
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

// Duration records an elapsed time in milliseconds.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Error records an error's message, doing nothing for a nil error.
func (f Fields) Error(err error) Fields {
	if err == nil {
		return f
	}
	f["error"] = err.Error()
	return f
}

// InstanceUUID tags a component's instance identifier.
func (f Fields) InstanceUUID(id string) Fields {
	if id != "" {
		f["instance_uuid"] = id
	}
	return f
}

// ExecutionID tags a workflow execution identifier.
func (f Fields) ExecutionID(id string) Fields {
	if id != "" {
		f["execution_id"] = id
	}
	return f
}

// TaskID tags a workflow task identifier.
func (f Fields) TaskID(id string) Fields {
	if id != "" {
		f["task_id"] = id
	}
	return f
}

// CI tags a CI name.
func (f Fields) CI(name string) Fields {
	if name != "" {
		f["ci_name"] = name
	}
	return f
}

// Logrus converts back to logrus.Fields for use with a logrus entry.
func (f Fields) Logrus() logrus.Fields {
	return logrus.Fields(f)
}
