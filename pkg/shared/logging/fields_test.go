package logging

import (
	"errors"
	"testing"
	"time"
)

func TestNewFields(t *testing.T) {
	fields := NewFields()
	if fields == nil {
		t.Fatal("NewFields() returned nil")
	}
	if len(fields) != 0 {
		t.Errorf("NewFields() should be empty, got %d fields", len(fields))
	}
}

func TestFields_Component(t *testing.T) {
	fields := NewFields().Component("registry")
	if fields["component"] != "registry" {
		t.Errorf("Component() = %v, want %v", fields["component"], "registry")
	}
}

func TestFields_Operation(t *testing.T) {
	fields := NewFields().Operation("resolve")
	if fields["operation"] != "resolve" {
		t.Errorf("Operation() = %v, want %v", fields["operation"], "resolve")
	}
}

func TestFields_Resource(t *testing.T) {
	fields := NewFields().Resource("component", "apollo")
	if fields["resource_type"] != "component" {
		t.Errorf("resource_type = %v", fields["resource_type"])
	}
	if fields["resource_name"] != "apollo" {
		t.Errorf("resource_name = %v", fields["resource_name"])
	}
}

func TestFields_ResourceWithoutName(t *testing.T) {
	fields := NewFields().Resource("component", "")
	if _, exists := fields["resource_name"]; exists {
		t.Error("Resource() should not set resource_name when empty")
	}
}

func TestFields_Duration(t *testing.T) {
	fields := NewFields().Duration(150 * time.Millisecond)
	if fields["duration_ms"] != int64(150) {
		t.Errorf("Duration() = %v, want 150", fields["duration_ms"])
	}
}

func TestFields_Error(t *testing.T) {
	fields := NewFields().Error(errors.New("boom"))
	if fields["error"] != "boom" {
		t.Errorf("Error() = %v, want boom", fields["error"])
	}
}

func TestFields_ErrorNil(t *testing.T) {
	fields := NewFields().Error(nil)
	if _, exists := fields["error"]; exists {
		t.Error("Error(nil) should not set error field")
	}
}

func TestFields_InstanceUUID(t *testing.T) {
	fields := NewFields().InstanceUUID("U1")
	if fields["instance_uuid"] != "U1" {
		t.Errorf("InstanceUUID() = %v", fields["instance_uuid"])
	}
	if empty := NewFields().InstanceUUID(""); len(empty) != 0 {
		t.Error("InstanceUUID(\"\") should not set a field")
	}
}

func TestFields_Logrus(t *testing.T) {
	fields := NewFields().Component("aish")
	lf := fields.Logrus()
	if lf["component"] != "aish" {
		t.Errorf("Logrus() lost field: %v", lf)
	}
}
