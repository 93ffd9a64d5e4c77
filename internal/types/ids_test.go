// internal/types/ids_test.go
package types

import (
	"testing"
)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if len(id) != 36 {
		t.Errorf("expected UUID format, got %s", id)
	}
	if TaskID(id) == "" {
		t.Error("expected non-empty typed id")
	}
}

func TestNewIDUnique(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Errorf("expected distinct ids, got %s twice", a)
	}
}
