package deps

import "testing"

func TestChecker_IsAvailable_UnknownBinary(t *testing.T) {
	c := NewChecker("definitely-not-a-real-binary-xyz")
	if c.IsAvailable("definitely-not-a-real-binary-xyz") {
		t.Fatal("expected unknown binary to be unavailable")
	}
}

func TestChecker_CheckAll_ReportsMissing(t *testing.T) {
	c := NewChecker("definitely-not-a-real-binary-xyz")
	err := c.CheckAll()
	if err == nil {
		t.Fatal("expected an error for a missing dependency")
	}
	missingErr, ok := err.(*MissingDepsError)
	if !ok {
		t.Fatalf("expected *MissingDepsError, got %T", err)
	}
	if len(missingErr.Dependencies) != 1 {
		t.Fatalf("expected 1 missing dependency, got %d", len(missingErr.Dependencies))
	}
}
