package session

import "testing"

func TestCorrelatorLifecycle(t *testing.T) {
	c := NewCorrelator()

	if c.Active() != "" {
		t.Fatalf("expected empty active id, got %q", c.Active())
	}

	c.Capture("conv-1")
	if c.Active() != "conv-1" {
		t.Fatalf("expected conv-1, got %q", c.Active())
	}

	// A later turn's started frame replaces the active id.
	c.Capture("conv-2")
	if c.Active() != "conv-2" {
		t.Fatalf("expected conv-2, got %q", c.Active())
	}

	c.Reset()
	if c.Active() != "" {
		t.Fatalf("expected empty id after reset, got %q", c.Active())
	}
}

func TestCorrelatorAdoptsExplicitOverride(t *testing.T) {
	c := NewCorrelator()
	c.Capture("conv-1")

	// Consumer resumes an older conversation explicitly.
	c.Adopt("conv-0")
	if c.Active() != "conv-0" {
		t.Fatalf("expected adopted conv-0, got %q", c.Active())
	}
}
