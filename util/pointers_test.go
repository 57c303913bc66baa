package util

import "testing"

func TestPtrDerefRoundTrip(t *testing.T) {
	p := Ptr(42)
	if p == nil || *p != 42 {
		t.Fatalf("expected pointer to 42, got %v", p)
	}
	if got := Deref(p); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestDerefNil(t *testing.T) {
	var p *string
	if got := Deref(p); got != "" {
		t.Errorf("expected empty string for nil pointer, got %q", got)
	}
	var n *int
	if got := Deref(n); got != 0 {
		t.Errorf("expected 0 for nil pointer, got %d", got)
	}
}
