package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("slot")

	if first, second := gen.Next(), gen.Next(); first != "slot-1" || second != "slot-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	gen.Reset("token")
	if next := gen.NextFunc()(); next != "token-1" {
		t.Fatalf("expected token-1 after reset, got %q", next)
	}
}
