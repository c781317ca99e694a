package actor

import "testing"

func TestMessageIdPriorityAndSequence(t *testing.T) {
	mid := NewMessageId(42, PriorityHigh, true)
	if mid.Priority() != PriorityHigh {
		t.Errorf("expected PriorityHigh, got %v", mid.Priority())
	}
	if !mid.IsResponse() {
		t.Error("expected IsResponse to be true")
	}
	if mid.Sequence() != 42 {
		t.Errorf("expected sequence 42, got %d", mid.Sequence())
	}

	normalMid := NewMessageId(7, PriorityNormal, false)
	if normalMid.Priority() != PriorityNormal {
		t.Errorf("expected PriorityNormal, got %v", normalMid.Priority())
	}
	if normalMid.IsResponse() {
		t.Error("expected IsResponse to be false")
	}
}

// TestMessageValuesIsDefensiveCopy ensures a caller mutating the slice
// returned by Values cannot affect the Message's own backing storage.
func TestMessageValuesIsDefensiveCopy(t *testing.T) {
	m := NewMessage("a", "b", "c")
	vs := m.Values()
	vs[0] = "mutated"

	if m.At(0) != "a" {
		t.Errorf("expected Message to be unaffected by mutating a returned Values slice, got %v", m.At(0))
	}
}

func TestMessageAtOutOfRange(t *testing.T) {
	m := NewMessage(1, 2)
	if m.At(-1) != nil {
		t.Error("expected At(-1) to return nil")
	}
	if m.At(2) != nil {
		t.Error("expected At(len) to return nil")
	}
	if m.Len() != 2 {
		t.Errorf("expected Len() 2, got %d", m.Len())
	}
}
