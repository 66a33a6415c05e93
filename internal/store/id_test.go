package store

import "testing"

func TestNewRoomIDShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewRoomID()
		if len(id) != roomIDLen {
			t.Fatalf("expected %d chars, got %q", roomIDLen, id)
		}
		if seen[id] {
			t.Fatalf("duplicate room id %q", id)
		}
		seen[id] = true
	}
}

func TestNewIDSortable(t *testing.T) {
	a, b := NewID(), NewID()
	if a >= b {
		t.Fatalf("expected monotonic ids, got %s then %s", a, b)
	}
}
