package snapshot

import "testing"

func TestHistoryBuildDeltaForKnownAck(t *testing.T) {
	h := NewHistory(4)
	base := buildSnap(map[[2]uint16][]int32{{1, 1}: {1, 2}})
	h.Add(100, base)

	current := buildSnap(map[[2]uint16][]int32{{1, 1}: {3, 2}})
	d, baselineTick, usedEmpty := h.BuildDeltaFor(100, true, current)
	if usedEmpty || baselineTick != 100 {
		t.Fatalf("baselineTick=%d usedEmpty=%v, want 100/false", baselineTick, usedEmpty)
	}
	got := Empty()
	if err := ApplyDelta(got, base, d, nil); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if got.CRC() != current.CRC() {
		t.Fatalf("CRC mismatch")
	}
}

func TestHistoryFallsBackToEmptyWhenAckUnknown(t *testing.T) {
	h := NewHistory(4)
	current := buildSnap(map[[2]uint16][]int32{{1, 1}: {3, 2}})
	d, baselineTick, usedEmpty := h.BuildDeltaFor(999, true, current)
	if !usedEmpty || baselineTick != -1 {
		t.Fatalf("baselineTick=%d usedEmpty=%v, want -1/true", baselineTick, usedEmpty)
	}
	got := Empty()
	if err := ApplyDelta(got, Empty(), d, nil); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if got.CRC() != current.CRC() {
		t.Fatalf("CRC mismatch")
	}
}

func TestHistoryEvictsOldestWhenFull(t *testing.T) {
	h := NewHistory(2)
	h.Add(1, Empty())
	h.Add(2, Empty())
	h.Add(3, Empty())
	if _, ok := h.lookup(1); ok {
		t.Fatalf("tick 1 should have been evicted")
	}
	if _, ok := h.lookup(3); !ok {
		t.Fatalf("tick 3 should still be present")
	}
}
