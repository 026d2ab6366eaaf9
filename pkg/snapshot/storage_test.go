package snapshot

import (
	"testing"

	"github.com/teeworlds-go/netstack/pkg/warn"
)

func TestStorageAddDeltaAgainstEmpty(t *testing.T) {
	s := NewStorage()
	snap := buildSnap(map[[2]uint16][]int32{{1, 1}: {1, 2}})
	d := BuildDelta(Empty(), snap)
	crc := snap.CRC()

	got, err := s.AddDelta(warn.Panic{}, &crc, -1, 10, d)
	if err != nil {
		t.Fatalf("AddDelta: %v", err)
	}
	if got.CRC() != snap.CRC() {
		t.Fatalf("CRC mismatch")
	}
	tick, ok := s.AckTick()
	if !ok || tick != 10 {
		t.Fatalf("AckTick() = %d, %v, want 10, true", tick, ok)
	}
}

func TestStorageChainedDeltas(t *testing.T) {
	s := NewStorage()
	first := buildSnap(map[[2]uint16][]int32{{1, 1}: {1, 2}})
	d1 := BuildDelta(Empty(), first)
	crc1 := first.CRC()
	if _, err := s.AddDelta(warn.Panic{}, &crc1, -1, 10, d1); err != nil {
		t.Fatalf("AddDelta(first): %v", err)
	}

	second := buildSnap(map[[2]uint16][]int32{{1, 1}: {5, 2}})
	d2 := BuildDelta(first, second)
	crc2 := second.CRC()
	got, err := s.AddDelta(warn.Panic{}, &crc2, 10, 20, d2)
	if err != nil {
		t.Fatalf("AddDelta(second): %v", err)
	}
	if got.CRC() != second.CRC() {
		t.Fatalf("CRC mismatch on chained delta")
	}
}

func TestStorageRejectsOldTick(t *testing.T) {
	s := NewStorage()
	snap := buildSnap(map[[2]uint16][]int32{{1, 1}: {1}})
	d := BuildDelta(Empty(), snap)
	crc := snap.CRC()
	if _, err := s.AddDelta(warn.Panic{}, &crc, -1, 10, d); err != nil {
		t.Fatalf("AddDelta: %v", err)
	}
	if _, err := s.AddDelta(warn.Panic{}, &crc, -1, 10, d); err != ErrOldSnapshot {
		t.Fatalf("got %v, want ErrOldSnapshot", err)
	}
}

func TestStorageUnknownBaseline(t *testing.T) {
	s := NewStorage()
	d := NewDelta()
	if _, err := s.AddDelta(warn.Panic{}, nil, 5, 10, d); err != ErrUnknownBaseline {
		t.Fatalf("got %v, want ErrUnknownBaseline", err)
	}
}

func TestStorageInvalidCrc(t *testing.T) {
	s := NewStorage()
	snap := buildSnap(map[[2]uint16][]int32{{1, 1}: {1}})
	d := BuildDelta(Empty(), snap)
	wrong := snap.CRC() + 1
	if _, err := s.AddDelta(warn.None{}, &wrong, -1, 10, d); err != ErrInvalidCrc {
		t.Fatalf("got %v, want ErrInvalidCrc", err)
	}
}
