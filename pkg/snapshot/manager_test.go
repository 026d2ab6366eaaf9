package snapshot

import (
	"testing"

	"github.com/teeworlds-go/netstack/pkg/warn"
)

func TestManagerSingleMessage(t *testing.T) {
	m := NewManager()
	snap := buildSnap(map[[2]uint16][]int32{{1, 1}: {7}})
	d := BuildDelta(Empty(), snap)
	wire := Encode(d, NoSchema)

	got, err := m.Single(warn.Panic{}, NoSchema, SnapSingle{Tick: 5, DeltaTick: 6, Crc: snap.CRC(), Data: wire})
	if err != nil {
		t.Fatalf("Single: %v", err)
	}
	if got.CRC() != snap.CRC() {
		t.Fatalf("CRC mismatch")
	}
	tick, ok := m.AckTick()
	if !ok || tick != 5 {
		t.Fatalf("AckTick() = %d, %v", tick, ok)
	}
}

func TestManagerEmptyMessageProducesEmptySnap(t *testing.T) {
	m := NewManager()
	got, err := m.Empty(warn.Panic{}, NoSchema, SnapEmpty{Tick: 1, DeltaTick: 2})
	if err != nil {
		t.Fatalf("Empty: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("got Len()=%d, want 0", got.Len())
	}
}

func TestManagerSplitMessage(t *testing.T) {
	m := NewManager()
	snap := buildSnap(map[[2]uint16][]int32{{2, 1}: {1, 2, 3, 4}})
	d := BuildDelta(Empty(), snap)
	wire := Encode(d, NoSchema)
	half := len(wire) / 2

	if got, err := m.Part(warn.Panic{}, NoSchema, SnapPart{
		Tick: 3, DeltaTick: 4, NumParts: 2, Part: 0, Crc: snap.CRC(), Data: wire[:half],
	}); err != nil || got != nil {
		t.Fatalf("first Part: got=%v err=%v", got, err)
	}

	got, err := m.Part(warn.Panic{}, NoSchema, SnapPart{
		Tick: 3, DeltaTick: 4, NumParts: 2, Part: 1, Crc: snap.CRC(), Data: wire[half:],
	})
	if err != nil {
		t.Fatalf("second Part: %v", err)
	}
	if got.CRC() != snap.CRC() {
		t.Fatalf("CRC mismatch after reassembly")
	}
}
