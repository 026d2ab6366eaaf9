package snapshot

import (
	"testing"

	"github.com/teeworlds-go/netstack/pkg/warn"
)

func buildSnap(items map[[2]uint16][]int32) *Snap {
	b := NewBuilder()
	for k, v := range items {
		b.AddItem(k[0], k[1], v)
	}
	return b.Finish()
}

// TestDeltaRoundTrip exercises the S3 scenario: build a delta between two
// snaps, encode it, decode it back, apply it to the baseline, and check
// the reconstructed snap's CRC matches the target snap's.
func TestDeltaRoundTrip(t *testing.T) {
	old := buildSnap(map[[2]uint16][]int32{
		{1, 1}: {10, 20},
		{1, 2}: {1},
		{2, 1}: {100, 200, 300},
	})
	next := buildSnap(map[[2]uint16][]int32{
		{1, 1}: {11, 20}, // changed, same length -> word diff
		{2, 1}: {9, 9},   // changed length -> absolute payload
		{3, 1}: {42},     // new key -> absolute payload
		// (1, 2) deleted
	})

	d := BuildDelta(old, next)
	if _, deleted := d.Deleted[Key(1, 2)]; !deleted {
		t.Fatalf("expected (1,2) to be deleted")
	}

	wire := Encode(d, NoSchema)
	decoded, err := Decode(wire, NoSchema, warn.Panic{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got := Empty()
	if err := ApplyDelta(got, old, decoded, warn.Panic{}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if got.CRC() != next.CRC() {
		t.Fatalf("CRC mismatch: got %d, want %d", got.CRC(), next.CRC())
	}
	if got.Len() != next.Len() {
		t.Fatalf("Len mismatch: got %d, want %d", got.Len(), next.Len())
	}
	for _, item := range next.Items() {
		gotData, ok := got.Item(item.TypeID, item.ID)
		if !ok {
			t.Fatalf("missing item (%d,%d) after apply", item.TypeID, item.ID)
		}
		if len(gotData) != len(item.Data) {
			t.Fatalf("item (%d,%d) length mismatch", item.TypeID, item.ID)
		}
		for i := range gotData {
			if gotData[i] != item.Data[i] {
				t.Fatalf("item (%d,%d)[%d] = %d, want %d", item.TypeID, item.ID, i, gotData[i], item.Data[i])
			}
		}
	}
}

func TestDeltaAgainstEmptyIsAbsolute(t *testing.T) {
	target := buildSnap(map[[2]uint16][]int32{{5, 1}: {1, 2, 3}})
	d := BuildDelta(Empty(), target)
	got := Empty()
	if err := ApplyDelta(got, Empty(), d, warn.Panic{}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if got.CRC() != target.CRC() || got.Len() != target.Len() {
		t.Fatalf("got CRC/Len %d/%d, want %d/%d", got.CRC(), got.Len(), target.CRC(), target.Len())
	}
}

func TestApplyDeltaDifferingSizesErrors(t *testing.T) {
	old := buildSnap(map[[2]uint16][]int32{{1, 1}: {1, 2}})
	d := NewDelta()
	d.appendUpdate(Key(1, 1), []int32{9}) // wrong length vs baseline
	if err := ApplyDelta(Empty(), old, d, warn.None{}); err != ErrDeltaDifferingSizes {
		t.Fatalf("got %v, want ErrDeltaDifferingSizes", err)
	}
}

func TestEncodeDecodeEmptyDelta(t *testing.T) {
	d := NewDelta()
	wire := Encode(d, NoSchema)
	decoded, err := Decode(wire, NoSchema, warn.Panic{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Deleted) != 0 || len(decoded.UpdatedKeys()) != 0 {
		t.Fatalf("expected empty delta, got %+v", decoded)
	}
}

func TestDecodeWithSchemaOmitsExplicitSize(t *testing.T) {
	d := NewDelta()
	d.appendUpdate(Key(7, 1), []int32{1, 2, 3})
	sizer := func(typeID uint16) (int, bool) {
		if typeID == 7 {
			return 3, true
		}
		return 0, false
	}
	wire := Encode(d, sizer)
	decoded, err := Decode(wire, sizer, warn.Panic{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	data, ok := decoded.Update(Key(7, 1))
	if !ok || len(data) != 3 {
		t.Fatalf("Update(7,1) = %v, %v", data, ok)
	}
}
