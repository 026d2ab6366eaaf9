package snapshot

import "testing"

func TestBuilderRejectsDuplicateKey(t *testing.T) {
	b := NewBuilder()
	if err := b.AddItem(1, 1, []int32{1, 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := b.AddItem(1, 1, []int32{3}); err != ErrDuplicateKey {
		t.Fatalf("got %v, want ErrDuplicateKey", err)
	}
}

func TestSnapItemAndCRC(t *testing.T) {
	b := NewBuilder()
	b.AddItem(1, 1, []int32{10, 20})
	b.AddItem(2, 1, []int32{-5})
	snap := b.Finish()

	data, ok := snap.Item(1, 1)
	if !ok || len(data) != 2 || data[0] != 10 || data[1] != 20 {
		t.Fatalf("Item(1,1) = %v, %v", data, ok)
	}
	if snap.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", snap.Len())
	}
	if got, want := snap.CRC(), int32(10+20-5); got != want {
		t.Fatalf("CRC() = %d, want %d", got, want)
	}
}

func TestKeyRoundTrip(t *testing.T) {
	k := Key(0x1234, 0x5678)
	if KeyTypeID(k) != 0x1234 || KeyID(k) != 0x5678 {
		t.Fatalf("Key round trip broke: typeID=%x id=%x", KeyTypeID(k), KeyID(k))
	}
}

func TestResetReusesBuffer(t *testing.T) {
	s := Empty()
	s.addItem(1, 1, 4)
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", s.Len())
	}
	out, err := s.addItem(2, 2, 2)
	if err != nil || len(out) != 2 {
		t.Fatalf("addItem after Reset: %v, %v", out, err)
	}
}
