// Package snapshot implements the snapshot store: the keyed integer-array
// Snap representation, delta encoding/decoding between two Snaps, the
// server-side history used to pick a delta baseline, the client-side
// storage that reconstructs full snaps from received deltas, and the
// multi-part reassembly buffer for deltas split across several wire
// messages.
package snapshot

import "errors"

// MaxSnapshotWords bounds a Snap's total payload. The reference
// implementation names this constant for 64 KiB but applies it as a count
// of i32 words rather than bytes; this port keeps that exact behaviour
// (65536 words, i.e. 256 KiB of actual memory) rather than silently
// re-deriving a "correct" byte-based bound that would change which inputs
// are accepted.
const MaxSnapshotWords = 64 * 1024

var (
	ErrTooLongSnap         = errors.New("snapshot: snap exceeds MaxSnapshotWords")
	ErrDeltaDifferingSizes = errors.New("snapshot: update length differs from baseline item length")
	ErrDuplicateKey        = errors.New("snapshot: duplicate item key")
)

// Key packs a (type_id, id) pair into the single 32-bit key a Snap indexes
// by.
func Key(typeID, id uint16) uint32 {
	return uint32(typeID)<<16 | uint32(id)
}

// KeyTypeID extracts the type_id half of a packed key.
func KeyTypeID(key uint32) uint16 { return uint16(key >> 16) }

// KeyID extracts the id half of a packed key.
func KeyID(key uint32) uint16 { return uint16(key) }

type itemRange struct {
	start, end int
}

// Item is one entry of a Snap, yielded by Items.
type Item struct {
	TypeID uint16
	ID     uint16
	Data   []int32
}

// Snap is an immutable-by-convention keyed collection of integer-array
// items, backed by a single contiguous word buffer (§9: offsets, not
// pointers, so the buffer can be grown or reused freely).
type Snap struct {
	offsets map[uint32]itemRange
	buf     []int32
}

// Empty returns a Snap with no items.
func Empty() *Snap {
	return &Snap{offsets: make(map[uint32]itemRange)}
}

// Reset clears a Snap for reuse, avoiding a fresh allocation on the next
// delta application (§9: zero-alloc delta swapping).
func (s *Snap) Reset() {
	if s.offsets == nil {
		s.offsets = make(map[uint32]itemRange)
	} else {
		for k := range s.offsets {
			delete(s.offsets, k)
		}
	}
	s.buf = s.buf[:0]
}

// Item looks up an item by its (type_id, id) pair.
func (s *Snap) Item(typeID, id uint16) ([]int32, bool) {
	r, ok := s.offsets[Key(typeID, id)]
	if !ok {
		return nil, false
	}
	return s.buf[r.start:r.end], true
}

// Items returns every item in the Snap in unspecified order.
func (s *Snap) Items() []Item {
	items := make([]Item, 0, len(s.offsets))
	for k, r := range s.offsets {
		items = append(items, Item{TypeID: KeyTypeID(k), ID: KeyID(k), Data: s.buf[r.start:r.end]})
	}
	return items
}

// Len reports the number of items in the Snap.
func (s *Snap) Len() int { return len(s.offsets) }

// CRC is the two's-complement wrapping sum of every word in the Snap,
// used to verify a delta-reconstructed Snap against a transmitted CRC.
func (s *Snap) CRC() int32 {
	var sum int32
	for _, w := range s.buf {
		sum += w
	}
	return sum
}

// addItem allocates size fresh words for (typeID, id), overwriting any
// earlier mapping for the same key. The old words are not reclaimed: they
// stay in the buffer, where CRC and the MaxSnapshotWords check still count
// them.
func (s *Snap) addItem(typeID, id uint16, size int) ([]int32, error) {
	if s.offsets == nil {
		s.offsets = make(map[uint32]itemRange)
	}
	offset := len(s.buf)
	if offset+size > MaxSnapshotWords {
		return nil, ErrTooLongSnap
	}
	s.buf = append(s.buf, make([]int32, size)...)
	s.offsets[Key(typeID, id)] = itemRange{offset, offset + size}
	return s.buf[offset : offset+size], nil
}

// Builder constructs a Snap item by item, rejecting duplicate keys
// outright (unlike the internal delta-application path, a Builder's
// caller is the application assembling a snapshot from live game state and
// a duplicate key there is a programming error worth surfacing).
type Builder struct {
	snap *Snap
}

// NewBuilder starts building an empty Snap.
func NewBuilder() *Builder {
	return &Builder{snap: Empty()}
}

// AddItem appends one item. data is copied.
func (b *Builder) AddItem(typeID, id uint16, data []int32) error {
	if _, exists := b.snap.offsets[Key(typeID, id)]; exists {
		return ErrDuplicateKey
	}
	out, err := b.snap.addItem(typeID, id, len(data))
	if err != nil {
		return err
	}
	copy(out, data)
	return nil
}

// Finish returns the built Snap.
func (b *Builder) Finish() *Snap {
	return b.snap
}
