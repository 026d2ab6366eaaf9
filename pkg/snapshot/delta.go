package snapshot

import (
	"errors"
	"sort"

	"github.com/teeworlds-go/netstack/pkg/varint"
	"github.com/teeworlds-go/netstack/pkg/warn"
)

var (
	ErrDeletedItemsUnpacking = errors.New("snapshot: deleted-item count exceeds payload")
	ErrItemDiffsUnpacking    = errors.New("snapshot: truncated item diff")
	ErrTypeIDRange           = errors.New("snapshot: type_id or id out of 16-bit range")
	ErrNegativeSize          = errors.New("snapshot: negative explicit item size")
)

// ObjectSizer tells the delta codec how many words an item of typeID
// occupies when the receiver can infer it from a compile-time schema,
// letting the wire format omit the explicit size field for that item.
type ObjectSizer func(typeID uint16) (size int, ok bool)

// NoSchema is the ObjectSizer for a codec with no compile-time item
// schema: every update carries an explicit size.
func NoSchema(uint16) (int, bool) { return 0, false }

// Delta is the difference between two Snaps: a set of deleted keys and a
// set of updated items, each stored as either a word-wise arithmetic diff
// against the baseline or an absolute payload for new/resized items.
type Delta struct {
	Deleted map[uint32]struct{}
	updated map[uint32]itemRange
	buf     []int32
}

// NewDelta returns an empty Delta.
func NewDelta() *Delta {
	return &Delta{Deleted: make(map[uint32]struct{}), updated: make(map[uint32]itemRange)}
}

// UpdatedKeys returns the keys with an update record, in unspecified
// order.
func (d *Delta) UpdatedKeys() []uint32 {
	keys := make([]uint32, 0, len(d.updated))
	for k := range d.updated {
		keys = append(keys, k)
	}
	return keys
}

// Update returns the raw diff/absolute payload stored for key.
func (d *Delta) Update(key uint32) ([]int32, bool) {
	r, ok := d.updated[key]
	if !ok {
		return nil, false
	}
	return d.buf[r.start:r.end], true
}

func (d *Delta) appendUpdate(key uint32, data []int32) {
	start := len(d.buf)
	d.buf = append(d.buf, data...)
	d.updated[key] = itemRange{start, len(d.buf)}
}

// BuildDelta computes the delta taking old to new: deletions are keys in
// old but absent from new; updates are new/changed keys, stored as a
// word-wise diff when old and new agree on length, or as an absolute
// payload otherwise.
func BuildDelta(old, new *Snap) *Delta {
	d := NewDelta()
	for k := range old.offsets {
		if _, ok := new.offsets[k]; !ok {
			d.Deleted[k] = struct{}{}
		}
	}
	for k, r := range new.offsets {
		newData := new.buf[r.start:r.end]
		oldR, hadOld := old.offsets[k]
		if !hadOld {
			d.appendUpdate(k, append([]int32(nil), newData...))
			continue
		}
		oldData := old.buf[oldR.start:oldR.end]
		if len(oldData) != len(newData) {
			d.appendUpdate(k, append([]int32(nil), newData...))
			continue
		}
		if int32SlicesEqual(oldData, newData) {
			continue
		}
		diff := make([]int32, len(newData))
		for i := range diff {
			diff[i] = newData[i] - oldData[i]
		}
		d.appendUpdate(k, diff)
	}
	return d
}

func int32SlicesEqual(a, b []int32) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Encode serialises a Delta into the wire's delta-payload integer
// sequence (§4.7). Keys are emitted in ascending order for determinism;
// the wire format itself places no requirement on ordering.
func Encode(d *Delta, sizer ObjectSizer) []byte {
	if sizer == nil {
		sizer = NoSchema
	}
	deleted := make([]uint32, 0, len(d.Deleted))
	for k := range d.Deleted {
		deleted = append(deleted, k)
	}
	sort.Slice(deleted, func(i, j int) bool { return deleted[i] < deleted[j] })
	updated := d.UpdatedKeys()
	sort.Slice(updated, func(i, j int) bool { return updated[i] < updated[j] })

	out := varint.AppendInt(nil, int32(len(deleted)))
	out = varint.AppendInt(out, int32(len(updated)))
	out = varint.AppendInt(out, 0) // reserved
	for _, k := range deleted {
		out = varint.AppendInt(out, int32(k))
	}
	for _, k := range updated {
		data, _ := d.Update(k)
		typeID, id := KeyTypeID(k), KeyID(k)
		out = varint.AppendInt(out, int32(typeID))
		out = varint.AppendInt(out, int32(id))
		if n, ok := sizer(typeID); !ok || n != len(data) {
			out = varint.AppendInt(out, int32(len(data)))
		}
		for _, w := range data {
			out = varint.AppendInt(out, w)
		}
	}
	return out
}

// Decode parses a delta-payload integer sequence into a Delta, mirroring
// the reference reader's tolerance for duplicate deletions/updates
// (reported via sink, not treated as fatal) and its requirement that
// update records collide last-write-wins.
func Decode(data []byte, sizer ObjectSizer, sink warn.Sink) (*Delta, error) {
	if sizer == nil {
		sizer = NoSchema
	}
	if sink == nil {
		sink = warn.None{}
	}
	numDeleted, n, err := varint.ReadInt(data)
	if err != nil {
		return nil, err
	}
	data = data[n:]
	numUpdated, n, err := varint.ReadInt(data)
	if err != nil {
		return nil, err
	}
	data = data[n:]
	_, n, err = varint.ReadInt(data) // reserved
	if err != nil {
		return nil, err
	}
	data = data[n:]

	var ints []int32
	for len(data) > 0 {
		v, n, err := varint.ReadInt(data)
		if err != nil {
			return nil, err
		}
		ints = append(ints, v)
		data = data[n:]
	}

	if numDeleted < 0 || int(numDeleted) > len(ints) {
		return nil, ErrDeletedItemsUnpacking
	}
	deleted, rest := ints[:numDeleted], ints[numDeleted:]

	d := NewDelta()
	dupDelete := false
	for _, raw := range deleted {
		key := uint32(raw)
		if _, exists := d.Deleted[key]; exists {
			dupDelete = true
		}
		d.Deleted[key] = struct{}{}
	}
	if dupDelete {
		sink.Warn(warn.New("snapshot", "duplicate-delete", ""))
	}

	numUpdatesSeen := 0
	for len(rest) > 0 {
		if len(rest) < 2 {
			return nil, ErrItemDiffsUnpacking
		}
		typeIDRaw, idRaw := rest[0], rest[1]
		rest = rest[2:]
		if typeIDRaw < 0 || typeIDRaw > 0xffff || idRaw < 0 || idRaw > 0xffff {
			return nil, ErrTypeIDRange
		}
		typeID, id := uint16(typeIDRaw), uint16(idRaw)

		var size int
		if n, ok := sizer(typeID); ok {
			size = n
		} else {
			if len(rest) < 1 {
				return nil, ErrItemDiffsUnpacking
			}
			sz := rest[0]
			rest = rest[1:]
			if sz < 0 {
				return nil, ErrNegativeSize
			}
			size = int(sz)
		}
		if size > len(rest) {
			return nil, ErrItemDiffsUnpacking
		}
		itemData, remainder := rest[:size], rest[size:]
		rest = remainder

		key := Key(typeID, id)
		if _, exists := d.updated[key]; exists {
			sink.Warn(warn.New("snapshot", "duplicate-update", ""))
		}
		d.appendUpdate(key, itemData)
		if _, deleted := d.Deleted[key]; deleted {
			sink.Warn(warn.New("snapshot", "delete-update-conflict", ""))
		}
		numUpdatesSeen++
	}
	if numUpdatesSeen != int(numUpdated) {
		sink.Warn(warn.New("snapshot", "num-updated-items-mismatch", ""))
	}
	return d, nil
}

// ApplyDelta reconstructs a Snap by applying d to baseline, writing the
// result into s (cleared first). Updated items present in baseline with
// matching length are reconstructed by word-wise wrapping addition;
// absent items are taken as an absolute payload; present items with a
// differing length are a protocol violation the reference implementation
// resolves by assertion-failure, which this port instead reports as
// ErrDeltaDifferingSizes so malformed network input never panics.
func ApplyDelta(s, baseline *Snap, d *Delta, sink warn.Sink) error {
	if sink == nil {
		sink = warn.None{}
	}
	s.Reset()
	deletionsSeen := 0
	for k, r := range baseline.offsets {
		if _, deleted := d.Deleted[k]; deleted {
			deletionsSeen++
			continue
		}
		if _, updated := d.updated[k]; updated {
			continue
		}
		data := baseline.buf[r.start:r.end]
		out, err := s.addItem(KeyTypeID(k), KeyID(k), len(data))
		if err != nil {
			return err
		}
		copy(out, data)
	}
	if deletionsSeen != len(d.Deleted) {
		sink.Warn(warn.New("snapshot", "unknown-delete", ""))
	}

	for k, r := range d.updated {
		diff := d.buf[r.start:r.end]
		typeID, id := KeyTypeID(k), KeyID(k)
		if baseData, ok := baseline.Item(typeID, id); ok {
			if len(baseData) != len(diff) {
				return ErrDeltaDifferingSizes
			}
			out, err := s.addItem(typeID, id, len(diff))
			if err != nil {
				return err
			}
			for i := range out {
				out[i] = baseData[i] + diff[i]
			}
		} else {
			out, err := s.addItem(typeID, id, len(diff))
			if err != nil {
				return err
			}
			copy(out, diff)
		}
	}
	return nil
}
