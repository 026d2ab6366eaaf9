package snapshot

import (
	"errors"

	"github.com/teeworlds-go/netstack/pkg/warn"
)

var (
	ErrOldDelta        = errors.New("snapshot: delta older than what has already been received")
	ErrInvalidNumParts = errors.New("snapshot: num_parts out of range")
	ErrInvalidPart     = errors.New("snapshot: part out of range for num_parts")
	ErrDuplicatePart   = errors.New("snapshot: duplicate part index")
)

// maxSnapParts bounds how many wire messages a single snapshot can be
// split across.
const maxSnapParts = 32

// SnapEmpty is the wire message for a tick with no changes since the
// baseline: delta_tick identifies the baseline, tick the new one.
type SnapEmpty struct {
	Tick      int32
	DeltaTick int32
}

// SnapSingle is the wire message for a delta that fits in one packet.
type SnapSingle struct {
	Tick      int32
	DeltaTick int32
	Crc       int32
	Data      []byte
}

// SnapPart is the wire message for one fragment of a delta split across
// NumParts packets.
type SnapPart struct {
	Tick      int32
	DeltaTick int32
	NumParts  int32
	Part      int32
	Crc       int32
	Data      []byte
}

// ReceivedDelta is a fully reassembled delta payload ready for
// snapshot.Decode, still tagged with the tick it reconstructs and the
// tick of the baseline it was built against (DeltaTick == -1 baselines
// against the empty snap).
type ReceivedDelta struct {
	DeltaTick int32
	Tick      int32
	Data      []byte
	Crc       *int32
}

type currentDelta struct {
	tick      int32
	deltaTick int32
	numParts  int32
	crc       int32
}

// DeltaReceiver reassembles the possibly-multi-part delta messages
// arriving for one connection into complete ReceivedDelta payloads,
// tolerating reordering of a split delta's parts and rejecting deltas
// older than what has already been reassembled.
type DeltaReceiver struct {
	havePreviousTick bool
	previousTick     int32

	haveCurrent bool
	current     currentDelta

	parts      map[int32][]byte
	receiveBuf []byte
	result     []byte
}

// NewDeltaReceiver returns an empty DeltaReceiver.
func NewDeltaReceiver() *DeltaReceiver {
	return &DeltaReceiver{parts: make(map[int32][]byte)}
}

func (r *DeltaReceiver) canReceive(tick int32) bool {
	if r.haveCurrent {
		return r.current.tick <= tick
	}
	if r.havePreviousTick {
		return r.previousTick < tick
	}
	return true
}

func (r *DeltaReceiver) initDelta() {
	for k := range r.parts {
		delete(r.parts, k)
	}
	r.receiveBuf = r.receiveBuf[:0]
	r.result = r.result[:0]
}

func (r *DeltaReceiver) finishDelta(tick int32) {
	r.haveCurrent = false
	r.havePreviousTick = true
	r.previousTick = tick
}

// Empty processes a SnapEmpty message.
func (r *DeltaReceiver) Empty(sink warn.Sink, msg SnapEmpty) (*ReceivedDelta, error) {
	if sink == nil {
		sink = warn.None{}
	}
	if !r.canReceive(msg.Tick) {
		return nil, ErrOldDelta
	}
	if r.haveCurrent && r.current.tick == msg.Tick {
		sink.Warn(warn.New("snapshot", "duplicate-snap", ""))
	}
	r.initDelta()
	r.finishDelta(msg.Tick)
	return &ReceivedDelta{
		DeltaTick: msg.Tick - msg.DeltaTick,
		Tick:      msg.Tick,
		Data:      r.result,
	}, nil
}

// Single processes a SnapSingle message.
func (r *DeltaReceiver) Single(sink warn.Sink, msg SnapSingle) (*ReceivedDelta, error) {
	if sink == nil {
		sink = warn.None{}
	}
	if !r.canReceive(msg.Tick) {
		return nil, ErrOldDelta
	}
	if r.haveCurrent && r.current.tick == msg.Tick {
		sink.Warn(warn.New("snapshot", "duplicate-snap", ""))
	}
	r.initDelta()
	r.finishDelta(msg.Tick)
	r.result = append(r.result, msg.Data...)
	crc := msg.Crc
	return &ReceivedDelta{
		DeltaTick: msg.Tick - msg.DeltaTick,
		Tick:      msg.Tick,
		Data:      r.result,
		Crc:       &crc,
	}, nil
}

// Part processes one fragment of a split delta. It returns nil, nil
// while parts are still missing, and the reassembled ReceivedDelta once
// the last one arrives, in whatever order the parts arrived in.
func (r *DeltaReceiver) Part(sink warn.Sink, msg SnapPart) (*ReceivedDelta, error) {
	if sink == nil {
		sink = warn.None{}
	}
	if !r.canReceive(msg.Tick) {
		return nil, ErrOldDelta
	}
	if msg.NumParts < 0 || msg.NumParts > maxSnapParts {
		return nil, ErrInvalidNumParts
	}
	if msg.Part < 0 || msg.Part >= msg.NumParts {
		return nil, ErrInvalidPart
	}

	if r.haveCurrent && r.current.tick != msg.Tick {
		r.haveCurrent = false
	}
	if !r.haveCurrent {
		r.initDelta()
		r.current = currentDelta{
			tick:      msg.Tick,
			deltaTick: msg.Tick - msg.DeltaTick,
			numParts:  msg.NumParts,
			crc:       msg.Crc,
		}
		r.haveCurrent = true
	}

	if msg.DeltaTick != r.current.tick-r.current.deltaTick ||
		msg.NumParts != r.current.numParts ||
		msg.Crc != r.current.crc {
		sink.Warn(warn.New("snapshot", "differing-attributes", ""))
	}
	deltaTick, tick, crc, numParts := r.current.deltaTick, r.current.tick, r.current.crc, r.current.numParts

	if _, dup := r.parts[msg.Part]; dup {
		return nil, ErrDuplicatePart
	}
	data := append([]byte(nil), msg.Data...)
	r.parts[msg.Part] = data

	if int32(len(r.parts)) != numParts {
		return nil, nil
	}

	r.finishDelta(tick)
	r.result = r.result[:0]
	for i := int32(0); i < numParts; i++ {
		r.result = append(r.result, r.parts[i]...)
	}

	return &ReceivedDelta{
		DeltaTick: deltaTick,
		Tick:      tick,
		Data:      r.result,
		Crc:       &crc,
	}, nil
}
