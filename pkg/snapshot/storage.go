package snapshot

import (
	"errors"

	"github.com/teeworlds-go/netstack/pkg/warn"
)

var (
	ErrOldSnapshot     = errors.New("snapshot: tick older than or equal to the newest stored snap")
	ErrUnknownBaseline = errors.New("snapshot: delta's baseline tick is not in storage")
	ErrInvalidCrc      = errors.New("snapshot: reconstructed snap's crc does not match the transmitted one")
)

type storedSnap struct {
	snap *Snap
	tick int32
}

// Storage is the client-side snapshot store: the recently reconstructed
// snaps (newest first), used as the baseline pool for incoming deltas,
// plus a free list of recycled Snaps so steady-state operation does no
// further allocation. It has no fixed size bound: stored snaps are dropped
// only when a delta references a baseline newer than them, or on Reset.
type Storage struct {
	snaps []storedSnap
	free  []*Snap

	haveAckTick bool
	ackTick     int32
}

// NewStorage returns an empty Storage.
func NewStorage() *Storage {
	return &Storage{}
}

// Reset drops every stored snap back onto the free list and clears the
// ack tick.
func (s *Storage) Reset() {
	for _, st := range s.snaps {
		s.free = append(s.free, st.snap)
	}
	s.snaps = s.snaps[:0]
	s.haveAckTick = false
}

// AckTick returns the tick of the most recently accepted snap, the tick
// the connection should acknowledge to the server as its snapshot
// baseline.
func (s *Storage) AckTick() (int32, bool) {
	return s.ackTick, s.haveAckTick
}

func (s *Storage) takeFree() *Snap {
	if n := len(s.free); n > 0 {
		snap := s.free[n-1]
		s.free = s.free[:n-1]
		return snap
	}
	return Empty()
}

// AddDelta reconstructs the snap for tick from delta against the stored
// snap at deltaTick (or the empty snap when deltaTick < 0), verifies it
// against crc when the wire message carried one, and on success stores
// it as the new newest snap and returns it.
func (s *Storage) AddDelta(sink warn.Sink, crc *int32, deltaTick, tick int32, delta *Delta) (*Snap, error) {
	if sink == nil {
		sink = warn.None{}
	}
	if len(s.snaps) > 0 && s.snaps[0].tick >= tick {
		return nil, ErrOldSnapshot
	}

	var baseline *Snap
	if deltaTick >= 0 {
		if i := s.findOlderThan(deltaTick); i >= 0 {
			for _, st := range s.snaps[i:] {
				s.free = append(s.free, st.snap)
			}
			s.snaps = s.snaps[:i]
		}
		if n := len(s.snaps); n > 0 && s.snaps[n-1].tick == deltaTick {
			baseline = s.snaps[n-1].snap
		} else {
			s.haveAckTick = false
			return nil, ErrUnknownBaseline
		}
	} else {
		baseline = Empty()
		if deltaTick != -1 {
			sink.Warn(warn.New("snapshot", "weird-negative-delta-tick", ""))
		}
	}

	newSnap := s.takeFree()
	if err := ApplyDelta(newSnap, baseline, delta, sink); err != nil {
		s.free = append(s.free, newSnap)
		return nil, err
	}
	if crc != nil && *crc != newSnap.CRC() {
		s.haveAckTick = false
		s.free = append(s.free, newSnap)
		return nil, ErrInvalidCrc
	}

	s.ackTick = tick
	s.haveAckTick = true
	s.snaps = append([]storedSnap{{snap: newSnap, tick: tick}}, s.snaps...)
	return newSnap, nil
}

// findOlderThan returns the index of the first (newest-to-oldest) stored
// snap strictly older than tick, or -1 if every stored snap is tick or
// newer.
func (s *Storage) findOlderThan(tick int32) int {
	for i, st := range s.snaps {
		if st.tick < tick {
			return i
		}
	}
	return -1
}
