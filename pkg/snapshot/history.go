package snapshot

// DefaultHistoryLength is the default number of recent snapshots the
// server keeps per connection as candidate delta baselines (§4.7: "N≈25
// typical").
const DefaultHistoryLength = 25

type historyEntry struct {
	tick int32
	snap *Snap
}

// History is the server-side counterpart to Storage: a bounded ring of
// recently built snaps, searched by tick to pick the baseline for the
// next outgoing delta. Unlike Storage it never mutates the snaps it
// holds: the caller owns the Snap passed to Add and must not reuse it
// afterwards.
type History struct {
	entries []historyEntry
	max     int
}

// NewHistory returns a History bounded to max entries (DefaultHistoryLength
// if max <= 0).
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistoryLength
	}
	return &History{max: max}
}

// Add records snap as the history entry for tick, evicting the oldest
// entry if the history is already full. tick must be strictly greater
// than every previously added tick.
func (h *History) Add(tick int32, snap *Snap) {
	h.entries = append(h.entries, historyEntry{tick: tick, snap: snap})
	if len(h.entries) > h.max {
		h.entries = h.entries[1:]
	}
}

// Reset discards every stored entry.
func (h *History) Reset() {
	h.entries = h.entries[:0]
}

// lookup returns the stored snap for tick, if any.
func (h *History) lookup(tick int32) (*Snap, bool) {
	for _, e := range h.entries {
		if e.tick == tick {
			return e.snap, true
		}
	}
	return nil, false
}

// BuildDeltaFor computes the delta from the best available baseline to
// current: the client-acknowledged tick if it's still within the
// history window, or the empty snap (reported as baselineTick -1)
// otherwise. usedEmpty tells the caller whether the fallback fired.
func (h *History) BuildDeltaFor(ackTick int32, haveAckTick bool, current *Snap) (delta *Delta, baselineTick int32, usedEmpty bool) {
	if haveAckTick {
		if baseline, ok := h.lookup(ackTick); ok {
			return BuildDelta(baseline, current), ackTick, false
		}
	}
	return BuildDelta(Empty(), current), -1, true
}
