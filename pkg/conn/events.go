package conn

// Event is the tagged union of everything Feed and Tick can hand back to
// the caller: Ready, Chunk, or Disconnect.
type Event interface {
	isEvent()
}

// Ready fires the first time an application chunk is sent or received,
// marking the transition into State Online.
type Ready struct{}

func (Ready) isEvent() {}

// Chunk delivers one application-level payload. Vital chunks arrive in
// send order; non-vital chunks arrive in datagram-arrival order and may be
// duplicated.
type Chunk struct {
	Vital bool
	Data  []byte
}

func (Chunk) isEvent() {}

// Disconnect fires exactly once, the last event a connection ever
// produces. Remote is true when the peer initiated the close.
type Disconnect struct {
	Remote bool
	Reason []byte
}

func (Disconnect) isEvent() {}
