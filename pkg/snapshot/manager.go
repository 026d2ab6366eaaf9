package snapshot

import "github.com/teeworlds-go/netstack/pkg/warn"

// Manager is the client-side orchestrator gluing DeltaReceiver (wire
// reassembly), Decode (delta payload parsing) and Storage (baseline
// bookkeeping) into the single call a connection's message loop needs:
// feed each arriving snapshot message in, get the reconstructed Snap
// back once it's complete.
type Manager struct {
	receiver  *DeltaReceiver
	storage   *Storage
	tempDelta *Delta
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{receiver: NewDeltaReceiver(), storage: NewStorage()}
}

// Reset clears both the in-flight reassembly state and the stored
// baseline history, as when a connection restarts its snapshot stream.
func (m *Manager) Reset() {
	m.receiver = NewDeltaReceiver()
	m.storage.Reset()
}

// AckTick returns the tick the client should report back to the server
// as its latest fully-applied snapshot.
func (m *Manager) AckTick() (int32, bool) {
	return m.storage.AckTick()
}

// Empty feeds one SnapEmpty message through reassembly and storage.
func (m *Manager) Empty(sink warn.Sink, sizer ObjectSizer, msg SnapEmpty) (*Snap, error) {
	rd, err := m.receiver.Empty(sink, msg)
	if err != nil || rd == nil {
		return nil, err
	}
	return m.addDelta(sink, sizer, rd)
}

// Single feeds one SnapSingle message through reassembly and storage.
func (m *Manager) Single(sink warn.Sink, sizer ObjectSizer, msg SnapSingle) (*Snap, error) {
	rd, err := m.receiver.Single(sink, msg)
	if err != nil || rd == nil {
		return nil, err
	}
	return m.addDelta(sink, sizer, rd)
}

// Part feeds one fragment of a split SnapPart message through
// reassembly, returning nil, nil until the last fragment completes the
// delta, at which point it runs through storage like the other message
// kinds.
func (m *Manager) Part(sink warn.Sink, sizer ObjectSizer, msg SnapPart) (*Snap, error) {
	rd, err := m.receiver.Part(sink, msg)
	if err != nil || rd == nil {
		return nil, err
	}
	return m.addDelta(sink, sizer, rd)
}

func (m *Manager) addDelta(sink warn.Sink, sizer ObjectSizer, rd *ReceivedDelta) (*Snap, error) {
	var delta *Delta
	if len(rd.Data) > 0 {
		d, err := Decode(rd.Data, sizer, sink)
		if err != nil {
			return nil, err
		}
		delta = d
	} else {
		delta = NewDelta()
	}
	m.tempDelta = delta
	return m.storage.AddDelta(sink, rd.Crc, rd.DeltaTick, rd.Tick, delta)
}
