// Package netio implements the multiplex ("Net"): the PeerId-indexed
// collection of connections that routes inbound datagrams to the right
// Connection (or treats them as connectionless), drives every connection's
// tick, and surfaces a single ordered event stream to the application.
package netio

import "github.com/teeworlds-go/netstack/pkg/conn"

// PeerId is a dense, reused-slot handle into the multiplex's connection
// table. It is never a borrowed reference: holding a PeerId after its
// Disconnect event has been delivered is a caller bug, not a dangling
// pointer.
type PeerId int

// Event is the tagged union the multiplex hands back from Feed and Tick.
type Event interface {
	isEvent()
}

// Connect reports that a new peer sent Control{Connect}. The application
// must call Accept or Reject before the next Tick; admission is entirely
// application-controlled.
type Connect struct {
	Pid  PeerId
	Addr string
}

func (Connect) isEvent() {}

// Ready mirrors conn.Ready, tagged with the peer it happened on.
type Ready struct {
	Pid PeerId
}

func (Ready) isEvent() {}

// Chunk mirrors conn.Chunk, tagged with the peer it arrived from.
type Chunk struct {
	Pid   PeerId
	Vital bool
	Data  []byte
}

func (Chunk) isEvent() {}

// Disconnect mirrors conn.Disconnect. After this event, Pid is invalid:
// the multiplex has already returned its slot to the free list.
type Disconnect struct {
	Pid    PeerId
	Remote bool
	Reason []byte
}

func (Disconnect) isEvent() {}

// Connless reports a connectionless datagram's payload, addressed by the
// transport-level peer address it arrived from.
type Connless struct {
	Addr string
	Data []byte
}

func (Connless) isEvent() {}

// Datagram is one outbound UDP payload the application must write to Addr.
type Datagram struct {
	Addr string
	Data []byte
}

func translate(pid PeerId, events []conn.Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		switch ev := e.(type) {
		case conn.Ready:
			out = append(out, Ready{Pid: pid})
		case conn.Chunk:
			out = append(out, Chunk{Pid: pid, Vital: ev.Vital, Data: ev.Data})
		case conn.Disconnect:
			out = append(out, Disconnect{Pid: pid, Remote: ev.Remote, Reason: ev.Reason})
		}
	}
	return out
}
