package netio

import (
	"errors"

	"github.com/teeworlds-go/netstack/pkg/conn"
	"github.com/teeworlds-go/netstack/pkg/huffman"
	"github.com/teeworlds-go/netstack/pkg/netmsg"
	"github.com/teeworlds-go/netstack/pkg/nettime"
	"github.com/teeworlds-go/netstack/pkg/warn"
)

// ErrUnknownPeer is returned by per-peer operations given a PeerId that is
// invalid or has already been disconnected.
var ErrUnknownPeer = errors.New("netio: unknown peer id")

type slot struct {
	conn *conn.Connection
	addr string
	live bool
}

// Net owns every connection for one socket: a dense slot table with a
// free list for PeerId reuse, keyed for routing by peer address. Sockets
// themselves are owned by the application; Net only produces and consumes
// byte payloads plus the address they belong to.
type Net struct {
	huff           *huffman.Huffman
	cfg            conn.Config
	token          []byte
	hasToken       bool
	warnSink       warn.Sink
	acceptIncoming bool

	slots  []slot
	free   []int
	byAddr map[string]PeerId
}

// New builds a Net. acceptIncoming enables server-mode admission: an
// unrecognised address sending Control{Connect} allocates a new peer and
// surfaces a Connect event instead of being dropped.
func New(huff *huffman.Huffman, cfg conn.Config, token []byte, acceptIncoming bool, sink warn.Sink) *Net {
	if sink == nil {
		sink = warn.None{}
	}
	return &Net{
		huff:           huff,
		cfg:            cfg,
		token:          token,
		hasToken:       token != nil,
		warnSink:       sink,
		acceptIncoming: acceptIncoming,
		byAddr:         make(map[string]PeerId),
	}
}

func (n *Net) allocate(addr string) PeerId {
	if len(n.free) > 0 {
		idx := n.free[len(n.free)-1]
		n.free = n.free[:len(n.free)-1]
		n.slots[idx] = slot{addr: addr, live: true}
		return PeerId(idx)
	}
	idx := len(n.slots)
	n.slots = append(n.slots, slot{addr: addr, live: true})
	return PeerId(idx)
}

func (n *Net) release(pid PeerId) {
	s := &n.slots[pid]
	delete(n.byAddr, s.addr)
	*s = slot{}
	n.free = append(n.free, int(pid))
}

func (n *Net) get(pid PeerId) (*conn.Connection, error) {
	if int(pid) < 0 || int(pid) >= len(n.slots) || !n.slots[pid].live {
		return nil, ErrUnknownPeer
	}
	return n.slots[pid].conn, nil
}

// Connect begins a client-initiated connection to addr.
func (n *Net) Connect(now nettime.Timestamp, addr string) (PeerId, error) {
	pid := n.allocate(addr)
	c := conn.NewClient(n.huff, n.token, n.warnSink, n.cfg)
	n.slots[pid].conn = c
	n.byAddr[addr] = pid
	if err := c.Connect(now); err != nil {
		n.release(pid)
		return 0, err
	}
	return pid, nil
}

// Accept admits a peer that raised a Connect event.
func (n *Net) Accept(now nettime.Timestamp, pid PeerId) error {
	c, err := n.get(pid)
	if err != nil {
		return err
	}
	return c.Accept(now)
}

// Reject declines a peer that raised a Connect event, freeing its slot.
func (n *Net) Reject(now nettime.Timestamp, pid PeerId, reason []byte) ([]Event, error) {
	c, err := n.get(pid)
	if err != nil {
		return nil, err
	}
	events, err := c.Reject(now, reason)
	if err != nil {
		return nil, err
	}
	n.release(pid)
	return translate(pid, events), nil
}

// Disconnect tears a connection down locally.
func (n *Net) Disconnect(now nettime.Timestamp, pid PeerId, reason []byte) ([]Event, error) {
	c, err := n.get(pid)
	if err != nil {
		return nil, err
	}
	events, err := c.Disconnect(now, reason)
	if err != nil {
		return nil, err
	}
	n.release(pid)
	return translate(pid, events), nil
}

// Send queues an application payload on pid.
func (n *Net) Send(now nettime.Timestamp, pid PeerId, data []byte, vital bool) ([]Event, error) {
	c, err := n.get(pid)
	if err != nil {
		return nil, err
	}
	events, err := c.Send(now, data, vital)
	return translate(pid, events), err
}

// Flush forces pid's buffered chunks out immediately.
func (n *Net) Flush(pid PeerId, now nettime.Timestamp) error {
	c, err := n.get(pid)
	if err != nil {
		return err
	}
	c.Flush(now)
	return nil
}

// SendConnless builds a connectionless datagram addressed to addr. It
// bypasses connection state entirely.
func (n *Net) SendConnless(addr string, data []byte) (Datagram, error) {
	raw, err := netmsg.EncodeConnless(data)
	if err != nil {
		return Datagram{}, err
	}
	return Datagram{Addr: addr, Data: raw}, nil
}

// Feed routes one inbound datagram. Malformed input is dropped with a
// warning. Input from an unrecognised peer is dropped unless it is a
// Connect: a Connect is admitted when acceptIncoming is set and refused
// with a warning otherwise; anything else is dropped without one. The
// multiplex never fails the caller's tick over bad network input.
func (n *Net) Feed(now nettime.Timestamp, addr string, raw []byte) []Event {
	pkt, err := netmsg.Decode(raw, n.hasToken, n.huff)
	if err != nil {
		n.warnSink.Warn(warn.New("netio", "bad-packet", err.Error()))
		return nil
	}

	if cp, ok := pkt.(netmsg.ConnlessPacket); ok {
		return []Event{Connless{Addr: addr, Data: cp.Data}}
	}

	pid, known := n.byAddr[addr]
	if !known {
		return n.admit(now, addr, pkt)
	}

	c, err := n.get(pid)
	if err != nil {
		return nil
	}
	events, err := c.Feed(now, pkt)
	if err != nil {
		n.warnSink.Warn(warn.New("netio", "protocol-violation", err.Error()))
		disconnectEvents, derr := c.Disconnect(now, []byte("protocol error"))
		n.release(pid)
		if derr != nil {
			return []Event{Disconnect{Pid: pid, Remote: false, Reason: []byte("protocol error")}}
		}
		return translate(pid, disconnectEvents)
	}

	out := translate(pid, events)
	for _, e := range events {
		if _, ok := e.(conn.Disconnect); ok {
			n.release(pid)
			break
		}
	}
	return out
}

func (n *Net) admit(now nettime.Timestamp, addr string, pkt netmsg.Packet) []Event {
	cp, ok := pkt.(netmsg.ConnPacket)
	if !ok {
		return nil
	}
	cb, ok := cp.Body.(netmsg.ControlBody)
	if !ok {
		return nil
	}
	if _, ok := cb.Kind.(netmsg.Connect); !ok {
		return nil
	}
	if !n.acceptIncoming {
		n.warnSink.Warn(warn.New("netio", "connect-refused", addr))
		return nil
	}
	pid := n.allocate(addr)
	n.slots[pid].conn = conn.NewServerAccepting(n.huff, n.token, n.warnSink, n.cfg)
	n.byAddr[addr] = pid
	return []Event{Connect{Pid: pid, Addr: addr}}
}

// Tick advances every live connection's timers, aggregating events in
// slot order. Freed slots from a connection's Disconnect are reflected
// immediately: a later connection in the same Tick call never observes a
// stale peer.
func (n *Net) Tick(now nettime.Timestamp) []Event {
	var out []Event
	for i := range n.slots {
		if !n.slots[i].live {
			continue
		}
		pid := PeerId(i)
		events := n.slots[i].conn.Tick(now)
		out = append(out, translate(pid, events)...)
		for _, e := range events {
			if _, ok := e.(conn.Disconnect); ok {
				n.release(pid)
				break
			}
		}
	}
	return out
}

// PollOutbox drains every live connection's pending outbound datagrams.
func (n *Net) PollOutbox() []Datagram {
	var out []Datagram
	for i := range n.slots {
		if !n.slots[i].live {
			continue
		}
		addr := n.slots[i].addr
		for _, raw := range n.slots[i].conn.TakeOutbox() {
			out = append(out, Datagram{Addr: addr, Data: raw})
		}
	}
	return out
}

// State returns pid's current connection state.
func (n *Net) State(pid PeerId) (conn.State, error) {
	c, err := n.get(pid)
	if err != nil {
		return 0, err
	}
	return c.State(), nil
}
