// Package conn implements a single peer connection's state machine: the
// handshake, reliable (vital) delivery with resend buffering, keepalive and
// timeout timers, and the chunk-buffer flush policy described for the core
// network stack. It never touches a socket; callers feed it parsed packets
// and drain an outbox of datagrams to send.
package conn

import (
	"time"

	chunkpkg "github.com/teeworlds-go/netstack/pkg/chunk"
	"github.com/teeworlds-go/netstack/pkg/huffman"
	"github.com/teeworlds-go/netstack/pkg/netmsg"
	"github.com/teeworlds-go/netstack/pkg/nettime"
	"github.com/teeworlds-go/netstack/pkg/warn"
)

// Role distinguishes which side of the handshake a Connection plays.
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

// State is one point in the connection lifecycle (§4.5).
type State uint8

const (
	StateUnconnected State = iota
	StateConnecting
	// StateAccepting is server-only: a Connect control has been received
	// from a new peer and the application hasn't yet called Accept or
	// Reject.
	StateAccepting
	StatePending
	StateOnline
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateAccepting:
		return "accepting"
	case StatePending:
		return "pending"
	case StateOnline:
		return "online"
	case StateDisconnected:
		return "disconnected"
	default:
		return "invalid"
	}
}

type resendEntry struct {
	seq       uint16
	firstSent nettime.Timestamp
	data      []byte
}

// Connection drives one peer's state machine. The zero value is not
// usable; construct with NewClient or NewServerAccepting.
type Connection struct {
	role  Role
	cfg   Config
	huff  *huffman.Huffman
	token []byte // our outgoing token, nil if the protocol variant carries none
	warn  warn.Sink

	state State

	sendSeq           uint16
	recvExpected      uint16
	ackToSend         uint16
	wantRequestResend bool

	resendBuf    []resendEntry
	lastResendAt nettime.Timestamp
	everResent   bool

	pendingChunks []byte
	pendingCount  uint8
	pendingSince  nettime.Timestamp
	pendingActive bool

	outbox [][]byte

	lastRecv      nettime.Timestamp
	haveLastRecv  bool
	lastActivity  nettime.Timestamp
	haveActivity  bool

	connectDeadline  nettime.Timeout
	nextConnectRetry nettime.Timeout
	connectBackoff   time.Duration

	// Server-side ConnectAccept retransmission, armed by Accept and
	// disarmed once the client's Accept control confirms receipt.
	acceptAcked            bool
	connectAcceptDeadline  nettime.Timeout
	nextConnectAcceptRetry nettime.Timeout
	connectAcceptBackoff   time.Duration
}

// NewClient builds a Connection in StateUnconnected, ready for Connect.
func NewClient(huff *huffman.Huffman, token []byte, sink warn.Sink, cfg Config) *Connection {
	return newConnection(RoleClient, StateUnconnected, huff, token, sink, cfg)
}

// NewServerAccepting builds a Connection in StateAccepting: the caller has
// already observed a Control{Connect} from a new peer and is about to ask
// the application whether to Accept or Reject it.
func NewServerAccepting(huff *huffman.Huffman, token []byte, sink warn.Sink, cfg Config) *Connection {
	return newConnection(RoleServer, StateAccepting, huff, token, sink, cfg)
}

func newConnection(role Role, state State, huff *huffman.Huffman, token []byte, sink warn.Sink, cfg Config) *Connection {
	if sink == nil {
		sink = warn.None{}
	}
	return &Connection{
		role:  role,
		cfg:   cfg,
		huff:  huff,
		token: token,
		warn:  sink,
		state: state,
	}
}

// State returns the connection's current state.
func (c *Connection) State() State { return c.state }

// TakeOutbox returns and clears the datagrams queued for transmission
// since the last call.
func (c *Connection) TakeOutbox() [][]byte {
	out := c.outbox
	c.outbox = nil
	return out
}

// Connect begins the client-side handshake. Valid only from
// StateUnconnected on a client-role Connection.
func (c *Connection) Connect(now nettime.Timestamp) error {
	if c.role != RoleClient || c.state != StateUnconnected {
		return ErrWrongState
	}
	c.state = StateConnecting
	c.connectDeadline = nettime.At(now.Add(c.cfg.ConnectTimeout))
	c.connectBackoff = 0
	c.nextConnectRetry = nettime.At(now)
	c.sendControlNow(now, netmsg.Connect{})
	c.connectBackoff = nextBackoff(c.connectBackoff)
	c.nextConnectRetry = nettime.At(now.Add(c.connectBackoff))
	return nil
}

// Accept admits a pending server-side connection. Valid only from
// StateAccepting on a server-role Connection. Like Connect, ConnectAccept
// is retransmitted at exponentially increasing intervals (§4.5) until the
// client's Accept control arrives or connectAcceptDeadline passes.
func (c *Connection) Accept(now nettime.Timestamp) error {
	if c.role != RoleServer || c.state != StateAccepting {
		return ErrWrongState
	}
	c.state = StatePending
	c.acceptAcked = false
	c.connectAcceptDeadline = nettime.At(now.Add(c.cfg.ConnectTimeout))
	c.connectAcceptBackoff = 0
	c.nextConnectAcceptRetry = nettime.At(now)
	c.sendControlNow(now, netmsg.ConnectAccept{})
	c.connectAcceptBackoff = nextBackoff(c.connectAcceptBackoff)
	c.nextConnectAcceptRetry = nettime.At(now.Add(c.connectAcceptBackoff))
	return nil
}

// Reject declines a pending server-side connection, sending a Close
// control with reason. Valid only from StateAccepting on a server-role
// Connection.
func (c *Connection) Reject(now nettime.Timestamp, reason []byte) ([]Event, error) {
	if c.role != RoleServer || c.state != StateAccepting {
		return nil, ErrWrongState
	}
	c.state = StateDisconnected
	c.sendControlNow(now, netmsg.Close{Reason: reason})
	return []Event{Disconnect{Remote: false, Reason: reason}}, nil
}

// Disconnect is the local-initiated teardown path: it flushes any pending
// chunks, sends Control{Close(reason)}, and transitions to Disconnected.
func (c *Connection) Disconnect(now nettime.Timestamp, reason []byte) ([]Event, error) {
	if c.state == StateDisconnected {
		return nil, ErrWrongState
	}
	c.state = StateDisconnected
	c.sendControlNow(now, netmsg.Close{Reason: reason})
	return []Event{Disconnect{Remote: false, Reason: reason}}, nil
}

// Send queues an application payload. Vital payloads are assigned the next
// sequence number and appended to the resend buffer; non-vital payloads are
// fire-and-forget. Valid only in StatePending or StateOnline.
func (c *Connection) Send(now nettime.Timestamp, data []byte, vital bool) ([]Event, error) {
	if c.state != StatePending && c.state != StateOnline {
		return nil, ErrWrongState
	}
	var events []Event
	if c.state == StatePending {
		c.state = StateOnline
		events = append(events, Ready{})
	}

	ch := chunkpkg.Chunk{Vital: vital, Data: data}
	if vital {
		ch.Sequence = c.sendSeq
		c.sendSeq = seqNext(c.sendSeq)
		c.resendBuf = append(c.resendBuf, resendEntry{
			seq:       ch.Sequence,
			firstSent: now,
			data:      append([]byte(nil), data...),
		})
	}
	if err := c.enqueueChunk(now, ch); err != nil {
		return events, err
	}
	return events, nil
}

// Flush forces a packet out immediately, even an empty ack-only one: this
// is the explicit application-triggered member of the flush policy, unlike
// the internal automatic triggers which only fire when there's something
// to say.
func (c *Connection) Flush(now nettime.Timestamp) {
	c.forceFlush(now)
}

func (c *Connection) enqueueChunk(now nettime.Timestamp, ch chunkpkg.Chunk) error {
	wouldBe := len(c.pendingChunks) + chunkpkg.HeaderSize(ch.Vital) + len(ch.Data)
	if c.pendingActive && (wouldBe > netmsg.MaxPayload || c.pendingCount == 255) {
		c.doFlush(now)
	}
	buf, err := chunkpkg.Append(c.pendingChunks, ch)
	if err != nil {
		return err
	}
	c.pendingChunks = buf
	c.pendingCount++
	if !c.pendingActive {
		c.pendingSince = now
		c.pendingActive = true
	}
	return nil
}

func (c *Connection) doFlush(now nettime.Timestamp) {
	if !c.pendingActive && !c.wantRequestResend {
		return
	}
	c.forceFlush(now)
}

func (c *Connection) forceFlush(now nettime.Timestamp) {
	raw, err := netmsg.EncodeChunks(c.ackToSend, c.wantRequestResend, c.pendingCount, c.token, c.pendingChunks, c.huff)
	if err == nil {
		c.outbox = append(c.outbox, raw)
	} else {
		c.warn.Warn(warn.New("conn", "flush-encode-failed", err.Error()))
	}
	c.pendingChunks = nil
	c.pendingCount = 0
	c.pendingActive = false
	c.wantRequestResend = false
	c.touchSent(now)
}

func (c *Connection) sendControlNow(now nettime.Timestamp, ctrl netmsg.Control) {
	c.doFlush(now)
	raw, err := netmsg.EncodeControl(c.ackToSend, c.token, ctrl)
	if err != nil {
		c.warn.Warn(warn.New("conn", "control-encode-failed", err.Error()))
		return
	}
	c.outbox = append(c.outbox, raw)
	c.touchSent(now)
}

func (c *Connection) touchSent(now nettime.Timestamp) {
	c.lastActivity = now
	c.haveActivity = true
}

// resendAll retransmits every entry in the resend buffer with the
// chunk-level resend flag set, damped to at most once per
// Config.ResendInterval.
func (c *Connection) resendAll(now nettime.Timestamp) {
	if len(c.resendBuf) == 0 {
		return
	}
	if c.everResent && now.Sub(c.lastResendAt) < c.cfg.ResendInterval {
		return
	}
	for _, entry := range c.resendBuf {
		ch := chunkpkg.Chunk{Vital: true, Resend: true, Sequence: entry.seq, Data: entry.data}
		if err := c.enqueueChunk(now, ch); err != nil {
			c.warn.Warn(warn.New("conn", "resend-failed", err.Error()))
		}
	}
	c.doFlush(now)
	c.lastResendAt = now
	c.everResent = true
}

func (c *Connection) pruneResendBuffer(ack uint16) {
	i := 0
	for i < len(c.resendBuf) && seqLE(c.resendBuf[i].seq, ack) {
		i++
	}
	if i > 0 {
		c.resendBuf = c.resendBuf[i:]
	}
}
