package conn

import (
	chunkpkg "github.com/teeworlds-go/netstack/pkg/chunk"
	"github.com/teeworlds-go/netstack/pkg/netmsg"
	"github.com/teeworlds-go/netstack/pkg/nettime"
	"github.com/teeworlds-go/netstack/pkg/warn"
)

// Feed processes one inbound packet already addressed to this connection.
// Routing a ConnlessPacket here is a caller bug, not a peer misbehaviour:
// connectionless datagrams never reach an established connection's Feed.
func (c *Connection) Feed(now nettime.Timestamp, pkt netmsg.Packet) ([]Event, error) {
	cp, ok := pkt.(netmsg.ConnPacket)
	if !ok {
		return nil, &ErrProtocol{Detail: "connectionless packet fed to a connection"}
	}
	c.lastRecv = now
	c.haveLastRecv = true
	c.lastActivity = now
	c.haveActivity = true
	c.pruneResendBuffer(cp.Ack)

	switch body := cp.Body.(type) {
	case netmsg.ControlBody:
		return c.handleControl(now, body.Kind)
	case netmsg.ChunksBody:
		return c.handleChunks(now, body)
	default:
		return nil, &ErrProtocol{Detail: "unknown packet body"}
	}
}

func (c *Connection) handleChunks(now nettime.Timestamp, body netmsg.ChunksBody) ([]Event, error) {
	if body.RequestResend {
		c.resendAll(now)
	}
	chunks, err := chunkpkg.DecodeN(body.Payload, int(body.NumChunks))
	if err != nil {
		return nil, &ErrProtocol{Detail: err.Error()}
	}

	var events []Event
	for _, ch := range chunks {
		if !ch.Vital {
			events = c.deliverApplicationChunk(events, false, ch.Data)
			continue
		}
		switch {
		case ch.Sequence == c.recvExpected:
			c.ackToSend = ch.Sequence
			c.recvExpected = seqNext(c.recvExpected)
			events = c.deliverApplicationChunk(events, true, ch.Data)
		case ch.Resend || seqLE(ch.Sequence, c.recvExpected):
			// A retransmit we've already applied, or a chunk from
			// before our receive window: drop silently.
		default:
			c.wantRequestResend = true
			c.warn.Warn(warn.New("conn", "sequence-gap", ""))
		}
	}
	return events, nil
}

func (c *Connection) deliverApplicationChunk(events []Event, vital bool, data []byte) []Event {
	if c.state == StatePending {
		c.state = StateOnline
		events = append(events, Ready{})
	}
	return append(events, Chunk{Vital: vital, Data: append([]byte(nil), data...)})
}

func (c *Connection) handleControl(now nettime.Timestamp, kind netmsg.Control) ([]Event, error) {
	switch k := kind.(type) {
	case netmsg.Connect:
		if c.role == RoleServer && c.state == StatePending && !c.acceptAcked {
			// The client never saw our ConnectAccept; resend it and push
			// its next scheduled retry back out.
			c.sendControlNow(now, netmsg.ConnectAccept{})
			c.connectAcceptBackoff = nextBackoff(c.connectAcceptBackoff)
			c.nextConnectAcceptRetry = nettime.At(now.Add(c.connectAcceptBackoff))
		}
		return nil, nil

	case netmsg.ConnectAccept:
		if c.role == RoleClient && c.state == StateConnecting {
			c.state = StatePending
			c.sendControlNow(now, netmsg.Accept{})
		}
		return nil, nil

	case netmsg.Accept:
		// Completes the server's view of the handshake: stop retransmitting
		// ConnectAccept. The state itself only advances to Online on the
		// first application chunk.
		c.acceptAcked = true
		return nil, nil

	case netmsg.KeepAlive:
		return nil, nil

	case netmsg.Close:
		c.state = StateDisconnected
		return []Event{Disconnect{Remote: true, Reason: append([]byte(nil), k.Reason...)}}, nil

	default:
		return nil, &ErrProtocol{Detail: "unknown control kind"}
	}
}
