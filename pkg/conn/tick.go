package conn

import (
	"github.com/teeworlds-go/netstack/pkg/netmsg"
	"github.com/teeworlds-go/netstack/pkg/nettime"
)

// Tick advances every timer owned by the connection: handshake retries,
// keepalive, timeout, and the chunk-buffer age-based flush trigger. Call it
// regularly (the multiplex drives every connection's Tick from its own
// tick(now)).
func (c *Connection) Tick(now nettime.Timestamp) []Event {
	switch c.state {
	case StateConnecting:
		return c.tickConnecting(now)
	case StatePending, StateOnline:
		return c.tickEstablished(now)
	default:
		return nil
	}
}

func (c *Connection) tickConnecting(now nettime.Timestamp) []Event {
	if c.connectDeadline.Elapsed(now) {
		c.state = StateDisconnected
		return []Event{Disconnect{Remote: false, Reason: []byte("timeout")}}
	}
	if c.nextConnectRetry.Elapsed(now) {
		c.sendControlNow(now, netmsg.Connect{})
		c.connectBackoff = nextBackoff(c.connectBackoff)
		c.nextConnectRetry = nettime.At(now.Add(c.connectBackoff))
	}
	return nil
}

func (c *Connection) tickEstablished(now nettime.Timestamp) []Event {
	if c.state == StatePending && c.role == RoleServer && !c.acceptAcked {
		if c.connectAcceptDeadline.Elapsed(now) {
			c.state = StateDisconnected
			return []Event{Disconnect{Remote: false, Reason: []byte("timeout")}}
		}
		if c.nextConnectAcceptRetry.Elapsed(now) {
			c.sendControlNow(now, netmsg.ConnectAccept{})
			c.connectAcceptBackoff = nextBackoff(c.connectAcceptBackoff)
			c.nextConnectAcceptRetry = nettime.At(now.Add(c.connectAcceptBackoff))
		}
	}
	if c.haveLastRecv && now.Sub(c.lastRecv) >= c.cfg.Timeout {
		c.state = StateDisconnected
		return []Event{Disconnect{Remote: false, Reason: []byte("timeout")}}
	}
	if !c.haveActivity || now.Sub(c.lastActivity) >= c.cfg.KeepaliveInterval {
		c.sendControlNow(now, netmsg.KeepAlive{})
	}
	if c.pendingActive && now.Sub(c.pendingSince) >= c.cfg.FlushMaxAge {
		c.doFlush(now)
	} else if c.wantRequestResend {
		c.doFlush(now)
	}
	return nil
}
