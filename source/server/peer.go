package server

import (
	"github.com/teeworlds-go/netstack/pkg/netio"
	"github.com/teeworlds-go/netstack/pkg/snapshot"
)

// Peer is the demo server's per-connection game state: just enough to
// exercise the snapshot pipeline end to end (one item per connected
// peer, three words of position). Compare to the teacher's
// source/server.Player, which carried the same "one struct per connected
// client, addressed by a dense integer id" shape for SA-MP's much larger
// field set; this keeps the shape and drops the game-specific fields
// spec.md has no use for.
type Peer struct {
	ID netio.PeerId

	PosX, PosY, PosZ int32

	history *snapshot.History
	ackTick int32
	haveAck bool
}

// NewPeer starts tracking a newly connected peer at the origin.
func NewPeer(id netio.PeerId) *Peer {
	return &Peer{ID: id, history: snapshot.NewHistory(snapshot.DefaultHistoryLength)}
}

// Move updates the peer's tracked position, as if driven by an inbound
// input chunk.
func (p *Peer) Move(dx, dy, dz int32) {
	p.PosX += dx
	p.PosY += dy
	p.PosZ += dz
}

// AckTick records the tick the peer has confirmed receiving a full
// snapshot for, used to pick the next delta's baseline.
func (p *Peer) AckTick(tick int32) {
	p.ackTick = tick
	p.haveAck = true
}

// snapItem returns this peer's current position as one snapshot.Item,
// keyed by its own PeerId so every connected peer occupies a distinct
// slot in the shared world snap.
func (p *Peer) snapItem() (typeID, id uint16, data []int32) {
	return 1, uint16(p.ID), []int32{p.PosX, p.PosY, p.PosZ}
}
