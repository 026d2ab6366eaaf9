// Package client is the demo counterpart to source/server: it dials one
// connection through pkg/netio, sends periodic MOVE input, and feeds
// incoming snapshot deltas through pkg/snapshot's client-side Manager,
// logging the reconstructed CRC each time one completes.
package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/teeworlds-go/netstack/internal/demowire"
	"github.com/teeworlds-go/netstack/pkg/conn"
	"github.com/teeworlds-go/netstack/pkg/huffman"
	"github.com/teeworlds-go/netstack/pkg/netio"
	"github.com/teeworlds-go/netstack/pkg/nettime"
	"github.com/teeworlds-go/netstack/pkg/snapshot"
	"github.com/teeworlds-go/netstack/pkg/warn"
)

// Client dials one server and drives the connection from a single select
// loop, matching the core's single-threaded-cooperative model (§5): the
// tick and MOVE tickers and one socket-reader goroutine all feed that
// loop, and no goroutine is started per event.
type Client struct {
	log *logrus.Logger

	udpConn    *net.UDPConn
	serverAddr *net.UDPAddr
	mux        *netio.Net
	pid        netio.PeerId

	manager *snapshot.Manager
}

// Dial resolves addr, opens a UDP socket, and begins the handshake.
func Dial(addr string, log *logrus.Logger) (*Client, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: resolving %q: %w", addr, err)
	}
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("client: opening udp socket: %w", err)
	}

	mux := netio.New(huffman.NewDefault(), conn.DefaultConfig(), nil, false, logWarnSink{log})
	pid, err := mux.Connect(nettime.Now(time.Now()), raddr.String())
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("client: starting connect: %w", err)
	}

	c := &Client{
		log:        log,
		udpConn:    udpConn,
		serverAddr: raddr,
		mux:        mux,
		pid:        pid,
		manager:    snapshot.NewManager(),
	}
	c.flushOutbox()
	return c, nil
}

// Run drives the receive loop and a periodic MOVE input until ctx is
// cancelled.
func (c *Client) Run(ctx context.Context) error {
	defer c.udpConn.Close()

	readCh := make(chan []byte, 16)
	go func() {
		buf := make([]byte, 2048)
		for {
			c.udpConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
			n, err := c.udpConn.Read(buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					if ctx.Err() != nil {
						close(readCh)
						return
					}
					continue
				}
				close(readCh)
				return
			}
			data := append([]byte(nil), buf[:n]...)
			select {
			case readCh <- data:
			case <-ctx.Done():
				close(readCh)
				return
			}
		}
	}()

	moveTicker := time.NewTicker(500 * time.Millisecond)
	defer moveTicker.Stop()
	tickTicker := time.NewTicker(50 * time.Millisecond)
	defer tickTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			now := nettime.Now(time.Now())
			c.mux.Disconnect(now, c.pid, []byte("client shutting down"))
			c.flushOutbox()
			return ctx.Err()

		case data, ok := <-readCh:
			if !ok {
				return fmt.Errorf("client: udp socket closed")
			}
			now := nettime.Now(time.Now())
			events := c.mux.Feed(now, c.serverAddr.String(), data)
			c.handleEvents(events)
			c.flushOutbox()

		case <-tickTicker.C:
			now := nettime.Now(time.Now())
			c.handleEvents(c.mux.Tick(now))
			c.flushOutbox()

		case <-moveTicker.C:
			now := nettime.Now(time.Now())
			if _, err := c.mux.Send(now, c.pid, []byte("MOVE 1 0 0"), true); err != nil {
				c.log.WithError(err).Debug("move send skipped, not online yet")
			}
			c.flushOutbox()
		}
	}
}

func (c *Client) handleEvents(events []netio.Event) {
	for _, e := range events {
		switch ev := e.(type) {
		case netio.Ready:
			c.log.Info("connection established")
		case netio.Chunk:
			tick, deltaTick, crc, delta, err := demowire.DecodeSnapSingle(ev.Data)
			if err != nil {
				c.log.WithError(err).Warn("malformed snapshot message")
				continue
			}
			snap, err := c.manager.Single(logWarnSink{c.log}, snapshot.NoSchema, snapshot.SnapSingle{
				Tick: tick, DeltaTick: deltaTick, Crc: crc, Data: delta,
			})
			if err != nil {
				c.log.WithError(err).Warn("failed to apply snapshot delta")
				continue
			}
			c.log.WithFields(logrus.Fields{"tick": tick, "items": snap.Len(), "crc": snap.CRC()}).Debug("snapshot applied")
			c.sendAck()
		case netio.Disconnect:
			c.log.WithField("remote", ev.Remote).Info("disconnected")
		}
	}
}

// sendAck reports the tick of the most recently applied snapshot back to
// the server as its ack_game_tick, letting the server pick a non-empty
// delta baseline on later ticks instead of falling back to the empty
// snap every time.
func (c *Client) sendAck() {
	tick, ok := c.manager.AckTick()
	if !ok {
		return
	}
	now := nettime.Now(time.Now())
	if _, err := c.mux.Send(now, c.pid, []byte(fmt.Sprintf("ACK %d", tick)), false); err != nil {
		c.log.WithError(err).Debug("ack send skipped, not online yet")
	}
}

func (c *Client) flushOutbox() {
	for _, dg := range c.mux.PollOutbox() {
		addr, err := net.ResolveUDPAddr("udp", dg.Addr)
		if err != nil {
			continue
		}
		if _, err := c.udpConn.WriteToUDP(dg.Data, addr); err != nil {
			c.log.WithError(err).Warn("failed to write udp packet")
		}
	}
}

type logWarnSink struct{ log *logrus.Logger }

func (s logWarnSink) Warn(w warn.Warning) {
	s.log.WithFields(logrus.Fields{"component": w.Component, "code": w.Code}).Debug(w.Detail)
}
