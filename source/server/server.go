// Package server is the demo application exercising the full network
// stack: a UDP-bound netio.Net multiplex, a per-peer position Snap
// rebuilt every tick and delta-encoded against each peer's
// acknowledged baseline, and a Prometheus metrics endpoint. It plays the
// role the teacher's source/server package played for SA-MP/RakNet,
// generalized from game-specific packet IDs to this module's generic
// transport.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/teeworlds-go/netstack/internal/appconfig"
	"github.com/teeworlds-go/netstack/internal/appmetrics"
	"github.com/teeworlds-go/netstack/internal/demowire"
	"github.com/teeworlds-go/netstack/pkg/conn"
	"github.com/teeworlds-go/netstack/pkg/huffman"
	"github.com/teeworlds-go/netstack/pkg/netio"
	"github.com/teeworlds-go/netstack/pkg/nettime"
	"github.com/teeworlds-go/netstack/pkg/snapshot"
	"github.com/teeworlds-go/netstack/pkg/warn"
)

// tickInterval mirrors the teacher's 50ms update ticker
// (source/server/server.go's updateLoop).
const tickInterval = 50 * time.Millisecond

// Server binds one UDP socket and drives one netio.Net multiplex over
// it, broadcasting every connected peer's position to every peer as a
// snapshot delta once per tick.
type Server struct {
	cfg     appconfig.Config
	log     *logrus.Logger
	metrics *appmetrics.Metrics

	udpConn *net.UDPConn
	mux     *netio.Net

	mu    sync.Mutex
	peers map[netio.PeerId]*Peer
	tick  int32
}

// New builds a Server. reg is the Prometheus registerer the metrics
// bundle is attached to (pass a fresh prometheus.NewRegistry() in tests).
func New(cfg appconfig.Config, log *logrus.Logger, reg prometheus.Registerer) *Server {
	connCfg := conn.DefaultConfig()
	connCfg.KeepaliveInterval = cfg.Net.KeepaliveInterval
	connCfg.Timeout = cfg.Net.Timeout
	connCfg.ConnectTimeout = cfg.Net.ConnectTimeout
	connCfg.ResendInterval = cfg.Net.ResendInterval

	huff := huffman.NewDefault()
	return &Server{
		cfg:     cfg,
		log:     log,
		metrics: appmetrics.New(reg),
		mux:     netio.New(huff, connCfg, nil, true, logWarnSink{log}),
		peers:   make(map[netio.PeerId]*Peer),
	}
}

// Run binds the UDP socket and blocks until ctx is cancelled or one of
// the supervised loops fails, at which point every loop is torn down
// (generalizing the teacher's three bare `go func` loops — listen,
// updateLoop, sessionCleanupLoop — into one errgroup.Group).
func (s *Server) Run(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("server: resolving listen address %q: %w", s.cfg.Listen, err)
	}
	udpConn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("server: binding udp socket: %w", err)
	}
	s.udpConn = udpConn
	defer udpConn.Close()

	s.log.WithField("addr", s.cfg.Listen).Info("server listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.receiveLoop(gctx) })
	g.Go(func() error { return s.tickLoop(gctx) })
	if s.cfg.Metrics.Listen != "" {
		g.Go(func() error { return s.serveMetrics(gctx) })
	}
	return g.Wait()
}

func (s *Server) receiveLoop(ctx context.Context) error {
	buf := make([]byte, 2048)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.udpConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, raddr, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return fmt.Errorf("server: reading udp packet: %w", err)
		}
		s.metrics.BytesReceived.Add(float64(n))
		data := append([]byte(nil), buf[:n]...)

		events := s.mux.Feed(nettime.Now(time.Now()), raddr.String(), data)
		s.handleEvents(events)
		s.flushOutbox()
	}
}

func (s *Server) handleEvents(events []netio.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		switch ev := e.(type) {
		case netio.Connect:
			if err := s.mux.Accept(nettime.Now(time.Now()), ev.Pid); err != nil {
				s.log.WithError(err).Warn("failed to accept peer")
				continue
			}
			peer := NewPeer(ev.Pid)
			peer.history = snapshot.NewHistory(s.cfg.Net.SnapshotHistory)
			s.peers[ev.Pid] = peer
			s.metrics.ConnectionsTotal.Inc()
			s.metrics.ActiveConnections.Inc()
			s.log.WithField("addr", ev.Addr).Info("peer connected")
		case netio.Chunk:
			peer, ok := s.peers[ev.Pid]
			if !ok {
				continue
			}
			var dx, dy, dz, ackTick int32
			if _, err := fmt.Sscanf(string(ev.Data), "MOVE %d %d %d", &dx, &dy, &dz); err == nil {
				peer.Move(dx, dy, dz)
			} else if _, err := fmt.Sscanf(string(ev.Data), "ACK %d", &ackTick); err == nil {
				peer.AckTick(ackTick)
			}
		case netio.Disconnect:
			if _, ok := s.peers[ev.Pid]; ok {
				delete(s.peers, ev.Pid)
				s.metrics.ActiveConnections.Dec()
				initiator := "local"
				if ev.Remote {
					initiator = "remote"
				}
				s.metrics.Disconnects.WithLabelValues(initiator).Inc()
			}
		}
	}
}

func (s *Server) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := nettime.Now(time.Now())
			s.handleEvents(s.mux.Tick(now))
			s.broadcastSnapshot(now)
			s.flushOutbox()
		}
	}
}

// broadcastSnapshot builds the world snap from every connected peer's
// position and sends each peer a delta against the most recent tick it
// has acknowledged (§4.7's "history and baseline selection"), falling
// back to the empty snap otherwise.
func (s *Server) broadcastSnapshot(now nettime.Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	b := snapshot.NewBuilder()
	for _, p := range s.peers {
		typeID, id, data := p.snapItem()
		b.AddItem(typeID, id, data)
	}
	world := b.Finish()

	for pid, p := range s.peers {
		delta, baselineTick, usedEmpty := p.history.BuildDeltaFor(p.ackTick, p.haveAck, world)
		wire := snapshot.Encode(delta, snapshot.NoSchema)
		_ = usedEmpty
		// Wire delta_tick is tick - baselineTick, per §4.7; baselineTick
		// -1 (empty-snap fallback) yields tick - (-1) = tick + 1, which
		// DeltaReceiver.Single inverts back to -1.
		wireDeltaTick := s.tick - baselineTick
		msg := demowire.EncodeSnapSingle(s.tick, wireDeltaTick, world.CRC(), wire)
		if _, err := s.mux.Send(now, pid, msg, true); err != nil {
			s.log.WithError(err).Warn("failed to queue snapshot delta")
			continue
		}
		words := 3 + len(delta.Deleted) // counts, reserved word, deleted keys
		for _, k := range delta.UpdatedKeys() {
			data, _ := delta.Update(k)
			words += 3 + len(data) // type_id, id, size, payload
		}
		s.metrics.SnapshotDeltaSize.Observe(float64(words))
		p.history.Add(s.tick, world)
	}
}

func (s *Server) flushOutbox() {
	for _, dg := range s.mux.PollOutbox() {
		addr, err := net.ResolveUDPAddr("udp", dg.Addr)
		if err != nil {
			continue
		}
		n, err := s.udpConn.WriteToUDP(dg.Data, addr)
		if err != nil {
			s.log.WithError(err).Warn("failed to write udp packet")
			continue
		}
		s.metrics.BytesSent.Add(float64(n))
	}
}

func (s *Server) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: s.cfg.Metrics.Listen, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.WithField("addr", s.cfg.Metrics.Listen).Info("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: metrics http server: %w", err)
	}
	return nil
}

// logWarnSink adapts warn.Sink onto the server's structured logger so
// every decode-time oddity (a duplicate delta delete, a vital sequence gap)
// lands as a logrus field instead of being silently dropped.
type logWarnSink struct{ log *logrus.Logger }

func (s logWarnSink) Warn(w warn.Warning) {
	s.log.WithFields(logrus.Fields{"component": w.Component, "code": w.Code}).Debug(w.Detail)
}
