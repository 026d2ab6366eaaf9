// Package appmetrics defines the Prometheus metrics the demo server
// exports: connection lifecycle counts, bytes moved, resend activity,
// and snapshot delta sizes. Library packages under pkg/ remain
// metrics-free; only source/server reaches into this package.
package appmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/gauge the demo server updates. The zero
// value is unusable; construct with New.
type Metrics struct {
	ConnectionsTotal  prometheus.Counter
	Disconnects       *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
	BytesSent         prometheus.Counter
	BytesReceived     prometheus.Counter
	ChunksResent      prometheus.Counter
	SnapshotDeltaSize prometheus.Histogram
}

// New registers every metric against reg and returns the bundle. Callers
// typically pass prometheus.NewRegistry() for test isolation, or
// prometheus.DefaultRegisterer in a real process.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netstackd",
			Name:      "connections_total",
			Help:      "Total number of connections accepted.",
		}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netstackd",
			Name:      "disconnects_total",
			Help:      "Total number of disconnects, labelled by who initiated it.",
		}, []string{"initiator"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netstackd",
			Name:      "active_connections",
			Help:      "Number of connections currently online.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netstackd",
			Name:      "bytes_sent_total",
			Help:      "Total bytes written to the socket.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netstackd",
			Name:      "bytes_received_total",
			Help:      "Total bytes read from the socket.",
		}),
		ChunksResent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netstackd",
			Name:      "chunks_resent_total",
			Help:      "Total vital chunks retransmitted.",
		}),
		SnapshotDeltaSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "netstackd",
			Name:      "snapshot_delta_words",
			Help:      "Size in i32 words of each snapshot delta sent to a client.",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 12),
		}),
	}

	reg.MustRegister(
		m.ConnectionsTotal,
		m.Disconnects,
		m.ActiveConnections,
		m.BytesSent,
		m.BytesReceived,
		m.ChunksResent,
		m.SnapshotDeltaSize,
	)
	return m
}
