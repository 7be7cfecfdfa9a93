// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connections is the number of registered websocket connections.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nocturne",
		Name:      "connections",
		Help:      "Live websocket connections.",
	})

	// Rooms is the number of live rooms.
	Rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nocturne",
		Name:      "rooms",
		Help:      "Live rooms, explicit and paired.",
	})

	// Waiting is the length of the pairing queue.
	Waiting = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nocturne",
		Name:      "waiting",
		Help:      "Connections waiting for a random partner.",
	})

	// Relayed counts forwarded frames by type.
	Relayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nocturne",
		Name:      "relayed_frames_total",
		Help:      "Frames forwarded verbatim to other room members.",
	}, []string{"type"})

	// Dropped counts frames not delivered, by reason.
	Dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nocturne",
		Name:      "dropped_frames_total",
		Help:      "Frames dropped at the gateway.",
	}, []string{"reason"})

	// Pairs counts formed random pairs.
	Pairs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nocturne",
		Name:      "pairs_total",
		Help:      "Random pairs formed by the matchmaker.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
