package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	Connections   prometheus.Gauge
	Rooms         prometheus.Gauge
	Joins         *prometheus.CounterVec
	MatchesStart  prometheus.Counter
	GarbageLines  prometheus.Counter
	DroppedFrames prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gotris",
			Name:      "connections",
			Help:      "Live websocket connections.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gotris",
			Name:      "rooms",
			Help:      "Rooms with at least one occupant.",
		}),
		Joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gotris",
			Name:      "joins_total",
			Help:      "Join attempts by outcome.",
		}, []string{"result"}),
		MatchesStart: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gotris",
			Name:      "matches_started_total",
			Help:      "Rooms that reached two occupants.",
		}),
		GarbageLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gotris",
			Name:      "garbage_lines_relayed_total",
			Help:      "Garbage lines delivered to an opponent.",
		}),
		DroppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gotris",
			Name:      "dropped_frames_total",
			Help:      "Outbound frames dropped because the target was gone or its queue was full.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Connections,
			m.Rooms,
			m.Joins,
			m.MatchesStart,
			m.GarbageLines,
			m.DroppedFrames,
		)
	}
	return m
}
