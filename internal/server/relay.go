package server

import (
	"log/slog"
	"net/http"

	"github.com/hersh/gotris-versus/internal/player"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Relay bundles the room store, connection registry, session handler and hub
// that make up one relay process.
type Relay struct {
	Rooms   *Store
	Conns   *player.Registry
	Session *Session
	Hub     *Hub
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewRelay(logger *slog.Logger, opts HubOptions) *Relay {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(reg)

	rooms := NewStore(logger)
	conns := player.NewRegistry(logger)
	out := NewDispatcher(rooms, conns, metrics, logger)
	session := NewSession(rooms, conns, out, metrics, logger)

	return &Relay{
		Rooms:    rooms,
		Conns:    conns,
		Session:  session,
		Hub:      NewHub(session, logger, opts),
		Metrics:  metrics,
		registry: reg,
	}
}

// Handler returns the HTTP surface of the relay.
func (r *Relay) Handler(allowedOrigins []string) http.Handler {
	return NewRouter(r.Hub, r.Rooms, r.Conns, r.registry, allowedOrigins)
}
