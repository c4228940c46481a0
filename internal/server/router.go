package server

import (
	"encoding/json"
	"net/http"

	"github.com/hersh/gotris-versus/internal/player"
	"github.com/hersh/gotris-versus/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter wires the websocket endpoint, room listing, health check and
// metrics, with CORS applied to all of them.
func NewRouter(hub *Hub, rooms *Store, conns *player.Registry, gatherer prometheus.Gatherer, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", hub.ServeWS)

	mux.HandleFunc("GET /rooms", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(protocol.ListRoomsResponse{
			Rooms:       rooms.Snapshot(),
			Connections: conns.Count(),
		})
	})

	// Simple health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}
