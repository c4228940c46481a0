package server

import (
	"log/slog"

	"github.com/hersh/gotris-versus/internal/player"
	"github.com/hersh/gotris-versus/internal/protocol"
)

// Dispatcher delivers envelopes to room occupants or single connections.
type Dispatcher struct {
	rooms   *Store
	conns   *player.Registry
	metrics *Metrics
	logger  *slog.Logger
}

func NewDispatcher(rooms *Store, conns *player.Registry, metrics *Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{rooms: rooms, conns: conns, metrics: metrics, logger: logger}
}

// ToRoom sends env to every current occupant of roomID and returns how many
// accepted it.
func (d *Dispatcher) ToRoom(roomID string, env protocol.Envelope) int {
	return d.toMany(d.rooms.Occupants(roomID), env)
}

// ToConnection sends env to id. A target that has gone away or whose queue is
// full is logged and skipped.
func (d *Dispatcher) ToConnection(id player.ConnID, env protocol.Envelope) bool {
	data, err := protocol.Encode(env)
	if err != nil {
		d.logger.Error("encode failed", "type", env.Type, "err", err)
		return false
	}
	return d.deliver(id, env.Type, data)
}

func (d *Dispatcher) toMany(ids []player.ConnID, env protocol.Envelope) int {
	if len(ids) == 0 {
		return 0
	}
	data, err := protocol.Encode(env)
	if err != nil {
		d.logger.Error("encode failed", "type", env.Type, "err", err)
		return 0
	}

	sent := 0
	for _, id := range ids {
		if d.deliver(id, env.Type, data) {
			sent++
		}
	}
	return sent
}

func (d *Dispatcher) deliver(id player.ConnID, t protocol.MessageType, data []byte) bool {
	sink, err := d.conns.Sink(id)
	if err != nil {
		d.metrics.DroppedFrames.Inc()
		d.logger.Warn("target unreachable", "conn_id", id, "type", t, "err", err)
		return false
	}
	if !sink.Enqueue(data) {
		d.metrics.DroppedFrames.Inc()
		d.logger.Warn("send queue full, dropping message", "conn_id", id, "type", t)
		return false
	}
	return true
}
