package server

import (
	"log/slog"

	"github.com/hersh/gotris-versus/internal/player"
	"github.com/hersh/gotris-versus/internal/protocol"
)

// Session implements the join / relay / leave state machine. Each method is
// one step; Hub.Run calls them from a single goroutine so that steps touching
// the same room never interleave.
type Session struct {
	rooms   *Store
	conns   *player.Registry
	out     *Dispatcher
	metrics *Metrics
	logger  *slog.Logger
}

func NewSession(rooms *Store, conns *player.Registry, out *Dispatcher, metrics *Metrics, logger *slog.Logger) *Session {
	return &Session{
		rooms:   rooms,
		conns:   conns,
		out:     out,
		metrics: metrics,
		logger:  logger,
	}
}

// Connect registers sink and tells the client its id. If anything after
// registration panics, the connection is deregistered before re-panicking.
func (s *Session) Connect(sink player.Sink) player.ConnID {
	id := s.conns.Register(sink)
	defer func() {
		if r := recover(); r != nil {
			s.conns.Deregister(id, nil)
			s.metrics.Connections.Set(float64(s.conns.Count()))
			panic(r)
		}
	}()
	s.metrics.Connections.Set(float64(s.conns.Count()))

	s.out.ToConnection(id, protocol.Envelope{
		Type:    protocol.MsgAssignID,
		Payload: protocol.AssignIDPayload{ConnectionID: string(id)},
	})
	return id
}

// Handle dispatches one decoded client message.
func (s *Session) Handle(id player.ConnID, in protocol.Inbound) {
	switch in.Type {
	case protocol.MsgJoin:
		var payload protocol.JoinPayload
		if err := in.DecodePayload(&payload); err != nil {
			s.logger.Warn("bad payload", "conn_id", id, "err", err)
			return
		}
		s.Join(id, payload.RoomID)

	case protocol.MsgRelayGarbage:
		var payload protocol.RelayGarbagePayload
		if err := in.DecodePayload(&payload); err != nil {
			s.logger.Warn("bad payload", "conn_id", id, "err", err)
			return
		}
		s.RelayGarbage(id, payload.Lines)

	case protocol.MsgFlushGarbage:
		s.FlushGarbage(id)

	case protocol.MsgLeaveRoom:
		s.Leave(id)

	default:
		s.logger.Warn("unknown message type", "conn_id", id, "type", in.Type)
	}
}

// Join puts id into roomID. A connection that is already in a room is ignored.
func (s *Session) Join(id player.ConnID, roomID string) {
	if roomID == "" {
		s.logger.Debug("join ignored, empty room id", "conn_id", id)
		return
	}
	if current, ok := s.conns.CurrentRoom(id); ok {
		s.logger.Debug("join ignored, already in a room",
			"conn_id", id,
			"room_id", roomID,
			"current_room", current)
		return
	}

	res := s.rooms.JoinOrCreate(roomID, id)
	switch res.Status {
	case JoinFull:
		s.metrics.Joins.WithLabelValues("full").Inc()
		s.logger.Info("room full", "conn_id", id, "room_id", roomID)
		s.out.ToConnection(id, protocol.Envelope{Type: protocol.MsgRoomFull})
		return
	case JoinAlreadyIn:
		return
	}

	if !s.conns.Bind(id, roomID) {
		// the connection went away between the check and the join
		s.rooms.Leave(roomID, id)
		s.metrics.Rooms.Set(float64(s.rooms.Len()))
		return
	}
	s.metrics.Joins.WithLabelValues("joined").Inc()
	s.metrics.Rooms.Set(float64(s.rooms.Len()))
	s.logger.Info("joined room",
		"conn_id", id,
		"room_id", roomID,
		"occupant_index", res.OccupantIndex,
		"occupants", res.OccupantCount)

	s.out.ToConnection(id, protocol.Envelope{
		Type:    protocol.MsgJoined,
		Payload: protocol.JoinedPayload{RoomID: roomID, OccupantIndex: res.OccupantIndex},
	})
	s.out.ToRoom(roomID, protocol.Envelope{
		Type:    protocol.MsgOccupancyUpdate,
		Payload: protocol.OccupancyUpdatePayload{OccupantCount: res.OccupantCount},
	})

	if res.OccupantCount == protocol.MaxOccupants {
		s.metrics.MatchesStart.Inc()
		s.logger.Info("match starting", "room_id", roomID)
		s.out.ToRoom(roomID, protocol.Envelope{
			Type:    protocol.MsgStart,
			Payload: protocol.StartPayload{RoomID: roomID},
		})
	}
}

// RelayGarbage forwards lines to the other occupant of the sender's room.
// Lines are added to the target's pending counter and the whole counter is
// delivered; it is reset only once the target's queue accepted the frame, so
// lines refused by a full queue go out with the next relay. A sender with no
// opponent has its lines dropped.
func (s *Session) RelayGarbage(id player.ConnID, lines int) {
	if lines <= 0 {
		return
	}
	roomID, ok := s.conns.CurrentRoom(id)
	if !ok {
		return
	}
	target, ok := s.rooms.OtherOccupant(roomID, id)
	if !ok {
		s.logger.Debug("garbage dropped, no opponent", "conn_id", id, "room_id", roomID, "lines", lines)
		return
	}

	total := s.rooms.AddGarbage(roomID, target, lines)
	delivered := s.out.ToConnection(target, protocol.Envelope{
		Type:    protocol.MsgReceiveGarbage,
		Payload: protocol.ReceiveGarbagePayload{Lines: total, AttackerID: string(id)},
	})
	if !delivered {
		return
	}
	s.rooms.TakeGarbage(roomID, target)
	s.metrics.GarbageLines.Add(float64(total))
}

// FlushGarbage clears the caller's own pending counter without sending anything.
func (s *Session) FlushGarbage(id player.ConnID) {
	roomID, ok := s.conns.CurrentRoom(id)
	if !ok {
		return
	}
	if n := s.rooms.TakeGarbage(roomID, id); n > 0 {
		s.logger.Debug("garbage flushed", "conn_id", id, "room_id", roomID, "lines", n)
	}
}

// Leave takes id out of its room but keeps the connection open.
func (s *Session) Leave(id player.ConnID) {
	roomID, ok := s.conns.CurrentRoom(id)
	if !ok {
		return
	}
	s.leaveRoom(id, roomID)
	s.conns.Unbind(id)
}

// Disconnect runs room cleanup and forgets the connection. Safe to repeat.
func (s *Session) Disconnect(id player.ConnID) {
	s.conns.Deregister(id, func(roomID string) {
		s.leaveRoom(id, roomID)
	})
	s.metrics.Connections.Set(float64(s.conns.Count()))
}

func (s *Session) leaveRoom(id player.ConnID, roomID string) {
	res := s.rooms.Leave(roomID, id)
	if !res.Removed {
		return
	}
	s.metrics.Rooms.Set(float64(s.rooms.Len()))
	s.logger.Info("left room", "conn_id", id, "room_id", roomID, "remaining", len(res.Remaining))

	if len(res.Remaining) == 0 {
		return
	}
	s.out.ToRoom(roomID, protocol.Envelope{
		Type:    protocol.MsgPeerLeft,
		Payload: protocol.PeerLeftPayload{ConnectionID: string(id)},
	})
	s.out.ToRoom(roomID, protocol.Envelope{
		Type:    protocol.MsgOccupancyUpdate,
		Payload: protocol.OccupancyUpdatePayload{OccupantCount: len(res.Remaining)},
	})
}
