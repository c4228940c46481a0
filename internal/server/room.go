package server

import (
	"slices"
	"sync"

	"github.com/hersh/gotris-versus/internal/player"
	"github.com/hersh/gotris-versus/internal/protocol"
)

type RoomPhase int

const (
	PhaseEmpty RoomPhase = iota
	PhaseWaiting
	PhaseActive
)

func (p RoomPhase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	}
	return "empty"
}

func phaseFor(count int) RoomPhase {
	switch {
	case count >= protocol.MaxOccupants:
		return PhaseActive
	case count > 0:
		return PhaseWaiting
	}
	return PhaseEmpty
}

// Room is one versus room. All fields are guarded by mu.
type Room struct {
	mu        sync.Mutex
	id        string
	occupants []player.ConnID
	pending   map[player.ConnID]int
	// closed is set when the room empties; a closed room is never reused.
	closed bool
}

func newRoom(id string) *Room {
	return &Room{
		id:      id,
		pending: make(map[player.ConnID]int),
	}
}

// indexOf must be called with r.mu held.
func (r *Room) indexOf(id player.ConnID) int {
	return slices.Index(r.occupants, id)
}

// add must be called with r.mu held.
func (r *Room) add(id player.ConnID) int {
	r.occupants = append(r.occupants, id)
	r.pending[id] = 0
	return len(r.occupants) - 1
}

// remove must be called with r.mu held.
func (r *Room) remove(id player.ConnID) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.occupants = slices.Delete(r.occupants, i, i+1)
	delete(r.pending, id)
	if len(r.occupants) == 0 {
		r.closed = true
	}
	return true
}

// snapshot must be called with r.mu held.
func (r *Room) snapshot() []player.ConnID {
	return slices.Clone(r.occupants)
}
