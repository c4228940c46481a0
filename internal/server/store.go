package server

import (
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/hersh/gotris-versus/internal/player"
	"github.com/hersh/gotris-versus/internal/protocol"
)

type JoinStatus int

const (
	JoinJoined JoinStatus = iota
	JoinFull
	JoinAlreadyIn
)

// JoinResult reports the outcome of JoinOrCreate. Occupants is the room
// membership right after the call.
type JoinResult struct {
	Status        JoinStatus
	OccupantIndex int
	OccupantCount int
	Occupants     []player.ConnID
}

// LeaveResult reports the outcome of Leave.
type LeaveResult struct {
	Removed   bool
	Deleted   bool
	Remaining []player.ConnID
}

// Store maps room codes to rooms and owns their lifecycle.
//
// Lock order is room before store: the store lock is never held while waiting
// on a room lock, so operations on different rooms run in parallel.
type Store struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	logger *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

// JoinOrCreate adds id to roomID, creating the room on first use. A full room
// is left untouched.
func (s *Store) JoinOrCreate(roomID string, id player.ConnID) JoinResult {
	for {
		s.mu.Lock()
		r, ok := s.rooms[roomID]
		if !ok {
			// the first occupant goes in before the room is visible to readers
			r = newRoom(roomID)
			idx := r.add(id)
			s.rooms[roomID] = r
			s.mu.Unlock()
			s.logger.Debug("room created", "room_id", roomID)
			return JoinResult{
				Status:        JoinJoined,
				OccupantIndex: idx,
				OccupantCount: 1,
				Occupants:     []player.ConnID{id},
			}
		}
		s.mu.Unlock()

		r.mu.Lock()
		if r.closed {
			// emptied and removed while we waited; the next pass creates a fresh room
			r.mu.Unlock()
			continue
		}

		res := JoinResult{OccupantCount: len(r.occupants)}
		switch {
		case r.indexOf(id) >= 0:
			res.Status = JoinAlreadyIn
			res.OccupantIndex = r.indexOf(id)
		case len(r.occupants) >= protocol.MaxOccupants:
			res.Status = JoinFull
		default:
			res.Status = JoinJoined
			res.OccupantIndex = r.add(id)
			res.OccupantCount = len(r.occupants)
		}
		res.Occupants = r.snapshot()
		r.mu.Unlock()
		return res
	}
}

// Leave removes id from roomID and deletes the room in the same step when it
// becomes empty.
func (s *Store) Leave(roomID string, id player.ConnID) LeaveResult {
	r := s.get(roomID)
	if r == nil {
		return LeaveResult{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var res LeaveResult
	res.Removed = r.remove(id)
	res.Remaining = r.snapshot()
	if r.closed {
		s.mu.Lock()
		if s.rooms[roomID] == r {
			delete(s.rooms, roomID)
			res.Deleted = true
		}
		s.mu.Unlock()
		if res.Deleted {
			s.logger.Debug("room deleted", "room_id", roomID)
		}
	}
	return res
}

// OtherOccupant returns the occupant of roomID that is not id. It reports
// false unless the room is full and id is in it.
func (s *Store) OtherOccupant(roomID string, id player.ConnID) (player.ConnID, bool) {
	r := s.get(roomID)
	if r == nil {
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.occupants) < protocol.MaxOccupants || r.indexOf(id) < 0 {
		return "", false
	}
	for _, other := range r.occupants {
		if other != id {
			return other, true
		}
	}
	return "", false
}

// AddGarbage adds amount to target's pending counter and returns the new total.
// The counter saturates at math.MaxInt. Unknown rooms or targets, and negative
// amounts, leave state unchanged and return 0.
func (s *Store) AddGarbage(roomID string, target player.ConnID, amount int) int {
	if amount < 0 {
		return 0
	}
	r := s.get(roomID)
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	total, ok := r.pending[target]
	if !ok {
		return 0
	}
	if amount > math.MaxInt-total {
		total = math.MaxInt
	} else {
		total += amount
	}
	r.pending[target] = total
	return total
}

// TakeGarbage reads and resets target's pending counter.
func (s *Store) TakeGarbage(roomID string, target player.ConnID) int {
	r := s.get(roomID)
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	total, ok := r.pending[target]
	if !ok {
		return 0
	}
	r.pending[target] = 0
	return total
}

// PendingGarbage returns target's counter without resetting it.
func (s *Store) PendingGarbage(roomID string, target player.ConnID) int {
	r := s.get(roomID)
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[target]
}

// Occupants returns the room membership in join order, or nil for an absent room.
func (s *Store) Occupants(roomID string) []player.ConnID {
	r := s.get(roomID)
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return r.snapshot()
}

func (s *Store) Exists(roomID string) bool {
	r := s.get(roomID)
	if r == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Snapshot lists all live rooms ordered by room code.
func (s *Store) Snapshot() []protocol.RoomInfo {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.RUnlock()

	infos := make([]protocol.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.closed {
			infos = append(infos, protocol.RoomInfo{
				RoomID:      r.id,
				PlayerCount: len(r.occupants),
				MaxPlayers:  protocol.MaxOccupants,
				Phase:       phaseFor(len(r.occupants)).String(),
			})
		}
		r.mu.Unlock()
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].RoomID < infos[j].RoomID })
	return infos
}

func (s *Store) get(roomID string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}
