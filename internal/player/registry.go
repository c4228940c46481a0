package player

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownConn is returned for ids that were never registered or already left.
var ErrUnknownConn = errors.New("player: unknown connection")

// ConnID is the server-assigned identifier of one client session.
type ConnID string

// Sink receives encoded frames bound for one connection.
type Sink interface {
	// Enqueue queues a frame without blocking and reports whether it was accepted.
	Enqueue(frame []byte) bool
	Close()
}

// Connection is the registry record for a live client.
type Connection struct {
	ID          ConnID
	Room        string // weak back-reference, empty when unbound
	ConnectedAt time.Time
	sink        Sink
}

// Registry tracks live connections and the room each one sits in.
type Registry struct {
	mu     sync.RWMutex
	conns  map[ConnID]*Connection
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[ConnID]*Connection),
		logger: logger,
	}
}

// Register allocates a fresh id for sink.
func (r *Registry) Register(sink Sink) ConnID {
	id := ConnID(uuid.NewString())

	r.mu.Lock()
	r.conns[id] = &Connection{ID: id, ConnectedAt: time.Now(), sink: sink}
	r.mu.Unlock()

	r.logger.Info("connection registered", "conn_id", id)
	return id
}

func (r *Registry) CurrentRoom(id ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	if !ok || c.Room == "" {
		return "", false
	}
	return c.Room, true
}

// Bind records that id sits in roomID. It is a no-op returning false when the
// connection is unknown or already bound; callers check CurrentRoom first.
func (r *Registry) Bind(id ConnID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok || c.Room != "" {
		return false
	}
	c.Room = roomID
	return true
}

func (r *Registry) Unbind(id ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[id]; ok {
		c.Room = ""
	}
}

// Deregister runs leave for the bound room, then drops the record and closes
// its sink. Unknown ids are ignored, so repeated calls are harmless.
func (r *Registry) Deregister(id ConnID, leave func(roomID string)) {
	if roomID, ok := r.CurrentRoom(id); ok && leave != nil {
		leave(roomID)
	}

	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	c.sink.Close()
	r.logger.Info("connection deregistered",
		"conn_id", id,
		"duration", time.Since(c.ConnectedAt).Round(time.Millisecond))
}

// Sink resolves the outbound sink for id.
func (r *Registry) Sink(id ConnID) (Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	if !ok {
		return nil, ErrUnknownConn
	}
	return c.sink, nil
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
