package player_test

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hersh/gotris-versus/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu     sync.Mutex
	closed int
}

func (s *fakeSink) Enqueue([]byte) bool { return true }

func (s *fakeSink) Close() {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_RegisterAssignsUniqueIDs(t *testing.T) {
	r := player.NewRegistry(testLogger())

	seen := make(map[player.ConnID]bool)
	for i := 0; i < 100; i++ {
		id := r.Register(&fakeSink{})
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 100, r.Count())
}

func TestRegistry_BindUnbind(t *testing.T) {
	r := player.NewRegistry(testLogger())
	id := r.Register(&fakeSink{})

	_, ok := r.CurrentRoom(id)
	assert.False(t, ok)

	assert.True(t, r.Bind(id, "R1"))
	room, ok := r.CurrentRoom(id)
	require.True(t, ok)
	assert.Equal(t, "R1", room)

	// second bind is a no-op
	assert.False(t, r.Bind(id, "R2"))
	room, _ = r.CurrentRoom(id)
	assert.Equal(t, "R1", room)

	r.Unbind(id)
	r.Unbind(id)
	_, ok = r.CurrentRoom(id)
	assert.False(t, ok)

	assert.False(t, r.Bind("missing", "R1"))
}

func TestRegistry_DeregisterRunsLeaveFirst(t *testing.T) {
	r := player.NewRegistry(testLogger())
	sink := &fakeSink{}
	id := r.Register(sink)
	require.True(t, r.Bind(id, "R1"))

	var leftRoom string
	r.Deregister(id, func(roomID string) {
		leftRoom = roomID
		// the record is still present while cleanup runs
		_, err := r.Sink(id)
		assert.NoError(t, err)
	})

	assert.Equal(t, "R1", leftRoom)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 1, sink.closed)

	_, err := r.Sink(id)
	assert.ErrorIs(t, err, player.ErrUnknownConn)
}

func TestRegistry_DeregisterIdempotent(t *testing.T) {
	r := player.NewRegistry(testLogger())
	sink := &fakeSink{}
	id := r.Register(sink)

	calls := 0
	leave := func(string) { calls++ }
	r.Deregister(id, leave)
	r.Deregister(id, leave)

	assert.Equal(t, 0, calls, "unbound connection has no room to leave")
	assert.Equal(t, 1, sink.closed)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := player.NewRegistry(testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Register(&fakeSink{})
			r.Bind(id, "room")
			r.CurrentRoom(id)
			r.Deregister(id, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
}

func TestRegistry_LogsLifecycle(t *testing.T) {
	var buf bytes.Buffer
	r := player.NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))

	id := r.Register(&fakeSink{})
	assert.Contains(t, buf.String(), "connection registered")
	assert.Contains(t, buf.String(), string(id))

	r.Deregister(id, nil)
	assert.Contains(t, buf.String(), "connection deregistered")
}
