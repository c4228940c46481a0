package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hersh/gotris-versus/internal/player"
	"github.com/hersh/gotris-versus/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 16384

	defaultSendBuffer  = 256
	defaultEventBuffer = 1024
)

type eventKind int

const (
	evConnect eventKind = iota
	evMessage
	evDisconnect
)

type event struct {
	kind  eventKind
	id    player.ConnID
	msg   protocol.Inbound
	sink  player.Sink
	reply chan player.ConnID
}

// HubOptions sizes the hub's queues. Zero values pick the defaults.
type HubOptions struct {
	SendBuffer  int
	EventBuffer int
}

// Hub owns the websocket transport and the single event loop that feeds the
// Session.
type Hub struct {
	session    *Session
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	events     chan event
	sendBuffer int
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(session *Session, logger *slog.Logger, opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	return &Hub{
		session: session,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		events:     make(chan event, opts.EventBuffer),
		sendBuffer: opts.SendBuffer,
		done:       make(chan struct{}),
	}
}

// Run processes client events one at a time until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case ev := <-h.events:
			h.handle(ev)
		case <-ctx.Done():
			h.logger.Info("hub stopped")
			return
		}
	}
}

func (h *Hub) handle(ev event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("event handler panic", "conn_id", ev.id, "panic", r)
		}
	}()

	switch ev.kind {
	case evConnect:
		h.connect(ev)
	case evMessage:
		h.session.Handle(ev.id, ev.msg)
	case evDisconnect:
		h.session.Disconnect(ev.id)
	}
}

// connect always answers ev.reply; an empty id means the connection was refused.
func (h *Hub) connect(ev event) {
	var id player.ConnID
	defer func() { ev.reply <- id }()
	id = h.session.Connect(ev.sink)
}

// submit queues ev for the event loop. It reports false once the hub stopped.
func (h *Hub) submit(ev event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade error", "err", err)
		return
	}

	c := newClient(conn, h.sendBuffer)
	reply := make(chan player.ConnID, 1)
	if !h.submit(event{kind: evConnect, sink: c, reply: reply}) {
		conn.Close()
		return
	}

	var id player.ConnID
	select {
	case id = <-reply:
	case <-h.done:
		conn.Close()
		return
	}
	if id == "" {
		c.Close()
		conn.Close()
		return
	}

	go c.writePump(h.done)

	h.readPump(c, id)

	h.submit(event{kind: evDisconnect, id: id})
}

// readPump reads frames from the websocket and queues them for the event loop.
func (h *Hub) readPump(c *client, id player.ConnID) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("read error", "conn_id", id, "err", err)
			}
			return
		}

		in, err := protocol.Decode(message)
		if err != nil {
			h.logger.Warn("dropping frame", "conn_id", id, "err", err)
			continue
		}

		if !h.submit(event{kind: evMessage, id: id, msg: in}) {
			return
		}
	}
}

// client is the player.Sink for one websocket.
type client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	sendCh chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{
		conn:   conn,
		sendCh: make(chan []byte, buffer),
	}
}

func (c *client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.sendCh <- frame:
		return true
	default:
		return false
	}
}

func (c *client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
}

// writePump sends queued frames to the websocket and keeps it alive with pings.
func (c *client) writePump(stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}
