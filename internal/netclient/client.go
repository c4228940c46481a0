package netclient

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/hersh/gotris-versus/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 16384
)

// ServerMsg is a tea.Msg that wraps an incoming server message.
type ServerMsg struct {
	Type protocol.MessageType
	Raw  json.RawMessage
}

// ConnectedMsg is sent when the relay assigns this client its connection id.
type ConnectedMsg struct {
	ConnectionID string
}

// DisconnectedMsg is sent when the WebSocket connection is lost.
type DisconnectedMsg struct {
	Err error
}

// Sender is the part of Client the TUI depends on.
type Sender interface {
	Send(env protocol.Envelope)
	Close()
}

// Client manages the WebSocket connection to the relay.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	sendCh  chan []byte
	program *tea.Program
	done    chan struct{}
	closed  bool
	logger  *slog.Logger
}

// New creates a Client connected to the given server URL.
func New(serverURL string, logger *slog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		conn:   conn,
		sendCh: make(chan []byte, 256),
		done:   make(chan struct{}),
		logger: logger,
	}, nil
}

// SetProgram sets the bubbletea program so the client can send messages to it.
func (c *Client) SetProgram(p *tea.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.program = p
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send marshals and queues an envelope for the relay.
func (c *Client) Send(env protocol.Envelope) {
	data, err := protocol.Encode(env)
	if err != nil {
		c.logger.Error("client encode error", "err", err)
		return
	}
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("client send channel full, dropping message", "type", env.Type)
	}
}

// Close shuts down the client connection. The close frame is written by
// writePump, so Start must have been called.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// readPump reads messages from the WebSocket and sends them to the bubbletea program.
func (c *Client) readPump() {
	var readErr error
	defer func() {
		if p := c.getProgram(); p != nil {
			p.Send(DisconnectedMsg{Err: readErr})
		}
	}()

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
				c.logger.Warn("readPump error", "err", err)
				readErr = err
			}
			return
		}

		msg, err := translate(message)
		if err != nil {
			c.logger.Warn("client decode error", "err", err)
			continue
		}

		if p := c.getProgram(); p != nil {
			p.Send(msg)
		}
	}
}

// translate turns a raw server frame into the tea.Msg the TUI consumes.
func translate(frame []byte) (tea.Msg, error) {
	var env protocol.Inbound
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}

	if env.Type == protocol.MsgAssignID {
		var payload protocol.AssignIDPayload
		if err := env.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return ConnectedMsg{ConnectionID: payload.ConnectionID}, nil
	}
	return ServerMsg{Type: env.Type, Raw: env.Payload}, nil
}

func (c *Client) getProgram() *tea.Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.program
}

// writePump writes messages from sendCh to the WebSocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			// writePump is the only writer, so the close frame goes out from here
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
