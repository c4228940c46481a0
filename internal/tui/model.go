package tui

import (
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hersh/gotris-versus/internal/netclient"
	"github.com/hersh/gotris-versus/internal/protocol"
)

const (
	maxRoomCodeLen = 24
	maxEventLog    = 6
)

// --- Screens ---

type Screen int

const (
	ScreenConnecting Screen = iota
	ScreenRoomEntry
	ScreenWaiting
	ScreenVersus
)

// --- Model ---

type Model struct {
	screen       Screen
	connectionID string
	width        int
	height       int

	// Network
	client netclient.Sender

	// Room state (from server)
	roomInput     string
	roomID        string
	occupantIndex int
	occupants     int

	// Garbage bookkeeping
	incoming int
	received int
	sent     int

	status       string
	events       []string
	disconnected bool
	err          error
}

// NewModel creates the console model. roomID, when set, is joined as soon as
// the relay assigns an id.
func NewModel(client netclient.Sender, roomID string) Model {
	return Model{
		screen:    ScreenConnecting,
		client:    client,
		roomInput: roomID,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	// Network messages
	case netclient.ConnectedMsg:
		return m.handleConnected(msg)
	case netclient.DisconnectedMsg:
		m.disconnected = true
		m.err = msg.Err
		return m, nil
	case netclient.ServerMsg:
		return m.handleServerMsg(msg)
	}
	return m, nil
}

// --- Network message handlers ---

func (m Model) handleConnected(msg netclient.ConnectedMsg) (tea.Model, tea.Cmd) {
	m.connectionID = msg.ConnectionID
	m.screen = ScreenRoomEntry
	if m.roomInput != "" {
		m.sendJoin()
	}
	return m, nil
}

func (m Model) handleServerMsg(msg netclient.ServerMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case protocol.MsgJoined:
		var payload protocol.JoinedPayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.roomID = payload.RoomID
			m.occupantIndex = payload.OccupantIndex
			m.screen = ScreenWaiting
			m.status = ""
			m.logEvent(fmt.Sprintf("joined %s as player %d", payload.RoomID, payload.OccupantIndex+1))
		}

	case protocol.MsgRoomFull:
		m.status = fmt.Sprintf("room %q is full, try another code", m.roomInput)
		m.screen = ScreenRoomEntry

	case protocol.MsgOccupancyUpdate:
		var payload protocol.OccupancyUpdatePayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.occupants = payload.OccupantCount
		}

	case protocol.MsgStart:
		m.screen = ScreenVersus
		m.incoming, m.received, m.sent = 0, 0, 0
		m.logEvent("opponent found, match on")

	case protocol.MsgReceiveGarbage:
		var payload protocol.ReceiveGarbagePayload
		if json.Unmarshal(msg.Raw, &payload) == nil && payload.Lines > 0 {
			m.incoming += payload.Lines
			m.received += payload.Lines
			m.logEvent(fmt.Sprintf("incoming %d line(s)", payload.Lines))
		}

	case protocol.MsgPeerLeft:
		if m.screen == ScreenVersus {
			m.screen = ScreenWaiting
		}
		m.incoming = 0
		m.logEvent("opponent left")
	}

	return m, nil
}

// --- Key handlers ---

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	switch m.screen {
	case ScreenRoomEntry:
		return m.handleRoomEntryKeys(msg)
	case ScreenWaiting, ScreenVersus:
		return m.handleRoomKeys(msg)
	}
	if msg.String() == "q" {
		return m.quit()
	}
	return m, nil
}

func (m Model) handleRoomEntryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if m.roomInput != "" {
			m.sendJoin()
		}
	case tea.KeyBackspace:
		if n := len(m.roomInput); n > 0 {
			m.roomInput = m.roomInput[:n-1]
		}
	case tea.KeyEsc:
		return m.quit()
	case tea.KeyRunes:
		if len(m.roomInput)+len(msg.Runes) <= maxRoomCodeLen {
			m.roomInput += string(msg.Runes)
		}
	}
	return m, nil
}

func (m Model) handleRoomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "1", "2", "3", "4":
		if m.screen != ScreenVersus {
			return m, nil
		}
		lines := int(key[0] - '0')
		m.send(protocol.Envelope{
			Type:    protocol.MsgRelayGarbage,
			Payload: protocol.RelayGarbagePayload{Lines: lines},
		})
		m.sent += lines
		m.logEvent(fmt.Sprintf("sent %d line(s)", lines))
	case "f":
		m.send(protocol.Envelope{Type: protocol.MsgFlushGarbage})
		m.incoming = 0
	case "l":
		m.send(protocol.Envelope{Type: protocol.MsgLeaveRoom})
		m.logEvent("left " + m.roomID)
		m.screen = ScreenRoomEntry
		m.roomID = ""
		m.occupants = 0
		m.incoming = 0
	case "q":
		return m.quit()
	}
	return m, nil
}

func (m *Model) sendJoin() {
	m.status = "joining " + m.roomInput + "..."
	m.send(protocol.Envelope{
		Type:    protocol.MsgJoin,
		Payload: protocol.JoinPayload{RoomID: m.roomInput},
	})
}

func (m *Model) send(env protocol.Envelope) {
	if m.client != nil {
		m.client.Send(env)
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.client != nil {
		m.client.Close()
	}
	return m, tea.Quit
}

func (m *Model) logEvent(line string) {
	m.events = append(m.events, line)
	if len(m.events) > maxEventLog {
		m.events = m.events[len(m.events)-maxEventLog:]
	}
}

// --- View ---

func (m Model) View() string {
	if m.disconnected {
		return m.renderCentered("Disconnected from server.\nPress Ctrl+C to exit.")
	}

	switch m.screen {
	case ScreenConnecting:
		return m.renderCentered("Connecting to server...")
	case ScreenRoomEntry:
		return m.renderCentered(RenderRoomEntry(m.roomInput, m.status))
	case ScreenWaiting, ScreenVersus:
		return m.renderCentered(RenderRoom(RoomView{
			RoomID:    m.roomID,
			Player:    m.occupantIndex + 1,
			Occupants: m.occupants,
			Started:   m.screen == ScreenVersus,
			Incoming:  m.incoming,
			Received:  m.received,
			Sent:      m.sent,
			Events:    m.events,
		}))
	}
	return ""
}

func (m Model) renderCentered(content string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (m Model) Screen() Screen {
	return m.screen
}

func (m Model) ConnectionID() string {
	return m.connectionID
}
