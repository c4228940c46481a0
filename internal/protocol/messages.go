package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies the kind of message sent over the wire.
type MessageType string

const (
	// Server -> Client messages
	MsgAssignID        MessageType = "assign_id"
	MsgJoined          MessageType = "joined"
	MsgRoomFull        MessageType = "room_full"
	MsgOccupancyUpdate MessageType = "occupancy_update"
	MsgStart           MessageType = "start"
	MsgReceiveGarbage  MessageType = "receive_garbage"
	MsgPeerLeft        MessageType = "peer_left"

	// Client -> Server messages
	MsgJoin         MessageType = "join"
	MsgRelayGarbage MessageType = "relay_garbage"
	MsgFlushGarbage MessageType = "flush_garbage"
	MsgLeaveRoom    MessageType = "leave_room"
)

// MaxOccupants is the room capacity for a versus match.
const MaxOccupants = 2

// ErrUnknownType is returned by Validate for message types the server does not accept.
var ErrUnknownType = errors.New("protocol: unknown message type")

// Envelope is the top-level wire format for all messages.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Inbound is a client frame with its payload left undecoded.
type Inbound struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// --- Server -> Client payloads ---

// AssignIDPayload is sent when a client first connects.
type AssignIDPayload struct {
	ConnectionID string `json:"connection_id"`
}

// JoinedPayload acknowledges a successful join to the joiner only.
type JoinedPayload struct {
	RoomID        string `json:"room_id"`
	OccupantIndex int    `json:"occupant_index"`
}

// OccupancyUpdatePayload is broadcast whenever room membership changes.
type OccupancyUpdatePayload struct {
	OccupantCount int `json:"occupant_count"`
}

// StartPayload is broadcast once when the second occupant arrives.
type StartPayload struct {
	RoomID string `json:"room_id"`
}

// ReceiveGarbagePayload tells a client how many garbage lines to queue.
type ReceiveGarbagePayload struct {
	Lines      int    `json:"lines"`
	AttackerID string `json:"attacker_id"`
}

// PeerLeftPayload names the occupant that departed.
type PeerLeftPayload struct {
	ConnectionID string `json:"connection_id"`
}

// --- Client -> Server payloads ---

// JoinPayload asks to join (or create) the room with the given code.
type JoinPayload struct {
	RoomID string `json:"room_id"`
}

// RelayGarbagePayload carries attack lines for the other occupant.
type RelayGarbagePayload struct {
	Lines int `json:"lines"`
}

// --- HTTP Response types ---

// RoomInfo describes a room in the list-rooms response.
type RoomInfo struct {
	RoomID      string `json:"room_id"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	Phase       string `json:"phase"`
}

// ListRoomsResponse is returned by GET /rooms.
type ListRoomsResponse struct {
	Rooms       []RoomInfo `json:"rooms"`
	Connections int        `json:"connections"`
}

// Encode marshals an envelope into a single text frame.
func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", env.Type, err)
	}
	return data, nil
}

// Decode parses a raw client frame and checks its type.
func Decode(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, fmt.Errorf("decode frame: %w", err)
	}
	if err := Validate(in.Type); err != nil {
		return Inbound{}, err
	}
	return in, nil
}

// DecodePayload unmarshals an inbound payload into target.
// A missing payload leaves target untouched.
func (in Inbound) DecodePayload(target interface{}) error {
	if len(in.Payload) == 0 || string(in.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(in.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", in.Type, err)
	}
	return nil
}

// Validate reports whether t is a client -> server message type.
func Validate(t MessageType) error {
	switch t {
	case MsgJoin, MsgRelayGarbage, MsgFlushGarbage, MsgLeaveRoom:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownType, t)
}
