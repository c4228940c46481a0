package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/hersh/gotris-versus/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    protocol.MessageType
		wantErr error
	}{
		{name: "join", raw: `{"type":"join","payload":{"room_id":"R1"}}`, want: protocol.MsgJoin},
		{name: "relay", raw: `{"type":"relay_garbage","payload":{"lines":4}}`, want: protocol.MsgRelayGarbage},
		{name: "flush without payload", raw: `{"type":"flush_garbage"}`, want: protocol.MsgFlushGarbage},
		{name: "server type rejected", raw: `{"type":"start"}`, wantErr: protocol.ErrUnknownType},
		{name: "unknown type rejected", raw: `{"type":"dance"}`, wantErr: protocol.ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := protocol.Decode([]byte(tt.raw))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, in.Type)
		})
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, protocol.ErrUnknownType)
}

func TestInbound_DecodePayload(t *testing.T) {
	in, err := protocol.Decode([]byte(`{"type":"join","payload":{"room_id":"lobby-7"}}`))
	require.NoError(t, err)

	var p protocol.JoinPayload
	require.NoError(t, in.DecodePayload(&p))
	assert.Equal(t, "lobby-7", p.RoomID)

	in, err = protocol.Decode([]byte(`{"type":"relay_garbage","payload":{"lines":"four"}}`))
	require.NoError(t, err)
	var g protocol.RelayGarbagePayload
	assert.Error(t, in.DecodePayload(&g))

	in, err = protocol.Decode([]byte(`{"type":"leave_room","payload":null}`))
	require.NoError(t, err)
	assert.NoError(t, in.DecodePayload(&struct{}{}))
}

func TestEncode_OmitsEmptyPayload(t *testing.T) {
	data, err := protocol.Encode(protocol.Envelope{Type: protocol.MsgRoomFull})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"room_full"}`, string(data))

	data, err = protocol.Encode(protocol.Envelope{
		Type:    protocol.MsgJoined,
		Payload: protocol.JoinedPayload{RoomID: "R1", OccupantIndex: 1},
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "joined", got["type"])
	assert.Equal(t, map[string]any{"room_id": "R1", "occupant_index": float64(1)}, got["payload"])
}
