package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	b, err := Encode(EvtRoomError, ErrorMessage{Message: "room is full", Code: "ROOM_FULL"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"room:error","data":{"message":"room is full","code":"ROOM_FULL"}}`, string(b))

	_, err = Encode("", nil)
	assert.Error(t, err)
}

func TestEncode_RoomStateNulls(t *testing.T) {
	b, err := Encode(EvtRoomState, StateMessage{State: RoomState{RoomCode: "ABCD", Phase: PhaseLobby, Players: []Player{}}})
	require.NoError(t, err)

	var raw struct {
		Data struct {
			State map[string]json.RawMessage `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, k := range []string{"gameId", "startedAtMs", "endedAtMs", "matchDurationMs"} {
		assert.Equal(t, "null", string(raw.Data.State[k]), k)
	}
	assert.Equal(t, "[]", string(raw.Data.State["players"]))
}

func TestDecodeEnvelope(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "ok", in: `{"event":"room:start","data":{"roomCode":"ABCD"}}`},
		{name: "no data", in: `{"event":"room:start"}`},
		{name: "empty", in: ``, wantErr: true},
		{name: "not json", in: `hello`, wantErr: true},
		{name: "no event", in: `{"data":{}}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tc.in))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, EvtRoomStart, env.Event)
		})
	}
}

func TestDecodePayload(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"player:input","data":{"roomCode":"ABCD","playerId":"p1","gameId":"tanks_v1","event":{"type":"ACTION","id":"SHOOT","pressed":true}}}`))
	require.NoError(t, err)

	in, err := DecodePayload[PlayerInput](env)
	require.NoError(t, err)
	assert.Equal(t, "p1", in.PlayerID)
	assert.True(t, in.Event.Valid())

	_, err = DecodePayload[PlayerInput](Envelope{Event: EvtPlayerInput})
	assert.Error(t, err)
}

func TestControlEvent_Valid(t *testing.T) {
	cases := []struct {
		ev   ControlEvent
		want bool
	}{
		{ControlEvent{Type: ControlMove, Dir: "UP"}, true},
		{ControlEvent{Type: ControlMove, Dir: "up"}, false},
		{ControlEvent{Type: ControlMove}, false},
		{ControlEvent{Type: ControlAction, ID: "SHOOT"}, true},
		{ControlEvent{Type: ControlAction}, false},
		{ControlEvent{Type: "JUMP"}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.ev.Valid(), "%+v", tc.ev)
	}
}
