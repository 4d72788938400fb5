package lobby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bunker-server/internal/protocol"
	"github.com/DoyleJ11/bunker-server/internal/tanks"
)

func upEvent() protocol.ControlEvent {
	return protocol.ControlEvent{Type: protocol.ControlMove, Dir: "UP", Pressed: true}
}

func TestRouteInput_ForwardsToHostOnly(t *testing.T) {
	m, _ := newTestManager(t)
	code := inGame(t, m)

	ev := protocol.ControlEvent{Type: protocol.ControlAction, ID: tanks.ActionShoot, Pressed: true}
	out := m.RouteInput(protocol.PlayerInput{RoomCode: code, PlayerID: "p1", GameID: tanks.GameID, Event: ev})
	require.Len(t, out, 1)
	assert.Equal(t, []string{"hc"}, out[0].To)
	assert.Equal(t, protocol.EvtGameInput, out[0].Event)
	assert.Equal(t, protocol.GameInput{RoomCode: code, GameID: tanks.GameID, PlayerID: "p1", Event: ev}, out[0].Payload)
}

func TestRouteInput_SilentDrops(t *testing.T) {
	cases := []struct {
		name  string
		setup func(t *testing.T, m *Manager) string
		in    func(code string) protocol.PlayerInput
	}{
		{
			name:  "unknown room",
			setup: inGame,
			in: func(string) protocol.PlayerInput {
				return protocol.PlayerInput{RoomCode: "NOPE", PlayerID: "p1", GameID: tanks.GameID, Event: upEvent()}
			},
		},
		{
			name: "lobby phase",
			setup: func(t *testing.T, m *Manager) string {
				code := mustCreate(t, m, "hc", "h")
				mustJoin(t, m, "c1", code, "p1")
				_, err := m.SetGame("hc", code, tanks.GameID)
				require.NoError(t, err)
				return code
			},
			in: func(code string) protocol.PlayerInput {
				return protocol.PlayerInput{RoomCode: code, PlayerID: "p1", GameID: tanks.GameID, Event: upEvent()}
			},
		},
		{
			name:  "wrong game",
			setup: inGame,
			in: func(code string) protocol.PlayerInput {
				return protocol.PlayerInput{RoomCode: code, PlayerID: "p1", GameID: "pong_v1", Event: upEvent()}
			},
		},
		{
			name: "no host connection",
			setup: func(t *testing.T, m *Manager) string {
				code := inGame(t, m)
				m.Leave("hc", code, "h")
				return code
			},
			in: func(code string) protocol.PlayerInput {
				return protocol.PlayerInput{RoomCode: code, PlayerID: "p1", GameID: tanks.GameID, Event: upEvent()}
			},
		},
		{
			name:  "unknown player",
			setup: inGame,
			in: func(code string) protocol.PlayerInput {
				return protocol.PlayerInput{RoomCode: code, PlayerID: "ghost", GameID: tanks.GameID, Event: upEvent()}
			},
		},
		{
			name:  "malformed event",
			setup: inGame,
			in: func(code string) protocol.PlayerInput {
				return protocol.PlayerInput{RoomCode: code, PlayerID: "p1", GameID: tanks.GameID,
					Event: protocol.ControlEvent{Type: protocol.ControlMove, Dir: "SIDEWAYS"}}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			code := tc.setup(t, m)
			assert.Empty(t, m.RouteInput(tc.in(code)))
		})
	}
}

func TestRouteInput_RateLimited(t *testing.T) {
	m, clk := newTestManager(t)
	code := inGame(t, m)
	in := protocol.PlayerInput{RoomCode: code, PlayerID: "p1", GameID: tanks.GameID, Event: upEvent()}

	forwarded := 0
	for i := 0; i < 60; i++ {
		forwarded += len(m.RouteInput(in))
		clk.Advance(time.Millisecond)
	}
	assert.Equal(t, 5, forwarded, "one event per 12ms window over 60ms")

	clk.Advance(20 * time.Millisecond)
	require.Len(t, m.RouteInput(in), 1)

	m.Disconnect("c1")
	mustJoin(t, m, "c1b", code, "p1")

	clk.Advance(time.Millisecond)
	assert.Empty(t, m.RouteInput(in), "reconnect does not reset the window")
	clk.Advance(15 * time.Millisecond)
	assert.Len(t, m.RouteInput(in), 1)
}

func TestRouteInput_TouchesActivity(t *testing.T) {
	m, clk := newTestManager(t)
	code := inGame(t, m)
	r, _ := m.Registry().Get(code)

	clk.Advance(time.Minute)
	m.RouteInput(protocol.PlayerInput{RoomCode: code, PlayerID: "p1", GameID: tanks.GameID, Event: upEvent()})
	assert.Equal(t, clk.now, r.LastActivity)
}

func TestReapIdle(t *testing.T) {
	m, clk := newTestManager(t)
	empty := mustCreate(t, m, "hc", "h")
	m.Disconnect("hc")
	busy := mustCreate(t, m, "hc2", "h2")

	clk.Advance(10 * time.Minute)
	assert.Empty(t, m.ReapIdle(), "exactly at the TTL is not past it")

	clk.Advance(time.Second)
	assert.Equal(t, []string{empty}, m.ReapIdle())
	_, ok := m.Snapshot(empty)
	assert.False(t, ok)

	clk.Advance(24 * time.Hour)
	assert.Empty(t, m.ReapIdle(), "rooms with a connected player are never reaped")
	_, ok = m.Snapshot(busy)
	assert.True(t, ok)

	_, err := m.Join("c1", empty, "p1", "x")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestReapIdle_ActivityResetsClock(t *testing.T) {
	m, clk := newTestManager(t)
	code := mustCreate(t, m, "hc", "h")
	mustJoin(t, m, "c1", code, "p1")

	clk.Advance(9 * time.Minute)
	m.Leave("c1", code, "p1")
	m.Disconnect("hc")

	clk.Advance(9 * time.Minute)
	assert.Empty(t, m.ReapIdle())
	clk.Advance(2 * time.Minute)
	assert.Equal(t, []string{code}, m.ReapIdle())
}

func TestExpireMatches(t *testing.T) {
	m, clk := newTestManager(t)
	code := inGame(t, m)
	lobbyOnly := mustCreate(t, m, "hc2", "h2")

	clk.Advance(89 * time.Second)
	assert.Empty(t, m.ExpireMatches())

	clk.Advance(time.Second)
	out := m.ExpireMatches()
	require.Len(t, out, 1)
	st, to := lastState(t, out)
	assert.Equal(t, code, st.RoomCode)
	assert.ElementsMatch(t, []string{"hc", "c1"}, to)
	assert.Equal(t, protocol.PhaseEnded, st.Phase)
	require.NotNil(t, st.EndedAtMs)
	assert.Equal(t, clk.now.UnixMilli(), *st.EndedAtMs)

	assert.Empty(t, m.ExpireMatches(), "already ended")
	lobby, _ := m.Snapshot(lobbyOnly)
	assert.Equal(t, protocol.PhaseLobby, lobby.Phase)
}

func TestExpireMatches_UntimedGame(t *testing.T) {
	m, clk := newTestManager(t)
	code := mustCreate(t, m, "hc", "h")
	mustJoin(t, m, "c1", code, "p1")
	_, err := m.SetGame("hc", code, "sandbox")
	require.NoError(t, err)
	_, err = m.Start("hc", code)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	assert.Empty(t, m.ExpireMatches())
}
