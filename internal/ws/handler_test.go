package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-server/internal/hub"
	"github.com/DoyleJ11/bunker-server/internal/lobby"
	"github.com/DoyleJ11/bunker-server/internal/protocol"
	"github.com/DoyleJ11/bunker-server/internal/room"
)

func newServer(t *testing.T) (*hub.Hub, string) {
	t.Helper()
	return newServerWith(t, Options{})
}

func newServerWith(t *testing.T, opts Options) (*hub.Hub, string) {
	t.Helper()
	mgr := lobby.NewManager(room.NewRegistry(), lobby.DefaultOptions())
	h := hub.NewHub(context.Background(), mgr, zap.NewNop(), hub.Options{})
	srv := httptest.NewServer(Handler(h, zap.NewNop(), opts))
	t.Cleanup(func() {
		srv.Close()
		h.Send(hub.ShutdownHub{})
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func write(t *testing.T, c *websocket.Conn, event string, payload any) {
	t.Helper()
	b, err := protocol.Encode(event, payload)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, b))
}

func read(t *testing.T, c *websocket.Conn) protocol.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var env protocol.Envelope
	require.NoError(t, wsjson.Read(ctx, c, &env))
	return env
}

func TestHandler_CreateAndJoin(t *testing.T) {
	_, url := newServer(t)
	host := dial(t, url)
	player := dial(t, url)

	write(t, host, protocol.EvtRoomCreate, protocol.CreateRoom{PlayerID: "h", Name: "Host"})
	env := read(t, host)
	require.Equal(t, protocol.EvtRoomState, env.Event)
	created, err := protocol.DecodePayload[protocol.StateMessage](env)
	require.NoError(t, err)
	code := created.State.RoomCode

	write(t, player, protocol.EvtRoomJoin, protocol.JoinRoom{RoomCode: strings.ToLower(code), PlayerID: "p1", Name: "Ana"})
	for _, c := range []*websocket.Conn{host, player} {
		msg, err := protocol.DecodePayload[protocol.StateMessage](read(t, c))
		require.NoError(t, err)
		assert.Equal(t, code, msg.State.RoomCode)
		require.Len(t, msg.State.Players, 2)
		assert.Equal(t, "Ana", msg.State.Players[1].Name)
	}
}

func TestHandler_MalformedFrame(t *testing.T) {
	_, url := newServer(t)
	c := dial(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("not json")))

	env := read(t, c)
	require.Equal(t, protocol.EvtRoomError, env.Event)
	msg, err := protocol.DecodePayload[protocol.ErrorMessage](env)
	require.NoError(t, err)
	assert.Equal(t, "BAD_REQUEST", msg.Code)
}

func TestHandler_ClientCloseDisconnects(t *testing.T) {
	h, url := newServer(t)
	host := dial(t, url)
	player := dial(t, url)

	write(t, host, protocol.EvtRoomCreate, protocol.CreateRoom{PlayerID: "h"})
	created, err := protocol.DecodePayload[protocol.StateMessage](read(t, host))
	require.NoError(t, err)
	code := created.State.RoomCode

	write(t, player, protocol.EvtRoomJoin, protocol.JoinRoom{RoomCode: code, PlayerID: "p1"})
	read(t, host)
	read(t, player)

	require.NoError(t, player.Close(websocket.StatusNormalClosure, ""))

	msg, err := protocol.DecodePayload[protocol.StateMessage](read(t, host))
	require.NoError(t, err)
	require.Len(t, msg.State.Players, 2)
	assert.False(t, msg.State.Players[1].Connected)

	st, err := h.Room(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.False(t, st.Players[1].Connected)
}

func TestHandler_SilentPeerDropped(t *testing.T) {
	h, url := newServerWith(t, Options{PingInterval: 20 * time.Millisecond, WriteTimeout: 200 * time.Millisecond})
	host := dial(t, url)
	player := dial(t, url)

	write(t, host, protocol.EvtRoomCreate, protocol.CreateRoom{PlayerID: "h"})
	created, err := protocol.DecodePayload[protocol.StateMessage](read(t, host))
	require.NoError(t, err)
	code := created.State.RoomCode

	write(t, player, protocol.EvtRoomJoin, protocol.JoinRoom{RoomCode: code, PlayerID: "p1"})
	read(t, host)
	read(t, player)

	// The player stops reading, so its pings go unanswered. The host keeps
	// reading and stays connected.
	msg, err := protocol.DecodePayload[protocol.StateMessage](read(t, host))
	require.NoError(t, err)
	require.Len(t, msg.State.Players, 2)
	assert.True(t, msg.State.Players[0].Connected)
	assert.False(t, msg.State.Players[1].Connected)

	st, err := h.Room(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, st.Players[0].Connected)
	assert.False(t, st.Players[1].Connected)
}
