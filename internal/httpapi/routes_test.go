package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-server/internal/hub"
	"github.com/DoyleJ11/bunker-server/internal/lobby"
	"github.com/DoyleJ11/bunker-server/internal/protocol"
	"github.com/DoyleJ11/bunker-server/internal/room"
	"github.com/DoyleJ11/bunker-server/internal/ws"
)

func newRouter(t *testing.T) (http.Handler, *hub.Hub) {
	t.Helper()
	mgr := lobby.NewManager(room.NewRegistry(), lobby.DefaultOptions())
	h := hub.NewHub(context.Background(), mgr, zap.NewNop(), hub.Options{})
	t.Cleanup(func() { h.Send(hub.ShutdownHub{}) })
	return SetupRoutes(h, zap.NewNop(), ws.Options{}), h
}

func TestHealthz(t *testing.T) {
	r, _ := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestGetRoom(t *testing.T) {
	r, h := newRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/ABCD", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	out := make(chan []byte, 4)
	require.True(t, h.Send(hub.Connect{ConnID: "hc", Outbox: out}))
	data, err := json.Marshal(protocol.CreateRoom{PlayerID: "h", Name: "Host"})
	require.NoError(t, err)
	require.True(t, h.Send(hub.FromClient{ConnID: "hc", Env: protocol.Envelope{Event: protocol.EvtRoomCreate, Data: data}}))

	env, err := protocol.DecodeEnvelope(<-out)
	require.NoError(t, err)
	created, err := protocol.DecodePayload[protocol.StateMessage](env)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/"+created.State.RoomCode, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st protocol.RoomState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, created.State.RoomCode, st.RoomCode)
	assert.Equal(t, protocol.PhaseLobby, st.Phase)
	require.Len(t, st.Players, 1)
	assert.Equal(t, protocol.RoleHost, st.Players[0].Role)
}
