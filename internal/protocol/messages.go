package protocol

import "encoding/json"

// Client -> Server
const (
	EvtRoomCreate  = "room:create"
	EvtRoomJoin    = "room:join"
	EvtRoomLeave   = "room:leave"
	EvtRoomSetGame = "room:set-game"
	EvtRoomStart   = "room:start"
	EvtRoomEnd     = "room:end"
	EvtRoomRestart = "room:restart"
	EvtPlayerInput = "player:input"
)

// Server -> Client
const (
	EvtRoomState            = "room:state"
	EvtRoomError            = "room:error"
	EvtGameInput            = "game:input"
	EvtRoomHostDisconnected = "room:host-disconnected"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Phase string

const (
	PhaseLobby  Phase = "LOBBY"
	PhaseInGame Phase = "IN_GAME"
	PhaseEnded  Phase = "ENDED"
)

type Role string

const (
	RoleHost   Role = "HOST"
	RolePlayer Role = "PLAYER"
)

type Player struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Connected bool   `json:"connected"`
}

// RoomState is the full room snapshot broadcast on every change.
type RoomState struct {
	RoomCode        string   `json:"roomCode"`
	Phase           Phase    `json:"phase"`
	GameID          *string  `json:"gameId"`
	CreatedAtMs     int64    `json:"createdAtMs"`
	Players         []Player `json:"players"`
	StartedAtMs     *int64   `json:"startedAtMs"`
	EndedAtMs       *int64   `json:"endedAtMs"`
	MatchDurationMs *int64   `json:"matchDurationMs"`
}

const (
	ControlMove   = "MOVE"
	ControlAction = "ACTION"
)

// ControlEvent is a controller button edge. MOVE carries Dir, ACTION carries ID.
type ControlEvent struct {
	Type    string `json:"type"`
	Dir     string `json:"dir,omitempty"`
	ID      string `json:"id,omitempty"`
	Pressed bool   `json:"pressed"`
}

// Valid reports whether the event is well formed enough to route.
func (e ControlEvent) Valid() bool {
	switch e.Type {
	case ControlMove:
		switch e.Dir {
		case "UP", "DOWN", "LEFT", "RIGHT":
			return true
		}
		return false
	case ControlAction:
		return e.ID != ""
	default:
		return false
	}
}

type CreateRoom struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type JoinRoom struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type LeaveRoom struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type SetGame struct {
	RoomCode string `json:"roomCode"`
	GameID   string `json:"gameId"`
}

// RoomRef is the payload of start, end and restart.
type RoomRef struct {
	RoomCode string `json:"roomCode"`
}

type PlayerInput struct {
	RoomCode string       `json:"roomCode"`
	PlayerID string       `json:"playerId"`
	GameID   string       `json:"gameId"`
	Event    ControlEvent `json:"event"`
}

type StateMessage struct {
	State RoomState `json:"state"`
}

type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type GameInput struct {
	RoomCode string       `json:"roomCode"`
	GameID   string       `json:"gameId"`
	PlayerID string       `json:"playerId"`
	Event    ControlEvent `json:"event"`
}

type HostDisconnected struct {
	RoomCode string `json:"roomCode"`
}
