// Package lobby implements the room lifecycle: creating and joining rooms,
// host-only phase transitions, identity reconciliation across reconnects, input
// routing and the janitor sweeps.
//
// A Manager is not safe for concurrent use. Every method runs to completion and
// returns the deliveries it produced; the caller serializes calls (see package
// hub) so a delivery always reflects a fully applied mutation.
package lobby

import (
	"errors"
	"time"

	"github.com/DoyleJ11/bunker-server/internal/games"
	"github.com/DoyleJ11/bunker-server/internal/protocol"
	"github.com/DoyleJ11/bunker-server/internal/room"
)

var (
	ErrRoomNotFound    = errors.New("room does not exist (or expired)")
	ErrUnauthorized    = errors.New("only the host can do that")
	ErrInvalidPhase    = errors.New("not allowed in the current phase")
	ErrRoomFull        = errors.New("room is full")
	ErrMatchInProgress = errors.New("match already in progress")
	ErrGameNotSelected = errors.New("select a game before starting")
	ErrNoPlayers       = errors.New("at least one player must join before starting")
	ErrBadRequest      = errors.New("bad request")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrRoomNotFound, "ROOM_NOT_FOUND"},
	{ErrUnauthorized, "UNAUTHORIZED"},
	{ErrInvalidPhase, "INVALID_PHASE"},
	{ErrRoomFull, "ROOM_FULL"},
	{ErrMatchInProgress, "MATCH_IN_PROGRESS"},
	{ErrGameNotSelected, "GAME_NOT_SELECTED"},
	{ErrNoPlayers, "NO_PLAYERS"},
	{ErrBadRequest, "BAD_REQUEST"},
}

// ErrorCode is the machine-readable code sent along with room:error.
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "INTERNAL"
}

// UserMessage is the text shown to the player for err. Context added by
// wrapping is left out.
func UserMessage(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.err.Error()
		}
	}
	return "something went wrong, try again"
}

// Delivery is one outbound event addressed to a set of connections.
type Delivery struct {
	To      []string
	Event   string
	Payload any
}

type Options struct {
	MaxPlayers    int           // non-host cap per room
	InputInterval time.Duration // minimum gap between routed inputs per player
	RoomTTL       time.Duration // idle time before an empty room is reaped
	Codes         room.CodeAllocator
	MatchDuration func(gameID string) time.Duration
	Now           func() time.Time
}

func DefaultOptions() Options {
	return Options{
		MaxPlayers:    6,
		InputInterval: 12 * time.Millisecond,
		RoomTTL:       10 * time.Minute,
		MatchDuration: games.MatchDuration,
		Now:           time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = d.MaxPlayers
	}
	if o.InputInterval <= 0 {
		o.InputInterval = d.InputInterval
	}
	if o.RoomTTL <= 0 {
		o.RoomTTL = d.RoomTTL
	}
	if o.MatchDuration == nil {
		o.MatchDuration = d.MatchDuration
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

type Manager struct {
	reg  *room.Registry
	opts Options
}

func NewManager(reg *room.Registry, opts Options) *Manager {
	return &Manager{reg: reg, opts: opts.withDefaults()}
}

func (m *Manager) Registry() *room.Registry { return m.reg }

// Snapshot returns the current state of the room with the given code.
func (m *Manager) Snapshot(code string) (protocol.RoomState, bool) {
	r, ok := m.reg.Get(code)
	if !ok {
		return protocol.RoomState{}, false
	}
	return r.Snapshot(), true
}

func stateDelivery(r *room.Room) Delivery {
	return Delivery{
		To:      r.Conns(),
		Event:   protocol.EvtRoomState,
		Payload: protocol.StateMessage{State: r.Snapshot()},
	}
}
