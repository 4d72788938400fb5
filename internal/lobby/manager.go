package lobby

import (
	"fmt"
	"time"

	"github.com/DoyleJ11/bunker-server/internal/protocol"
	"github.com/DoyleJ11/bunker-server/internal/room"
)

// Create opens a new room with the caller as host.
func (m *Manager) Create(connID, playerID, name string) ([]Delivery, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: missing playerId", ErrBadRequest)
	}
	now := m.opts.Now()
	out := m.detach(connID, "", "", now)

	code, err := m.opts.Codes.Allocate(m.reg.Has)
	if err != nil {
		return out, fmt.Errorf("create room: %w", err)
	}
	r := room.New(code, now)
	r.Upsert(playerID, cleanName(name), protocol.RoleHost)
	r.Bind(playerID, connID)
	r.HostConnID = connID
	if err := m.reg.Add(r); err != nil {
		return out, fmt.Errorf("create room %s: %w", code, err)
	}
	m.reg.TrackConn(connID, code, playerID)

	return append(out, stateDelivery(r)), nil
}

// Join adds a new player or reconnects a known one. Reconnects keep their role
// and are never refused for phase or capacity.
func (m *Manager) Join(connID, code, playerID, name string) ([]Delivery, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: missing playerId", ErrBadRequest)
	}
	code = room.NormalizeCode(code)
	r, ok := m.reg.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	if r.Player(playerID) == nil {
		if r.Phase != protocol.PhaseLobby {
			return nil, ErrMatchInProgress
		}
		if r.NonHostCount() >= m.opts.MaxPlayers {
			return nil, ErrRoomFull
		}
	}

	now := m.opts.Now()
	out := m.detach(connID, code, playerID, now)

	if prev, ok := r.BoundConn(playerID); ok && prev != connID {
		m.reg.ForgetConn(prev)
	}
	p := r.Upsert(playerID, cleanName(name), protocol.RolePlayer)
	r.Bind(playerID, connID)
	if p.Role == protocol.RoleHost {
		r.HostConnID = connID
	}
	m.reg.TrackConn(connID, code, playerID)
	r.Touch(now)

	return append(out, stateDelivery(r)), nil
}

// Leave marks the player offline without removing them. Leaving twice, leaving
// after a disconnect, or leaving from a connection that has been superseded are
// no-ops.
func (m *Manager) Leave(connID, code, playerID string) []Delivery {
	r, ok := m.reg.Get(code)
	if !ok {
		return nil
	}
	bound, ok := r.BoundConn(playerID)
	if !ok || bound != connID {
		return nil
	}
	m.markDisconnected(r, playerID)
	r.Touch(m.opts.Now())
	return []Delivery{stateDelivery(r)}
}

// Disconnect handles a dropped transport. A host connection dropping ends the
// room; there is no host failover.
func (m *Manager) Disconnect(connID string) []Delivery {
	ref, ok := m.reg.LookupConn(connID)
	if !ok {
		return nil
	}
	m.reg.ForgetConn(connID)

	r, ok := m.reg.Get(ref.Code)
	if !ok {
		return nil
	}
	if bound, ok := r.BoundConn(ref.PlayerID); !ok || bound != connID {
		return nil
	}

	return m.release(r, ref.PlayerID, connID, m.opts.Now())
}

// release unbinds playerID's connection and ends the room if it was the host's.
func (m *Manager) release(r *room.Room, playerID, connID string, now time.Time) []Delivery {
	wasHost := r.HostConnID == connID
	m.markDisconnected(r, playerID)
	r.Touch(now)

	var out []Delivery
	if wasHost {
		if r.Phase == protocol.PhaseInGame {
			r.EndedAt = &now
		}
		r.Phase = protocol.PhaseEnded
		out = append(out, Delivery{
			To:      r.Conns(),
			Event:   protocol.EvtRoomHostDisconnected,
			Payload: protocol.HostDisconnected{RoomCode: r.Code},
		})
	}
	return append(out, stateDelivery(r))
}

func (m *Manager) SetGame(connID, code, gameID string) ([]Delivery, error) {
	r, err := m.hostRoom(connID, code)
	if err != nil {
		return nil, err
	}
	if r.Phase != protocol.PhaseLobby {
		return nil, fmt.Errorf("set game: %w", ErrInvalidPhase)
	}
	r.GameID = gameID
	r.Touch(m.opts.Now())
	return []Delivery{stateDelivery(r)}, nil
}

func (m *Manager) Start(connID, code string) ([]Delivery, error) {
	r, err := m.hostRoom(connID, code)
	if err != nil {
		return nil, err
	}
	if r.Phase != protocol.PhaseLobby {
		return nil, fmt.Errorf("start: %w", ErrInvalidPhase)
	}
	if r.GameID == "" {
		return nil, ErrGameNotSelected
	}
	if r.ConnectedNonHostCount() == 0 {
		return nil, ErrNoPlayers
	}

	now := m.opts.Now()
	r.Phase = protocol.PhaseInGame
	r.StartedAt = &now
	r.EndedAt = nil
	r.MatchDuration = m.opts.MatchDuration(r.GameID)
	r.Touch(now)
	return []Delivery{stateDelivery(r)}, nil
}

func (m *Manager) End(connID, code string) ([]Delivery, error) {
	r, err := m.hostRoom(connID, code)
	if err != nil {
		return nil, err
	}
	if r.Phase != protocol.PhaseInGame {
		return nil, fmt.Errorf("end: %w", ErrInvalidPhase)
	}
	now := m.opts.Now()
	r.Phase = protocol.PhaseEnded
	r.EndedAt = &now
	r.Touch(now)
	return []Delivery{stateDelivery(r)}, nil
}

// Restart returns the room to the lobby from any phase, keeping its players.
func (m *Manager) Restart(connID, code string) ([]Delivery, error) {
	r, err := m.hostRoom(connID, code)
	if err != nil {
		return nil, err
	}
	r.Phase = protocol.PhaseLobby
	r.ClearMatchTiming()
	r.Touch(m.opts.Now())
	return []Delivery{stateDelivery(r)}, nil
}

func (m *Manager) hostRoom(connID, code string) (*room.Room, error) {
	r, ok := m.reg.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.HostConnID == "" || r.HostConnID != connID {
		return nil, ErrUnauthorized
	}
	return r, nil
}

func (m *Manager) markDisconnected(r *room.Room, playerID string) {
	if bound, ok := r.BoundConn(playerID); ok {
		if bound == r.HostConnID {
			r.HostConnID = ""
		}
		m.reg.ForgetConn(bound)
	}
	r.Unbind(playerID)
	if p := r.Player(playerID); p != nil {
		p.Connected = false
	}
}

// detach releases whatever the connection was bound to before, unless it is the
// same (code, playerID) pair it is about to bind. A host moving on ends its old
// room the same way a host disconnect does.
func (m *Manager) detach(connID, code, playerID string, now time.Time) []Delivery {
	ref, ok := m.reg.LookupConn(connID)
	if !ok || (ref.Code == code && ref.PlayerID == playerID) {
		return nil
	}
	r, ok := m.reg.Get(ref.Code)
	if !ok {
		m.reg.ForgetConn(connID)
		return nil
	}
	if bound, ok := r.BoundConn(ref.PlayerID); !ok || bound != connID {
		m.reg.ForgetConn(connID)
		return nil
	}
	return m.release(r, ref.PlayerID, connID, now)
}
