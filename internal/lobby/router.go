package lobby

import (
	"github.com/DoyleJ11/bunker-server/internal/protocol"
)

// RouteInput forwards a controller event to the room's host connection. Inputs
// for unknown rooms or players, outside IN_GAME, for another game, with no host
// bound, malformed, or faster than InputInterval are dropped without an error.
func (m *Manager) RouteInput(in protocol.PlayerInput) []Delivery {
	r, ok := m.reg.Get(in.RoomCode)
	if !ok {
		return nil
	}
	if r.Phase != protocol.PhaseInGame || r.GameID != in.GameID || r.HostConnID == "" {
		return nil
	}
	if r.Player(in.PlayerID) == nil || !in.Event.Valid() {
		return nil
	}

	now := m.opts.Now()
	if !r.Limiter(in.PlayerID, m.opts.InputInterval).AllowN(now, 1) {
		return nil
	}
	r.Touch(now)

	return []Delivery{{
		To:    []string{r.HostConnID},
		Event: protocol.EvtGameInput,
		Payload: protocol.GameInput{
			RoomCode: r.Code,
			GameID:   in.GameID,
			PlayerID: in.PlayerID,
			Event:    in.Event,
		},
	}}
}
