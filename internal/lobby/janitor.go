package lobby

import (
	"github.com/DoyleJ11/bunker-server/internal/protocol"
)

// ReapIdle removes rooms nobody is connected to once they have been idle for
// longer than RoomTTL. It returns the removed codes.
func (m *Manager) ReapIdle() []string {
	now := m.opts.Now()
	var removed []string
	for _, r := range m.reg.Rooms() {
		if r.AnyConnected() {
			continue
		}
		if now.Sub(r.LastActivity) > m.opts.RoomTTL {
			m.reg.Remove(r.Code)
			removed = append(removed, r.Code)
		}
	}
	return removed
}

// ExpireMatches ends every timed match whose clock has run out.
func (m *Manager) ExpireMatches() []Delivery {
	now := m.opts.Now()
	var out []Delivery
	for _, r := range m.reg.Rooms() {
		if r.Phase != protocol.PhaseInGame || r.StartedAt == nil || r.MatchDuration <= 0 {
			continue
		}
		if now.Sub(*r.StartedAt) < r.MatchDuration {
			continue
		}
		r.Phase = protocol.PhaseEnded
		r.EndedAt = &now
		out = append(out, stateDelivery(r))
	}
	return out
}
