package room

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/DoyleJ11/bunker-server/internal/protocol"
)

type Player struct {
	ID        string
	Name      string
	Role      protocol.Role
	Connected bool
}

// Room is owned by a Registry. It is not safe for concurrent use; callers
// serialize access.
type Room struct {
	Code      string
	Phase     protocol.Phase
	GameID    string
	CreatedAt time.Time
	Players   []*Player

	// HostConnID is the only connection that may run privileged actions or
	// receive routed input. Empty when no host connection is bound.
	HostConnID string

	StartedAt     *time.Time
	EndedAt       *time.Time
	MatchDuration time.Duration

	LastActivity time.Time

	bindings map[string]string // playerID -> connID
	limiters map[string]*rate.Limiter
}

func New(code string, now time.Time) *Room {
	return &Room{
		Code:         code,
		Phase:        protocol.PhaseLobby,
		CreatedAt:    now,
		LastActivity: now,
		bindings:     make(map[string]string),
		limiters:     make(map[string]*rate.Limiter),
	}
}

func (r *Room) Player(playerID string) *Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// Upsert inserts or updates the player by id. Role is only set on insert.
func (r *Room) Upsert(playerID, name string, role protocol.Role) *Player {
	if p := r.Player(playerID); p != nil {
		p.Name = name
		p.Connected = true
		return p
	}
	p := &Player{ID: playerID, Name: name, Role: role, Connected: true}
	r.Players = append(r.Players, p)
	return p
}

// NonHostCount counts controller records, connected or not.
func (r *Room) NonHostCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Role != protocol.RoleHost {
			n++
		}
	}
	return n
}

func (r *Room) ConnectedNonHostCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Role != protocol.RoleHost && p.Connected {
			n++
		}
	}
	return n
}

func (r *Room) AnyConnected() bool {
	for _, p := range r.Players {
		if p.Connected {
			return true
		}
	}
	return false
}

func (r *Room) Bind(playerID, connID string) {
	r.bindings[playerID] = connID
}

func (r *Room) Unbind(playerID string) {
	delete(r.bindings, playerID)
}

func (r *Room) BoundConn(playerID string) (string, bool) {
	c, ok := r.bindings[playerID]
	return c, ok
}

// Conns lists every connection currently bound in the room.
func (r *Room) Conns() []string {
	out := make([]string, 0, len(r.bindings))
	for _, p := range r.Players {
		if c, ok := r.bindings[p.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Limiter returns the input limiter for playerID, creating it on first use.
func (r *Room) Limiter(playerID string, every time.Duration) *rate.Limiter {
	l, ok := r.limiters[playerID]
	if !ok {
		l = rate.NewLimiter(rate.Every(every), 1)
		r.limiters[playerID] = l
	}
	return l
}

func (r *Room) ClearMatchTiming() {
	r.StartedAt = nil
	r.EndedAt = nil
	r.MatchDuration = 0
}

func (r *Room) Touch(now time.Time) {
	r.LastActivity = now
}

func (r *Room) Snapshot() protocol.RoomState {
	s := protocol.RoomState{
		RoomCode:    r.Code,
		Phase:       r.Phase,
		CreatedAtMs: r.CreatedAt.UnixMilli(),
		Players:     make([]protocol.Player, 0, len(r.Players)),
	}
	if r.GameID != "" {
		id := r.GameID
		s.GameID = &id
	}
	for _, p := range r.Players {
		s.Players = append(s.Players, protocol.Player{
			PlayerID:  p.ID,
			Name:      p.Name,
			Role:      p.Role,
			Connected: p.Connected,
		})
	}
	if r.StartedAt != nil {
		ms := r.StartedAt.UnixMilli()
		s.StartedAtMs = &ms
	}
	if r.EndedAt != nil {
		ms := r.EndedAt.UnixMilli()
		s.EndedAtMs = &ms
	}
	if r.MatchDuration > 0 {
		ms := r.MatchDuration.Milliseconds()
		s.MatchDurationMs = &ms
	}
	return s
}
