package room

import (
	"errors"
	"slices"
	"strings"
)

var ErrCodeTaken = errors.New("room code already in use")

// ConnRef is where a connection last joined.
type ConnRef struct {
	Code     string
	PlayerID string
}

// Registry is the in-memory store of live rooms. It is not safe for concurrent
// use: the hub goroutine owns it.
type Registry struct {
	rooms map[string]*Room
	conns map[string]ConnRef
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		conns: make(map[string]ConnRef),
	}
}

func (g *Registry) Get(code string) (*Room, bool) {
	r, ok := g.rooms[NormalizeCode(code)]
	return r, ok
}

func (g *Registry) Has(code string) bool {
	_, ok := g.rooms[NormalizeCode(code)]
	return ok
}

func (g *Registry) Add(r *Room) error {
	if g.Has(r.Code) {
		return ErrCodeTaken
	}
	g.rooms[r.Code] = r
	return nil
}

// Remove deletes the room and every connection reference into it.
func (g *Registry) Remove(code string) {
	code = NormalizeCode(code)
	delete(g.rooms, code)
	for conn, ref := range g.conns {
		if ref.Code == code {
			delete(g.conns, conn)
		}
	}
}

func (g *Registry) Len() int { return len(g.rooms) }

// Rooms returns the live rooms ordered by code.
func (g *Registry) Rooms() []*Room {
	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *Room) int { return strings.Compare(a.Code, b.Code) })
	return out
}

func (g *Registry) TrackConn(connID, code, playerID string) {
	g.conns[connID] = ConnRef{Code: code, PlayerID: playerID}
}

func (g *Registry) LookupConn(connID string) (ConnRef, bool) {
	ref, ok := g.conns[connID]
	return ref, ok
}

func (g *Registry) ForgetConn(connID string) {
	delete(g.conns, connID)
}
