// Package games lists the game modes a room can select.
package games

import (
	"time"

	"github.com/DoyleJ11/bunker-server/internal/tanks"
)

type Info struct {
	ID               string
	Name             string
	ControllerSchema string
	MatchDuration    time.Duration
}

var registry = map[string]Info{
	tanks.GameID: {
		ID:               tanks.GameID,
		Name:             "Tanks",
		ControllerSchema: "dpad+shoot",
		MatchDuration:    90 * time.Second,
	},
}

func Lookup(id string) (Info, bool) {
	info, ok := registry[id]
	return info, ok
}

// MatchDuration returns zero for games without a server-side clock.
func MatchDuration(id string) time.Duration {
	return registry[id].MatchDuration
}
