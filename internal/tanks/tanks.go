package tanks

import (
	"slices"
	"time"

	"github.com/DoyleJ11/bunker-server/internal/protocol"
)

const GameID = "tanks_v1"

// ActionShoot is the ACTION id that fires.
const ActionShoot = "SHOOT"

type Dir string

const (
	DirUp    Dir = "UP"
	DirDown  Dir = "DOWN"
	DirLeft  Dir = "LEFT"
	DirRight Dir = "RIGHT"
)

// movePriority is the order in which held directions win.
var movePriority = []Dir{DirUp, DirDown, DirLeft, DirRight}

type Tile uint8

const (
	TileEmpty Tile = iota
	TileBrick
	TileMetal
)

func (t Tile) IsWall() bool { return t == TileBrick || t == TileMetal }

type Tank struct {
	PlayerID          string     `json:"playerId"`
	X                 int        `json:"x"`
	Y                 int        `json:"y"`
	Dir               Dir        `json:"dir"`
	Alive             bool       `json:"alive"`
	RespawnAt         *time.Time `json:"respawnAt,omitempty"`
	InvulnerableUntil time.Time  `json:"invulnerableUntil"`
	LastMoveAt        time.Time  `json:"lastMoveAt"`
	LastShotAt        time.Time  `json:"lastShotAt"`
	Kills             int        `json:"kills"`
}

type Bullet struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Dir     Dir    `json:"dir"`
	Alive   bool   `json:"alive"`
}

type State struct {
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Tiles   []Tile           `json:"tiles"`
	Tanks   map[string]*Tank `json:"tanks"`
	Bullets []*Bullet        `json:"bullets"`
	Tick    int              `json:"tick"`
}

// Clone returns a deep copy that is safe to hand to another goroutine.
func (s *State) Clone() State {
	c := *s
	c.Tiles = slices.Clone(s.Tiles)
	c.Tanks = make(map[string]*Tank, len(s.Tanks))
	for id, t := range s.Tanks {
		cp := *t
		if t.RespawnAt != nil {
			at := *t.RespawnAt
			cp.RespawnAt = &at
		}
		c.Tanks[id] = &cp
	}
	c.Bullets = make([]*Bullet, len(s.Bullets))
	for i, b := range s.Bullets {
		cp := *b
		c.Bullets[i] = &cp
	}
	return c
}

type input struct {
	move  map[Dir]bool
	shoot bool
}

// Game is one match. It only advances when Tick is called and is not safe for
// concurrent use.
type Game struct {
	cfg    Config
	state  State
	inputs map[string]*input
	order  []string
	idSeq  int
}

// NewGame builds a fresh arena and places one tank per player at the spawn points.
func NewGame(playerIDs []string, cfg Config) *Game {
	cfg = cfg.withDefaults()
	g := &Game{
		cfg:    cfg,
		inputs: make(map[string]*input, len(playerIDs)),
		state: State{
			Width:   cfg.Width,
			Height:  cfg.Height,
			Tiles:   GenerateArena(cfg.Width, cfg.Height),
			Tanks:   make(map[string]*Tank, len(playerIDs)),
			Bullets: []*Bullet{},
		},
	}

	spawns := spawnPoints(cfg.Width, cfg.Height)
	for i, pid := range playerIDs {
		if _, dup := g.state.Tanks[pid]; dup {
			continue
		}
		sp := spawns[i%len(spawns)]
		t := &Tank{PlayerID: pid, X: sp.x, Y: sp.y, Dir: sp.dir, Alive: true}
		g.state.Tanks[pid] = t
		g.inputs[pid] = &input{move: map[Dir]bool{}}
		g.order = append(g.order, pid)
		if g.tankAt(sp.x, sp.y, pid) != nil {
			if x, y, ok := g.freeCell(); ok {
				t.X, t.Y = x, y
			} else {
				t.Alive = false
				t.RespawnAt = new(time.Time)
			}
		}
	}
	slices.Sort(g.order)
	return g
}

func (g *Game) Config() Config { return g.cfg }

// State returns the live state. Callers must not mutate it.
func (g *Game) State() *State { return &g.state }

// HandleInput records a controller edge. Unknown players are ignored.
func (g *Game) HandleInput(playerID string, ev protocol.ControlEvent) {
	in := g.inputs[playerID]
	if in == nil {
		return
	}
	switch ev.Type {
	case protocol.ControlMove:
		in.move[Dir(ev.Dir)] = ev.Pressed
	case protocol.ControlAction:
		if ev.ID == ActionShoot {
			in.shoot = ev.Pressed
		}
	}
}

// ReleaseInputs clears everything the player is holding.
func (g *Game) ReleaseInputs(playerID string) {
	if in := g.inputs[playerID]; in != nil {
		clear(in.move)
		in.shoot = false
	}
}

func (g *Game) inBounds(x, y int) bool {
	return x >= 0 && x < g.state.Width && y >= 0 && y < g.state.Height
}

func (g *Game) tile(x, y int) Tile {
	return g.state.Tiles[y*g.state.Width+x]
}

func (g *Game) setTile(x, y int, t Tile) {
	g.state.Tiles[y*g.state.Width+x] = t
}

// tankAt returns the alive tank on (x, y), skipping exclude.
func (g *Game) tankAt(x, y int, exclude string) *Tank {
	for _, pid := range g.order {
		t := g.state.Tanks[pid]
		if pid == exclude || !t.Alive {
			continue
		}
		if t.X == x && t.Y == y {
			return t
		}
	}
	return nil
}

// freeCell scans row-major from (1,1) for an empty, unoccupied tile.
func (g *Game) freeCell() (int, int, bool) {
	for y := 1; y < g.state.Height-1; y++ {
		for x := 1; x < g.state.Width-1; x++ {
			if g.tile(x, y) == TileEmpty && g.tankAt(x, y, "") == nil {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

func (g *Game) liveBullets(ownerID string) int {
	n := 0
	for _, b := range g.state.Bullets {
		if b.Alive && b.OwnerID == ownerID {
			n++
		}
	}
	return n
}

func step(x, y int, d Dir) (int, int) {
	switch d {
	case DirUp:
		return x, y - 1
	case DirDown:
		return x, y + 1
	case DirLeft:
		return x - 1, y
	case DirRight:
		return x + 1, y
	}
	return x, y
}

func pickDir(move map[Dir]bool) (Dir, bool) {
	for _, d := range movePriority {
		if move[d] {
			return d, true
		}
	}
	return "", false
}
