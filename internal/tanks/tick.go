package tanks

import (
	"fmt"
	"slices"
	"time"
)

// Tick advances the match by one fixed step: respawns, movement, shooting, then
// bullet travel. Bullets fired during this tick start travelling on the next one.
func (g *Game) Tick(now time.Time) {
	g.state.Tick++

	g.resolveRespawns(now)

	for _, pid := range g.order {
		if t := g.state.Tanks[pid]; t.Alive {
			g.move(t, g.inputs[pid], now)
		}
	}

	travelling := len(g.state.Bullets)
	for _, pid := range g.order {
		if t := g.state.Tanks[pid]; t.Alive {
			g.shoot(t, g.inputs[pid], now)
		}
	}

	for _, b := range g.state.Bullets[:travelling] {
		if b.Alive {
			g.advance(b, now)
		}
	}

	g.state.Bullets = slices.DeleteFunc(g.state.Bullets, func(b *Bullet) bool { return !b.Alive })
}

func (g *Game) resolveRespawns(now time.Time) {
	for _, pid := range g.order {
		t := g.state.Tanks[pid]
		if t.Alive || t.RespawnAt == nil || now.Before(*t.RespawnAt) {
			continue
		}
		x, y, ok := g.freeCell()
		if !ok {
			// Stay dead; retried next tick.
			continue
		}
		t.X, t.Y = x, y
		t.Alive = true
		t.RespawnAt = nil
		t.InvulnerableUntil = now.Add(g.cfg.RespawnInvuln)
		t.LastMoveAt = now
		t.LastShotAt = now
	}
}

func (g *Game) move(t *Tank, in *input, now time.Time) {
	d, ok := pickDir(in.move)
	if !ok || now.Sub(t.LastMoveAt) < g.cfg.MoveCooldown {
		return
	}
	t.Dir = d
	t.LastMoveAt = now

	nx, ny := step(t.X, t.Y, d)
	if !g.inBounds(nx, ny) || g.tile(nx, ny).IsWall() || g.tankAt(nx, ny, t.PlayerID) != nil {
		return
	}
	t.X, t.Y = nx, ny
}

func (g *Game) shoot(t *Tank, in *input, now time.Time) {
	if !in.shoot || now.Sub(t.LastShotAt) < g.cfg.ShotCooldown {
		return
	}
	if g.liveBullets(t.PlayerID) >= g.cfg.MaxBulletsPerPlayer {
		return
	}
	bx, by := step(t.X, t.Y, t.Dir)
	if !g.inBounds(bx, by) || g.tile(bx, by).IsWall() {
		return
	}

	g.idSeq++
	b := &Bullet{
		ID:      fmt.Sprintf("b%d", g.idSeq),
		OwnerID: t.PlayerID,
		X:       bx,
		Y:       by,
		Dir:     t.Dir,
		Alive:   true,
	}
	t.LastShotAt = now
	g.state.Bullets = append(g.state.Bullets, b)

	// point blank
	g.hitTank(b, now)
}

// advance moves b up to BulletSpeedTilesPerTick tiles, stopping at the first
// sub-step that kills it.
func (g *Game) advance(b *Bullet, now time.Time) {
	for i := 0; i < g.cfg.BulletSpeedTilesPerTick; i++ {
		nx, ny := step(b.X, b.Y, b.Dir)
		if !g.inBounds(nx, ny) {
			b.Alive = false
			return
		}
		b.X, b.Y = nx, ny

		switch g.tile(nx, ny) {
		case TileBrick:
			g.setTile(nx, ny, TileEmpty)
			b.Alive = false
			return
		case TileMetal:
			b.Alive = false
			return
		}

		if g.hitTank(b, now) {
			return
		}
	}
}

// hitTank kills a vulnerable enemy tank on the bullet's cell.
func (g *Game) hitTank(b *Bullet, now time.Time) bool {
	victim := g.tankAt(b.X, b.Y, b.OwnerID)
	if victim == nil || now.Before(victim.InvulnerableUntil) {
		return false
	}
	victim.Alive = false
	respawnAt := now.Add(g.cfg.RespawnDelay)
	victim.RespawnAt = &respawnAt
	if owner := g.state.Tanks[b.OwnerID]; owner != nil {
		owner.Kills++
	}
	b.Alive = false
	return true
}
