package main

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"tundra/packet"
	"tundra/world"
)

const (
	hitParticles        = 8
	hitParticleLifetime = 24
)

// applyGameData applies one tick of authoritative state to the scene: entity
// snapshots first, then removals, hits and tile changes.
func (c *client) applyGameData(g *packet.GameData) error {
	s := c.scene
	if s == nil {
		return errors.New("apply: no world loaded")
	}
	b := s.board
	s.lastTick = g.Tick
	s.dayTime = g.DayTime

	for _, st := range g.Entities {
		e, ok := b.Entity(st.ID)
		if !ok || e.Type != st.Type {
			e = newEntityFromDef(st.ID, st.Type, st.Position)
			e.Rotation = st.Rotation
			e.Velocity = st.Velocity
			b.AddEntity(e)
		} else {
			e.Position = st.Position
			e.Rotation = st.Rotation
			e.Velocity = st.Velocity
			b.UpdateEntityChunks(e)
		}
		if st.ID == s.playerID && c.cam.Tracked() != e {
			c.cam.Track(e)
		}
	}

	for _, id := range g.Removed {
		if t := c.cam.Tracked(); t != nil && t.ID == id {
			c.cam.SetPosition(t.Position)
			c.cam.Track(nil)
		}
		b.RemoveEntity(id)
	}

	for _, id := range g.Hits {
		e, ok := b.Entity(id)
		if !ok {
			logDebug("hit on unknown entity %d at tick %d", id, g.Tick)
			continue
		}
		e.RegisterHit()
		c.spawnHitParticles(b, e)
	}

	var errs []error
	for _, u := range g.Tiles {
		if err := b.UpdateTile(u.X, u.Y, u.Type, u.IsWall); err != nil {
			errs = append(errs, fmt.Errorf("tile update (%d,%d): %w", u.X, u.Y, err))
		}
	}
	errs = append(errs, s.takeTileErrors())
	return errors.Join(errs...)
}

var hitParticleColor = color.RGBA{0xd8, 0x30, 0x30, 0xff}

// spawnHitParticles bursts a ring of particles out of the entity.
func (c *client) spawnHitParticles(b *world.Board, e *world.Entity) {
	for i := 0; i < hitParticles; i++ {
		angle := 2*math.Pi*float64(i)/hitParticles + c.rng.Float64()*0.6
		speed := 180 + c.rng.Float64()*120
		b.AddParticle(&world.Particle{
			Position: e.Position,
			Velocity: world.Point{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed},
			Drag:     0.12,
			Size:     6 + c.rng.Float64()*4,
			Color:    hitParticleColor,
			Lifetime: hitParticleLifetime,
		})
	}
}
