package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"tundra/batch"
	"tundra/gameloop"
	"tundra/packet"
	"tundra/renderchunk"
	"tundra/world"
)

func newTestClient(t *testing.T, size int) (*client, *ebitenDevice) {
	t.Helper()
	dev := newEbitenDevice()
	c := newClient(context.Background(), clientConfig{
		device: dev,
		clock:  gameloop.NewManualClock(time.Unix(0, 0)),
	})
	terrain := world.NewTerrain(size, 4)
	terrain.FillEdges()
	if err := c.loadWorld(&packet.WorldLoad{PlayerID: 1, TPS: 20, Terrain: terrain}); err != nil {
		t.Fatalf("loadWorld: %v", err)
	}
	return c, dev
}

func TestLoadWorldBuildsBuffers(t *testing.T) {
	c, dev := newTestClient(t, 32)
	if c.scene == nil || c.sched == nil {
		t.Fatalf("scene or scheduler missing after load")
	}
	if c.sched.TPS() != 20 {
		t.Fatalf("tps = %d, want 20", c.sched.TPS())
	}
	if c.sched.State() != gameloop.Running || !c.sched.Synced() {
		t.Fatalf("scheduler not running and synced: %v", c.sched.State())
	}
	if dev.count() == 0 {
		t.Fatalf("no buffers created")
	}
	if got, want := dev.count(), c.scene.registry.Stats().Buffers; got != want {
		t.Fatalf("device holds %d buffers, registry reports %d", got, want)
	}
	mid := float64(32*world.TileSize) / 2
	if c.cam.Position.X != mid || c.cam.Position.Y != mid {
		t.Fatalf("camera at %v, want world centre", c.cam.Position)
	}

	// Loading again releases the previous world's buffers.
	before := dev.count()
	terrain := world.NewTerrain(32, 4)
	terrain.FillEdges()
	if err := c.loadWorld(&packet.WorldLoad{PlayerID: 1, TPS: 20, Terrain: terrain}); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if dev.count() != before {
		t.Fatalf("reload leaked buffers: %d, want %d", dev.count(), before)
	}
}

func TestApplyGameDataEntities(t *testing.T) {
	c, _ := newTestClient(t, 32)
	s := c.scene

	err := c.applyGameData(&packet.GameData{
		Tick:    1,
		DayTime: 0.5,
		Entities: []packet.EntityState{
			{ID: 1, Type: entityPlayer, Position: world.Point{X: 100, Y: 100}},
			{ID: 2, Type: entityCow, Position: world.Point{X: 300, Y: 300}, Velocity: &world.Point{X: 1}},
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.board.NumEntities() != 2 {
		t.Fatalf("entities = %d, want 2", s.board.NumEntities())
	}
	if tr := c.cam.Tracked(); tr == nil || tr.ID != 1 {
		t.Fatalf("camera not tracking the player")
	}
	if s.lastTick != 1 || s.dayTime != 0.5 {
		t.Fatalf("tick %d day %v not recorded", s.lastTick, s.dayTime)
	}

	// Type change recreates the entity.
	if err := c.applyGameData(&packet.GameData{
		Tick:     2,
		Entities: []packet.EntityState{{ID: 2, Type: entitySlime, Position: world.Point{X: 300, Y: 300}}},
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if e, _ := s.board.Entity(2); e.Type != entitySlime {
		t.Fatalf("entity type = %v, want slime", e.Type)
	}

	if err := c.applyGameData(&packet.GameData{Tick: 3, Hits: []uint32{2, 99}}); err != nil {
		t.Fatalf("apply hits: %v", err)
	}
	if e, _ := s.board.Entity(2); e.TicksSinceHit != 0 {
		t.Fatalf("hit not registered")
	}
	if n := len(s.board.Particles()); n != hitParticles {
		t.Fatalf("particles = %d, want %d", n, hitParticles)
	}

	if err := c.applyGameData(&packet.GameData{Tick: 4, Removed: []uint32{1}}); err != nil {
		t.Fatalf("apply removal: %v", err)
	}
	if c.cam.Tracked() != nil {
		t.Fatalf("camera still tracking removed player")
	}
	if c.cam.Position.X != 100 || c.cam.Position.Y != 100 {
		t.Fatalf("camera at %v, want last player position", c.cam.Position)
	}
}

func TestApplyGameDataTiles(t *testing.T) {
	c, _ := newTestClient(t, 32)
	s := c.scene
	before := s.registry.Stats().Rebuilds

	err := c.applyGameData(&packet.GameData{
		Tick:  1,
		Tiles: []packet.TileUpdate{{X: 5, Y: 5, Type: world.Rock, IsWall: true}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	tile, _ := s.board.TileAt(5, 5)
	if tile.Type != world.Rock || !tile.IsWall {
		t.Fatalf("tile = %+v", tile)
	}
	if s.registry.Stats().Rebuilds == before {
		t.Fatalf("tile change did not rebuild any render chunk")
	}

	err = c.applyGameData(&packet.GameData{
		Tick:  2,
		Tiles: []packet.TileUpdate{{X: 500, Y: 5, Type: world.Rock}},
	})
	if !errors.Is(err, world.ErrOutOfBounds) {
		t.Fatalf("err = %v, want ErrOutOfBounds", err)
	}
}

func TestReceiveOrdering(t *testing.T) {
	c := newClient(context.Background(), clientConfig{
		device: newEbitenDevice(),
		clock:  gameloop.NewManualClock(time.Unix(0, 0)),
	})

	// Nothing to attach game data to yet.
	c.receive(&packet.GameData{Tick: 1})
	if len(c.pending) != 0 {
		t.Fatalf("game data before a world was kept")
	}

	terrain := world.NewTerrain(16, 4)
	terrain.FillEdges()
	c.receive(&packet.WorldLoad{PlayerID: 1, TPS: 20, Terrain: terrain})
	c.receive(&packet.GameData{Tick: 2})
	c.receive(&packet.GameData{Tick: 3})
	if len(c.pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(c.pending))
	}

	if err := c.loadPendingWorld(); err != nil {
		t.Fatalf("loadPendingWorld: %v", err)
	}
	if c.pendingWorld != nil || c.pending != nil {
		t.Fatalf("pending state not cleared")
	}
	if q := c.sched.Stats().Queued; q != 2 {
		t.Fatalf("queued = %d, want 2", q)
	}
	if _, ok := c.scene.registry.Get(0, 0, renderchunk.SolidTiles); !ok {
		t.Fatalf("tile buffer missing for render chunk 0,0")
	}
}

func TestWideRenderPartsReachVisibleChunks(t *testing.T) {
	c, _ := newTestClient(t, 32)
	s := c.scene
	if err := c.applyGameData(&packet.GameData{
		Tick:     1,
		Entities: []packet.EntityState{{ID: 5, Type: entityTree, Position: world.Point{X: 1070, Y: 256}}},
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// The view ends short of the trunk but covers part of the crown.
	c.cam.SetHalfSize(200, 150)
	c.cam.SetPosition(world.Point{X: 800, Y: 256})
	c.cam.UpdateVisibleChunkBounds(s.board.ChunksPerSide())
	vis := c.cam.VisibleChunkBounds()
	tree, _ := s.board.Entity(5)
	if !batch.Visible(tree, c.cam.ViewRect()) {
		t.Fatalf("crown should overlap the view")
	}
	got := s.board.EntitiesInChunks(vis.MinX, vis.MaxX, vis.MinY, vis.MaxY)
	if len(got) != 1 || got[0] != tree {
		t.Fatalf("visible chunks %+v hold %v, want the tree", vis, got)
	}
}
