package world

import (
	"errors"
	"math"
	"testing"
)

func newTestBoard(t *testing.T, size, edge int) *Board {
	t.Helper()
	terrain := NewTerrain(size, edge)
	b, err := NewBoard(terrain)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	return b
}

func TestTerrainFillEdgesCopiesNearestTile(t *testing.T) {
	terrain := NewTerrain(4, 2)
	terrain.Set(Tile{X: 0, Y: 0, Type: Water, IsWall: true})
	terrain.FillEdges()
	got, ok := terrain.At(-2, -1)
	if !ok {
		t.Fatalf("edge tile missing")
	}
	if got.Type != Water || got.IsWall || got.X != -2 || got.Y != -1 {
		t.Fatalf("unexpected edge tile %+v", got)
	}
	if err := terrain.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestTerrainValidateRejectsMisplacedTile(t *testing.T) {
	terrain := NewTerrain(2, 0)
	terrain.Tiles[1].X = 7
	if err := terrain.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestTileLookupByCoordinate(t *testing.T) {
	b := newTestBoard(t, 16, 4)
	if _, ok := b.TileAt(-4, -4); !ok {
		t.Fatalf("edge tile should be stored")
	}
	if _, ok := b.TileAt(-5, 0); ok {
		t.Fatalf("tile outside the edge ring should not exist")
	}
	tile, _ := b.TileAt(3, 9)
	if tile.X != 3 || tile.Y != 9 {
		t.Fatalf("tile coordinates %d,%d", tile.X, tile.Y)
	}
	r := tile.PixelBounds()
	if r.MinX != 3*TileSize || r.MaxY != 10*TileSize {
		t.Fatalf("pixel bounds %+v", r)
	}
}

func TestUpdateTileNotifiesListeners(t *testing.T) {
	b := newTestBoard(t, 8, 0)
	var calls int
	var gotOld, gotCur Tile
	b.OnTileChange(func(x, y int, old, cur Tile) {
		calls++
		gotOld, gotCur = old, cur
	})
	if err := b.SetTileType(2, 3, Water); err != nil {
		t.Fatalf("SetTileType: %v", err)
	}
	if calls != 1 || gotOld.Type != Grass || gotCur.Type != Water {
		t.Fatalf("calls=%d old=%v cur=%v", calls, gotOld.Type, gotCur.Type)
	}
	// same value again is a no-op
	if err := b.SetTileType(2, 3, Water); err != nil {
		t.Fatalf("SetTileType: %v", err)
	}
	if calls != 1 {
		t.Fatalf("no-op mutation notified listeners")
	}
	if err := b.SetTileType(99, 0, Water); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if err := b.UpdateTile(0, 0, TileType(200), false); !errors.Is(err, ErrBadTileType) {
		t.Fatalf("expected ErrBadTileType, got %v", err)
	}
}

func TestEntityChunkMembershipFollowsMovement(t *testing.T) {
	b := newTestBoard(t, 32, 0)
	e := NewEntity(1, 3, Point{100, 100})
	e.Hitboxes = []Hitbox{CircularHitbox{Radius: 20}}
	b.AddEntity(e)
	if c := b.ChunkAt(0, 0); c.NumEntities() != 1 {
		t.Fatalf("entity not registered in chunk 0,0")
	}

	// straddle the boundary between chunks 0 and 1
	e.Position = Point{ChunkPixels - 5, 100}
	b.UpdateEntityChunks(e)
	if b.ChunkAt(0, 0).NumEntities() != 1 || b.ChunkAt(1, 0).NumEntities() != 1 {
		t.Fatalf("straddling entity should be in both chunks")
	}

	e.Position = Point{3 * ChunkPixels, 2 * ChunkPixels}
	b.UpdateEntityChunks(e)
	if b.ChunkAt(0, 0).NumEntities() != 0 || b.ChunkAt(1, 0).NumEntities() != 0 {
		t.Fatalf("stale chunk references kept")
	}
	if b.ChunkAt(3, 2).NumEntities() != 1 {
		t.Fatalf("entity missing from destination chunk")
	}

	got := b.EntitiesInChunks(2, 4, 1, 3)
	if len(got) != 1 || got[0] != e {
		t.Fatalf("EntitiesInChunks = %v", got)
	}
	if got := b.EntitiesInChunks(3, 2, 0, 5); got != nil {
		t.Fatalf("empty range should yield nil, got %v", got)
	}

	if !b.RemoveEntity(1) || b.ChunkAt(3, 2).NumEntities() != 0 {
		t.Fatalf("RemoveEntity left chunk references")
	}
}

func TestEntityChunksCoverRenderPartsAndMotion(t *testing.T) {
	b := newTestBoard(t, 32, 0)

	// A small trunk hitbox under a wide crown: the crown reaches into
	// chunk 1 while the hitbox stays in chunk 2.
	tree := NewEntity(1, 3, Point{1070, 256})
	tree.Hitboxes = []Hitbox{CircularHitbox{Radius: 40}}
	tree.RenderParts = []*RenderPart{NewImagePart("crown", "tree_crown", 200, 200, 5)}
	b.AddEntity(tree)
	if got := b.EntitiesInChunks(1, 1, 0, 0); len(got) != 1 || got[0] != tree {
		t.Fatalf("crown chunk entities = %v", got)
	}

	// A fast mover is registered where interpolation will draw it.
	b.SetTPS(10)
	arrow := NewEntity(2, 5, Point{ChunkPixels - 100, 2*ChunkPixels + 100})
	arrow.Hitboxes = []Hitbox{CircularHitbox{Radius: 4}}
	arrow.Velocity = &Point{X: 2000}
	b.AddEntity(arrow)
	if b.ChunkAt(1, 2).NumEntities() != 1 {
		t.Fatalf("moving entity missing from the chunk it moves into")
	}
	arrow.Velocity = nil
	b.UpdateEntityChunks(arrow)
	if b.ChunkAt(1, 2).NumEntities() != 0 {
		t.Fatalf("stopped entity still registered ahead of itself")
	}
}

func TestInterpolateBoundaries(t *testing.T) {
	last := Point{10, 20}
	vel := &Point{60, -120}
	if p := Interpolate(last, vel, 0, 60); p != last {
		t.Fatalf("frameProgress 0 moved the entity: %+v", p)
	}
	end := Interpolate(last, vel, 1, 60)
	if math.Abs(end.X-11) > 1e-9 || math.Abs(end.Y-18) > 1e-9 {
		t.Fatalf("frameProgress 1 = %+v, want {11 18}", end)
	}
	prev := last
	for i := 1; i <= 10; i++ {
		p := Interpolate(last, vel, float64(i)/10, 60)
		if p.X < prev.X || p.Y > prev.Y {
			t.Fatalf("interpolation not monotonic at step %d: %+v after %+v", i, p, prev)
		}
		prev = p
	}
	if p := Interpolate(last, nil, 0.5, 60); p != last {
		t.Fatalf("nil velocity moved the entity")
	}
}

func TestRectangularHitboxBoundsRotate(t *testing.T) {
	h := RectangularHitbox{Width: 40, Height: 10}
	r := h.Bounds(Point{0, 0}, math.Pi/2)
	if math.Abs(r.MaxX-5) > 1e-9 || math.Abs(r.MaxY-20) > 1e-9 {
		t.Fatalf("rotated bounds %+v", r)
	}
}

func TestTickAdvancesParticlesAndHitTimers(t *testing.T) {
	b := newTestBoard(t, 16, 0)
	e := NewEntity(7, 1, Point{50, 50})
	b.AddEntity(e)
	e.RegisterHit()

	p := &Particle{Position: Point{10, 10}, Velocity: Point{60, 0}, Lifetime: 2, Size: 4}
	b.AddParticle(p)
	b.Tick(60)
	if e.TicksSinceHit != 1 {
		t.Fatalf("TicksSinceHit = %d", e.TicksSinceHit)
	}
	if p.Position.X != 11 || len(b.Particles()) != 1 {
		t.Fatalf("particle after one tick: %+v", p.Position)
	}
	b.Tick(60)
	if len(b.Particles()) != 0 || b.ChunkAt(0, 0).NumParticles() != 0 {
		t.Fatalf("expired particle kept")
	}
	if b.Ticks() != 2 {
		t.Fatalf("Ticks = %d", b.Ticks())
	}
}

func TestDecorationsInUsesTileRange(t *testing.T) {
	terrain := NewTerrain(16, 8)
	terrain.Decorations = []Decoration{
		{Position: Point{1 * TileSize, 1 * TileSize}, Size: 20, Source: "flower"},
		{Position: Point{-3 * TileSize, 2 * TileSize}, Size: 20, Source: "bush"},
	}
	terrain.WaterRocks = []Decoration{{Kind: WaterRock, Position: Point{9 * TileSize, 9 * TileSize}, Size: 30}}
	b, err := NewBoard(terrain)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	got := b.DecorationsIn(GroundDecoration, TileRect{-8, -8, 8, 8})
	if len(got) != 2 {
		t.Fatalf("got %d decorations, want 2", len(got))
	}
	if got := b.DecorationsIn(GroundDecoration, TileRect{0, 0, 8, 8}); len(got) != 1 || got[0].Source != "flower" {
		t.Fatalf("playable-only range returned %v", got)
	}
	if got := b.DecorationsIn(WaterRock, TileRect{8, 8, 16, 16}); len(got) != 1 {
		t.Fatalf("water rocks %v", got)
	}
	if n := len(b.ChunkAt(1, 1).WaterRocks()); n != 1 {
		t.Fatalf("chunk water rocks = %d", n)
	}
}
