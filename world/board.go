package world

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrOutOfBounds = errors.New("world: tile out of bounds")
	ErrBadTileType = errors.New("world: invalid tile type")
)

// TileChangeFunc is called after a tile has been mutated in place.
type TileChangeFunc func(x, y int, old, cur Tile)

// Chunk is a coarse spatial bucket. It references, but does not own, the
// entities, particles and decorations currently inside it.
type Chunk struct {
	X, Y int

	entities       map[uint32]*Entity
	particles      map[*Particle]struct{}
	decorations    []*Decoration
	waterRocks     []*Decoration
	steppingStones []*Decoration
}

// Entities returns the chunk's entities ordered by ID.
func (c *Chunk) Entities() []*Entity {
	out := make([]*Entity, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Entity) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (c *Chunk) NumEntities() int              { return len(c.entities) }
func (c *Chunk) NumParticles() int             { return len(c.particles) }
func (c *Chunk) Decorations() []*Decoration    { return c.decorations }
func (c *Chunk) WaterRocks() []*Decoration     { return c.waterRocks }
func (c *Chunk) SteppingStones() []*Decoration { return c.steppingStones }

// Board is the world context: the tile grid, the chunk index and the entity
// table. Tiles are mutated only by UpdateTile/SetTileType, which the client
// calls while applying server packets.
type Board struct {
	size int
	edge int
	span int

	tiles []Tile

	chunksPerSide int
	chunks        []Chunk

	entities  map[uint32]*Entity
	particles []*Particle

	decorations    []Decoration
	waterRocks     []Decoration
	steppingStones []Decoration
	// decoration indices bucketed by chunk coordinate, edge ring included
	decorationBuckets map[[2]int][]decorationRef

	listeners []TileChangeFunc
	ticks     uint64
	// tps sizes the interpolation reach of moving entities.
	tps float64
}

type decorationRef struct {
	kind DecorationKind
	idx  int
}

// NewBoard takes ownership of the terrain's tiles and decorations.
func NewBoard(t *Terrain) (*Board, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	b := &Board{
		size:              t.Size,
		edge:              t.EdgeDistance,
		span:              t.span(),
		tiles:             t.Tiles,
		chunksPerSide:     (t.Size + ChunkSize - 1) / ChunkSize,
		entities:          make(map[uint32]*Entity),
		decorations:       t.Decorations,
		waterRocks:        t.WaterRocks,
		steppingStones:    t.SteppingStones,
		decorationBuckets: make(map[[2]int][]decorationRef),
	}
	b.chunks = make([]Chunk, b.chunksPerSide*b.chunksPerSide)
	for i := range b.chunks {
		c := &b.chunks[i]
		c.X, c.Y = i%b.chunksPerSide, i/b.chunksPerSide
		c.entities = make(map[uint32]*Entity)
		c.particles = make(map[*Particle]struct{})
	}
	b.indexDecorations(GroundDecoration, b.decorations)
	b.indexDecorations(WaterRock, b.waterRocks)
	b.indexDecorations(SteppingStone, b.steppingStones)
	return b, nil
}

func (b *Board) indexDecorations(kind DecorationKind, list []Decoration) {
	for i := range list {
		d := &list[i]
		tx, ty := TileOf(d.Position)
		key := [2]int{FloorDiv(tx, ChunkSize), FloorDiv(ty, ChunkSize)}
		b.decorationBuckets[key] = append(b.decorationBuckets[key], decorationRef{kind, i})
		if c := b.ChunkAt(key[0], key[1]); c != nil {
			switch kind {
			case GroundDecoration:
				c.decorations = append(c.decorations, d)
			case WaterRock:
				c.waterRocks = append(c.waterRocks, d)
			case SteppingStone:
				c.steppingStones = append(c.steppingStones, d)
			}
		}
	}
}

// Size is the playable world edge length in tiles.
func (b *Board) Size() int { return b.size }

// EdgeDistance is the width of the edge generation ring in tiles.
func (b *Board) EdgeDistance() int { return b.edge }

// ChunksPerSide is the number of simulation chunks along one world edge.
func (b *Board) ChunksPerSide() int { return b.chunksPerSide }

// Ticks is the number of local simulation ticks run so far.
func (b *Board) Ticks() uint64 { return b.ticks }

// TileBounds is the range of stored tiles, edge ring included.
func (b *Board) TileBounds() TileRect {
	return TileRect{-b.edge, -b.edge, b.size + b.edge, b.size + b.edge}
}

// InWorld reports whether (x, y) is a playable tile.
func (b *Board) InWorld(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.size && y < b.size
}

func (b *Board) tileIndex(x, y int) (int, bool) {
	if x < -b.edge || y < -b.edge || x >= b.size+b.edge || y >= b.size+b.edge {
		return 0, false
	}
	return (y+b.edge)*b.span + (x + b.edge), true
}

// TileAt returns a copy of the tile at (x, y).
func (b *Board) TileAt(x, y int) (Tile, bool) {
	i, ok := b.tileIndex(x, y)
	if !ok {
		return Tile{}, false
	}
	return b.tiles[i], true
}

// OnTileChange registers fn to run after every tile mutation.
func (b *Board) OnTileChange(fn TileChangeFunc) {
	b.listeners = append(b.listeners, fn)
}

// SetTileType changes a tile's type and keeps its wall flag.
func (b *Board) SetTileType(x, y int, typ TileType) error {
	t, ok := b.TileAt(x, y)
	if !ok {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	return b.UpdateTile(x, y, typ, t.IsWall)
}

// UpdateTile mutates the tile in place and notifies listeners. Setting a
// tile to the values it already has is a no-op.
func (b *Board) UpdateTile(x, y int, typ TileType, isWall bool) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: %d", ErrBadTileType, typ)
	}
	i, ok := b.tileIndex(x, y)
	if !ok {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	old := b.tiles[i]
	if old.Type == typ && old.IsWall == isWall {
		return nil
	}
	b.tiles[i].Type = typ
	b.tiles[i].IsWall = isWall
	cur := b.tiles[i]
	for _, fn := range b.listeners {
		fn(x, y, old, cur)
	}
	return nil
}

// ChunkAt returns the chunk at chunk coordinates, or nil outside the world.
func (b *Board) ChunkAt(cx, cy int) *Chunk {
	if cx < 0 || cy < 0 || cx >= b.chunksPerSide || cy >= b.chunksPerSide {
		return nil
	}
	return &b.chunks[cy*b.chunksPerSide+cx]
}

// ChunkOfPoint returns the chunk containing p, clamped to the world.
func (b *Board) ChunkOfPoint(p Point) *Chunk {
	tx, ty := TileOf(p)
	cx := clampInt(FloorDiv(tx, ChunkSize), 0, b.chunksPerSide-1)
	cy := clampInt(FloorDiv(ty, ChunkSize), 0, b.chunksPerSide-1)
	return b.ChunkAt(cx, cy)
}

// DecorationsIn returns the decorations of kind whose position lies in r.
func (b *Board) DecorationsIn(kind DecorationKind, r TileRect) []Decoration {
	if r.Empty() {
		return nil
	}
	var src []Decoration
	switch kind {
	case GroundDecoration:
		src = b.decorations
	case WaterRock:
		src = b.waterRocks
	case SteppingStone:
		src = b.steppingStones
	default:
		panic(fmt.Sprintf("world: unknown decoration kind %d", kind))
	}
	var out []Decoration
	for cy := FloorDiv(r.MinY, ChunkSize); cy <= FloorDiv(r.MaxY-1, ChunkSize); cy++ {
		for cx := FloorDiv(r.MinX, ChunkSize); cx <= FloorDiv(r.MaxX-1, ChunkSize); cx++ {
			for _, ref := range b.decorationBuckets[[2]int{cx, cy}] {
				if ref.kind != kind {
					continue
				}
				d := src[ref.idx]
				if tx, ty := TileOf(d.Position); r.Contains(tx, ty) {
					out = append(out, d)
				}
			}
		}
	}
	return out
}

// AddEntity inserts e and registers it in the chunks its bounds overlap.
func (b *Board) AddEntity(e *Entity) {
	if old, ok := b.entities[e.ID]; ok {
		b.unlinkEntity(old)
	}
	b.entities[e.ID] = e
	b.UpdateEntityChunks(e)
}

func (b *Board) Entity(id uint32) (*Entity, bool) {
	e, ok := b.entities[id]
	return e, ok
}

// RemoveEntity deletes the entity and drops its chunk references.
func (b *Board) RemoveEntity(id uint32) bool {
	e, ok := b.entities[id]
	if !ok {
		return false
	}
	b.unlinkEntity(e)
	delete(b.entities, id)
	return true
}

func (b *Board) unlinkEntity(e *Entity) {
	for _, c := range e.chunks {
		delete(c.entities, e.ID)
	}
	e.chunks = e.chunks[:0]
}

// NumEntities returns the size of the entity table.
func (b *Board) NumEntities() int { return len(b.entities) }

// Entities returns every entity ordered by ID.
func (b *Board) Entities() []*Entity {
	out := make([]*Entity, 0, len(b.entities))
	for _, e := range b.entities {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, c *Entity) int { return cmp.Compare(a.ID, c.ID) })
	return out
}

// SetTPS sets the tick rate used to size entity reach bounds.
func (b *Board) SetTPS(tps float64) { b.tps = tps }

// UpdateEntityChunks recomputes chunk membership from everywhere the entity
// can be drawn until the next update, render parts and interpolation
// included. Call it after every position change.
func (b *Board) UpdateEntityChunks(e *Entity) {
	r := e.ReachBounds(b.tps)
	minX, minY := b.chunkCoordOf(r.MinX, r.MinY)
	maxX, maxY := b.chunkCoordOf(r.MaxX, r.MaxY)

	kept := e.chunks[:0]
	for _, c := range e.chunks {
		if c.X >= minX && c.X <= maxX && c.Y >= minY && c.Y <= maxY {
			kept = append(kept, c)
			continue
		}
		delete(c.entities, e.ID)
	}
	e.chunks = kept
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			c := b.ChunkAt(cx, cy)
			if _, ok := c.entities[e.ID]; ok {
				continue
			}
			c.entities[e.ID] = e
			e.chunks = append(e.chunks, c)
		}
	}
}

func (b *Board) chunkCoordOf(px, py float64) (int, int) {
	tx, ty := TileOf(Point{px, py})
	return clampInt(FloorDiv(tx, ChunkSize), 0, b.chunksPerSide-1),
		clampInt(FloorDiv(ty, ChunkSize), 0, b.chunksPerSide-1)
}

// EntitiesInChunks returns the entities registered in the inclusive chunk
// range, each once, ordered by ID. An empty range (min > max) yields nil.
func (b *Board) EntitiesInChunks(minX, maxX, minY, maxY int) []*Entity {
	minX, minY = max(minX, 0), max(minY, 0)
	maxX, maxY = min(maxX, b.chunksPerSide-1), min(maxY, b.chunksPerSide-1)
	if minX > maxX || minY > maxY {
		return nil
	}
	seen := make(map[uint32]struct{})
	var out []*Entity
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			for id, e := range b.ChunkAt(cx, cy).entities {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, e)
			}
		}
	}
	slices.SortFunc(out, func(a, c *Entity) int { return cmp.Compare(a.ID, c.ID) })
	return out
}

// AddParticle starts simulating p.
func (b *Board) AddParticle(p *Particle) {
	b.particles = append(b.particles, p)
	b.rebucketParticle(p)
}

func (b *Board) Particles() []*Particle { return b.particles }

func (b *Board) rebucketParticle(p *Particle) {
	c := b.ChunkOfPoint(p.Position)
	if c == p.chunk {
		return
	}
	if p.chunk != nil {
		delete(p.chunk.particles, p)
	}
	p.chunk = c
	if c != nil {
		c.particles[p] = struct{}{}
	}
}

// Tick advances the client side simulation by exactly one tick.
func (b *Board) Tick(tps float64) {
	b.ticks++
	b.tps = tps
	for _, e := range b.entities {
		e.Tick()
	}
	kept := b.particles[:0]
	for _, p := range b.particles {
		p.tick(tps)
		if p.Expired() {
			if p.chunk != nil {
				delete(p.chunk.particles, p)
				p.chunk = nil
			}
			continue
		}
		b.rebucketParticle(p)
		kept = append(kept, p)
	}
	clear(b.particles[len(kept):])
	b.particles = kept
}

// Clear removes every entity and particle. Tiles and decorations stay.
func (b *Board) Clear() {
	for id := range b.entities {
		b.RemoveEntity(id)
	}
	for _, p := range b.particles {
		if p.chunk != nil {
			delete(p.chunk.particles, p)
		}
	}
	b.particles = nil
}
