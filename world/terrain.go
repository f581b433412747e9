package world

import "fmt"

// Terrain is what the terrain generator hands over at world load: a tile
// grid covering the playable area plus the edge generation ring, and the
// decorations placed on it.
type Terrain struct {
	Size         int
	EdgeDistance int
	// Tiles is row-major over [-EdgeDistance, Size+EdgeDistance) in both axes.
	Tiles          []Tile
	Decorations    []Decoration
	WaterRocks     []Decoration
	SteppingStones []Decoration
}

// NewTerrain returns a grass-filled terrain with tile coordinates set.
func NewTerrain(size, edge int) *Terrain {
	span := size + 2*edge
	t := &Terrain{
		Size:         size,
		EdgeDistance: edge,
		Tiles:        make([]Tile, span*span),
	}
	for y := -edge; y < size+edge; y++ {
		for x := -edge; x < size+edge; x++ {
			i, _ := t.index(x, y)
			t.Tiles[i] = Tile{X: x, Y: y, Type: Grass, Temperature: 0.5, Humidity: 0.5}
		}
	}
	return t
}

func (t *Terrain) span() int { return t.Size + 2*t.EdgeDistance }

func (t *Terrain) index(x, y int) (int, bool) {
	e := t.EdgeDistance
	if x < -e || y < -e || x >= t.Size+e || y >= t.Size+e {
		return 0, false
	}
	return (y+e)*t.span() + (x + e), true
}

// At returns the tile at (x, y).
func (t *Terrain) At(x, y int) (Tile, bool) {
	i, ok := t.index(x, y)
	if !ok {
		return Tile{}, false
	}
	return t.Tiles[i], true
}

// Set stores tile at its own coordinates. It reports false when the tile
// lies outside the terrain.
func (t *Terrain) Set(tile Tile) bool {
	i, ok := t.index(tile.X, tile.Y)
	if !ok {
		return false
	}
	t.Tiles[i] = tile
	return true
}

// FillEdges copies the nearest playable tile into every edge ring tile.
// Edge tiles are never walls.
func (t *Terrain) FillEdges() {
	if t.Size <= 0 {
		return
	}
	e := t.EdgeDistance
	for y := -e; y < t.Size+e; y++ {
		for x := -e; x < t.Size+e; x++ {
			if x >= 0 && y >= 0 && x < t.Size && y < t.Size {
				continue
			}
			src, _ := t.At(clampInt(x, 0, t.Size-1), clampInt(y, 0, t.Size-1))
			src.X, src.Y = x, y
			src.IsWall = false
			t.Set(src)
		}
	}
}

// Validate checks the tile grid is complete and every tile sits where its
// coordinates say.
func (t *Terrain) Validate() error {
	if t.Size <= 0 || t.EdgeDistance < 0 {
		return fmt.Errorf("terrain: bad dimensions size=%d edge=%d", t.Size, t.EdgeDistance)
	}
	if want := t.span() * t.span(); len(t.Tiles) != want {
		return fmt.Errorf("terrain: have %d tiles, want %d", len(t.Tiles), want)
	}
	e := t.EdgeDistance
	for i, tile := range t.Tiles {
		x, y := i%t.span()-e, i/t.span()-e
		if tile.X != x || tile.Y != y {
			return fmt.Errorf("terrain: tile %d has coordinates (%d,%d), want (%d,%d)", i, tile.X, tile.Y, x, y)
		}
		if !tile.Type.Valid() {
			return fmt.Errorf("terrain: tile (%d,%d) has invalid type %d", x, y, tile.Type)
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
