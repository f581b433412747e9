package renderchunk

import "tundra/world"

// RenderChunkSize is the edge length of a render chunk in tiles.
const RenderChunkSize = 8

// RenderChunkPixels is the edge length of a render chunk in world pixels.
const RenderChunkPixels = RenderChunkSize * world.TileSize

// Layout is the render chunk coordinate scheme for one world. Coordinates
// run over [-EdgeChunks, WorldChunks+EdgeChunks) on both axes so the edge
// generation ring is covered; storage is a flat zero based slice.
type Layout struct {
	WorldSize    int
	EdgeDistance int
	WorldChunks  int
	EdgeChunks   int
	Width        int
}

func NewLayout(worldSize, edgeDistance int) Layout {
	wc := ceilDiv(worldSize, RenderChunkSize)
	ec := ceilDiv(edgeDistance, RenderChunkSize)
	return Layout{
		WorldSize:    worldSize,
		EdgeDistance: edgeDistance,
		WorldChunks:  wc,
		EdgeChunks:   ec,
		Width:        wc + 2*ec,
	}
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Len is the number of render chunk slots.
func (l Layout) Len() int { return l.Width * l.Width }

// Min is the lowest render chunk coordinate on either axis.
func (l Layout) Min() int { return -l.EdgeChunks }

// Max is the highest render chunk coordinate on either axis, inclusive.
func (l Layout) Max() int { return l.WorldChunks + l.EdgeChunks - 1 }

func (l Layout) InRange(x, y int) bool {
	return x >= l.Min() && y >= l.Min() && x <= l.Max() && y <= l.Max()
}

// Index maps render chunk coordinates to a slot, or -1 when out of range.
// Every lookup in this package goes through it.
func (l Layout) Index(x, y int) int {
	if !l.InRange(x, y) {
		return -1
	}
	return (y+l.EdgeChunks)*l.Width + (x + l.EdgeChunks)
}

// Coords is the inverse of Index.
func (l Layout) Coords(i int) (int, int) {
	return i%l.Width - l.EdgeChunks, i/l.Width - l.EdgeChunks
}

// ChunkOfTile returns the render chunk containing tile (tx, ty).
func (l Layout) ChunkOfTile(tx, ty int) (int, int) {
	return world.FloorDiv(tx, RenderChunkSize), world.FloorDiv(ty, RenderChunkSize)
}

// Storage is the range of tiles the board stores.
func (l Layout) Storage() world.TileRect {
	return world.TileRect{
		MinX: -l.EdgeDistance,
		MinY: -l.EdgeDistance,
		MaxX: l.WorldSize + l.EdgeDistance,
		MaxY: l.WorldSize + l.EdgeDistance,
	}
}

// TileRect returns the tiles inside render chunk (x, y), clipped to the
// stored tile range. It can be empty for ring chunks that reach past the
// edge distance.
func (l Layout) TileRect(x, y int) world.TileRect {
	r := world.TileRect{
		MinX: x * RenderChunkSize,
		MinY: y * RenderChunkSize,
		MaxX: (x + 1) * RenderChunkSize,
		MaxY: (y + 1) * RenderChunkSize,
	}
	return r.Intersect(l.Storage())
}

// PixelBounds is the unclipped world rectangle of render chunk (x, y).
func (l Layout) PixelBounds(x, y int) world.Rect {
	return world.Rect{
		MinX: float64(x * RenderChunkPixels),
		MinY: float64(y * RenderChunkPixels),
		MaxX: float64((x + 1) * RenderChunkPixels),
		MaxY: float64((y + 1) * RenderChunkPixels),
	}
}
