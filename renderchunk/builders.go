package renderchunk

import (
	"tundra/world"
)

// quadCorners lists the six vertices of a quad as two triangles, by corner:
// 0 top left, 1 top right, 2 bottom left, 3 bottom right.
var quadCorners = [6]int{0, 1, 2, 2, 1, 3}

var cornerUV = [4][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

// appendQuad emits an axis aligned quad followed by attrs on every vertex.
func appendQuad(dst []float32, r world.Rect, attrs ...float32) []float32 {
	pos := [4][2]float32{
		{float32(r.MinX), float32(r.MinY)},
		{float32(r.MaxX), float32(r.MinY)},
		{float32(r.MinX), float32(r.MaxY)},
		{float32(r.MaxX), float32(r.MaxY)},
	}
	return appendCorners(dst, pos, attrs)
}

func appendCorners(dst []float32, pos [4][2]float32, attrs []float32) []float32 {
	for _, c := range quadCorners {
		dst = append(dst, pos[c][0], pos[c][1], cornerUV[c][0], cornerUV[c][1])
		dst = append(dst, attrs...)
	}
	return dst
}

// BuildSolidTiles emits one quad per non-water tile. The texture layer is
// the tile type. Water is drawn by the river feature.
func BuildSolidTiles(ctx *BuildContext, dst []float32) ([]float32, error) {
	r := ctx.Rect
	for y := r.MinY; y < r.MaxY; y++ {
		for x := r.MinX; x < r.MaxX; x++ {
			t, ok := ctx.Board.TileAt(x, y)
			if !ok || t.Type == world.Water {
				continue
			}
			dst = appendQuad(dst, t.PixelBounds(), float32(t.Type), t.Temperature, t.Humidity)
		}
	}
	return dst, nil
}

// BuildRivers emits one quad per water tile carrying its flow phase and
// direction.
func BuildRivers(ctx *BuildContext, dst []float32) ([]float32, error) {
	r := ctx.Rect
	for y := r.MinY; y < r.MaxY; y++ {
		for x := r.MinX; x < r.MaxX; x++ {
			t, ok := ctx.Board.TileAt(x, y)
			if !ok || t.Type != world.Water {
				continue
			}
			dst = appendQuad(dst, t.PixelBounds(), t.FlowOffset, t.FlowDirection)
		}
	}
	return dst, nil
}

// neighbourOffsets in mask bit order, clockwise from north.
var neighbourOffsets = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

func isWall(b *world.Board, x, y int) bool {
	t, ok := b.TileAt(x, y)
	return ok && t.IsWall
}

// BuildAmbientOcclusion emits a shadow quad for every open tile that touches
// a wall. The mask has one bit per neighbouring wall, clockwise from north.
func BuildAmbientOcclusion(ctx *BuildContext, dst []float32) ([]float32, error) {
	r := ctx.Rect
	for y := r.MinY; y < r.MaxY; y++ {
		for x := r.MinX; x < r.MaxX; x++ {
			if isWall(ctx.Board, x, y) {
				continue
			}
			var mask int
			for bit, off := range neighbourOffsets {
				if isWall(ctx.Board, x+off[0], y+off[1]) {
					mask |= 1 << bit
				}
			}
			if mask == 0 {
				continue
			}
			dst = appendQuad(dst, world.TilePixelRect(x, y), float32(mask))
		}
	}
	return dst, nil
}

// WallBorderWidth is the thickness of a wall border strip in world pixels.
const WallBorderWidth = world.TileSize / 8

// Wall border sides.
const (
	SideTop = iota
	SideRight
	SideBottom
	SideLeft
)

// BuildWallBorders emits a strip along every wall edge that faces open
// ground.
func BuildWallBorders(ctx *BuildContext, dst []float32) ([]float32, error) {
	r := ctx.Rect
	const w = WallBorderWidth
	for y := r.MinY; y < r.MaxY; y++ {
		for x := r.MinX; x < r.MaxX; x++ {
			if !isWall(ctx.Board, x, y) {
				continue
			}
			px := world.TilePixelRect(x, y)
			if _, ok := ctx.Board.TileAt(x, y-1); ok && !isWall(ctx.Board, x, y-1) {
				dst = appendQuad(dst, world.Rect{MinX: px.MinX, MinY: px.MinY, MaxX: px.MaxX, MaxY: px.MinY + w}, SideTop)
			}
			if _, ok := ctx.Board.TileAt(x+1, y); ok && !isWall(ctx.Board, x+1, y) {
				dst = appendQuad(dst, world.Rect{MinX: px.MaxX - w, MinY: px.MinY, MaxX: px.MaxX, MaxY: px.MaxY}, SideRight)
			}
			if _, ok := ctx.Board.TileAt(x, y+1); ok && !isWall(ctx.Board, x, y+1) {
				dst = appendQuad(dst, world.Rect{MinX: px.MinX, MinY: px.MaxY - w, MaxX: px.MaxX, MaxY: px.MaxY}, SideBottom)
			}
			if _, ok := ctx.Board.TileAt(x-1, y); ok && !isWall(ctx.Board, x-1, y) {
				dst = appendQuad(dst, world.Rect{MinX: px.MinX, MinY: px.MinY, MaxX: px.MinX + w, MaxY: px.MaxY}, SideLeft)
			}
		}
	}
	return dst, nil
}

// BuildDecorations emits a rotated quad for every ground decoration, water
// rock and stepping stone whose position lies in the chunk, in that order.
// Decorations whose texture is not in the atlas are skipped.
func BuildDecorations(ctx *BuildContext, dst []float32) ([]float32, error) {
	for _, kind := range []world.DecorationKind{world.GroundDecoration, world.WaterRock, world.SteppingStone} {
		for _, d := range ctx.Board.DecorationsIn(kind, ctx.Rect) {
			slot, ok := ctx.Slot(d.Source)
			if !ok {
				if err := ctx.Missing(d.Source); err != nil {
					return dst, err
				}
				continue
			}
			dst = appendCorners(dst, decorationCorners(d), []float32{float32(slot)})
		}
	}
	return dst, nil
}

func decorationCorners(d world.Decoration) [4][2]float32 {
	h := d.Size / 2
	local := [4]world.Point{{X: -h, Y: -h}, {X: h, Y: -h}, {X: -h, Y: h}, {X: h, Y: h}}
	var out [4][2]float32
	for i, p := range local {
		w := d.Position.Add(p.Rotate(d.Rotation))
		out[i] = [2]float32{float32(w.X), float32(w.Y)}
	}
	return out
}
