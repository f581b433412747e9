package main

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"tundra/renderchunk"
	"tundra/world"
)

var (
	chunkBorderColor       = color.RGBA{0xff, 0xff, 0x00, 0x90}
	renderChunkBorderColor = color.RGBA{0x00, 0xe0, 0xff, 0x90}
	hitboxColor            = color.RGBA{0xff, 0x40, 0x40, 0xd0}
	forcefieldColor        = color.RGBA{0x50, 0xb0, 0xff, 0xff}
)

// drawWorldBorder shades everything past the playable world while the view
// reaches beyond it.
func (c *client) drawWorldBorder(screen *ebiten.Image, s *scene) {
	if !c.cam.ViewExceedsWorld(s.board.ChunksPerSide()) {
		return
	}
	c.tris.flush()
	size := float64(s.board.Size() * world.TileSize)
	x0, y0 := c.cam.WorldToPixel(world.Point{})
	x1, y1 := c.cam.WorldToPixel(world.Point{X: size, Y: size})
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())

	t := float64(s.board.Ticks()) / s.tps
	pulse := 0.22 + 0.08*math.Sin(t*3)
	fill := color.RGBA{
		R: uint8(float64(forcefieldColor.R) * pulse),
		G: uint8(float64(forcefieldColor.G) * pulse),
		B: uint8(float64(forcefieldColor.B) * pulse),
		A: uint8(255 * pulse),
	}
	rects := [][4]float64{
		{0, 0, w, y0},
		{0, y1, w, h - y1},
		{0, y0, x0, y1 - y0},
		{x1, y0, w - x1, y1 - y0},
	}
	for _, r := range rects {
		if r[2] <= 0 || r[3] <= 0 {
			continue
		}
		vector.DrawFilledRect(screen, float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3]), fill, false)
	}
	vector.StrokeRect(screen, float32(x0), float32(y0), float32(x1-x0), float32(y1-y0), 3, forcefieldColor, true)
}

// drawGrid outlines every cell of the inclusive range [minX, maxX] x
// [minY, maxY] of cellPixels sized cells.
func (c *client) drawGrid(screen *ebiten.Image, minX, maxX, minY, maxY int, cellPixels float64, clr color.Color) {
	if minX > maxX || minY > maxY {
		return
	}
	c.tris.flush()
	top := c.cam.WorldToPixelY(float64(minY) * cellPixels)
	bottom := c.cam.WorldToPixelY(float64(maxY+1) * cellPixels)
	left := c.cam.WorldToPixelX(float64(minX) * cellPixels)
	right := c.cam.WorldToPixelX(float64(maxX+1) * cellPixels)
	for x := minX; x <= maxX+1; x++ {
		px := float32(c.cam.WorldToPixelX(float64(x) * cellPixels))
		vector.StrokeLine(screen, px, float32(top), px, float32(bottom), 1, clr, false)
	}
	for y := minY; y <= maxY+1; y++ {
		py := float32(c.cam.WorldToPixelY(float64(y) * cellPixels))
		vector.StrokeLine(screen, float32(left), py, float32(right), py, 1, clr, false)
	}
}

func (c *client) drawChunkBorders(screen *ebiten.Image) {
	b := c.cam.VisibleChunkBounds()
	c.drawGrid(screen, b.MinX, b.MaxX, b.MinY, b.MaxY, world.ChunkPixels, chunkBorderColor)
}

func (c *client) drawRenderChunkBorders(screen *ebiten.Image) {
	b := c.cam.VisibleRenderChunkBounds()
	c.drawGrid(screen, b.MinX, b.MaxX, b.MinY, b.MaxY, renderchunk.RenderChunkPixels, renderChunkBorderColor)
}

// drawHitboxes outlines the collision shapes of the entities in view at
// their interpolated positions.
func (c *client) drawHitboxes(screen *ebiten.Image, s *scene) {
	c.tris.flush()
	vis := c.cam.VisibleChunkBounds()
	zoom := c.cam.Zoom()
	for _, e := range s.board.EntitiesInChunks(vis.MinX, vis.MaxX, vis.MinY, vis.MaxY) {
		for _, hb := range e.Hitboxes {
			switch h := hb.(type) {
			case world.CircularHitbox:
				cx, cy := c.cam.WorldToPixel(e.RenderPosition.Add(h.Offset.Rotate(e.Rotation)))
				vector.StrokeCircle(screen, float32(cx), float32(cy), float32(h.Radius*zoom), 1.5, hitboxColor, true)
			case world.RectangularHitbox:
				center := e.RenderPosition.Add(h.Offset.Rotate(e.Rotation))
				hw, hh := h.Width/2, h.Height/2
				local := [4]world.Point{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}}
				var px [4][2]float32
				for i, p := range local {
					x, y := c.cam.WorldToPixel(center.Add(p.Rotate(e.Rotation + h.Rotation)))
					px[i] = [2]float32{float32(x), float32(y)}
				}
				for i := range px {
					a, b := px[i], px[(i+1)%4]
					vector.StrokeLine(screen, a[0], a[1], b[0], b[1], 1.5, hitboxColor, true)
				}
			default:
				panic("unknown hitbox type")
			}
		}
	}
}
