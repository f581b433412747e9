// Package camera converts between world, pixel and clip space and caches
// the chunk ranges visible in the current frame.
package camera

import (
	"math"

	"tundra/renderchunk"
	"tundra/world"
)

const (
	MinZoom     = 0.1
	MaxZoom     = 4.0
	DefaultZoom = 1.0
)

// Bounds is an inclusive range of chunk coordinates. Min greater than Max on
// either axis means nothing is visible.
type Bounds struct {
	MinX, MaxX, MinY, MaxY int
}

func (b Bounds) Empty() bool { return b.MinX > b.MaxX || b.MinY > b.MaxY }

func (b Bounds) Contains(x, y int) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Camera is the view context: a world position, a zoom factor and the
// bounds derived from them. Position is interpolated every frame from the
// tracked entity.
type Camera struct {
	Position world.Point

	zoom         float64
	halfW, halfH float64
	tracked      *world.Entity

	visibleChunks        Bounds
	absoluteChunks       Bounds
	visibleRenderChunks  Bounds
	absoluteRenderChunks Bounds
}

// New returns a camera at the origin for a window of 2*halfW by 2*halfH
// pixels.
func New(halfW, halfH float64) *Camera {
	c := &Camera{zoom: DefaultZoom}
	c.SetHalfSize(halfW, halfH)
	return c
}

// SetHalfSize updates the window half extents. Non-positive values are
// treated as one pixel.
func (c *Camera) SetHalfSize(halfW, halfH float64) {
	c.halfW = math.Max(halfW, 1)
	c.halfH = math.Max(halfH, 1)
}

func (c *Camera) HalfSize() (float64, float64) { return c.halfW, c.halfH }

func (c *Camera) Zoom() float64 { return c.zoom }

// SetZoom clamps z to [MinZoom, MaxZoom]. NaN resets to DefaultZoom.
func (c *Camera) SetZoom(z float64) {
	if math.IsNaN(z) {
		z = DefaultZoom
	}
	c.zoom = math.Min(math.Max(z, MinZoom), MaxZoom)
}

// Track makes the camera follow e. Nil stops tracking.
func (c *Camera) Track(e *world.Entity) { c.tracked = e }

func (c *Camera) Tracked() *world.Entity { return c.tracked }

func (c *Camera) SetPosition(p world.Point) { c.Position = p }

// UpdatePosition moves the camera to the tracked entity's interpolated
// position. It runs every rendered frame.
func (c *Camera) UpdatePosition(frameProgress, tps float64) {
	if c.tracked == nil {
		return
	}
	c.Position = world.Interpolate(c.tracked.Position, c.tracked.Velocity, frameProgress, tps)
}

// WorldToPixelX maps a world x coordinate to window pixels.
func (c *Camera) WorldToPixelX(x float64) float64 { return (x-c.Position.X)*c.zoom + c.halfW }

// WorldToPixelY maps a world y coordinate to window pixels.
func (c *Camera) WorldToPixelY(y float64) float64 { return (y-c.Position.Y)*c.zoom + c.halfH }

// WorldToScreenX maps a world x coordinate to clip space [-1, 1].
func (c *Camera) WorldToScreenX(x float64) float64 { return c.WorldToPixelX(x)/c.halfW - 1 }

// WorldToScreenY maps a world y coordinate to clip space [-1, 1].
func (c *Camera) WorldToScreenY(y float64) float64 { return c.WorldToPixelY(y)/c.halfH - 1 }

func (c *Camera) PixelToWorldX(px float64) float64 { return (px-c.halfW)/c.zoom + c.Position.X }
func (c *Camera) PixelToWorldY(py float64) float64 { return (py-c.halfH)/c.zoom + c.Position.Y }

func (c *Camera) ScreenToWorldX(sx float64) float64 { return c.PixelToWorldX((sx + 1) * c.halfW) }
func (c *Camera) ScreenToWorldY(sy float64) float64 { return c.PixelToWorldY((sy + 1) * c.halfH) }

// WorldToPixel projects p into window pixels.
func (c *Camera) WorldToPixel(p world.Point) (float64, float64) {
	return c.WorldToPixelX(p.X), c.WorldToPixelY(p.Y)
}

// ViewRect is the world rectangle covered by the window.
func (c *Camera) ViewRect() world.Rect {
	return world.RectAround(c.Position, c.halfW/c.zoom, c.halfH/c.zoom)
}

func spanBounds(r world.Rect, cellPixels float64) Bounds {
	return Bounds{
		MinX: int(math.Floor(r.MinX / cellPixels)),
		MaxX: int(math.Floor(r.MaxX / cellPixels)),
		MinY: int(math.Floor(r.MinY / cellPixels)),
		MaxY: int(math.Floor(r.MaxY / cellPixels)),
	}
}

// clip narrows b to [lo, hi]. A view fully outside the range ends up with
// min > max rather than being pulled onto the border.
func clip(b Bounds, lo, hi int) Bounds {
	return Bounds{
		MinX: max(b.MinX, lo),
		MaxX: min(b.MaxX, hi),
		MinY: max(b.MinY, lo),
		MaxY: min(b.MaxY, hi),
	}
}

// UpdateVisibleChunkBounds recomputes the simulation chunk ranges for a
// world of worldChunks chunks per side.
func (c *Camera) UpdateVisibleChunkBounds(worldChunks int) {
	c.absoluteChunks = spanBounds(c.ViewRect(), world.ChunkPixels)
	c.visibleChunks = clip(c.absoluteChunks, 0, worldChunks-1)
}

// UpdateVisibleRenderChunkBounds recomputes the render chunk ranges. The
// clamped range includes the edge ring of l.
func (c *Camera) UpdateVisibleRenderChunkBounds(l renderchunk.Layout) {
	c.absoluteRenderChunks = spanBounds(c.ViewRect(), renderchunk.RenderChunkPixels)
	c.visibleRenderChunks = clip(c.absoluteRenderChunks, l.Min(), l.Max())
}

func (c *Camera) VisibleChunkBounds() Bounds        { return c.visibleChunks }
func (c *Camera) AbsoluteChunkBounds() Bounds       { return c.absoluteChunks }
func (c *Camera) VisibleRenderChunkBounds() Bounds  { return c.visibleRenderChunks }
func (c *Camera) AbsoluteRenderChunkBounds() Bounds { return c.absoluteRenderChunks }

// PointIsVisible tests p against the cached visible chunk range.
func (c *Camera) PointIsVisible(p world.Point) bool {
	tx, ty := world.TileOf(p)
	return c.visibleChunks.Contains(world.FloorDiv(tx, world.ChunkSize), world.FloorDiv(ty, world.ChunkSize))
}

func (c *Camera) ChunkIsVisible(x, y int) bool { return c.visibleChunks.Contains(x, y) }

func (c *Camera) RenderChunkIsVisible(x, y int) bool { return c.visibleRenderChunks.Contains(x, y) }

// ViewExceedsWorld reports whether the unclamped view reaches past the
// playable world of worldChunks chunks per side.
func (c *Camera) ViewExceedsWorld(worldChunks int) bool {
	a := c.absoluteChunks
	return a.MinX < 0 || a.MinY < 0 || a.MaxX >= worldChunks || a.MaxY >= worldChunks
}
