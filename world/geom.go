package world

import "math"

// Point is a position or a vector in world pixels.
type Point struct {
	X, Y float64
}

func (p Point) Add(q Point) Point        { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point        { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float64) Point    { return Point{p.X * s, p.Y * s} }
func (p Point) Length() float64          { return math.Hypot(p.X, p.Y) }
func (p Point) Distance(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Rotate returns p rotated by angle radians around the origin.
func (p Point) Rotate(angle float64) Point {
	if angle == 0 {
		return p
	}
	s, c := math.Sincos(angle)
	return Point{p.X*c - p.Y*s, p.X*s + p.Y*c}
}

// Rect is an axis aligned rectangle in world pixels. Max is inclusive.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// RectAround returns the rectangle of the given half extents centred on c.
func RectAround(c Point, halfW, halfH float64) Rect {
	return Rect{c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH}
}

func (r Rect) Overlaps(o Rect) bool {
	return r.MinX <= o.MaxX && r.MaxX >= o.MinX && r.MinY <= o.MaxY && r.MaxY >= o.MinY
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

func (r Rect) Expand(d float64) Rect {
	return Rect{r.MinX - d, r.MinY - d, r.MaxX + d, r.MaxY + d}
}

// TileRect is a half-open range of tile coordinates [MinX, MaxX) x [MinY, MaxY).
type TileRect struct {
	MinX, MinY, MaxX, MaxY int
}

func (r TileRect) Empty() bool { return r.MinX >= r.MaxX || r.MinY >= r.MaxY }

func (r TileRect) Contains(x, y int) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

// Intersect clips r to o.
func (r TileRect) Intersect(o TileRect) TileRect {
	return TileRect{
		MinX: max(r.MinX, o.MinX),
		MinY: max(r.MinY, o.MinY),
		MaxX: min(r.MaxX, o.MaxX),
		MaxY: min(r.MaxY, o.MaxY),
	}
}

// PixelRect returns the world pixel bounds of the tile range.
func (r TileRect) PixelRect() Rect {
	return Rect{
		MinX: float64(r.MinX * TileSize),
		MinY: float64(r.MinY * TileSize),
		MaxX: float64(r.MaxX * TileSize),
		MaxY: float64(r.MaxY * TileSize),
	}
}

// FloorDiv divides rounding toward negative infinity, so tile -1 lands in
// chunk -1 rather than chunk 0.
func FloorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
