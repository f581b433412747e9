package world

// DecorationKind separates ground clutter from the river features.
type DecorationKind uint8

const (
	GroundDecoration DecorationKind = iota
	WaterRock
	SteppingStone
)

// Decoration is a static, non-colliding sprite placed by the terrain
// generator. Source names the texture in the atlas.
type Decoration struct {
	Kind     DecorationKind
	Position Point
	Rotation float64
	Size     float64
	Source   string
}

// Bounds returns the world rectangle covered by the decoration, rotation
// included.
func (d Decoration) Bounds() Rect {
	// A rotated square never leaves the circle through its corners.
	r := d.Size * 0.7072
	return RectAround(d.Position, r, r)
}
