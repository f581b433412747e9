package world

import (
	"image/color"
	"math"
)

// EntityType identifies the kind of an entity as sent by the server.
type EntityType uint16

// Hitbox is a collision shape relative to its entity. It is implemented by
// CircularHitbox and RectangularHitbox only.
type Hitbox interface {
	// Bounds returns the world rectangle covered by the hitbox when the
	// entity is at pos with the given rotation.
	Bounds(pos Point, rotation float64) Rect
	hitbox()
}

type CircularHitbox struct {
	Offset Point
	Radius float64
}

func (h CircularHitbox) Bounds(pos Point, rotation float64) Rect {
	c := pos.Add(h.Offset.Rotate(rotation))
	return RectAround(c, h.Radius, h.Radius)
}

func (CircularHitbox) hitbox() {}

type RectangularHitbox struct {
	Offset        Point
	Width, Height float64
	Rotation      float64
}

func (h RectangularHitbox) Bounds(pos Point, rotation float64) Rect {
	c := pos.Add(h.Offset.Rotate(rotation))
	angle := rotation + h.Rotation
	s, co := math.Sincos(angle)
	s, co = math.Abs(s), math.Abs(co)
	hw := (h.Width*co + h.Height*s) / 2
	hh := (h.Width*s + h.Height*co) / 2
	return RectAround(c, hw, hh)
}

func (RectangularHitbox) hitbox() {}

// PartShape selects how a render part is drawn.
type PartShape uint8

const (
	ImageShape PartShape = iota
	CircleShape
)

// RenderPart is one named sub-drawable of an entity. Offsets, rotation and
// scale are relative to the entity.
type RenderPart struct {
	Tag    string
	Shape  PartShape
	Source string
	// Width and Height are the unscaled size in world pixels. Circles use
	// Width as the diameter.
	Width, Height float64
	Offset        Point
	// OffsetFunc, when set, replaces Offset and is evaluated every frame.
	OffsetFunc func() Point
	Rotation   float64
	Scale      float64
	Opacity    float64
	Tint       color.RGBA
	ZIndex     int
}

// NewImagePart returns an opaque, untinted image part at scale 1.
func NewImagePart(tag, source string, w, h float64, zIndex int) *RenderPart {
	return &RenderPart{
		Tag:     tag,
		Shape:   ImageShape,
		Source:  source,
		Width:   w,
		Height:  h,
		Scale:   1,
		Opacity: 1,
		Tint:    color.RGBA{0xff, 0xff, 0xff, 0xff},
		ZIndex:  zIndex,
	}
}

// NewCirclePart returns a solid circle part of the given diameter.
func NewCirclePart(tag string, diameter float64, clr color.RGBA, zIndex int) *RenderPart {
	return &RenderPart{
		Tag:     tag,
		Shape:   CircleShape,
		Width:   diameter,
		Height:  diameter,
		Scale:   1,
		Opacity: 1,
		Tint:    clr,
		ZIndex:  zIndex,
	}
}

// CurrentOffset returns the offset for this frame.
func (p *RenderPart) CurrentOffset() Point {
	if p.OffsetFunc != nil {
		return p.OffsetFunc()
	}
	return p.Offset
}

// Entity is a simulation actor. Position, Rotation and Velocity are the last
// values reported by the server. RenderPosition is derived every frame and
// never written back into Position.
type Entity struct {
	ID       uint32
	Type     EntityType
	Position Point
	Rotation float64
	// Velocity is in world pixels per second, nil when the entity is static.
	Velocity    *Point
	Hitboxes    []Hitbox
	RenderParts []*RenderPart
	// TicksSinceHit counts ticks since the last hit, -1 if never hit.
	TicksSinceHit int

	RenderPosition Point

	chunks []*Chunk
}

func NewEntity(id uint32, typ EntityType, pos Point) *Entity {
	return &Entity{
		ID:             id,
		Type:           typ,
		Position:       pos,
		RenderPosition: pos,
		TicksSinceHit:  -1,
	}
}

// UpdateRenderPosition recomputes RenderPosition for the current frame.
func (e *Entity) UpdateRenderPosition(frameProgress, tps float64) Point {
	e.RenderPosition = Interpolate(e.Position, e.Velocity, frameProgress, tps)
	return e.RenderPosition
}

// RegisterHit restarts the hit flash.
func (e *Entity) RegisterHit() { e.TicksSinceHit = 0 }

// Tick advances client side timers by one tick.
func (e *Entity) Tick() {
	if e.TicksSinceHit >= 0 {
		e.TicksSinceHit++
	}
}

// BoundsAt returns the union of the hitbox bounds with the entity at pos.
// Entities without hitboxes fall back to their render parts.
func (e *Entity) BoundsAt(pos Point) Rect {
	var r Rect
	have := false
	for _, h := range e.Hitboxes {
		b := h.Bounds(pos, e.Rotation)
		if !have {
			r, have = b, true
			continue
		}
		r = r.Union(b)
	}
	if have {
		return r
	}
	for _, p := range e.RenderParts {
		off := p.CurrentOffset().Rotate(e.Rotation)
		rad := math.Hypot(p.Width, p.Height) * p.Scale / 2
		b := RectAround(pos.Add(off), rad, rad)
		if !have {
			r, have = b, true
			continue
		}
		r = r.Union(b)
	}
	if !have {
		return RectAround(pos, 0, 0)
	}
	return r
}

// VisualBoundsAt covers the hitboxes and every render part with the entity
// at pos.
func (e *Entity) VisualBoundsAt(pos Point) Rect {
	r := e.BoundsAt(pos)
	for _, p := range e.RenderParts {
		off := p.CurrentOffset().Rotate(e.Rotation)
		scale := p.Scale
		if scale == 0 {
			scale = 1
		}
		rad := math.Hypot(p.Width, p.Height) * scale / 2
		r = r.Union(RectAround(pos.Add(off), rad, rad))
	}
	return r
}

// AnimationSlack pads reach bounds for render parts with animated offsets.
const AnimationSlack = TileSize / 4

// ReachBounds covers everywhere the entity can be drawn before the next
// authoritative update: its visual bounds at Position and at the end of one
// tick of interpolation.
func (e *Entity) ReachBounds(tps float64) Rect {
	r := e.VisualBoundsAt(e.Position)
	if e.Velocity != nil && tps > 0 {
		r = r.Union(e.VisualBoundsAt(Interpolate(e.Position, e.Velocity, 1, tps)))
	}
	return r.Expand(AnimationSlack)
}

// Chunks returns the chunks the entity is currently registered in.
func (e *Entity) Chunks() []*Chunk { return e.chunks }

// Interpolate is the single frame interpolation formula shared by the camera,
// entities and particles: last + velocity * (frameProgress / tps). A nil
// velocity leaves the position unchanged.
func Interpolate(last Point, velocity *Point, frameProgress, tps float64) Point {
	if velocity == nil || tps <= 0 {
		return last
	}
	t := frameProgress / tps
	return Point{last.X + velocity.X*t, last.Y + velocity.Y*t}
}
