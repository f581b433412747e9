// Package batch turns visible entities into textured quads grouped into as
// few draw calls as possible.
package batch

import (
	"cmp"
	"errors"
	"fmt"
	"image/color"
	"slices"

	"tundra/camera"
	"tundra/world"
)

const (
	// HitFlashTicks is how long an entity flashes red after a hit.
	HitFlashTicks = 18
	MaxRedness    = 0.85
	// DepthEpsilon separates the z-index layers of one entity.
	DepthEpsilon = 1e-4

	DefaultTexturesPerDraw = 8
	DefaultBaseDepth       = 0.5
)

var ErrMissingTexture = errors.New("batch: texture source not in atlas")

// Atlas resolves a texture source to its slot.
type Atlas interface {
	SlotIndex(source string) (int, bool)
}

// Quad is one render part ready to draw. Corners are world space in the
// order top left, top right, bottom left, bottom right; Pixels are the same
// corners in window pixels.
type Quad struct {
	EntityID uint32
	Tag      string
	Shape    world.PartShape
	Source   string
	Slot     int
	// Unit is the index of Source in the draw call's Textures.
	Unit    int
	Corners [4]world.Point
	Pixels  [4][2]float32
	Tint    color.RGBA
	Opacity float32
	Redness float32
	Depth   float64
}

// DrawCall is one batch of quads sharing up to TexturesPerDraw textures.
// Circle parts use no texture.
type DrawCall struct {
	EntityType world.EntityType
	ZIndex     int
	Textures   []string
	Quads      []Quad
}

type FrameStats struct {
	Entities int
	Visible  int
	Culled   int
	Quads    int
	Missing  int
}

type Frame struct {
	Calls []DrawCall
	Stats FrameStats
}

// Batcher builds a Frame each render pass.
type Batcher struct {
	Atlas           Atlas
	TexturesPerDraw int
	// BaseDepth gives each entity its depth before z-index bias. Nil means
	// DefaultBaseDepth for all.
	BaseDepth func(*world.Entity) float64
	Logf      func(format string, args ...any)
	// Strict makes Build fail on a missing texture.
	Strict bool

	missing map[string]struct{}
}

// Redness is the hit flash strength elapsed ticks after a hit. It decays
// linearly from MaxRedness to zero over duration ticks.
func Redness(elapsed, duration float64) float64 {
	if elapsed < 0 || duration <= 0 || elapsed >= duration {
		return 0
	}
	return MaxRedness * (1 - elapsed/duration)
}

// Depth biases an entity's base depth by a part's z-index. Higher z-index
// parts get smaller depth and draw on top.
func Depth(entityBase float64, zIndex int) float64 {
	return entityBase - float64(zIndex)*DepthEpsilon
}

// PartCorners returns the world space corners of a render part on an
// entity at pos with the given rotation. The part's local rotation is
// applied after the entity's.
func PartCorners(pos world.Point, rotation float64, p *world.RenderPart) [4]world.Point {
	center := pos.Add(p.CurrentOffset().Rotate(rotation))
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	hw, hh := p.Width*scale/2, p.Height*scale/2
	local := [4]world.Point{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: -hw, Y: hh}, {X: hw, Y: hh}}
	var out [4]world.Point
	for i, c := range local {
		out[i] = center.Add(c.Rotate(rotation).Rotate(p.Rotation))
	}
	return out
}

// VisualBounds covers the entity's hitboxes and every render part with it
// at pos.
func VisualBounds(e *world.Entity, pos world.Point) world.Rect {
	return e.VisualBoundsAt(pos)
}

// Visible reports whether any part of the entity at its render position
// can overlap view.
func Visible(e *world.Entity, view world.Rect) bool {
	return VisualBounds(e, e.RenderPosition).Overlaps(view)
}

// item is a quad with the grouping keys it was built under.
type item struct {
	q   Quad
	typ world.EntityType
	z   int
}

// Build interpolates every entity, culls the invisible ones and orders the
// remaining parts back to front across the whole frame. Parts at equal
// depth are grouped by entity type, then z-index, then texture. Consecutive
// parts sharing a type, z-index and shape become one draw call holding up
// to TexturesPerDraw textures; circles get calls of their own.
func (b *Batcher) Build(entities []*world.Entity, cam *camera.Camera, frameProgress, tps float64) (Frame, error) {
	var f Frame
	var errs []error
	view := cam.ViewRect()
	var items []item

	for _, e := range entities {
		f.Stats.Entities++
		pos := e.UpdateRenderPosition(frameProgress, tps)
		if !Visible(e, view) {
			f.Stats.Culled++
			continue
		}
		f.Stats.Visible++
		base := DefaultBaseDepth
		if b.BaseDepth != nil {
			base = b.BaseDepth(e)
		}
		red := float32(0)
		if e.TicksSinceHit >= 0 {
			red = float32(Redness(float64(e.TicksSinceHit)+frameProgress, HitFlashTicks))
		}
		for _, p := range e.RenderParts {
			if p.Opacity <= 0 {
				continue
			}
			q := Quad{
				EntityID: e.ID,
				Tag:      p.Tag,
				Shape:    p.Shape,
				Tint:     p.Tint,
				Opacity:  float32(p.Opacity),
				Redness:  red,
				Depth:    Depth(base, p.ZIndex),
				Corners:  PartCorners(pos, e.Rotation, p),
			}
			switch p.Shape {
			case world.ImageShape:
				slot, ok := b.lookup(p.Source)
				if !ok {
					f.Stats.Missing++
					if b.Strict {
						errs = append(errs, fmt.Errorf("%w: %q on entity %d", ErrMissingTexture, p.Source, e.ID))
					}
					continue
				}
				q.Source, q.Slot = p.Source, slot
			case world.CircleShape:
				q.Slot = -1
			default:
				panic(fmt.Sprintf("batch: unknown part shape %d", p.Shape))
			}
			for i, c := range q.Corners {
				x, y := cam.WorldToPixel(c)
				q.Pixels[i] = [2]float32{float32(x), float32(y)}
			}
			items = append(items, item{q: q, typ: e.Type, z: p.ZIndex})
			f.Stats.Quads++
		}
	}

	sortBackToFront(items)
	f.Calls = b.pack(items)
	return f, errors.Join(errs...)
}

func (b *Batcher) lookup(source string) (int, bool) {
	if b.Atlas != nil {
		if slot, ok := b.Atlas.SlotIndex(source); ok {
			return slot, true
		}
	}
	if b.missing == nil {
		b.missing = make(map[string]struct{})
	}
	if _, seen := b.missing[source]; !seen {
		b.missing[source] = struct{}{}
		if b.Logf != nil {
			b.Logf("batch: texture %q not in atlas", source)
		}
	}
	return 0, false
}

// pack cuts the sorted items into draw calls. A call ends where the entity
// type, z-index or shape changes, or when a new texture would exceed
// TexturesPerDraw.
func (b *Batcher) pack(items []item) []DrawCall {
	n := b.TexturesPerDraw
	if n <= 0 {
		n = DefaultTexturesPerDraw
	}
	var calls []DrawCall
	var units map[string]int
	var shape world.PartShape
	for _, it := range items {
		q := it.q
		_, known := units[q.Source]
		last := len(calls) - 1
		if last < 0 || calls[last].EntityType != it.typ || calls[last].ZIndex != it.z || shape != q.Shape ||
			(q.Shape == world.ImageShape && !known && len(calls[last].Textures) == n) {
			calls = append(calls, DrawCall{EntityType: it.typ, ZIndex: it.z})
			last++
			units = make(map[string]int)
			shape = q.Shape
		}
		cur := &calls[last]
		if q.Shape == world.ImageShape {
			unit, ok := units[q.Source]
			if !ok {
				unit = len(cur.Textures)
				units[q.Source] = unit
				cur.Textures = append(cur.Textures, q.Source)
			}
			q.Unit = unit
		}
		cur.Quads = append(cur.Quads, q)
	}
	return calls
}

// sortBackToFront orders by depth, farthest first, then by the grouping
// keys so parts at one depth stay batched together.
func sortBackToFront(items []item) {
	slices.SortStableFunc(items, func(a, c item) int {
		if d := cmp.Compare(c.q.Depth, a.q.Depth); d != 0 {
			return d
		}
		if d := cmp.Compare(a.typ, c.typ); d != 0 {
			return d
		}
		if d := cmp.Compare(a.z, c.z); d != 0 {
			return d
		}
		if d := cmp.Compare(a.q.Shape, c.q.Shape); d != 0 {
			return d
		}
		if d := cmp.Compare(a.q.Source, c.q.Source); d != 0 {
			return d
		}
		return cmp.Compare(a.q.EntityID, c.q.EntityID)
	})
}

// DrawCalls is the number of calls a frame needs.
func (f *Frame) DrawCalls() int { return len(f.Calls) }
