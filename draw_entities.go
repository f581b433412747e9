package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"tundra/batch"
	"tundra/world"
)

// quadUV is the texture coordinate of each corner in batch.Quad order.
var quadUV = [4][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

// drawEntities batches the entities of the visible chunks and submits the
// resulting draw calls in order.
func (c *client) drawEntities(screen *ebiten.Image, s *scene, frameProgress float64) error {
	vis := c.cam.VisibleChunkBounds()
	ents := s.board.EntitiesInChunks(vis.MinX, vis.MaxX, vis.MinY, vis.MaxY)
	f, err := c.batcher.Build(ents, c.cam, frameProgress, s.tps)
	c.frame.batch = f.Stats
	c.frame.entityCalls = f.DrawCalls()
	for i := range f.Calls {
		c.submitCall(screen, &f.Calls[i])
	}
	c.tris.flush()
	return err
}

// submitCall draws one batch call. Its textures all live in the atlas, so
// the call costs one submission per atlas page it touches.
func (c *client) submitCall(screen *ebiten.Image, call *batch.DrawCall) {
	if len(call.Textures) == 0 {
		c.tris.begin(screen, nil, shaders.circle, nil)
		for i := range call.Quads {
			c.tris.addQuad(quadVertices(&call.Quads[i], nil))
		}
		return
	}
	if c.pages == nil {
		return
	}
	for i := range call.Quads {
		q := &call.Quads[i]
		slot, ok := c.pages.atlas.SlotAt(q.Slot)
		if !ok {
			continue
		}
		page := c.pages.page(slot.Page)
		if page == nil {
			continue
		}
		r := slot.Rect
		src := [4][2]float32{
			{float32(r.Min.X), float32(r.Min.Y)},
			{float32(r.Max.X), float32(r.Min.Y)},
			{float32(r.Min.X), float32(r.Max.Y)},
			{float32(r.Max.X), float32(r.Max.Y)},
		}
		c.tris.begin(screen, page, shaders.sprite, nil)
		c.tris.addQuad(quadVertices(q, &src))
	}
}

// quadVertices builds the four vertices of a quad. Colors are premultiplied
// by opacity for the shaders.
func quadVertices(q *batch.Quad, src *[4][2]float32) [4]ebiten.Vertex {
	a := q.Opacity * float32(q.Tint.A) / 255
	r := float32(q.Tint.R) / 255 * a
	g := float32(q.Tint.G) / 255 * a
	b := float32(q.Tint.B) / 255 * a
	var out [4]ebiten.Vertex
	for i := range out {
		v := ebiten.Vertex{
			DstX: q.Pixels[i][0], DstY: q.Pixels[i][1],
			ColorR: r, ColorG: g, ColorB: b, ColorA: a,
			Custom0: q.Redness,
			Custom1: quadUV[i][0],
			Custom2: quadUV[i][1],
		}
		if src != nil {
			v.SrcX, v.SrcY = src[i][0], src[i][1]
		}
		out[i] = v
	}
	return out
}

// particleVertices builds a square particle quad around p in window pixels.
func (c *client) particleVertices(p *world.Particle, pos world.Point) [4]ebiten.Vertex {
	x, y := c.cam.WorldToPixel(pos)
	h := p.Size * c.cam.Zoom() / 2
	a := float32(p.Opacity()) * float32(p.Color.A) / 255
	r := float32(p.Color.R) / 255
	g := float32(p.Color.G) / 255
	b := float32(p.Color.B) / 255
	corners := [4][2]float64{{x - h, y - h}, {x + h, y - h}, {x - h, y + h}, {x + h, y + h}}
	var out [4]ebiten.Vertex
	for i, cn := range corners {
		out[i] = ebiten.Vertex{
			DstX: float32(cn[0]), DstY: float32(cn[1]),
			ColorR: r, ColorG: g, ColorB: b, ColorA: a,
		}
	}
	return out
}

// drawParticles submits every particle in view as one triangle list.
func (c *client) drawParticles(screen *ebiten.Image, s *scene, frameProgress float64) {
	view := c.cam.ViewRect()
	c.tris.begin(screen, nil, nil, nil)
	for _, p := range s.board.Particles() {
		pos := p.RenderPosition(frameProgress, s.tps)
		if !world.RectAround(pos, p.Size, p.Size).Overlaps(view) {
			continue
		}
		c.tris.addQuad(c.particleVertices(p, pos))
		c.frame.particles++
	}
	c.tris.flush()
}
