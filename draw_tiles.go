package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"

	"tundra/renderchunk"
	"tundra/world"
)

var backgroundColor = color.RGBA{0x10, 0x12, 0x16, 0xff}

// tilePalette is the base color per tile type; the tile shader adds noise
// and climate tinting on top.
var tilePalette = [world.NumTileTypes][3]float32{
	world.Grass:  {0.36, 0.60, 0.28},
	world.Dirt:   {0.52, 0.38, 0.24},
	world.Water:  {0.13, 0.36, 0.62},
	world.Rock:   {0.42, 0.42, 0.44},
	world.Sand:   {0.86, 0.79, 0.55},
	world.Snow:   {0.92, 0.94, 0.97},
	world.Ice:    {0.70, 0.85, 0.95},
	world.Sludge: {0.36, 0.40, 0.20},
	world.Magma:  {0.85, 0.30, 0.08},
}

var wallBorderColor = [4]float32{0.12, 0.11, 0.10, 1}

// wallSideShade lightens the top edge and darkens the bottom one.
var wallSideShade = [4]float32{
	renderchunk.SideTop:    1.6,
	renderchunk.SideRight:  1.0,
	renderchunk.SideBottom: 0.6,
	renderchunk.SideLeft:   1.0,
}

// featureOrder is the back to front order of the tile layers.
var featureOrder = []renderchunk.Feature{
	renderchunk.SolidTiles,
	renderchunk.Rivers,
	renderchunk.AmbientOcclusion,
	renderchunk.WallBorders,
	renderchunk.Decorations,
}

func fillSolid(v *ebiten.Vertex, a []float32) {
	t := int(a[2])
	if t >= 0 && t < len(tilePalette) {
		v.ColorR, v.ColorG, v.ColorB = tilePalette[t][0], tilePalette[t][1], tilePalette[t][2]
	}
	v.Custom0, v.Custom1, v.Custom2 = a[2], a[3], a[4]
}

func fillRiver(v *ebiten.Vertex, a []float32) {
	v.Custom0, v.Custom1 = a[2], a[3]
}

func fillOcclusion(v *ebiten.Vertex, a []float32) {
	v.Custom0, v.Custom1, v.Custom2 = a[2], a[0], a[1]
}

func fillWallBorder(v *ebiten.Vertex, a []float32) {
	shade := float32(1)
	if side := int(a[2]); side >= 0 && side < len(wallSideShade) {
		shade = wallSideShade[side]
	}
	v.ColorR = min(wallBorderColor[0]*shade, 1)
	v.ColorG = min(wallBorderColor[1]*shade, 1)
	v.ColorB = min(wallBorderColor[2]*shade, 1)
	v.ColorA = wallBorderColor[3]
}

// cameraUniforms are shared by the world space shaders.
func (c *client) cameraUniforms() map[string]any {
	hw, hh := c.cam.HalfSize()
	return map[string]any{
		"Camera": []float32{float32(c.cam.Position.X), float32(c.cam.Position.Y)},
		"Half":   []float32{float32(hw), float32(hh)},
		"Zoom":   float32(c.cam.Zoom()),
	}
}

type chunkFeature struct {
	x, y    int
	feature renderchunk.Feature
}

// deviceBuffer resolves a registered buffer on the device. A missing one is
// logged once per chunk and feature.
func (c *client) deviceBuffer(dev *ebitenDevice, x, y int, f renderchunk.Feature, id renderchunk.BufferID) (*vertexBuffer, bool) {
	if vb, ok := dev.buffer(id); ok {
		return vb, true
	}
	k := chunkFeature{x, y, f}
	if _, seen := c.missingBuffers[k]; !seen {
		if c.missingBuffers == nil {
			c.missingBuffers = make(map[chunkFeature]struct{})
		}
		c.missingBuffers[k] = struct{}{}
		logError("render: chunk %d,%d %v buffer %d not on device", x, y, f, id)
	}
	return nil, false
}

// drawTiles draws every tile layer of the visible render chunks. Each layer
// is drawn for all chunks before the next so one layer never covers another
// from a neighbouring chunk.
func (c *client) drawTiles(screen *ebiten.Image, s *scene) {
	vis := c.cam.VisibleRenderChunkBounds()
	if vis.Empty() {
		return
	}
	dev, ok := c.cfg.device.(*ebitenDevice)
	if !ok {
		return
	}
	uni := c.cameraUniforms()
	river := map[string]any{"Time": float32(s.board.Ticks()) / float32(s.tps)}
	for k, v := range uni {
		river[k] = v
	}
	occlusion := map[string]any{"Strength": float32(0.45)}

	var scratch []ebiten.Vertex
	for _, f := range featureOrder {
		for y := vis.MinY; y <= vis.MaxY; y++ {
			for x := vis.MinX; x <= vis.MaxX; x++ {
				buf, ok := s.registry.Get(x, y, f)
				if !ok {
					continue
				}
				vb, ok := c.deviceBuffer(dev, x, y, f, buf.ID)
				if !ok {
					continue
				}
				if f == renderchunk.SolidTiles {
					c.frame.renderChunks++
				}
				switch f {
				case renderchunk.SolidTiles:
					c.tris.begin(screen, nil, shaders.tiles, uni)
					scratch = projectVertices(scratch[:0], vb.data, vb.stride, c.cam, fillSolid)
					c.tris.addTriangles(scratch)
				case renderchunk.Rivers:
					c.tris.begin(screen, nil, shaders.river, river)
					scratch = projectVertices(scratch[:0], vb.data, vb.stride, c.cam, fillRiver)
					c.tris.addTriangles(scratch)
				case renderchunk.AmbientOcclusion:
					c.tris.begin(screen, nil, shaders.occlusion, occlusion)
					scratch = projectVertices(scratch[:0], vb.data, vb.stride, c.cam, fillOcclusion)
					c.tris.addTriangles(scratch)
				case renderchunk.WallBorders:
					c.tris.begin(screen, nil, nil, nil)
					scratch = projectVertices(scratch[:0], vb.data, vb.stride, c.cam, fillWallBorder)
					c.tris.addTriangles(scratch)
				case renderchunk.Decorations:
					c.drawDecorations(screen, vb, &scratch)
				}
			}
		}
	}
	c.tris.flush()
}

// drawDecorations maps each decoration's slot to its atlas page and source
// rectangle. Decorations on different pages go to separate submissions.
func (c *client) drawDecorations(screen *ebiten.Image, vb *vertexBuffer, scratch *[]ebiten.Vertex) {
	if c.pages == nil {
		return
	}
	const perQuad = 6
	n := vb.vertices()
	for q := 0; q+perQuad <= n; q += perQuad {
		quad := vb.data[q*vb.stride : (q+perQuad)*vb.stride]
		slot, ok := c.pages.atlas.SlotAt(int(quad[4]))
		if !ok {
			continue
		}
		page := c.pages.page(slot.Page)
		if page == nil {
			continue
		}
		r := slot.Rect
		*scratch = projectVertices((*scratch)[:0], quad, vb.stride, c.cam, func(v *ebiten.Vertex, a []float32) {
			v.SrcX = float32(r.Min.X) + a[0]*float32(r.Dx())
			v.SrcY = float32(r.Min.Y) + a[1]*float32(r.Dy())
		})
		c.tris.begin(screen, page, nil, nil)
		c.tris.addTriangles(*scratch)
	}
}
