package main

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"tundra/camera"
	"tundra/renderchunk"
	"tundra/world"
)

var whiteImage = ebiten.NewImage(1, 1)

func init() {
	whiteImage.Fill(color.White)
}

var errUnknownBuffer = errors.New("device: unknown buffer")

// vertexBuffer is the device side copy of one render chunk buffer. Ebiten
// has no retained vertex buffers, so world space vertices are kept here and
// projected each frame for the chunks in view.
type vertexBuffer struct {
	feature renderchunk.Feature
	stride  int
	data    []float32
}

func (b *vertexBuffer) vertices() int { return len(b.data) / b.stride }

// ebitenDevice implements renderchunk.Device on top of ebiten.
type ebitenDevice struct {
	mu      sync.Mutex
	next    renderchunk.BufferID
	buffers map[renderchunk.BufferID]*vertexBuffer
}

func newEbitenDevice() *ebitenDevice {
	return &ebitenDevice{buffers: make(map[renderchunk.BufferID]*vertexBuffer)}
}

// CreateBuffer takes ownership of data.
func (d *ebitenDevice) CreateBuffer(f renderchunk.Feature, stride int, data []float32) (renderchunk.BufferID, error) {
	if stride <= 0 || len(data)%stride != 0 {
		return 0, fmt.Errorf("%w: %d floats, stride %d", renderchunk.ErrStrideMismatch, len(data), stride)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.buffers[d.next] = &vertexBuffer{feature: f, stride: stride, data: data}
	return d.next, nil
}

// UpdateBuffer swaps the contents of an existing buffer in place.
func (d *ebitenDevice) UpdateBuffer(id renderchunk.BufferID, data []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w %d", errUnknownBuffer, id)
	}
	if len(data)%b.stride != 0 {
		return fmt.Errorf("%w: %d floats, stride %d", renderchunk.ErrStrideMismatch, len(data), b.stride)
	}
	b.data = data
	return nil
}

func (d *ebitenDevice) DeleteBuffer(id renderchunk.BufferID) {
	d.mu.Lock()
	delete(d.buffers, id)
	d.mu.Unlock()
}

func (d *ebitenDevice) buffer(id renderchunk.BufferID) (*vertexBuffer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	return b, ok
}

func (d *ebitenDevice) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// vertexFill sets everything but the destination position of v from the
// vertex's attributes, which start at the u coordinate.
type vertexFill func(v *ebiten.Vertex, attrs []float32)

// projectVertices converts world space vertex data to window pixels.
func projectVertices(dst []ebiten.Vertex, data []float32, stride int, cam *camera.Camera, fill vertexFill) []ebiten.Vertex {
	for i := 0; i+stride <= len(data); i += stride {
		x, y := cam.WorldToPixel(world.Point{X: float64(data[i]), Y: float64(data[i+1])})
		v := ebiten.Vertex{
			DstX: float32(x), DstY: float32(y),
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		}
		if fill != nil {
			fill(&v, data[i+2:i+stride])
		}
		dst = append(dst, v)
	}
	return dst
}

// maxBatchVertices keeps indices inside uint16.
const maxBatchVertices = math.MaxUint16

// triBatch accumulates triangles that share a source image and shader and
// submits them in as few DrawTriangles calls as the index width allows.
type triBatch struct {
	dst      *ebiten.Image
	img      *ebiten.Image
	shader   *ebiten.Shader
	uniforms map[string]any

	vs []ebiten.Vertex
	is []uint16

	// calls counts submissions since the last reset.
	calls int
}

// begin switches the batch to a new target, flushing what was queued for
// the previous one.
func (b *triBatch) begin(dst, img *ebiten.Image, sh *ebiten.Shader, uniforms map[string]any) {
	if b.dst != dst || b.img != img || b.shader != sh {
		b.flush()
	}
	b.dst, b.img, b.shader, b.uniforms = dst, img, sh, uniforms
}

// addTriangles queues a non indexed triangle list.
func (b *triBatch) addTriangles(vs []ebiten.Vertex) {
	for i := 0; i+3 <= len(vs); i += 3 {
		if len(b.vs)+3 > maxBatchVertices {
			b.flush()
		}
		start := uint16(len(b.vs))
		b.vs = append(b.vs, vs[i:i+3]...)
		b.is = append(b.is, start, start+1, start+2)
	}
}

// addQuad queues a quad given by its corners in the order top left, top
// right, bottom left, bottom right.
func (b *triBatch) addQuad(q [4]ebiten.Vertex) {
	if len(b.vs)+4 > maxBatchVertices {
		b.flush()
	}
	start := uint16(len(b.vs))
	b.vs = append(b.vs, q[:]...)
	b.is = append(b.is, start, start+1, start+2, start+2, start+1, start+3)
}

// flush draws the queued triangles and resets the batch.
func (b *triBatch) flush() {
	if len(b.is) == 0 || b.dst == nil {
		b.vs, b.is = b.vs[:0], b.is[:0]
		return
	}
	if b.shader != nil {
		op := &ebiten.DrawTrianglesShaderOptions{Uniforms: b.uniforms}
		if b.img != nil {
			op.Images[0] = b.img
		}
		b.dst.DrawTrianglesShader(b.vs, b.is, b.shader, op)
	} else {
		img := b.img
		if img == nil {
			img = whiteImage
		}
		b.dst.DrawTriangles(b.vs, b.is, img, &ebiten.DrawTrianglesOptions{})
	}
	b.calls++
	b.vs, b.is = b.vs[:0], b.is[:0]
}
