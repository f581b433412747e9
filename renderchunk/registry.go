package renderchunk

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/remeh/sizedwaitgroup"

	"tundra/world"
)

// Stats summarises the registry for the debug overlay.
type Stats struct {
	Buffers  int
	Vertices int
	Bytes    int
	Rebuilds int
}

// Registry owns one optional GPU buffer per (render chunk, feature).
type Registry struct {
	// Slots resolves decoration textures. Nil means no texture resolves.
	Slots SlotFunc
	// Logf receives missing texture reports, once per source.
	Logf func(format string, args ...any)
	// Strict turns missing textures into build errors.
	Strict bool
	// Workers bounds the parallel vertex generation in CreateAll.
	Workers int

	layout Layout
	dev    Device
	specs  [NumFeatures]*FeatureSpec
	slots  [][NumFeatures]*Buffer
	board  *world.Board

	rebuilds int
	missing  sync.Map
}

// NewRegistry validates the feature specs. A spec whose stride disagrees
// with its feature's vertex layout is rejected.
func NewRegistry(l Layout, dev Device, specs ...FeatureSpec) (*Registry, error) {
	r := &Registry{layout: l, dev: dev}
	for i := range specs {
		s := specs[i]
		if s.Feature >= NumFeatures {
			return nil, fmt.Errorf("renderchunk: unknown feature %d", s.Feature)
		}
		if s.Stride != s.Feature.Stride() {
			return nil, fmt.Errorf("%w: %v declares %d, layout has %d", ErrStrideMismatch, s.Feature, s.Stride, s.Feature.Stride())
		}
		if s.Build == nil {
			return nil, fmt.Errorf("renderchunk: %v has no builder", s.Feature)
		}
		if r.specs[s.Feature] != nil {
			return nil, fmt.Errorf("renderchunk: %v registered twice", s.Feature)
		}
		r.specs[s.Feature] = &s
	}
	return r, nil
}

func (r *Registry) Layout() Layout { return r.layout }

// HasFeature reports whether a builder is registered for f.
func (r *Registry) HasFeature(f Feature) bool {
	return f < NumFeatures && r.specs[f] != nil
}

type buildResult struct {
	data [NumFeatures][]float32
	err  error
}

// CreateAll builds every feature of every render chunk, edge ring included,
// and uploads the non-empty ones. Vertex generation runs in parallel; the
// uploads stay on the calling goroutine. Buffers from a previous world are
// released first.
func (r *Registry) CreateAll(ctx context.Context, b *world.Board) error {
	if b.Size() != r.layout.WorldSize || b.EdgeDistance() != r.layout.EdgeDistance {
		return fmt.Errorf("renderchunk: board %dx%d edge %d does not match layout %d edge %d",
			b.Size(), b.Size(), b.EdgeDistance(), r.layout.WorldSize, r.layout.EdgeDistance)
	}
	r.Release()
	r.board = b

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]buildResult, r.layout.Len())
	wg := sizedwaitgroup.New(workers)
	for i := range results {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		wg.Add()
		go func(i int) {
			defer wg.Done()
			x, y := r.layout.Coords(i)
			for f, spec := range r.specs {
				if spec == nil {
					continue
				}
				data, err := r.build(spec, x, y)
				if err != nil {
					results[i].err = err
					return
				}
				results[i].data[f] = data
			}
		}(i)
	}
	wg.Wait()

	r.slots = make([][NumFeatures]*Buffer, r.layout.Len())
	for i := range results {
		if err := results[i].err; err != nil {
			r.Release()
			return err
		}
		x, y := r.layout.Coords(i)
		for f, data := range results[i].data {
			if len(data) == 0 {
				continue
			}
			if err := r.create(i, x, y, Feature(f), data); err != nil {
				r.Release()
				return err
			}
		}
	}
	return nil
}

func (r *Registry) build(spec *FeatureSpec, x, y int) ([]float32, error) {
	bc := &BuildContext{
		Board:   r.board,
		X:       x,
		Y:       y,
		Rect:    r.layout.TileRect(x, y),
		Slot:    r.Slots,
		missing: r.reportMissing,
	}
	if bc.Slot == nil {
		bc.Slot = func(string) (int, bool) { return 0, false }
	}
	if bc.Rect.Empty() {
		return nil, nil
	}
	data, err := spec.Build(bc, nil)
	if err != nil {
		return nil, fmt.Errorf("render chunk (%d,%d) %v: %w", x, y, spec.Feature, err)
	}
	if len(data)%spec.Stride != 0 {
		return nil, fmt.Errorf("%w: render chunk (%d,%d) %v produced %d floats for stride %d",
			ErrStrideMismatch, x, y, spec.Feature, len(data), spec.Stride)
	}
	return data, nil
}

func (r *Registry) reportMissing(source string) error {
	if _, seen := r.missing.LoadOrStore(source, struct{}{}); !seen && r.Logf != nil {
		r.Logf("renderchunk: texture %q not in atlas", source)
	}
	if r.Strict {
		return fmt.Errorf("%w: %q", ErrMissingTexture, source)
	}
	return nil
}

func (r *Registry) create(i, x, y int, f Feature, data []float32) error {
	id, err := r.dev.CreateBuffer(f, f.Stride(), data)
	if err != nil {
		return fmt.Errorf("create %v buffer for (%d,%d): %w", f, x, y, err)
	}
	r.slots[i][f] = &Buffer{
		ID:       id,
		Feature:  f,
		X:        x,
		Y:        y,
		Vertices: len(data) / f.Stride(),
		Builds:   1,
	}
	return nil
}

// Get returns the buffer for (x, y, f) when it has anything to draw.
func (r *Registry) Get(x, y int, f Feature) (*Buffer, bool) {
	b := r.Buffer(x, y, f)
	return b, b != nil && b.Vertices > 0
}

// Buffer returns the raw slot, which may hold an emptied buffer.
func (r *Registry) Buffer(x, y int, f Feature) *Buffer {
	i := r.layout.Index(x, y)
	if i < 0 || i >= len(r.slots) || f >= NumFeatures {
		return nil
	}
	return r.slots[i][f]
}

// RecalculateRenderChunkData rebuilds one feature of one render chunk. An
// existing buffer is updated in place even when it becomes empty; a chunk
// that gains geometry for the first time gets a new buffer.
func (r *Registry) RecalculateRenderChunkData(x, y int, f Feature) error {
	i := r.layout.Index(x, y)
	if i < 0 || i >= len(r.slots) {
		return fmt.Errorf("%w: (%d,%d)", ErrNoRenderChunk, x, y)
	}
	if !r.HasFeature(f) {
		return fmt.Errorf("renderchunk: %v not registered", f)
	}
	data, err := r.build(r.specs[f], x, y)
	if err != nil {
		return err
	}
	r.rebuilds++
	buf := r.slots[i][f]
	if buf == nil {
		if len(data) == 0 {
			return nil
		}
		return r.create(i, x, y, f, data)
	}
	if err := r.dev.UpdateBuffer(buf.ID, data); err != nil {
		return fmt.Errorf("update %v buffer for (%d,%d): %w", f, x, y, err)
	}
	buf.Vertices = len(data) / f.Stride()
	buf.Builds++
	return nil
}

// RecalculateTile rebuilds the render chunks whose geometry depends on tile
// (tx, ty). Features that read neighbours also rebuild the adjacent chunks
// when the tile sits on a chunk border.
func (r *Registry) RecalculateTile(tx, ty int) error {
	if r.board == nil {
		return nil
	}
	var errs []error
	for f, spec := range r.specs {
		if spec == nil || spec.Radius < 0 {
			continue
		}
		minX, minY := r.layout.ChunkOfTile(tx-spec.Radius, ty-spec.Radius)
		maxX, maxY := r.layout.ChunkOfTile(tx+spec.Radius, ty+spec.Radius)
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				if !r.layout.InRange(x, y) {
					continue
				}
				if err := r.RecalculateRenderChunkData(x, y, Feature(f)); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Release deletes every buffer. The registry can be filled again with
// CreateAll.
func (r *Registry) Release() {
	for i := range r.slots {
		for f, b := range r.slots[i] {
			if b != nil {
				r.dev.DeleteBuffer(b.ID)
				r.slots[i][f] = nil
			}
		}
	}
	r.slots = nil
	r.board = nil
}

func (r *Registry) Stats() Stats {
	st := Stats{Rebuilds: r.rebuilds}
	for i := range r.slots {
		for _, b := range r.slots[i] {
			if b == nil {
				continue
			}
			st.Buffers++
			st.Vertices += b.Vertices
			st.Bytes += b.Bytes()
		}
	}
	return st
}
