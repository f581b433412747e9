package renderchunk

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"slices"
	"testing"

	"tundra/world"
)

type fakeDevice struct {
	next    BufferID
	data    map[BufferID][]float32
	creates int
	updates int
	deletes int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{data: make(map[BufferID][]float32)}
}

func (d *fakeDevice) CreateBuffer(f Feature, stride int, data []float32) (BufferID, error) {
	d.next++
	d.creates++
	d.data[d.next] = slices.Clone(data)
	return d.next, nil
}

func (d *fakeDevice) UpdateBuffer(id BufferID, data []float32) error {
	if _, ok := d.data[id]; !ok {
		return errors.New("unknown buffer")
	}
	d.updates++
	d.data[id] = slices.Clone(data)
	return nil
}

func (d *fakeDevice) DeleteBuffer(id BufferID) {
	d.deletes++
	delete(d.data, id)
}

func (d *fakeDevice) checksums() map[BufferID]uint64 {
	out := make(map[BufferID]uint64, len(d.data))
	for id, data := range d.data {
		h := fnv.New64a()
		var b [4]byte
		for _, f := range data {
			u := math.Float32bits(f)
			b[0], b[1], b[2], b[3] = byte(u), byte(u>>8), byte(u>>16), byte(u>>24)
			h.Write(b[:])
		}
		out[id] = h.Sum64()
	}
	return out
}

// waterWorld is 16x16 render chunks with one water tile at (5,5).
func waterWorld(t *testing.T) (*world.Board, *Registry, *fakeDevice) {
	t.Helper()
	terrain := world.NewTerrain(16*RenderChunkSize, 8)
	terrain.Set(world.Tile{X: 5, Y: 5, Type: world.Water, FlowOffset: 0.25})
	terrain.FillEdges()
	b, err := world.NewBoard(terrain)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	dev := newFakeDevice()
	reg, err := NewRegistry(NewLayout(b.Size(), b.EdgeDistance()), dev, DefaultFeatures()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	reg.Workers = 4
	if err := reg.CreateAll(context.Background(), b); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	b.OnTileChange(func(x, y int, _, _ world.Tile) {
		if err := reg.RecalculateTile(x, y); err != nil {
			t.Errorf("RecalculateTile: %v", err)
		}
	})
	return b, reg, dev
}

func TestLayoutIndexIsBijective(t *testing.T) {
	for _, tc := range []struct{ size, edge int }{{128, 8}, {100, 13}, {8, 0}, {3, 1}} {
		l := NewLayout(tc.size, tc.edge)
		seen := make([]bool, l.Len())
		for y := l.Min(); y <= l.Max(); y++ {
			for x := l.Min(); x <= l.Max(); x++ {
				i := l.Index(x, y)
				if i < 0 || i >= l.Len() {
					t.Fatalf("%+v: index %d out of range for (%d,%d)", tc, i, x, y)
				}
				if seen[i] {
					t.Fatalf("%+v: index %d reused at (%d,%d)", tc, i, x, y)
				}
				seen[i] = true
				if gx, gy := l.Coords(i); gx != x || gy != y {
					t.Fatalf("%+v: Coords(%d) = (%d,%d), want (%d,%d)", tc, i, gx, gy, x, y)
				}
			}
		}
		if l.Index(l.Min()-1, 0) != -1 || l.Index(0, l.Max()+1) != -1 {
			t.Fatalf("%+v: out of range coordinates accepted", tc)
		}
	}
}

func TestLayoutCoversEveryStoredTile(t *testing.T) {
	l := NewLayout(100, 13)
	s := l.Storage()
	covered := 0
	for i := 0; i < l.Len(); i++ {
		x, y := l.Coords(i)
		r := l.TileRect(x, y)
		if r.Empty() {
			continue
		}
		covered += (r.MaxX - r.MinX) * (r.MaxY - r.MinY)
	}
	if want := (s.MaxX - s.MinX) * (s.MaxY - s.MinY); covered != want {
		t.Fatalf("render chunks cover %d tiles, storage holds %d", covered, want)
	}
	if x, y := l.ChunkOfTile(-13, 112); !l.InRange(x, y) {
		t.Fatalf("corner tile maps to out of range chunk (%d,%d)", x, y)
	}
}

func TestSolidTilesExcludeWaterAndRebuildLocally(t *testing.T) {
	b, reg, dev := waterWorld(t)

	solid, ok := reg.Get(0, 0, SolidTiles)
	if !ok {
		t.Fatalf("no solid tile buffer for (0,0)")
	}
	if solid.Vertices != 63*6 {
		t.Fatalf("solid vertices = %d, want %d", solid.Vertices, 63*6)
	}
	river, ok := reg.Get(0, 0, Rivers)
	if !ok || river.Vertices != 6 {
		t.Fatalf("river buffer = %+v", river)
	}
	if _, ok := reg.Get(1, 0, Rivers); ok {
		t.Fatalf("dry chunk has a river buffer")
	}
	if other, _ := reg.Get(3, 3, SolidTiles); other.Vertices != 64*6 {
		t.Fatalf("full chunk vertices = %d", other.Vertices)
	}

	before := dev.checksums()
	creates := dev.creates
	solidID, riverID := solid.ID, river.ID

	if err := b.SetTileType(5, 5, world.Grass); err != nil {
		t.Fatalf("SetTileType: %v", err)
	}

	if solid.Vertices != 64*6 {
		t.Fatalf("solid vertices after mutation = %d, want %d", solid.Vertices, 64*6)
	}
	if river.Vertices != 0 {
		t.Fatalf("river vertices after mutation = %d", river.Vertices)
	}
	if _, ok := reg.Get(0, 0, Rivers); ok {
		t.Fatalf("emptied river buffer still reported drawable")
	}
	if reg.Buffer(0, 0, Rivers) != river {
		t.Fatalf("emptied river buffer lost its slot")
	}
	if dev.creates != creates {
		t.Fatalf("incremental rebuild created %d buffers", dev.creates-creates)
	}

	after := dev.checksums()
	for id, sum := range before {
		changed := after[id] != sum
		want := id == solidID || id == riverID
		if changed != want {
			t.Fatalf("buffer %d changed=%v, want %v", id, changed, want)
		}
	}
}

func TestRecalculateTileOnBorderRebuildsNeighbours(t *testing.T) {
	b, reg, dev := waterWorld(t)
	ao := func(x, y int) int {
		if buf := reg.Buffer(x, y, AmbientOcclusion); buf != nil {
			return buf.Vertices
		}
		return 0
	}
	if ao(0, 0) != 0 || ao(1, 0) != 0 {
		t.Fatalf("occlusion without walls")
	}
	before := dev.checksums()

	// (7,3) is the last column of chunk (0,0); its east neighbour is in (1,0)
	if err := b.UpdateTile(7, 3, world.Rock, true); err != nil {
		t.Fatalf("UpdateTile: %v", err)
	}
	if ao(0, 0) != 5*6 || ao(1, 0) != 3*6 {
		t.Fatalf("occlusion vertices = %d, %d", ao(0, 0), ao(1, 0))
	}
	if buf := reg.Buffer(0, 0, WallBorders); buf == nil || buf.Vertices != 4*6 {
		t.Fatalf("wall border buffer = %+v", buf)
	}
	after := dev.checksums()
	for id, sum := range before {
		if after[id] != sum && id != reg.Buffer(0, 0, SolidTiles).ID {
			t.Fatalf("unrelated buffer %d changed", id)
		}
	}
}

func TestStrideMismatchIsFatal(t *testing.T) {
	_, err := NewRegistry(NewLayout(8, 0), newFakeDevice(), FeatureSpec{Feature: SolidTiles, Stride: 5, Build: BuildSolidTiles})
	if !errors.Is(err, ErrStrideMismatch) {
		t.Fatalf("NewRegistry: %v", err)
	}

	bad := func(ctx *BuildContext, dst []float32) ([]float32, error) {
		return append(dst, 1, 2, 3, 4, 5), nil
	}
	reg, err := NewRegistry(NewLayout(8, 0), newFakeDevice(), FeatureSpec{Feature: SolidTiles, Stride: 7, Build: bad})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	b, err := world.NewBoard(world.NewTerrain(8, 0))
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	if err := reg.CreateAll(context.Background(), b); !errors.Is(err, ErrStrideMismatch) {
		t.Fatalf("CreateAll: %v", err)
	}
	if reg.Stats().Buffers != 0 {
		t.Fatalf("buffers left after failed build")
	}
}

func TestDecorationsResolveSlotsAndLogMissingOnce(t *testing.T) {
	terrain := world.NewTerrain(16, 0)
	terrain.Decorations = []world.Decoration{
		{Position: world.Point{X: 100, Y: 100}, Size: 32, Source: "flower"},
		{Position: world.Point{X: 200, Y: 100}, Size: 32, Source: "ghost"},
		{Position: world.Point{X: 600, Y: 100}, Size: 32, Source: "ghost"},
	}
	b, err := world.NewBoard(terrain)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	reg, err := NewRegistry(NewLayout(16, 0), newFakeDevice(), DefaultFeatures()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	var logs int
	reg.Logf = func(string, ...any) { logs++ }
	reg.Workers = 1
	reg.Slots = func(src string) (int, bool) { return 3, src == "flower" }
	if err := reg.CreateAll(context.Background(), b); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	if buf, ok := reg.Get(0, 0, Decorations); !ok || buf.Vertices != 6 {
		t.Fatalf("decoration buffer = %+v", buf)
	}
	if _, ok := reg.Get(1, 0, Decorations); ok {
		t.Fatalf("missing texture produced geometry")
	}
	if logs != 1 {
		t.Fatalf("missing texture logged %d times", logs)
	}

	reg.Strict = true
	if err := reg.CreateAll(context.Background(), b); !errors.Is(err, ErrMissingTexture) {
		t.Fatalf("strict CreateAll: %v", err)
	}
}

func TestReleaseDeletesEveryBuffer(t *testing.T) {
	_, reg, dev := waterWorld(t)
	st := reg.Stats()
	if st.Buffers == 0 {
		t.Fatalf("no buffers created")
	}
	if solid, _ := reg.Get(3, 3, SolidTiles); solid.Bytes() != 64*6*7*4 {
		t.Fatalf("solid buffer bytes = %d", solid.Bytes())
	}
	reg.Release()
	if len(dev.data) != 0 || dev.deletes != st.Buffers {
		t.Fatalf("release left %d buffers, deleted %d of %d", len(dev.data), dev.deletes, st.Buffers)
	}
	if _, ok := reg.Get(0, 0, SolidTiles); ok {
		t.Fatalf("Get after Release")
	}
	if err := reg.RecalculateRenderChunkData(0, 0, SolidTiles); !errors.Is(err, ErrNoRenderChunk) {
		t.Fatalf("rebuild after Release: %v", err)
	}
}
