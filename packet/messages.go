package packet

import (
	"fmt"

	"tundra/world"
)

const (
	tileBytes       = 13
	decorationBytes = 18
	entityBytes     = 19
	tileUpdateBytes = 6
)

// WorldLoad carries the generated terrain and the player's entity ID.
type WorldLoad struct {
	PlayerID uint32
	TPS      uint16
	Terrain  *world.Terrain
}

// EntityState is the full authoritative state of one entity.
type EntityState struct {
	ID       uint32
	Type     world.EntityType
	Position world.Point
	Rotation float64
	// Velocity is nil for static entities.
	Velocity *world.Point
}

type TileUpdate struct {
	X, Y   int
	Type   world.TileType
	IsWall bool
}

// GameData is one tick of authoritative updates. Entities is a snapshot of
// every entity near the player; Removed, Hits and Tiles are discrete events.
type GameData struct {
	Tick uint32
	// DayTime runs from 0 at midnight to 1 at the next midnight.
	DayTime  float32
	Entities []EntityState
	Removed  []uint32
	Hits     []uint32
	Tiles    []TileUpdate
}

// Skippable reports whether a later snapshot fully supersedes this one.
func (g *GameData) Skippable() bool {
	return len(g.Removed) == 0 && len(g.Hits) == 0 && len(g.Tiles) == 0
}

func (r *reader) worldLoad() (*WorldLoad, error) {
	r.at("world header")
	wl := &WorldLoad{PlayerID: r.u32(), TPS: r.u16()}
	size, edge := int(r.u16()), int(r.u16())
	if r.err == nil && size == 0 {
		r.fail()
	}
	if r.err != nil {
		return nil, r.err
	}

	r.at("tiles")
	span := size + 2*edge
	if span*span*tileBytes > len(r.data)-r.p {
		r.fail()
		return nil, r.err
	}
	t := world.NewTerrain(size, edge)
	for i := range t.Tiles {
		tile := &t.Tiles[i]
		tile.Type = world.TileType(r.u8())
		flags := r.u8()
		tile.IsWall = flags&1 != 0
		tile.Biome = world.Biome(r.u8())
		tile.Temperature = float32(r.u8()) / 255
		tile.Humidity = float32(r.u8()) / 255
		tile.FlowOffset = r.f32()
		tile.FlowDirection = r.f32()
		if r.err == nil && !tile.Type.Valid() {
			r.fail()
		}
	}

	r.at("decorations")
	t.Decorations = r.decorations()
	r.at("water rocks")
	t.WaterRocks = r.decorations()
	r.at("stepping stones")
	t.SteppingStones = r.decorations()
	if err := r.done(); err != nil {
		return nil, err
	}
	wl.Terrain = t
	return wl, nil
}

func (r *reader) decorations() []world.Decoration {
	n := r.count(decorationBytes)
	if n == 0 {
		return nil
	}
	out := make([]world.Decoration, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		d := world.Decoration{Kind: world.DecorationKind(r.u8())}
		d.Position = world.Point{X: float64(r.f32()), Y: float64(r.f32())}
		d.Rotation = float64(r.f32())
		d.Size = float64(r.f32())
		d.Source = r.str()
		out = append(out, d)
	}
	return out
}

func (r *reader) gameData() (*GameData, error) {
	r.at("game data header")
	g := &GameData{Tick: r.u32(), DayTime: r.f32()}

	r.at("entities")
	n := r.count(entityBytes)
	for i := 0; i < n && r.err == nil; i++ {
		e := EntityState{ID: r.u32(), Type: world.EntityType(r.u16())}
		e.Position = world.Point{X: float64(r.f32()), Y: float64(r.f32())}
		e.Rotation = float64(r.f32())
		if r.u8()&1 != 0 {
			e.Velocity = &world.Point{X: float64(r.f32()), Y: float64(r.f32())}
		}
		g.Entities = append(g.Entities, e)
	}

	r.at("removals")
	g.Removed = r.ids()
	r.at("hits")
	g.Hits = r.ids()

	r.at("tile updates")
	n = r.count(tileUpdateBytes)
	for i := 0; i < n && r.err == nil; i++ {
		u := TileUpdate{X: int(r.i16()), Y: int(r.i16()), Type: world.TileType(r.u8())}
		u.IsWall = r.u8()&1 != 0
		if r.err == nil && !u.Type.Valid() {
			r.fail()
		}
		g.Tiles = append(g.Tiles, u)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *reader) ids() []uint32 {
	n := r.count(4)
	if n == 0 {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = r.u32()
	}
	return out
}

// EncodeWorldLoad is the server side encoding of a WorldLoad. The offline
// demo feeds its worlds through it.
func EncodeWorldLoad(wl *WorldLoad) ([]byte, error) {
	t := wl.Terrain
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Size > 0xffff || t.EdgeDistance > 0xffff {
		return nil, fmt.Errorf("packet: world %d edge %d too large", t.Size, t.EdgeDistance)
	}
	w := &writer{buf: make([]byte, 0, 11+len(t.Tiles)*tileBytes)}
	w.u8(TagWorldLoad)
	w.u32(wl.PlayerID)
	w.u16(wl.TPS)
	w.u16(uint16(t.Size))
	w.u16(uint16(t.EdgeDistance))
	for _, tile := range t.Tiles {
		w.u8(uint8(tile.Type))
		var flags uint8
		if tile.IsWall {
			flags |= 1
		}
		w.u8(flags)
		w.u8(uint8(tile.Biome))
		w.u8(unitByte(tile.Temperature))
		w.u8(unitByte(tile.Humidity))
		w.f32(tile.FlowOffset)
		w.f32(tile.FlowDirection)
	}
	for _, list := range [][]world.Decoration{t.Decorations, t.WaterRocks, t.SteppingStones} {
		if len(list) > 0xffff {
			return nil, fmt.Errorf("packet: %d decorations in one list", len(list))
		}
		w.u16(uint16(len(list)))
		for _, d := range list {
			w.u8(uint8(d.Kind))
			w.f32(float32(d.Position.X))
			w.f32(float32(d.Position.Y))
			w.f32(float32(d.Rotation))
			w.f32(float32(d.Size))
			w.str(d.Source)
		}
	}
	return w.buf, nil
}

func unitByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// EncodeGameData is the server side encoding of a GameData.
func EncodeGameData(g *GameData) []byte {
	w := &writer{buf: make([]byte, 0, 15+len(g.Entities)*27)}
	w.u8(TagGameData)
	w.u32(g.Tick)
	w.f32(g.DayTime)
	w.u16(uint16(len(g.Entities)))
	for _, e := range g.Entities {
		w.u32(e.ID)
		w.u16(uint16(e.Type))
		w.f32(float32(e.Position.X))
		w.f32(float32(e.Position.Y))
		w.f32(float32(e.Rotation))
		if e.Velocity != nil {
			w.u8(1)
			w.f32(float32(e.Velocity.X))
			w.f32(float32(e.Velocity.Y))
		} else {
			w.u8(0)
		}
	}
	for _, ids := range [][]uint32{g.Removed, g.Hits} {
		w.u16(uint16(len(ids)))
		for _, id := range ids {
			w.u32(id)
		}
	}
	w.u16(uint16(len(g.Tiles)))
	for _, u := range g.Tiles {
		w.i16(int16(u.X))
		w.i16(int16(u.Y))
		w.u8(uint8(u.Type))
		if u.IsWall {
			w.u8(1)
		} else {
			w.u8(0)
		}
	}
	return w.buf
}
