package main

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"tundra/packet"
	"tundra/world"
)

// The offline demo is a tiny in-process server. It speaks the same wire
// format as a real one, so everything it produces goes through
// packet.Decode and the scheduler queue.

const (
	demoEdge         = 16
	demoDayTicks     = 60 * 120
	demoPlayerSpeed  = 320.0
	demoWanderSpeed  = 60.0
	demoArrowSpeed   = 720.0
	demoArrowTicks   = 60
	demoFireCooldown = 15
)

// valueNoise is bilinear noise over a random lattice, in [0, 1].
type valueNoise struct {
	w, h int
	v    []float64
}

func newValueNoise(rng *rand.Rand, w, h int) *valueNoise {
	n := &valueNoise{w: w + 2, h: h + 2, v: make([]float64, (w+2)*(h+2))}
	for i := range n.v {
		n.v[i] = rng.Float64()
	}
	return n
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

func (n *valueNoise) at(x, y float64) float64 {
	x = math.Max(0, math.Min(x, float64(n.w-2)))
	y = math.Max(0, math.Min(y, float64(n.h-2)))
	x0, y0 := int(x), int(y)
	fx, fy := smooth(x-float64(x0)), smooth(y-float64(y0))
	v := func(x, y int) float64 { return n.v[y*n.w+x] }
	top := v(x0, y0)*(1-fx) + v(x0+1, y0)*fx
	bottom := v(x0, y0+1)*(1-fx) + v(x0+1, y0+1)*fx
	return top*(1-fy) + bottom*fy
}

// generateTerrain builds a deterministic world: climate bands, a meandering
// river with stepping stones, rocky outcrops and scattered decorations.
func generateTerrain(seed uint64, size int) *world.Terrain {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	t := world.NewTerrain(size, demoEdge)

	cells := size/16 + 1
	temp := newValueNoise(rng, cells, cells)
	hum := newValueNoise(rng, cells, cells)
	rock := newValueNoise(rng, size/8+1, size/8+1)
	phase := rng.Float64() * 2 * math.Pi

	mid := float64(size) / 2
	amp := float64(size) / 6
	freq := 3 * math.Pi / float64(size)
	riverY := func(x float64) float64 { return mid + amp*math.Sin(x*freq+phase) }

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := float64(x), float64(y)
			tile := world.Tile{
				X:           x,
				Y:           y,
				Temperature: float32(temp.at(fx/16, fy/16)),
				Humidity:    float32(hum.at(fx/16, fy/16)),
			}
			dist := math.Abs(fy + 0.5 - riverY(fx+0.5))
			switch {
			case dist < 2:
				slope := amp * freq * math.Cos((fx+0.5)*freq+phase)
				tile.Type, tile.Biome = world.Water, world.River
				tile.FlowDirection = float32(math.Atan2(slope, 1))
				tile.FlowOffset = float32(math.Mod(fx/8, 1))
			case dist < 3:
				tile.Type, tile.Biome = world.Sand, world.River
			case rock.at(fx/8, fy/8) > 0.72:
				tile.Type, tile.Biome, tile.IsWall = world.Rock, world.Mountains, true
			case tile.Temperature < 0.3:
				tile.Type, tile.Biome = world.Snow, world.Tundra
				if tile.Humidity > 0.6 {
					tile.Type = world.Ice
				}
			case tile.Temperature > 0.72 && tile.Humidity < 0.4:
				tile.Type, tile.Biome = world.Sand, world.Desert
			case tile.Humidity > 0.72:
				tile.Type, tile.Biome = world.Sludge, world.Swamp
			case rng.IntN(9) == 0:
				tile.Type, tile.Biome = world.Dirt, world.Grasslands
			default:
				tile.Type, tile.Biome = world.Grass, world.Grasslands
			}
			t.Set(tile)
		}
	}
	t.FillEdges()

	ground := []string{"flower", "grass_tuft", "pebble", "mushroom"}
	for i := 0; i < size*size/24; i++ {
		x, y := rng.IntN(size), rng.IntN(size)
		if tile, _ := t.At(x, y); tile.Type != world.Grass && tile.Type != world.Dirt {
			continue
		}
		t.Decorations = append(t.Decorations, world.Decoration{
			Kind:     world.GroundDecoration,
			Position: randomIn(rng, x, y),
			Rotation: rng.Float64() * 2 * math.Pi,
			Size:     16 + rng.Float64()*24,
			Source:   ground[rng.IntN(len(ground))],
		})
	}
	for i := 0; i < size/2; i++ {
		x, y := rng.IntN(size), rng.IntN(size)
		if tile, _ := t.At(x, y); tile.Type != world.Water {
			continue
		}
		t.WaterRocks = append(t.WaterRocks, world.Decoration{
			Kind:     world.WaterRock,
			Position: randomIn(rng, x, y),
			Rotation: rng.Float64() * 2 * math.Pi,
			Size:     20 + rng.Float64()*16,
			Source:   "water_rock",
		})
	}
	for x := 6; x < size; x += 14 {
		cy := riverY(float64(x) + 0.5)
		for k := -2; k <= 2; k++ {
			t.SteppingStones = append(t.SteppingStones, world.Decoration{
				Kind:     world.SteppingStone,
				Position: world.Point{X: (float64(x) + 0.5) * world.TileSize, Y: (cy + float64(k)*0.8) * world.TileSize},
				Rotation: rng.Float64() * 2 * math.Pi,
				Size:     40,
				Source:   "stepping_stone",
			})
		}
	}
	return t
}

func randomIn(rng *rand.Rand, x, y int) world.Point {
	return world.Point{
		X: (float64(x) + 0.1 + rng.Float64()*0.8) * world.TileSize,
		Y: (float64(y) + 0.1 + rng.Float64()*0.8) * world.TileSize,
	}
}

type demoEntity struct {
	state   packet.EntityState
	heading float64
	ttl     int
	radius  float64
}

// demoServer simulates the server side of a session.
type demoServer struct {
	rng     *rand.Rand
	terrain *world.Terrain
	tps     int

	mu     sync.Mutex
	input  packet.PlayerData
	active bool

	tick     uint32
	nextID   uint32
	playerID uint32
	entities map[uint32]*demoEntity
	order    []uint32
	cooldown int
}

func newDemoServer(seed uint64, size, tps int) *demoServer {
	d := &demoServer{
		rng:      rand.New(rand.NewPCG(seed+1, seed^0x5851f42d4c957f2d)),
		terrain:  generateTerrain(seed, size),
		tps:      tps,
		active:   true,
		entities: make(map[uint32]*demoEntity),
	}
	cx, cy := d.openTileNear(size/2, size/2)
	d.playerID = d.spawn(entityPlayer, tileCenter(cx, cy), 32)
	for i := 0; i < size*size/160; i++ {
		x, y := d.rng.IntN(size), d.rng.IntN(size)
		if !d.walkable(x, y) {
			continue
		}
		var typ world.EntityType
		radius := 40.0
		switch r := d.rng.IntN(10); {
		case r < 4:
			typ = entityTree
		case r < 6:
			typ, radius = entityBoulder, 48
		case r < 8:
			typ = entityCow
		default:
			typ, radius = entitySlime, 24
		}
		d.spawn(typ, tileCenter(x, y), radius)
	}
	return d
}

func tileCenter(x, y int) world.Point {
	return world.Point{X: (float64(x) + 0.5) * world.TileSize, Y: (float64(y) + 0.5) * world.TileSize}
}

func (d *demoServer) spawn(typ world.EntityType, pos world.Point, radius float64) uint32 {
	d.nextID++
	id := d.nextID
	d.entities[id] = &demoEntity{
		state:   packet.EntityState{ID: id, Type: typ, Position: pos},
		heading: d.rng.Float64() * 2 * math.Pi,
		radius:  radius,
	}
	d.order = append(d.order, id)
	return id
}

func (d *demoServer) remove(id uint32) {
	delete(d.entities, id)
	for i, o := range d.order {
		if o == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *demoServer) walkable(x, y int) bool {
	if x < 0 || y < 0 || x >= d.terrain.Size || y >= d.terrain.Size {
		return false
	}
	t, _ := d.terrain.At(x, y)
	return !t.IsWall && t.Type != world.Water
}

// openTileNear spirals out from (x, y) to the nearest walkable tile.
func (d *demoServer) openTileNear(x, y int) (int, int) {
	for r := 0; r < d.terrain.Size; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if d.walkable(x+dx, y+dy) {
					return x + dx, y + dy
				}
			}
		}
	}
	return x, y
}

// handle receives a client message.
func (d *demoServer) handle(b []byte) {
	if len(b) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch b[0] {
	case packet.TagPlayerData:
		in, err := packet.DecodePlayerData(b)
		if err != nil {
			logError("demo: %v", err)
			return
		}
		d.input = in
	case packet.TagActivate:
		d.active = true
	case packet.TagDeactivate:
		d.active = false
		d.input = packet.PlayerData{}
	}
}

func (d *demoServer) worldLoad() ([]byte, error) {
	return packet.EncodeWorldLoad(&packet.WorldLoad{PlayerID: d.playerID, TPS: uint16(d.tps), Terrain: d.terrain})
}

// step advances the simulation one tick and returns that tick's update.
func (d *demoServer) step() *packet.GameData {
	d.mu.Lock()
	in := d.input
	d.mu.Unlock()

	d.tick++
	g := &packet.GameData{
		Tick:    d.tick,
		DayTime: float32(math.Mod(0.3+float64(d.tick)/demoDayTicks, 1)),
	}
	dt := 1 / float64(d.tps)
	// Entities spawned this tick start moving on the next one.
	movers := append([]uint32(nil), d.order...)

	if p, ok := d.entities[d.playerID]; ok {
		v := world.Point{X: float64(in.MoveX) * demoPlayerSpeed, Y: float64(in.MoveY) * demoPlayerSpeed}
		p.state.Rotation = float64(in.Rotation)
		d.move(p, v, dt)
		if d.cooldown > 0 {
			d.cooldown--
		}
		if in.Attacking && d.cooldown == 0 {
			d.cooldown = demoFireCooldown
			dir := world.Point{X: 1}.Rotate(p.state.Rotation)
			id := d.spawn(entityArrow, p.state.Position.Add(dir.Scale(40)), 8)
			a := d.entities[id]
			a.state.Rotation = p.state.Rotation
			a.heading = p.state.Rotation
			a.ttl = demoArrowTicks
		}
	}

	for _, id := range movers {
		e, ok := d.entities[id]
		if !ok || id == d.playerID {
			continue
		}
		switch e.state.Type {
		case entityCow, entitySlime:
			if d.rng.IntN(90) == 0 {
				e.heading += (d.rng.Float64() - 0.5) * math.Pi
			}
			v := world.Point{X: demoWanderSpeed}.Rotate(e.heading)
			if !d.move(e, v, dt) {
				e.heading += math.Pi / 2
			}
			e.state.Rotation = e.heading
		case entityArrow:
			d.stepArrow(e, dt, g)
		}
	}

	g.Entities = make([]packet.EntityState, 0, len(d.order))
	for _, id := range d.order {
		g.Entities = append(g.Entities, d.entities[id].state)
	}
	return g
}

// move tries to walk e with velocity v. Blocked moves stop the entity and
// report false.
func (d *demoServer) move(e *demoEntity, v world.Point, dt float64) bool {
	next := e.state.Position.Add(v.Scale(dt))
	if tx, ty := world.TileOf(next); !d.walkable(tx, ty) {
		e.state.Velocity = nil
		return false
	}
	e.state.Position = next
	if v.X == 0 && v.Y == 0 {
		e.state.Velocity = nil
	} else {
		e.state.Velocity = &world.Point{X: v.X, Y: v.Y}
	}
	return true
}

// stepArrow flies an arrow. It breaks rock walls it reaches and hits the
// first entity it touches.
func (d *demoServer) stepArrow(a *demoEntity, dt float64, g *packet.GameData) {
	a.ttl--
	v := world.Point{X: demoArrowSpeed}.Rotate(a.heading)
	next := a.state.Position.Add(v.Scale(dt))
	tx, ty := world.TileOf(next)
	tile, inside := d.terrain.At(tx, ty)
	switch {
	case a.ttl <= 0 || !inside || tx < 0 || ty < 0 || tx >= d.terrain.Size || ty >= d.terrain.Size:
		d.remove(a.state.ID)
		g.Removed = append(g.Removed, a.state.ID)
		return
	case tile.IsWall:
		tile.IsWall = false
		tile.Type = world.Dirt
		d.terrain.Set(tile)
		g.Tiles = append(g.Tiles, packet.TileUpdate{X: tx, Y: ty, Type: world.Dirt})
		d.remove(a.state.ID)
		g.Removed = append(g.Removed, a.state.ID)
		return
	}
	for _, id := range d.order {
		e := d.entities[id]
		if id == a.state.ID || id == d.playerID || e.state.Type == entityArrow {
			continue
		}
		if e.state.Position.Distance(next) <= e.radius {
			g.Hits = append(g.Hits, id)
			d.remove(a.state.ID)
			g.Removed = append(g.Removed, a.state.ID)
			return
		}
	}
	a.state.Position = next
	a.state.Velocity = &world.Point{X: v.X, Y: v.Y}
}

// run sends the world and then one update per tick until ctx is done.
func (d *demoServer) run(ctx context.Context, deliver func(any)) {
	data, err := d.worldLoad()
	if err != nil {
		logError("demo: %v", err)
		return
	}
	d.deliverBytes(data, deliver)
	t := time.NewTicker(time.Second / time.Duration(d.tps))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.deliverBytes(packet.EncodeGameData(d.step()), deliver)
		}
	}
}

func (d *demoServer) deliverBytes(data []byte, deliver func(any)) {
	logDebugPacket("demo", data)
	msg, err := packet.Decode(data)
	if err != nil {
		logError("demo: %v", err)
		return
	}
	deliver(msg)
}
