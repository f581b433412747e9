package main

import (
	"testing"

	"tundra/packet"
	"tundra/world"
)

func TestGenerateTerrainDeterministic(t *testing.T) {
	a := generateTerrain(7, 64)
	b := generateTerrain(7, 64)
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for i := range a.Tiles {
		if a.Tiles[i] != b.Tiles[i] {
			t.Fatalf("tile %d differs between runs with one seed", i)
		}
	}
	if len(a.Decorations) != len(b.Decorations) || len(a.SteppingStones) == 0 {
		t.Fatalf("decorations: %d vs %d, %d stepping stones", len(a.Decorations), len(b.Decorations), len(a.SteppingStones))
	}
	water := 0
	for _, tile := range a.Tiles {
		if tile.Type == world.Water {
			water++
			if tile.Biome != world.River {
				t.Fatalf("water tile (%d,%d) outside the river biome", tile.X, tile.Y)
			}
		}
	}
	if water == 0 {
		t.Fatalf("no river generated")
	}
}

func TestDemoWorldLoadRoundTrip(t *testing.T) {
	d := newDemoServer(3, 64, 20)
	data, err := d.worldLoad()
	if err != nil {
		t.Fatalf("worldLoad: %v", err)
	}
	msg, err := packet.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	wl, ok := msg.(*packet.WorldLoad)
	if !ok {
		t.Fatalf("decoded %T", msg)
	}
	if wl.PlayerID != d.playerID || wl.TPS != 20 || wl.Terrain.Size != 64 {
		t.Fatalf("world load = %+v", wl)
	}
	if _, err := world.NewBoard(wl.Terrain); err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
}

func TestDemoPlayerMoves(t *testing.T) {
	d := newDemoServer(3, 64, 20)
	start := d.entities[d.playerID].state.Position
	d.handle(packet.EncodePlayerData(packet.PlayerData{MoveX: 1}))

	var g *packet.GameData
	for i := 0; i < 5; i++ {
		g = d.step()
	}
	if g.Tick != 5 {
		t.Fatalf("tick = %d, want 5", g.Tick)
	}
	var player *packet.EntityState
	for i := range g.Entities {
		if g.Entities[i].ID == d.playerID {
			player = &g.Entities[i]
		}
	}
	if player == nil {
		t.Fatalf("player missing from snapshot")
	}
	// The player either moved right or was stopped by a wall.
	if player.Position.X < start.X {
		t.Fatalf("player moved left: %v -> %v", start, player.Position)
	}

	decoded, err := packet.Decode(packet.EncodeGameData(g))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gd := decoded.(*packet.GameData); len(gd.Entities) != len(g.Entities) {
		t.Fatalf("entities %d, want %d", len(gd.Entities), len(g.Entities))
	}
}

func TestDemoArrowLifecycle(t *testing.T) {
	d := newDemoServer(5, 64, 20)
	d.handle(packet.EncodePlayerData(packet.PlayerData{Attacking: true}))
	g := d.step()
	arrows := 0
	for _, e := range g.Entities {
		if e.Type == entityArrow {
			arrows++
		}
	}
	if arrows != 1 {
		t.Fatalf("arrows = %d after attacking, want 1", arrows)
	}

	d.handle(packet.EncodeDeactivate())
	removed := false
	for i := 0; i < demoArrowTicks+1 && !removed; i++ {
		removed = len(d.step().Removed) > 0
	}
	if !removed {
		t.Fatalf("arrow never removed")
	}
}

func TestDemoHandleIgnoresGarbage(t *testing.T) {
	d := newDemoServer(1, 32, 20)
	d.handle(nil)
	d.handle([]byte{packet.TagPlayerData, 1})
	d.handle([]byte{0xff})
	if d.input != (packet.PlayerData{}) {
		t.Fatalf("input changed by malformed messages: %+v", d.input)
	}
}
