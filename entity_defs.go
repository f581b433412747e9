package main

import (
	"image/color"
	"math"
	"slices"

	"tundra/world"
)

// Entity types as sent by the server.
const (
	entityPlayer world.EntityType = iota + 1
	entityCow
	entityTree
	entityBoulder
	entityArrow
	entitySlime
	entityTombstone
)

// entityDef is the client side description of an entity type: its collision
// shapes and how to draw it. Parts are created fresh for every entity since
// render parts carry per-entity state.
type entityDef struct {
	name     string
	hitboxes []world.Hitbox
	parts    func(e *world.Entity) []*world.RenderPart
	// depth is the base depth before z-index bias; nearer things draw later.
	depth float64
}

var shadowColor = color.RGBA{0, 0, 0, 0x50}

var entityDefs = map[world.EntityType]entityDef{
	entityPlayer: {
		name:     "player",
		hitboxes: []world.Hitbox{world.CircularHitbox{Radius: 32}},
		depth:    0.4,
		parts: func(e *world.Entity) []*world.RenderPart {
			body := world.NewImagePart("body", "player", 64, 64, 1)
			hand := world.NewImagePart("hand", "player_hand", 24, 24, 2)
			hand.OffsetFunc = handSwing(e, world.Point{X: 28, Y: -24})
			shadow := world.NewCirclePart("shadow", 60, shadowColor, -1)
			shadow.Offset = world.Point{X: 4, Y: 4}
			return []*world.RenderPart{shadow, body, hand}
		},
	},
	entityCow: {
		name:     "cow",
		hitboxes: []world.Hitbox{world.RectangularHitbox{Width: 96, Height: 56}},
		depth:    0.45,
		parts: func(e *world.Entity) []*world.RenderPart {
			body := world.NewImagePart("body", "cow", 104, 64, 0)
			head := world.NewImagePart("head", "cow_head", 40, 40, 1)
			head.Offset = world.Point{X: 56}
			return []*world.RenderPart{body, head}
		},
	},
	entityTree: {
		name:     "tree",
		hitboxes: []world.Hitbox{world.CircularHitbox{Radius: 40}},
		depth:    0.2,
		parts: func(e *world.Entity) []*world.RenderPart {
			trunk := world.NewImagePart("trunk", "tree_trunk", 80, 80, 0)
			crown := world.NewImagePart("crown", "tree_crown", 200, 200, 5)
			crown.Opacity = 0.9
			return []*world.RenderPart{trunk, crown}
		},
	},
	entityBoulder: {
		name:     "boulder",
		hitboxes: []world.Hitbox{world.CircularHitbox{Radius: 48}},
		depth:    0.3,
		parts: func(e *world.Entity) []*world.RenderPart {
			return []*world.RenderPart{world.NewImagePart("body", "boulder", 112, 112, 0)}
		},
	},
	entityArrow: {
		name:     "arrow",
		hitboxes: []world.Hitbox{world.RectangularHitbox{Width: 48, Height: 8}},
		depth:    0.35,
		parts: func(e *world.Entity) []*world.RenderPart {
			return []*world.RenderPart{world.NewImagePart("body", "arrow", 56, 12, 3)}
		},
	},
	entitySlime: {
		name:     "slime",
		hitboxes: []world.Hitbox{world.CircularHitbox{Radius: 24}},
		depth:    0.45,
		parts: func(e *world.Entity) []*world.RenderPart {
			body := world.NewCirclePart("body", 52, color.RGBA{0x6c, 0xc8, 0x4a, 0xff}, 0)
			body.Opacity = 0.85
			core := world.NewCirclePart("core", 18, color.RGBA{0x2f, 0x7a, 0x22, 0xff}, 1)
			core.Offset = world.Point{X: 6, Y: -4}
			return []*world.RenderPart{body, core}
		},
	},
	entityTombstone: {
		name:     "tombstone",
		hitboxes: []world.Hitbox{world.RectangularHitbox{Width: 48, Height: 24, Offset: world.Point{Y: 12}}},
		depth:    0.3,
		parts: func(e *world.Entity) []*world.RenderPart {
			return []*world.RenderPart{world.NewImagePart("body", "tombstone", 56, 64, 0)}
		},
	},
}

// handSwing moves the hand forward and back while the entity's hit flash
// runs, giving a cheap attack animation.
func handSwing(e *world.Entity, rest world.Point) func() world.Point {
	return func() world.Point {
		if e.TicksSinceHit < 0 || e.TicksSinceHit > 12 {
			return rest
		}
		t := math.Sin(float64(e.TicksSinceHit) / 12 * math.Pi)
		return world.Point{X: rest.X + 16*t, Y: rest.Y * (1 - 0.5*t)}
	}
}

// newEntityFromDef builds an entity of a known or unknown type. Unknown
// types get a placeholder circle so they stay visible.
func newEntityFromDef(id uint32, typ world.EntityType, pos world.Point) *world.Entity {
	e := world.NewEntity(id, typ, pos)
	def, ok := entityDefs[typ]
	if !ok {
		e.Hitboxes = []world.Hitbox{world.CircularHitbox{Radius: 16}}
		e.RenderParts = []*world.RenderPart{world.NewCirclePart("unknown", 32, color.RGBA{0xff, 0x00, 0xff, 0xff}, 0)}
		return e
	}
	e.Hitboxes = def.hitboxes
	e.RenderParts = def.parts(e)
	return e
}

func entityBaseDepth(e *world.Entity) float64 {
	if def, ok := entityDefs[e.Type]; ok {
		return def.depth
	}
	return 0.5
}

func entityName(typ world.EntityType) string {
	if def, ok := entityDefs[typ]; ok {
		return def.name
	}
	return "unknown"
}

// textureSources lists every texture name the client knows how to draw.
func textureSources() []string {
	seen := map[string]struct{}{}
	var out []string
	for typ := range entityDefs {
		e := newEntityFromDef(0, typ, world.Point{})
		for _, p := range e.RenderParts {
			if p.Shape != world.ImageShape {
				continue
			}
			if _, ok := seen[p.Source]; ok {
				continue
			}
			seen[p.Source] = struct{}{}
			out = append(out, p.Source)
		}
	}
	for _, s := range decorationSources {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}

var decorationSources = []string{"flower", "grass_tuft", "pebble", "mushroom", "water_rock", "stepping_stone"}
