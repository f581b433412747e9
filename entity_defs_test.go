package main

import (
	"slices"
	"testing"

	"tundra/world"
)

func TestEntityDefs(t *testing.T) {
	for typ, def := range entityDefs {
		e := newEntityFromDef(1, typ, world.Point{X: 10, Y: 20})
		if len(e.Hitboxes) == 0 || len(e.RenderParts) == 0 {
			t.Fatalf("%s: no hitboxes or parts", def.name)
		}
		if entityName(typ) != def.name {
			t.Fatalf("entityName(%d) = %q", typ, entityName(typ))
		}
		if entityBaseDepth(e) != def.depth {
			t.Fatalf("%s: depth %v", def.name, entityBaseDepth(e))
		}
	}
}

func TestUnknownEntityPlaceholder(t *testing.T) {
	e := newEntityFromDef(9, 200, world.Point{})
	if len(e.RenderParts) != 1 || e.RenderParts[0].Shape != world.CircleShape {
		t.Fatalf("unknown entity parts = %+v", e.RenderParts)
	}
	if entityName(200) != "unknown" {
		t.Fatalf("name = %q", entityName(200))
	}
}

func TestTextureSources(t *testing.T) {
	src := textureSources()
	if !slices.IsSorted(src) {
		t.Fatalf("sources not sorted: %v", src)
	}
	if len(slices.Compact(slices.Clone(src))) != len(src) {
		t.Fatalf("duplicate sources: %v", src)
	}
	for _, want := range []string{"player", "tree_crown", "stepping_stone"} {
		if !slices.Contains(src, want) {
			t.Fatalf("missing %q in %v", want, src)
		}
	}
}

func TestHandSwing(t *testing.T) {
	e := newEntityFromDef(1, entityPlayer, world.Point{})
	rest := world.Point{X: 28, Y: -24}
	swing := handSwing(e, rest)
	if swing() != rest {
		t.Fatalf("idle hand moved")
	}
	e.RegisterHit()
	e.TicksSinceHit = 6
	if p := swing(); p.X <= rest.X {
		t.Fatalf("hand did not swing forward: %v", p)
	}
}
