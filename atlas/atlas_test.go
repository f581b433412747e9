package atlas

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestBuildPacksWithoutOverlap(t *testing.T) {
	b := NewBuilder()
	b.PageSize = 64
	colors := []color.RGBA{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}, {9, 9, 9, 255}, {200, 100, 0, 255}}
	sizes := [][2]int{{30, 20}, {10, 40}, {30, 30}, {5, 5}, {62, 10}}
	for i, sz := range sizes {
		if err := b.Add(string(rune('a'+i)), solid(sz[0], sz[1], colors[i])); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	a, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if a.Len() != len(sizes) {
		t.Fatalf("Len = %d", a.Len())
	}
	for i := 0; i < a.Len(); i++ {
		s, _ := a.SlotAt(i)
		if s.Index != i || s.Width() != sizes[i][0] || s.Height() != sizes[i][1] {
			t.Fatalf("slot %d = %+v", i, s)
		}
		if !s.Rect.In(a.Pages()[s.Page].Bounds()) {
			t.Fatalf("slot %d outside its page", i)
		}
		if got := a.Pages()[s.Page].RGBAAt(s.Rect.Min.X, s.Rect.Min.Y); got != colors[i] {
			t.Fatalf("slot %d pixel %v, want %v", i, got, colors[i])
		}
		for j := i + 1; j < a.Len(); j++ {
			o, _ := a.SlotAt(j)
			if o.Page == s.Page && o.Rect.Overlaps(s.Rect) {
				t.Fatalf("slots %d and %d overlap", i, j)
			}
		}
	}
	if s, ok := a.Lookup("c"); !ok || s.Index != 2 {
		t.Fatalf("Lookup(c) = %+v, %v", s, ok)
	}
	if _, ok := a.Lookup("zzz"); ok {
		t.Fatalf("unknown source resolved")
	}
}

func TestOversizedSourceIsScaled(t *testing.T) {
	b := NewBuilder()
	b.PageSize = 32
	if err := b.Add("big", solid(100, 50, color.RGBA{1, 2, 3, 255})); err != nil {
		t.Fatalf("Add: %v", err)
	}
	a, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s, _ := a.Lookup("big")
	if s.Width() != 30 || s.Height() != 15 {
		t.Fatalf("scaled slot %dx%d", s.Width(), s.Height())
	}
	u0, v0, u1, v1 := s.UV(a.PageSize())
	if u0 <= 0 || v0 <= 0 || u1 > 1 || v1 > 1 || u1 <= u0 {
		t.Fatalf("uv %v %v %v %v", u0, v0, u1, v1)
	}
}

func TestDuplicateSourceRejected(t *testing.T) {
	b := NewBuilder()
	if err := b.Add("x", solid(1, 1, color.RGBA{})); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.Add("x", solid(1, 1, color.RGBA{})); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate Add: %v", err)
	}
	if err := b.Add("empty", image.NewRGBA(image.Rectangle{})); err == nil {
		t.Fatalf("empty image accepted")
	}
}

func TestOverflowStartsNewPage(t *testing.T) {
	b := NewBuilder()
	b.PageSize = 16
	for i := 0; i < 5; i++ {
		b.Add(string(rune('a'+i)), solid(14, 14, color.RGBA{A: 255}))
	}
	a, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(a.Pages()) != 5 {
		t.Fatalf("pages = %d, want 5", len(a.Pages()))
	}
}
