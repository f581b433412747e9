// Package atlas packs texture sources into a few large pages so many sprites
// can share one bound texture.
package atlas

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"slices"

	"golang.org/x/image/draw"
)

const (
	DefaultPageSize = 2048
	DefaultPadding  = 1
)

var ErrDuplicate = errors.New("atlas: duplicate source")

// Slot locates one source inside the atlas.
type Slot struct {
	Index  int
	Page   int
	Rect   image.Rectangle
	Source string
}

// Width and Height are the packed size, which is smaller than the source
// only when the source did not fit on a page.
func (s Slot) Width() int  { return s.Rect.Dx() }
func (s Slot) Height() int { return s.Rect.Dy() }

// UV returns the slot's normalised texture coordinates on its page.
func (s Slot) UV(pageSize int) (u0, v0, u1, v1 float32) {
	p := float32(pageSize)
	return float32(s.Rect.Min.X) / p, float32(s.Rect.Min.Y) / p,
		float32(s.Rect.Max.X) / p, float32(s.Rect.Max.Y) / p
}

type entry struct {
	source string
	img    image.Image
}

// Builder collects sources before packing.
type Builder struct {
	PageSize int
	Padding  int

	entries []entry
	seen    map[string]struct{}
}

func NewBuilder() *Builder {
	return &Builder{PageSize: DefaultPageSize, Padding: DefaultPadding, seen: make(map[string]struct{})}
}

func (b *Builder) Add(source string, img image.Image) error {
	if _, ok := b.seen[source]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, source)
	}
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("atlas: source %q has no pixels", source)
	}
	b.seen[source] = struct{}{}
	b.entries = append(b.entries, entry{source, img})
	return nil
}

func (b *Builder) Len() int { return len(b.entries) }

// Atlas is the packed result. Slot indices follow the order sources were
// added.
type Atlas struct {
	pageSize int
	slots    []Slot
	bySource map[string]int
	pages    []*image.RGBA
}

// Build packs every source with a shelf packer, tallest first. Sources
// larger than a page are scaled down to fit.
func (b *Builder) Build() (*Atlas, error) {
	size, pad := b.PageSize, b.Padding
	if size <= 2*pad {
		return nil, fmt.Errorf("atlas: page size %d too small", size)
	}
	a := &Atlas{
		pageSize: size,
		slots:    make([]Slot, len(b.entries)),
		bySource: make(map[string]int, len(b.entries)),
	}

	order := make([]int, len(b.entries))
	for i := range order {
		order[i] = i
	}
	fitted := make([]image.Point, len(b.entries))
	for i, e := range b.entries {
		fitted[i] = fit(e.img.Bounds().Size(), size-2*pad)
	}
	slices.SortStableFunc(order, func(x, y int) int {
		return cmp.Compare(fitted[y].Y, fitted[x].Y)
	})

	var page *image.RGBA
	x, y, shelf := 0, 0, 0
	for _, i := range order {
		e, sz := b.entries[i], fitted[i]
		w, h := sz.X+2*pad, sz.Y+2*pad
		if page != nil && x+w > size {
			x, y, shelf = 0, y+shelf, 0
		}
		if page == nil || y+h > size {
			page = image.NewRGBA(image.Rect(0, 0, size, size))
			a.pages = append(a.pages, page)
			x, y, shelf = 0, 0, 0
		}
		dst := image.Rect(x+pad, y+pad, x+pad+sz.X, y+pad+sz.Y)
		src := e.img.Bounds()
		if src.Size() == sz {
			draw.Draw(page, dst, e.img, src.Min, draw.Src)
		} else {
			draw.CatmullRom.Scale(page, dst, e.img, src, draw.Src, nil)
		}
		a.slots[i] = Slot{Index: i, Page: len(a.pages) - 1, Rect: dst, Source: e.source}
		a.bySource[e.source] = i
		x += w
		shelf = max(shelf, h)
	}
	return a, nil
}

// fit scales sz down, keeping its aspect ratio, until both sides are at
// most limit.
func fit(sz image.Point, limit int) image.Point {
	if sz.X <= limit && sz.Y <= limit {
		return sz
	}
	if sz.X >= sz.Y {
		return image.Pt(limit, max(1, sz.Y*limit/sz.X))
	}
	return image.Pt(max(1, sz.X*limit/sz.Y), limit)
}

func (a *Atlas) Lookup(source string) (Slot, bool) {
	i, ok := a.bySource[source]
	if !ok {
		return Slot{}, false
	}
	return a.slots[i], true
}

// SlotIndex resolves a source to its slot index.
func (a *Atlas) SlotIndex(source string) (int, bool) {
	i, ok := a.bySource[source]
	return i, ok
}

func (a *Atlas) SlotAt(i int) (Slot, bool) {
	if i < 0 || i >= len(a.slots) {
		return Slot{}, false
	}
	return a.slots[i], true
}

func (a *Atlas) Pages() []*image.RGBA { return a.pages }
func (a *Atlas) PageSize() int        { return a.pageSize }
func (a *Atlas) Len() int             { return len(a.slots) }
