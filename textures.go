package main

import (
	"errors"
	"hash/fnv"
	"image"
	"image/color"
	_ "image/png"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"tundra/atlas"
)

const placeholderSize = 64

// loadAtlas packs every known texture source into an atlas. Sources without
// a PNG in dir get a generated placeholder so the world stays readable.
func loadAtlas(dir string, sources []string) (*atlas.Atlas, error) {
	b := atlas.NewBuilder()
	loaded := 0
	for _, src := range sources {
		img, err := loadTexture(filepath.Join(dir, src+".png"))
		switch {
		case err == nil:
			loaded++
		case errors.Is(err, fs.ErrNotExist):
			img = placeholderTexture(src)
		default:
			logError("texture %v: %v", src, err)
			img = placeholderTexture(src)
		}
		if err := b.Add(src, img); err != nil {
			return nil, err
		}
	}
	a, err := b.Build()
	if err != nil {
		return nil, err
	}
	logDebug("atlas: %d sources (%d from %v) on %d pages", a.Len(), loaded, dir, len(a.Pages()))
	return a, nil
}

func loadTexture(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	_, img, err := ebitenutil.NewImageFromFile(path)
	return img, err
}

// placeholderTexture draws a soft disc in a color derived from the name.
func placeholderTexture(source string) image.Image {
	h := fnv.New32a()
	h.Write([]byte(source))
	v := h.Sum32()
	base := color.RGBA{uint8(v), uint8(v >> 8), uint8(v >> 16), 0xff}

	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	c := float64(placeholderSize) / 2
	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			d := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c) / c
			if d > 1 {
				continue
			}
			shade := 1 - 0.35*d
			a := 1.0
			if d > 0.92 {
				a = (1 - d) / 0.08
			}
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(base.R) * shade * a),
				G: uint8(float64(base.G) * shade * a),
				B: uint8(float64(base.B) * shade * a),
				A: uint8(255 * a),
			})
		}
	}
	return img
}

// atlasPages mirrors the atlas pages on the GPU. Pages are uploaded on
// first use since ebiten images need a running game.
type atlasPages struct {
	atlas *atlas.Atlas
	pages []*ebiten.Image
}

func (p *atlasPages) page(i int) *ebiten.Image {
	if p.pages == nil {
		p.pages = make([]*ebiten.Image, len(p.atlas.Pages()))
	}
	if i < 0 || i >= len(p.pages) {
		return nil
	}
	if p.pages[i] == nil {
		p.pages[i] = ebiten.NewImageFromImage(p.atlas.Pages()[i])
	}
	return p.pages[i]
}
