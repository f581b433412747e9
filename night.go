package main

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// nightLevel maps the time of day to a darkness level in [0, 100]. Midnight
// is darkest; the sun is up from a little after 0.25 to a little before 0.75.
func nightLevel(dayTime float32) int {
	d := math.Cos(2 * math.Pi * float64(dayTime))
	lvl := (d - 0.1) / 0.9
	if lvl <= 0 {
		return 0
	}
	return int(math.Round(min(lvl, 1) * 100))
}

// overlayStep quantises a night level so the gradient cache stays small.
// Night vision halves the darkness and widens the lit circle.
func overlayStep(lvl int, nightVision bool) (radiusPercent, alphaPercent int) {
	if lvl <= 0 {
		return 0, 0
	}
	switch {
	case lvl < 38:
		radiusPercent, alphaPercent = 100, 40
	case lvl < 63:
		radiusPercent, alphaPercent = 85, 60
	case lvl < 88:
		radiusPercent, alphaPercent = 70, 80
	default:
		radiusPercent, alphaPercent = 55, 92
	}
	if nightVision {
		radiusPercent = min(radiusPercent+30, 100)
		alphaPercent /= 2
	}
	return radiusPercent, alphaPercent
}

var nightTint = color.RGBA{0x04, 0x06, 0x18, 0xff}

// nightGradient is a radial gradient, clear at the center and reaching
// alphaPercent at radiusPercent of the distance to the corners.
func nightGradient(w, h, radiusPercent, alphaPercent int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	cx, cy := float64(w)/2, float64(h)/2
	radius := math.Hypot(cx, cy) * float64(radiusPercent) / 100
	maxA := float64(alphaPercent) / 100
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := 1.0
			if d := math.Hypot(float64(x)-cx, float64(y)-cy); d < radius {
				a = d / radius
			}
			a *= maxA
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(nightTint.R) * a),
				G: uint8(float64(nightTint.G) * a),
				B: uint8(float64(nightTint.B) * a),
				A: uint8(a * 255),
			})
		}
	}
	return img
}

type nightKey struct{ radius, alpha int }

var (
	nightImgs            = map[nightKey]*ebiten.Image{}
	nightImgW, nightImgH int
)

func (c *client) drawNight(screen *ebiten.Image, s *scene) {
	r, a := overlayStep(nightLevel(s.dayTime), gs.NightVisionIsEnabled)
	if a == 0 {
		return
	}
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if nightImgW != w || nightImgH != h {
		for _, img := range nightImgs {
			img.Deallocate()
		}
		nightImgs = map[nightKey]*ebiten.Image{}
		nightImgW, nightImgH = w, h
	}
	k := nightKey{r, a}
	img := nightImgs[k]
	if img == nil {
		img = ebiten.NewImageFromImage(nightGradient(w, h, r, a))
		nightImgs[k] = img
	}
	screen.DrawImage(img, nil)
}
