package main

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/hako/durafmt"
	dark "github.com/thiagokokada/dark-mode-go"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tundra/world"
)

const debugLineSpacing = 18

var (
	debugFace   *text.GoTextFace
	titleCaser  = cases.Title(language.AmericanEnglish)
	shortUnits  durafmt.Units
	debugColors = darkPalette
	waitingText = "Connecting..."
)

type palette struct {
	bg, fg color.Color
}

var (
	darkPalette  = palette{bg: color.RGBA{0x00, 0x00, 0x00, 0xb0}, fg: color.RGBA{0xe8, 0xe8, 0xe8, 0xff}}
	lightPalette = palette{bg: color.RGBA{0xf0, 0xf0, 0xf0, 0xc0}, fg: color.RGBA{0x18, 0x18, 0x18, 0xff}}
)

func initFont() error {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return fmt.Errorf("debug font: %w", err)
	}
	debugFace = &text.GoTextFace{Source: src, Size: 14}
	shortUnits, err = decodeUnits(shortUnitNames)
	return err
}

const shortUnitNames = "y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us"

func decodeUnits(names string) (durafmt.Units, error) {
	u, err := durafmt.DefaultUnitsCoder.Decode(names)
	if err != nil {
		return durafmt.Units{}, fmt.Errorf("duration units %q: %w", names, err)
	}
	return u, nil
}

// pickDebugPalette follows the OS theme; errors fall back to dark.
func pickDebugPalette() {
	isDark, err := dark.IsDarkMode()
	if err != nil {
		logDebug("dark mode query: %v", err)
		isDark = true
	}
	if isDark {
		debugColors = darkPalette
	} else {
		debugColors = lightPalette
	}
}

func drawPanel(screen *ebiten.Image, x, y float64, body string) {
	if debugFace == nil {
		return
	}
	w, h := text.Measure(body, debugFace, debugLineSpacing)
	const pad = 6
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w+2*pad), float32(h+2*pad), debugColors.bg, false)
	op := &text.DrawOptions{}
	op.GeoM.Translate(x+pad, y+pad)
	op.ColorScale.ScaleWithColor(debugColors.fg)
	op.LineSpacing = debugLineSpacing
	text.Draw(screen, body, debugFace, op)
}

func (c *client) drawWaiting(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	drawPanel(screen, float64(w)/2-80, float64(h)/2-12, waitingText)
}

// tileUnderCursor describes the tile below the mouse pointer.
func (c *client) tileUnderCursor(s *scene) string {
	mx, my := ebiten.CursorPosition()
	p := world.Point{X: c.cam.PixelToWorldX(float64(mx)), Y: c.cam.PixelToWorldY(float64(my))}
	tx, ty := world.TileOf(p)
	t, ok := s.board.TileAt(tx, ty)
	if !ok {
		return fmt.Sprintf("(%d,%d) outside", tx, ty)
	}
	desc := fmt.Sprintf("(%d,%d) %s, %s", tx, ty, titleCaser.String(t.Type.String()), titleCaser.String(t.Biome.String()))
	if t.IsWall {
		desc += ", wall"
	}
	if e := entityNear(s, p, world.TileSize/2); e != nil {
		desc += fmt.Sprintf("\n%s #%d", entityName(e.Type), e.ID)
	}
	return desc
}

// entityNear returns the closest entity within r world pixels of p.
func entityNear(s *scene, p world.Point, r float64) *world.Entity {
	var best *world.Entity
	for _, e := range s.board.Entities() {
		if d := e.RenderPosition.Distance(p); d <= r {
			best, r = e, d
		}
	}
	return best
}

func (c *client) debugText(s *scene) string {
	st := c.sched.Stats()
	rs := s.registry.Stats()
	fs := c.frame.batch
	uptime := c.cfg.clock.Now().Sub(c.started)

	var b strings.Builder
	fmt.Fprintf(&b, "FPS %.1f  TPS %d (%s)\n", ebiten.ActualFPS(), c.sched.TPS(), c.sched.State())
	fmt.Fprintf(&b, "ticks %s  frames %s  dropped %s  faults %d\n",
		humanize.Comma(int64(st.Ticks)), humanize.Comma(int64(st.Frames)), humanize.Comma(int64(st.DroppedTicks)), st.Faults)
	fmt.Fprintf(&b, "packets applied %s  skipped %s  queued %d (max %d)\n",
		humanize.Comma(int64(st.PacketsApplied)), humanize.Comma(int64(st.PacketsSkipped)), st.Queued, st.MaxQueued)
	if c.cfg.netStatus != nil {
		b.WriteString(c.cfg.netStatus())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "render chunks %d visible, %d buffers, %s, %d rebuilds\n",
		c.frame.renderChunks, rs.Buffers, humanize.Bytes(uint64(rs.Bytes)), rs.Rebuilds)
	fmt.Fprintf(&b, "entities %d/%d visible, %d culled, %d quads, %d missing\n",
		fs.Visible, s.board.NumEntities(), fs.Culled, fs.Quads, fs.Missing)
	fmt.Fprintf(&b, "draw calls %d entity, %d submitted  particles %d\n",
		c.frame.entityCalls, c.frame.submissions, c.frame.particles)
	fmt.Fprintf(&b, "camera %.0f,%.0f zoom %.2f\n", c.cam.Position.X, c.cam.Position.Y, c.cam.Zoom())
	fmt.Fprintf(&b, "day %.2f night %d%%\n", s.dayTime, nightLevel(s.dayTime))
	fmt.Fprintf(&b, "up %s  paused %s\n",
		durafmt.Parse(uptime).LimitFirstN(2).Format(shortUnits),
		durafmt.Parse(st.Paused).LimitFirstN(2).Format(shortUnits))
	b.WriteString(c.tileUnderCursor(s))
	return b.String()
}

func (c *client) drawDebug(screen *ebiten.Image, s *scene) {
	drawPanel(screen, 8, 8, c.debugText(s))
}
