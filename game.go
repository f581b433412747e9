package main

import (
	"context"
	"errors"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

const windowTitle = "Tundra"

var errShutdown = errors.New("shutdown")

// Game adapts the client to ebiten.
type Game struct {
	ctx  context.Context
	c    *client
	once sync.Once
	// initErr is fatal and ends the run loop.
	initErr error
}

func (g *Game) Update() error {
	select {
	case <-g.ctx.Done():
		return errShutdown
	default:
	}
	g.once.Do(func() {
		g.initErr = initGame()
	})
	if g.initErr != nil {
		return g.initErr
	}

	err := g.c.update()
	if settingsDirty {
		saveSettings()
		settingsDirty = false
	}
	if err != nil {
		if g.c.cfg.strict {
			return err
		}
		logError("update: %v", err)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.initErr != nil {
		return
	}
	if err := g.c.draw(screen); err != nil {
		logError("draw: %v", err)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.c.cam.SetHalfSize(float64(outsideWidth)/2, float64(outsideHeight)/2)
	if outsideWidth != gs.WindowWidth || outsideHeight != gs.WindowHeight {
		gs.WindowWidth, gs.WindowHeight = outsideWidth, outsideHeight
		settingsDirty = true
	}
	return outsideWidth, outsideHeight
}

// initGame compiles the shaders. It runs on the first Update, once the
// graphics driver is up.
func initGame() error {
	ebiten.SetCursorShape(ebiten.CursorShapeCrosshair)
	if err := loadShaders(); err != nil {
		fatalDialog("Shader error", err)
		return err
	}
	return nil
}

func runGame(ctx context.Context, c *client) error {
	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetWindowSize(gs.WindowWidth, gs.WindowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(gs.VSync)
	ebiten.SetTPS(ebiten.SyncWithFPS)

	err := ebiten.RunGame(&Game{ctx: ctx, c: c})
	saveSettings()
	if errors.Is(err, errShutdown) {
		return nil
	}
	return err
}
