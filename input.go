package main

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"tundra/camera"
)

// playerInput is the input state sent to the server every tick.
type playerInput struct {
	moveX, moveY float32
	rotation     float32
	attacking    bool
}

const zoomStep = 1.1

// pollInput samples the keyboard and mouse.
func (c *client) pollInput() {
	var in playerInput
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		in.moveX--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		in.moveX++
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		in.moveY--
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		in.moveY++
	}
	if in.moveX != 0 && in.moveY != 0 {
		in.moveX *= math.Sqrt2 / 2
		in.moveY *= math.Sqrt2 / 2
	}

	mx, my := ebiten.CursorPosition()
	if p := c.cam.Tracked(); p != nil {
		px, py := c.cam.WorldToPixel(p.RenderPosition)
		in.rotation = float32(math.Atan2(float64(my)-py, float64(mx)-px))
	}
	in.attacking = ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	c.input = in

	if _, wy := ebiten.Wheel(); wy != 0 {
		c.cam.SetZoom(c.cam.Zoom() * math.Pow(zoomStep, wy))
		gs.Zoom = c.cam.Zoom()
		settingsDirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.Key0) {
		c.cam.SetZoom(camera.DefaultZoom)
		gs.Zoom = camera.DefaultZoom
		settingsDirty = true
	}
	pollToggles()
}

func pollToggles() {
	toggles := []struct {
		key ebiten.Key
		opt *bool
	}{
		{ebiten.KeyF3, &gs.ShowDebugInfo},
		{ebiten.KeyF4, &gs.ShowHitboxes},
		{ebiten.KeyF5, &gs.ShowChunkBorders},
		{ebiten.KeyF6, &gs.ShowRenderChunkBorders},
		{ebiten.KeyF7, &gs.ShowParticles},
		{ebiten.KeyN, &gs.NightVisionIsEnabled},
	}
	for _, t := range toggles {
		if inpututil.IsKeyJustPressed(t.key) {
			*t.opt = !*t.opt
			settingsDirty = true
		}
	}
}
