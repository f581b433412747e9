package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"tundra/camera"
	"tundra/gameloop"
)

// Settings are the user options. Renderers read them at draw time only, so
// a change applies from the next frame.
type Settings struct {
	Zoom                   float64 `json:"zoom"`
	VSync                  bool    `json:"vsync"`
	TPS                    int     `json:"tps"`
	ShowHitboxes           bool    `json:"showHitboxes"`
	ShowChunkBorders       bool    `json:"showChunkBorders"`
	ShowRenderChunkBorders bool    `json:"showRenderChunkBorders"`
	ShowParticles          bool    `json:"showParticles"`
	NightVisionIsEnabled   bool    `json:"nightVisionIsEnabled"`
	ShowDebugInfo          bool    `json:"showDebugInfo"`
	StrictErrors           bool    `json:"strictErrors"`
	Host                   string  `json:"host"`
	TextureDir             string  `json:"textureDir"`
	PauseOnBlur            bool    `json:"pauseOnBlur"`
	MaxCatchUpTicks        int     `json:"maxCatchUpTicks"`
	WindowWidth            int     `json:"windowWidth"`
	WindowHeight           int     `json:"windowHeight"`
}

var defaultSettings = Settings{
	Zoom:            camera.DefaultZoom,
	VSync:           true,
	TPS:             gameloop.DefaultTPS,
	ShowParticles:   true,
	Host:            "ws://localhost:8080/ws",
	TextureDir:      "textures",
	PauseOnBlur:     true,
	MaxCatchUpTicks: gameloop.DefaultMaxCatchUpTicks,
	WindowWidth:     1280,
	WindowHeight:    720,
}

var (
	gs            = defaultSettings
	settingsDirty bool
)

func settingsPath() string {
	return filepath.Join(baseDir, "settings.json")
}

// loadSettings reads settings.json over the defaults. Missing or broken
// files leave the defaults in place and report false.
func loadSettings() bool {
	data, err := os.ReadFile(settingsPath())
	if err != nil {
		return false
	}
	s := defaultSettings
	if err := json.Unmarshal(data, &s); err != nil {
		logError("load settings: %v", err)
		return false
	}
	gs = sanitizeSettings(s)
	return true
}

func sanitizeSettings(s Settings) Settings {
	if s.TPS <= 0 {
		s.TPS = defaultSettings.TPS
	}
	if s.Zoom < camera.MinZoom || s.Zoom > camera.MaxZoom {
		s.Zoom = defaultSettings.Zoom
	}
	if s.WindowWidth <= 0 || s.WindowHeight <= 0 {
		s.WindowWidth, s.WindowHeight = defaultSettings.WindowWidth, defaultSettings.WindowHeight
	}
	if s.TextureDir == "" {
		s.TextureDir = defaultSettings.TextureDir
	}
	return s
}

func saveSettings() {
	data, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		logError("save settings: %v", err)
		return
	}
	if err := os.WriteFile(settingsPath(), data, 0644); err != nil {
		logError("save settings: %v", err)
	}
}
