package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
)

//go:embed shaders/*.kage
var shaderFS embed.FS

type shaderSet struct {
	tiles     *ebiten.Shader
	river     *ebiten.Shader
	occlusion *ebiten.Shader
	sprite    *ebiten.Shader
	circle    *ebiten.Shader
}

var shaders shaderSet

// loadShaders compiles every shader. A copy in baseDir/shaders overrides the
// embedded source for live iteration.
func loadShaders() error {
	var s shaderSet
	for _, it := range []struct {
		name string
		dst  **ebiten.Shader
	}{
		{"tiles", &s.tiles},
		{"river", &s.river},
		{"occlusion", &s.occlusion},
		{"sprite", &s.sprite},
		{"circle", &s.circle},
	} {
		sh, err := compileShader(it.name)
		if err != nil {
			return err
		}
		*it.dst = sh
	}
	shaders = s
	return nil
}

func compileShader(name string) (*ebiten.Shader, error) {
	file := name + ".kage"
	src, err := os.ReadFile(filepath.Join(baseDir, "shaders", file))
	if err != nil {
		if src, err = shaderFS.ReadFile("shaders/" + file); err != nil {
			return nil, fmt.Errorf("shader %v: %w", name, err)
		}
	}
	sh, err := ebiten.NewShader(src)
	if err != nil {
		return nil, fmt.Errorf("shader %v: %w", name, err)
	}
	return sh, nil
}
