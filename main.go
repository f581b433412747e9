package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/sqweek/dialog"

	"tundra/world"
)

var baseDir string

func main() {
	host := flag.String("host", "", "server websocket URL (default from settings)")
	dbg := flag.Bool("debug", false, "verbose/debug logging")
	offline := flag.Bool("offline", false, "play against the built-in demo server")
	strict := flag.Bool("strict", false, "treat recoverable errors as fatal")
	seed := flag.Uint64("seed", 1, "demo world seed")
	size := flag.Int("world-size", 16*world.ChunkSize, "demo world size in tiles")
	flag.Parse()

	baseDir = os.Getenv("PWD")
	if baseDir == "" {
		var err error
		if baseDir, err = os.Getwd(); err != nil {
			log.Fatalf("get working directory: %v", err)
		}
	}

	loadSettings()
	setupLogging(*dbg)
	defer func() {
		if r := recover(); r != nil {
			logError("panic: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()
	if *host != "" {
		gs.Host = *host
	}
	if *strict {
		gs.StrictErrors = true
	}

	pickDebugPalette()
	if err := initFont(); err != nil {
		fatal("Font error", err)
	}
	texDir := gs.TextureDir
	if !filepath.IsAbs(texDir) {
		texDir = filepath.Join(baseDir, texDir)
	}
	a, err := loadAtlas(texDir, textureSources())
	if err != nil {
		fatal("Texture error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := clientConfig{
		device: newEbitenDevice(),
		atlas:  a,
		strict: gs.StrictErrors,
	}
	var c *client
	if *offline {
		d := newDemoServer(*seed, *size, gs.TPS)
		cfg.send = d.handle
		c = newClient(ctx, cfg)
		go d.run(ctx, c.receive)
	} else {
		waitingText = "Connecting to " + gs.Host + "..."
		n := newNetClient(gs.Host, nil)
		cfg.send = n.send
		cfg.netStatus = n.status
		c = newClient(ctx, cfg)
		n.deliver = c.receive
		go n.run(ctx)
	}

	if err := runGame(ctx, c); err != nil {
		logError("ebiten: %v", err)
		cancel()
		os.Exit(1)
	}
}

// fatalDialog reports an error the client cannot start without.
func fatalDialog(title string, err error) {
	logError("%v: %v", title, err)
	dialog.Message("%v", err).Title(title).Error()
}

func fatal(title string, err error) {
	fatalDialog(title, err)
	os.Exit(1)
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
}
