package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2"

	"tundra/atlas"
	"tundra/batch"
	"tundra/camera"
	"tundra/gameloop"
	"tundra/packet"
	"tundra/renderchunk"
	"tundra/world"
)

// scene is everything tied to one loaded world.
type scene struct {
	board    *world.Board
	registry *renderchunk.Registry
	playerID uint32
	tps      float64
	// dayTime runs from 0 at midnight to 1 at the next midnight.
	dayTime  float32
	lastTick uint32
	tileErrs []error
}

// frameInfo is what the debug overlay shows about the last frame.
type frameInfo struct {
	batch        batch.FrameStats
	entityCalls  int
	submissions  int
	renderChunks int
	particles    int
}

type clientConfig struct {
	device renderchunk.Device
	atlas  *atlas.Atlas
	strict bool
	clock  gameloop.Clock
	// send delivers an outbound message; nil drops it.
	send func([]byte)
	// netStatus reports the connection for the debug panel; nil hides it.
	netStatus func() string
}

// client owns the loaded scene and drives it from the scheduler hooks. The
// network side only calls receive; everything else runs on the game
// goroutine.
type client struct {
	ctx context.Context
	cfg clientConfig

	mu           sync.Mutex
	sched        *gameloop.Scheduler
	pendingWorld *packet.WorldLoad
	pending      []*packet.GameData

	scene   *scene
	cam     *camera.Camera
	batcher *batch.Batcher
	pages   *atlasPages
	input   playerInput
	rng     *rand.Rand
	started time.Time

	screen *ebiten.Image
	tris   triBatch
	frame  frameInfo
	// missingBuffers holds chunk features already reported without a
	// device buffer.
	missingBuffers map[chunkFeature]struct{}
}

func newClient(ctx context.Context, cfg clientConfig) *client {
	if cfg.clock == nil {
		cfg.clock = gameloop.SystemClock{}
	}
	c := &client{
		ctx:     ctx,
		cfg:     cfg,
		cam:     camera.New(float64(gs.WindowWidth)/2, float64(gs.WindowHeight)/2),
		rng:     rand.New(rand.NewPCG(1, 2)),
		started: cfg.clock.Now(),
		batcher: &batch.Batcher{
			BaseDepth: entityBaseDepth,
			Logf:      logError,
			Strict:    cfg.strict,
		},
	}
	if cfg.atlas != nil {
		c.batcher.Atlas = cfg.atlas
		c.pages = &atlasPages{atlas: cfg.atlas}
	}
	c.cam.SetZoom(gs.Zoom)
	return c
}

// receive hands a decoded message from the network goroutine to the game.
// Snapshots that arrive while a world is waiting to load are held back and
// queued behind it.
func (c *client) receive(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch m := msg.(type) {
	case *packet.WorldLoad:
		c.pendingWorld = m
		c.pending = nil
	case *packet.GameData:
		switch {
		case c.pendingWorld != nil:
			c.pending = append(c.pending, m)
		case c.sched != nil:
			c.sched.Enqueue(m)
		default:
			logDebug("game data for tick %d before any world, dropped", m.Tick)
		}
	default:
		logError("receive: unexpected message %T", msg)
	}
}

// loadPendingWorld swaps in a world received since the last call.
func (c *client) loadPendingWorld() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	wl := c.pendingWorld
	if wl == nil {
		return nil
	}
	c.pendingWorld = nil
	pending := c.pending
	c.pending = nil
	if err := c.loadWorld(wl); err != nil {
		return err
	}
	for _, g := range pending {
		c.sched.Enqueue(g)
	}
	return nil
}

// loadWorld replaces the current scene. Called with c.mu held.
func (c *client) loadWorld(wl *packet.WorldLoad) error {
	c.unloadScene()

	board, err := world.NewBoard(wl.Terrain)
	if err != nil {
		return fmt.Errorf("load world: %w", err)
	}
	tps := int(wl.TPS)
	if tps <= 0 {
		tps = gs.TPS
	}
	board.SetTPS(float64(tps))
	layout := renderchunk.NewLayout(board.Size(), board.EdgeDistance())
	reg, err := renderchunk.NewRegistry(layout, c.cfg.device, renderchunk.DefaultFeatures()...)
	if err != nil {
		return fmt.Errorf("load world: %w", err)
	}
	if c.cfg.atlas != nil {
		reg.Slots = c.cfg.atlas.SlotIndex
	}
	reg.Logf = logError
	reg.Strict = c.cfg.strict
	reg.Workers = runtime.NumCPU()

	s := &scene{board: board, registry: reg, playerID: wl.PlayerID, tps: float64(tps)}
	board.OnTileChange(func(x, y int, old, cur world.Tile) {
		if err := reg.RecalculateTile(x, y); err != nil {
			s.tileErrs = append(s.tileErrs, err)
		}
	})

	start := time.Now()
	if err := reg.CreateAll(c.ctx, board); err != nil {
		return fmt.Errorf("load world: %w", err)
	}
	st := reg.Stats()
	logDebug("world %dx%d: %d render chunk buffers, %s of vertices, built in %v",
		board.Size(), board.Size(), st.Buffers, humanize.Bytes(uint64(st.Bytes)), time.Since(start))

	c.scene = s
	mid := float64(board.Size()*world.TileSize) / 2
	c.cam.Track(nil)
	c.cam.SetPosition(world.Point{X: mid, Y: mid})

	c.sched = gameloop.New(gameloop.Config{
		TPS:             tps,
		MaxCatchUpTicks: gs.MaxCatchUpTicks,
		Strict:          c.cfg.strict,
		Clock:           c.cfg.clock,
		Logf:            logError,
	}, c.hooks())
	c.sched.Start()
	c.sched.SetSynced(true)
	return nil
}

func (c *client) unloadScene() {
	if c.sched != nil {
		c.sched.Stop()
	}
	if c.scene != nil {
		c.scene.registry.Release()
		c.scene.board.Clear()
		c.scene = nil
	}
	c.cam.Track(nil)
}

func (c *client) hooks() gameloop.Hooks {
	return gameloop.Hooks{
		ApplyPacket: func(p gameloop.Packet) error {
			g, ok := p.(*packet.GameData)
			if !ok {
				return fmt.Errorf("apply: unexpected packet %T", p)
			}
			return c.applyGameData(g)
		},
		Tick: func() error {
			c.scene.board.Tick(c.scene.tps)
			return nil
		},
		AfterTick: c.sendInput,
		Render:    c.render,
		OnPause: func() {
			c.input = playerInput{}
			c.sendBytes(packet.EncodeDeactivate())
		},
		OnUnpause: func() {
			c.sendBytes(packet.EncodeActivate())
		},
	}
}

func (c *client) sendBytes(b []byte) {
	if c.cfg.send != nil {
		c.cfg.send(b)
	}
}

// sendInput reports the player's input for the tick just simulated.
func (c *client) sendInput() error {
	if c.scene == nil {
		return nil
	}
	c.sendBytes(packet.EncodePlayerData(packet.PlayerData{
		Tick:      c.scene.lastTick,
		MoveX:     c.input.moveX,
		MoveY:     c.input.moveY,
		Rotation:  c.input.rotation,
		Attacking: c.input.attacking,
	}))
	return nil
}

// update runs once per ebiten Update.
func (c *client) update() error {
	if err := c.loadPendingWorld(); err != nil {
		return err
	}
	if c.sched == nil {
		return nil
	}
	if gs.PauseOnBlur {
		if ebiten.IsFocused() {
			c.sched.Unpause()
		} else {
			c.sched.Pause()
		}
	}
	if c.sched.State() == gameloop.Running {
		c.pollInput()
	}
	_, err := c.sched.Advance()
	return err
}

// draw runs once per ebiten Draw.
func (c *client) draw(screen *ebiten.Image) error {
	c.screen = screen
	if c.sched == nil {
		c.drawWaiting(screen)
		return nil
	}
	return c.sched.Render()
}

// render is the scheduler's Render hook.
func (c *client) render(frameProgress float64) error {
	s, screen := c.scene, c.screen
	if s == nil || screen == nil {
		return nil
	}
	c.cam.UpdatePosition(frameProgress, s.tps)
	c.cam.UpdateVisibleChunkBounds(s.board.ChunksPerSide())
	c.cam.UpdateVisibleRenderChunkBounds(s.registry.Layout())

	c.frame = frameInfo{}
	c.tris.calls = 0
	screen.Fill(backgroundColor)

	c.drawTiles(screen, s)
	c.drawWorldBorder(screen, s)
	err := c.drawEntities(screen, s, frameProgress)
	if gs.ShowParticles {
		c.drawParticles(screen, s, frameProgress)
	}
	c.drawNight(screen, s)
	if gs.ShowChunkBorders {
		c.drawChunkBorders(screen)
	}
	if gs.ShowRenderChunkBorders {
		c.drawRenderChunkBorders(screen)
	}
	if gs.ShowHitboxes {
		c.drawHitboxes(screen, s)
	}
	c.tris.flush()
	c.frame.submissions = c.tris.calls
	if gs.ShowDebugInfo {
		c.drawDebug(screen, s)
	}
	return err
}

// takeTileErrors returns the rebuild failures collected since the last call.
func (s *scene) takeTileErrors() error {
	err := errors.Join(s.tileErrs...)
	s.tileErrs = nil
	return err
}
