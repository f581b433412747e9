// Package gameloop runs a fixed timestep simulation under a variable frame
// rate. Network packets wait in a FIFO queue and are applied only at tick
// boundaries; rendering gets the fraction of the next tick already elapsed.
package gameloop

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

const (
	DefaultTPS             = 60
	DefaultMaxCatchUpTicks = 240
)

// State is the scheduler's lifecycle state.
type State uint8

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Packet is one tick's worth of authoritative updates. A skippable packet
// is a plain state snapshot that a later snapshot fully supersedes.
type Packet interface {
	Skippable() bool
}

// Hooks are the scheduler's callbacks. Any of them may be nil.
type Hooks struct {
	// ApplyPacket applies one queued packet.
	ApplyPacket func(Packet) error
	// Tick advances local simulation by exactly one tick.
	Tick func() error
	// AfterTick runs once per tick after Tick, e.g. to send player input.
	AfterTick func() error
	// Render draws one frame.
	Render func(frameProgress float64) error
	// OnPause and OnUnpause notify the network layer and reset input.
	OnPause   func()
	OnUnpause func()
}

type Config struct {
	TPS int
	// MaxCatchUpTicks bounds the ticks one Advance may run. Zero means
	// DefaultMaxCatchUpTicks, negative means unbounded.
	MaxCatchUpTicks int
	// Strict returns hook faults to the caller instead of only logging them.
	Strict bool
	Clock  Clock
	Logf   func(format string, args ...any)
}

// PhaseError is a hook failure, a recovered panic included.
type PhaseError struct {
	Phase string
	Tick  uint64
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s at tick %d: %v", e.Phase, e.Tick, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// ErrPanic wraps recovered panics.
var ErrPanic = errors.New("panic")

type Stats struct {
	Ticks          uint64
	Frames         uint64
	PacketsApplied uint64
	PacketsSkipped uint64
	// DroppedTicks counts whole ticks of lag discarded by the catch-up bound.
	DroppedTicks uint64
	Faults       uint64
	Queued       int
	MaxQueued    int
	Paused       time.Duration
}

type timer struct {
	due uint64
	fn  func()
}

// Scheduler is the fixed timestep loop. Advance and Render must be called
// from one goroutine; Enqueue may be called from any.
type Scheduler struct {
	cfg   Config
	hooks Hooks
	tick  time.Duration

	mu     sync.Mutex
	queue  []Packet
	stats  Stats
	state  State
	synced bool

	last          time.Time
	lag           time.Duration
	frameProgress float64
	pausedAt      time.Time
	timers        []timer
}

func New(cfg Config, hooks Hooks) *Scheduler {
	if cfg.TPS <= 0 {
		cfg.TPS = DefaultTPS
	}
	if cfg.MaxCatchUpTicks == 0 {
		cfg.MaxCatchUpTicks = DefaultMaxCatchUpTicks
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	return &Scheduler{
		cfg:   cfg,
		hooks: hooks,
		tick:  time.Second / time.Duration(cfg.TPS),
	}
}

func (s *Scheduler) TPS() int { return s.cfg.TPS }

// TickDuration is the length of one fixed tick.
func (s *Scheduler) TickDuration() time.Duration { return s.tick }

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves a stopped scheduler to running with an empty accumulator.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Stopped {
		return
	}
	s.state = Running
	s.last = s.cfg.Clock.Now()
	s.lag = 0
	s.frameProgress = 0
}

// Stop discards queued packets and pending timers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Paused {
		s.stats.Paused += s.cfg.Clock.Now().Sub(s.pausedAt)
	}
	s.state = Stopped
	s.synced = false
	s.queue = nil
	s.timers = nil
	s.lag = 0
}

// Pause stops the accumulator. Queued packets stay queued.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	s.state = Paused
	s.pausedAt = s.cfg.Clock.Now()
	s.mu.Unlock()
	if s.hooks.OnPause != nil {
		s.hooks.OnPause()
	}
}

// Unpause resumes from the current time so the paused interval never turns
// into catch-up ticks.
func (s *Scheduler) Unpause() {
	s.mu.Lock()
	if s.state != Paused {
		s.mu.Unlock()
		return
	}
	now := s.cfg.Clock.Now()
	s.state = Running
	s.stats.Paused += now.Sub(s.pausedAt)
	s.last = now
	s.mu.Unlock()
	if s.hooks.OnUnpause != nil {
		s.hooks.OnUnpause()
	}
}

// SetSynced marks whether the client holds a loaded world. Ticks only run
// while synced; becoming synced restarts the time reference.
func (s *Scheduler) SetSynced(synced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if synced && !s.synced {
		s.last = s.cfg.Clock.Now()
		s.lag = 0
	}
	s.synced = synced
}

func (s *Scheduler) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

// Enqueue appends a packet for the next tick boundary.
func (s *Scheduler) Enqueue(p Packet) {
	s.mu.Lock()
	s.queue = append(s.queue, p)
	if len(s.queue) > s.stats.MaxQueued {
		s.stats.MaxQueued = len(s.queue)
	}
	s.mu.Unlock()
}

// After runs fn on the tick that is ticks ticks from now.
func (s *Scheduler) After(ticks int, fn func()) {
	s.mu.Lock()
	s.timers = append(s.timers, timer{due: s.stats.Ticks + uint64(max(ticks, 1)), fn: fn})
	s.mu.Unlock()
}

// FrameProgress is the fraction of the next tick elapsed at the last Advance.
func (s *Scheduler) FrameProgress() float64 { return s.frameProgress }

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Queued = len(s.queue)
	if s.state == Paused {
		st.Paused += s.cfg.Clock.Now().Sub(s.pausedAt)
	}
	return st
}

// Advance accumulates the time since the previous call and runs every whole
// tick it covers, up to MaxCatchUpTicks. The number of ticks over any span
// of time does not depend on how that span is split across calls.
func (s *Scheduler) Advance() (int, error) {
	s.mu.Lock()
	if s.state != Running || !s.synced {
		s.mu.Unlock()
		return 0, nil
	}
	now := s.cfg.Clock.Now()
	if elapsed := now.Sub(s.last); elapsed > 0 {
		s.lag += elapsed
	}
	s.last = now
	s.mu.Unlock()

	var errs []error
	ticks := 0
	for s.lag >= s.tick {
		if s.cfg.MaxCatchUpTicks > 0 && ticks >= s.cfg.MaxCatchUpTicks {
			dropped := s.lag / s.tick
			s.mu.Lock()
			s.stats.DroppedTicks += uint64(dropped)
			s.mu.Unlock()
			s.logf("gameloop: dropped %d ticks of lag", dropped)
			s.lag -= dropped * s.tick
			break
		}
		if err := s.step(); err != nil {
			errs = append(errs, err)
		}
		ticks++
		s.lag -= s.tick
	}
	s.frameProgress = float64(s.lag) / float64(s.tick)
	return ticks, errors.Join(errs...)
}

// step runs one tick: queued packets first, then local simulation, then
// due timers.
func (s *Scheduler) step() error {
	var errs []error
	for _, p := range s.takePackets() {
		if err := s.guard("apply packet", func() error {
			if s.hooks.ApplyPacket == nil {
				return nil
			}
			return s.hooks.ApplyPacket(p)
		}); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.stats.Ticks++
	s.mu.Unlock()

	if s.hooks.Tick != nil {
		if err := s.guard("tick", s.hooks.Tick); err != nil {
			errs = append(errs, err)
		}
	}
	if s.hooks.AfterTick != nil {
		if err := s.guard("after tick", s.hooks.AfterTick); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fn := range s.dueTimers() {
		if err := s.guard("timer", func() error { fn(); return nil }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// takePackets removes the packets to apply this tick. A backlog with no
// skippable packet is applied whole so no discrete event is lost. Otherwise
// skippable snapshots at the head are dropped while a newer packet waits
// behind them, and one packet is applied.
func (s *Scheduler) takePackets() []Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue
	if len(q) == 0 {
		return nil
	}
	if len(q) > 1 && !anySkippable(q) {
		s.queue = nil
		s.stats.PacketsApplied += uint64(len(q))
		return q
	}
	for len(q) >= 2 && q[0].Skippable() {
		q[0] = nil
		q = q[1:]
		s.stats.PacketsSkipped++
	}
	p := q[0]
	q[0] = nil
	s.queue = q[1:]
	if len(s.queue) == 0 {
		s.queue = nil
	}
	s.stats.PacketsApplied++
	return []Packet{p}
}

func anySkippable(q []Packet) bool {
	for _, p := range q {
		if p.Skippable() {
			return true
		}
	}
	return false
}

func (s *Scheduler) dueTimers() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []func()
	kept := s.timers[:0]
	for _, t := range s.timers {
		if t.due <= s.stats.Ticks {
			due = append(due, t.fn)
			continue
		}
		kept = append(kept, t)
	}
	clear(s.timers[len(kept):])
	s.timers = kept
	return due
}

// Render draws one frame with the current frame progress. It runs even when
// the preceding Advance failed.
func (s *Scheduler) Render() error {
	if s.State() == Stopped {
		return nil
	}
	s.mu.Lock()
	s.stats.Frames++
	s.mu.Unlock()
	if s.hooks.Render == nil {
		return nil
	}
	fp := s.frameProgress
	return s.guard("render", func() error { return s.hooks.Render(fp) })
}

// Frame is Advance followed by Render.
func (s *Scheduler) Frame() error {
	_, err := s.Advance()
	return errors.Join(err, s.Render())
}

// guard runs fn with panic recovery. Faults are logged; they are returned
// only in strict mode.
func (s *Scheduler) guard(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
		if err == nil {
			return
		}
		s.mu.Lock()
		s.stats.Faults++
		tick := s.stats.Ticks
		s.mu.Unlock()
		err = &PhaseError{Phase: phase, Tick: tick, Err: err}
		s.logf("gameloop: %v", err)
		if !s.cfg.Strict {
			err = nil
		}
	}()
	return fn()
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.cfg.Logf != nil {
		s.cfg.Logf(format, args...)
	}
}
