package gameloop

import (
	"errors"
	"testing"
	"time"
)

type snapshot struct {
	id        int
	skippable bool
}

func (p snapshot) Skippable() bool { return p.skippable }

type recorder struct {
	applied []int
	ticks   int
	renders []float64
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		ApplyPacket: func(p Packet) error {
			r.applied = append(r.applied, p.(snapshot).id)
			return nil
		},
		Tick: func() error {
			r.ticks++
			return nil
		},
		Render: func(fp float64) error {
			r.renders = append(r.renders, fp)
			return nil
		},
	}
}

func newTestScheduler(cfg Config, h Hooks) (*Scheduler, *ManualClock) {
	clock := NewManualClock(time.Unix(1000, 0))
	cfg.Clock = clock
	s := New(cfg, h)
	s.Start()
	s.SetSynced(true)
	return s, clock
}

func TestTickCountIndependentOfFrameSplit(t *testing.T) {
	var one recorder
	s, clock := newTestScheduler(Config{TPS: 60}, one.hooks())
	clock.Advance(100 * time.Millisecond)
	if err := s.Frame(); err != nil {
		t.Fatalf("Frame: %v", err)
	}

	var ten recorder
	s2, clock2 := newTestScheduler(Config{TPS: 60}, ten.hooks())
	for i := 0; i < 10; i++ {
		clock2.Advance(10 * time.Millisecond)
		if err := s2.Frame(); err != nil {
			t.Fatalf("Frame: %v", err)
		}
	}

	if one.ticks != 6 || ten.ticks != 6 {
		t.Fatalf("ticks: one frame %d, ten frames %d, want 6", one.ticks, ten.ticks)
	}
	if len(one.renders) != 1 || len(ten.renders) != 10 {
		t.Fatalf("renders: %d and %d", len(one.renders), len(ten.renders))
	}
	a, b := s.FrameProgress(), s2.FrameProgress()
	if a != b || a <= 0 || a >= 1 {
		t.Fatalf("frame progress %v vs %v", a, b)
	}
}

func TestNothingRunsUntilSyncedAndStarted(t *testing.T) {
	var r recorder
	clock := NewManualClock(time.Unix(0, 0))
	s := New(Config{TPS: 60, Clock: clock}, r.hooks())
	clock.Advance(time.Second)
	if n, _ := s.Advance(); n != 0 {
		t.Fatalf("stopped scheduler ran %d ticks", n)
	}
	s.Start()
	clock.Advance(time.Second)
	if n, _ := s.Advance(); n != 0 {
		t.Fatalf("unsynced scheduler ran %d ticks", n)
	}
	s.SetSynced(true)
	clock.Advance(50 * time.Millisecond)
	if n, _ := s.Advance(); n != 3 {
		t.Fatalf("ran %d ticks after sync, want 3", n)
	}
}

func TestUnpauseDoesNotCatchUp(t *testing.T) {
	var r recorder
	var paused, resumed int
	h := r.hooks()
	h.OnPause = func() { paused++ }
	h.OnUnpause = func() { resumed++ }
	s, clock := newTestScheduler(Config{TPS: 60}, h)

	clock.Advance(20 * time.Millisecond)
	s.Advance()
	s.Pause()
	if s.State() != Paused || paused != 1 {
		t.Fatalf("state %v, OnPause called %d times", s.State(), paused)
	}
	clock.Advance(time.Hour)
	if n, _ := s.Advance(); n != 0 {
		t.Fatalf("paused scheduler ran %d ticks", n)
	}
	s.Unpause()
	if resumed != 1 {
		t.Fatalf("OnUnpause called %d times", resumed)
	}
	clock.Advance(17 * time.Millisecond)
	n, _ := s.Advance()
	if n != 1 {
		t.Fatalf("ran %d ticks after unpause, want 1", n)
	}
	if st := s.Stats(); st.Paused != time.Hour {
		t.Fatalf("paused for %v", st.Paused)
	}
}

func TestBacklogWithoutSkippablePacketsDrainsInOrder(t *testing.T) {
	var r recorder
	s, clock := newTestScheduler(Config{TPS: 60}, r.hooks())
	for i := 1; i <= 4; i++ {
		s.Enqueue(snapshot{id: i})
	}
	clock.Advance(17 * time.Millisecond)
	s.Advance()
	if len(r.applied) != 4 || r.applied[0] != 1 || r.applied[3] != 4 {
		t.Fatalf("applied %v, want [1 2 3 4]", r.applied)
	}
	if st := s.Stats(); st.PacketsApplied != 4 || st.PacketsSkipped != 0 || st.Queued != 0 {
		t.Fatalf("stats %+v", st)
	}
}

func TestSkippableSnapshotsCoalesce(t *testing.T) {
	var r recorder
	s, clock := newTestScheduler(Config{TPS: 60}, r.hooks())
	s.Enqueue(snapshot{id: 1, skippable: true})
	s.Enqueue(snapshot{id: 2, skippable: true})
	s.Enqueue(snapshot{id: 3})
	s.Enqueue(snapshot{id: 4, skippable: true})

	clock.Advance(17 * time.Millisecond)
	s.Advance()
	if len(r.applied) != 1 || r.applied[0] != 3 {
		t.Fatalf("first tick applied %v, want [3]", r.applied)
	}
	clock.Advance(17 * time.Millisecond)
	s.Advance()
	if len(r.applied) != 2 || r.applied[1] != 4 {
		t.Fatalf("second tick applied %v, want [3 4]", r.applied)
	}
	if st := s.Stats(); st.PacketsSkipped != 2 || st.PacketsApplied != 2 {
		t.Fatalf("stats %+v", st)
	}
}

func TestOnePacketPerTickWhenHeadIsDiscrete(t *testing.T) {
	var r recorder
	s, clock := newTestScheduler(Config{TPS: 60}, r.hooks())
	s.Enqueue(snapshot{id: 1})
	s.Enqueue(snapshot{id: 2, skippable: true})
	clock.Advance(17 * time.Millisecond)
	s.Advance()
	if len(r.applied) != 1 || r.applied[0] != 1 {
		t.Fatalf("applied %v, want [1]", r.applied)
	}
	if s.Stats().Queued != 1 {
		t.Fatalf("queued %d", s.Stats().Queued)
	}
}

func TestCatchUpIsBounded(t *testing.T) {
	var r recorder
	s, clock := newTestScheduler(Config{TPS: 60, MaxCatchUpTicks: 10}, r.hooks())
	clock.Advance(time.Second + 5*time.Millisecond)
	n, err := s.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if n != 10 {
		t.Fatalf("ran %d ticks, want 10", n)
	}
	if st := s.Stats(); st.DroppedTicks != 50 {
		t.Fatalf("dropped %d ticks, want 50", st.DroppedTicks)
	}
	if fp := s.FrameProgress(); fp < 0 || fp >= 1 {
		t.Fatalf("frame progress %v", fp)
	}
}

func TestPanicsAreIsolated(t *testing.T) {
	var logged int
	var rendered bool
	h := Hooks{
		Tick:   func() error { panic("boom") },
		Render: func(float64) error { rendered = true; return nil },
	}
	s, clock := newTestScheduler(Config{TPS: 60, Logf: func(string, ...any) { logged++ }}, h)
	clock.Advance(35 * time.Millisecond)
	if err := s.Frame(); err != nil {
		t.Fatalf("non-strict Frame returned %v", err)
	}
	if !rendered {
		t.Fatalf("render skipped after a tick fault")
	}
	if st := s.Stats(); st.Faults != 2 || st.Ticks != 2 || logged != 2 {
		t.Fatalf("faults %d ticks %d logged %d", st.Faults, st.Ticks, logged)
	}
}

func TestStrictModeReturnsFaults(t *testing.T) {
	errRender := errors.New("render failed")
	h := Hooks{
		Render: func(float64) error { return errRender },
	}
	s, _ := newTestScheduler(Config{TPS: 60, Strict: true}, h)
	err := s.Render()
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Phase != "render" || !errors.Is(err, errRender) {
		t.Fatalf("Render: %v", err)
	}

	h = Hooks{ApplyPacket: func(Packet) error { panic("bad packet") }}
	s, clock := newTestScheduler(Config{TPS: 60, Strict: true}, h)
	s.Enqueue(snapshot{id: 1})
	clock.Advance(17 * time.Millisecond)
	if _, err := s.Advance(); !errors.Is(err, ErrPanic) {
		t.Fatalf("Advance: %v", err)
	}
}

func TestAfterRunsOnTargetTick(t *testing.T) {
	s, clock := newTestScheduler(Config{TPS: 60}, Hooks{})
	var firedAt []uint64
	s.After(3, func() { firedAt = append(firedAt, s.Stats().Ticks) })
	s.After(1, func() { firedAt = append(firedAt, s.Stats().Ticks) })
	for i := 0; i < 5; i++ {
		clock.Advance(17 * time.Millisecond)
		s.Advance()
	}
	if len(firedAt) != 2 || firedAt[0] != 1 || firedAt[1] != 3 {
		t.Fatalf("timers fired at %v, want [1 3]", firedAt)
	}
}

func TestStopClearsQueue(t *testing.T) {
	s, _ := newTestScheduler(Config{}, Hooks{})
	s.Enqueue(snapshot{id: 1})
	s.Stop()
	if s.State() != Stopped || s.Stats().Queued != 0 || s.Synced() {
		t.Fatalf("after Stop: state %v stats %+v", s.State(), s.Stats())
	}
	if s.TPS() != DefaultTPS {
		t.Fatalf("default TPS %d", s.TPS())
	}
}
