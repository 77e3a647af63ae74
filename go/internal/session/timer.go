package session

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimerEngine derives the remaining countdown from the authoritative start
// timestamp plus the configured duration. Each tick recomputes from absolute
// time rather than accumulating deltas, so the countdown stays correct
// through clock drift and process suspension. Ticks are driven externally by
// the coordinator's loop; message arrival never drives the countdown.
type TimerEngine struct {
	clock clockwork.Clock

	startAt  time.Time
	duration time.Duration
	running  bool

	// zeroFired guards the finalize path: repeated ticks after zero must not
	// re-trigger it.
	zeroFired bool

	onTick func(remainingSec int)
	onZero func()
}

// NewTimerEngine returns a stopped engine.
func NewTimerEngine(clock clockwork.Clock, onTick func(remainingSec int), onZero func()) *TimerEngine {
	return &TimerEngine{
		clock:  clock,
		onTick: onTick,
		onZero: onZero,
	}
}

// Start anchors the countdown. Calling Start on a running engine is a no-op
// so that a redundant IN_PROGRESS push cannot re-anchor the clock.
func (t *TimerEngine) Start(startAt time.Time, duration time.Duration) {
	if t.running || t.zeroFired {
		return
	}
	t.startAt = startAt
	t.duration = duration
	t.running = true
	t.Tick()
}

// Running reports whether the engine is ticking.
func (t *TimerEngine) Running() bool {
	return t.running
}

// Stop halts the countdown without firing the zero path. Used on cancel and
// teardown.
func (t *TimerEngine) Stop() {
	t.running = false
}

// RemainingSeconds computes the whole seconds left on the clock, never
// negative.
func (t *TimerEngine) RemainingSeconds() int {
	elapsed := t.clock.Since(t.startAt)
	remaining := t.duration - elapsed
	if remaining <= 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// Tick recomputes the remaining time and reports it. On first reaching zero
// it reports 00:00 exactly once, stops ticking and fires the zero path.
func (t *TimerEngine) Tick() {
	if !t.running {
		return
	}
	remaining := t.RemainingSeconds()
	if t.onTick != nil {
		t.onTick(remaining)
	}
	if remaining == 0 {
		t.running = false
		t.zeroFired = true
		if t.onZero != nil {
			t.onZero()
		}
	}
}

// FormatClock renders whole seconds as MM:SS for the projection display.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
