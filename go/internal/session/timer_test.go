package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTimerEngineCountsDownFromStart(t *testing.T) {
	clock := clockwork.NewFakeClock()

	var ticks []int
	engine := NewTimerEngine(clock, func(remaining int) {
		ticks = append(ticks, remaining)
	}, nil)

	engine.Start(clock.Now(), 10*time.Second)
	clock.Advance(3 * time.Second)
	engine.Tick()
	clock.Advance(4 * time.Second)
	engine.Tick()

	want := []int{10, 7, 3}
	if len(ticks) != len(want) {
		t.Fatalf("ticks = %v, want %v", ticks, want)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Errorf("tick[%d] = %d, want %d", i, ticks[i], want[i])
		}
	}
}

func TestTimerEngineAnchorsToAbsoluteStart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine := NewTimerEngine(clock, nil, nil)

	// Attaching 40 seconds into a 120-second session: the countdown picks up
	// mid-flight from the original anchor.
	startAt := clock.Now()
	clock.Advance(40 * time.Second)
	engine.Start(startAt, 120*time.Second)

	if got := engine.RemainingSeconds(); got != 80 {
		t.Errorf("RemainingSeconds() = %d, want 80", got)
	}
}

func TestTimerEngineSurvivesSuspension(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine := NewTimerEngine(clock, nil, nil)
	engine.Start(clock.Now(), 120*time.Second)

	// A long gap between ticks, as after a backgrounded process, still lands
	// on the correct remaining time.
	clock.Advance(75 * time.Second)
	engine.Tick()
	if got := engine.RemainingSeconds(); got != 45 {
		t.Errorf("RemainingSeconds() after gap = %d, want 45", got)
	}
}

func TestTimerEngineZeroFiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	zeros := 0
	var lastTick int
	engine := NewTimerEngine(clock, func(remaining int) {
		lastTick = remaining
	}, func() {
		zeros++
	})

	engine.Start(clock.Now(), 5*time.Second)
	clock.Advance(5 * time.Second)
	engine.Tick()
	engine.Tick()
	engine.Tick()

	if zeros != 1 {
		t.Errorf("zero fired %d times, want 1", zeros)
	}
	if lastTick != 0 {
		t.Errorf("last reported tick = %d, want 0", lastTick)
	}
	if engine.Running() {
		t.Errorf("engine still running after zero")
	}
}

func TestTimerEngineNeverNegative(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine := NewTimerEngine(clock, nil, nil)
	engine.Start(clock.Now(), 5*time.Second)

	clock.Advance(30 * time.Second)
	if got := engine.RemainingSeconds(); got != 0 {
		t.Errorf("RemainingSeconds() past expiry = %d, want 0", got)
	}
}

func TestTimerEngineStartIsIdempotentWhileRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	engine := NewTimerEngine(clock, nil, nil)

	startAt := clock.Now()
	engine.Start(startAt, 100*time.Second)
	clock.Advance(30 * time.Second)

	// A redundant start push must not re-anchor the countdown.
	engine.Start(clock.Now(), 100*time.Second)
	if got := engine.RemainingSeconds(); got != 70 {
		t.Errorf("RemainingSeconds() = %d, want 70 (original anchor)", got)
	}
}

func TestTimerEngineNoRestartAfterZero(t *testing.T) {
	clock := clockwork.NewFakeClock()
	zeros := 0
	engine := NewTimerEngine(clock, nil, func() { zeros++ })

	engine.Start(clock.Now(), 1*time.Second)
	clock.Advance(time.Second)
	engine.Tick()

	engine.Start(clock.Now(), 10*time.Second)
	if engine.Running() {
		t.Errorf("engine restarted after firing zero")
	}
	if zeros != 1 {
		t.Errorf("zero fired %d times, want 1", zeros)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{120, "02:00"},
		{59, "00:59"},
		{0, "00:00"},
		{-4, "00:00"},
		{605, "10:05"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
