package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestCompletionTriggerArmsOnceWhenFullyScored(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fired := 0
	trigger := NewCompletionTrigger(clock, 5*time.Second, func() { fired++ })

	if fireAt := trigger.CheckAndArm(4, 5); fireAt != nil {
		t.Fatalf("armed below the required count")
	}

	fireAt := trigger.CheckAndArm(5, 5)
	if fireAt == nil {
		t.Fatalf("did not arm at the required count")
	}
	if want := clock.Now().Add(5 * time.Second); !fireAt.Equal(want) {
		t.Errorf("fireAt = %v, want %v", fireAt, want)
	}

	// Re-checks after arming, as from score corrections, change nothing.
	if again := trigger.CheckAndArm(5, 5); again != nil {
		t.Errorf("re-armed while already armed")
	}

	clock.Advance(5 * time.Second)
	if fired != 1 {
		t.Errorf("fired %d times, want 1", fired)
	}
}

func TestCompletionTriggerFiresOnlyAfterGrace(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fired := 0
	trigger := NewCompletionTrigger(clock, 5*time.Second, func() { fired++ })

	trigger.CheckAndArm(5, 5)
	clock.Advance(4 * time.Second)
	if fired != 0 {
		t.Fatalf("fired before the grace delay elapsed")
	}
	clock.Advance(time.Second)
	if fired != 1 {
		t.Errorf("fired %d times after grace, want 1", fired)
	}
}

func TestCompletionTriggerDisarmCancels(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fired := 0
	trigger := NewCompletionTrigger(clock, 5*time.Second, func() { fired++ })

	trigger.CheckAndArm(5, 5)
	if !trigger.Armed() {
		t.Fatalf("trigger not armed")
	}

	trigger.Disarm()
	clock.Advance(10 * time.Second)
	if fired != 0 {
		t.Errorf("fired after disarm")
	}
	if trigger.Armed() {
		t.Errorf("still armed after disarm")
	}
}

func TestCompletionTriggerDisarmWhenIdle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	trigger := NewCompletionTrigger(clock, 5*time.Second, func() {})
	trigger.Disarm()
	if trigger.Armed() {
		t.Errorf("idle trigger reports armed")
	}
}
