package session

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// CompletionTrigger watches for the fully-scored condition and schedules a
// one-shot, cancellable transition to COMPLETED after a grace delay. The
// delay gives the panel a moment to correct a score before the result view
// takes over; its length is configuration, not protocol.
type CompletionTrigger struct {
	clock clockwork.Clock
	grace time.Duration

	armed bool
	timer clockwork.Timer

	// onFire must be serialized onto the coordinator loop by the caller.
	onFire func()
}

// NewCompletionTrigger returns a disarmed trigger.
func NewCompletionTrigger(clock clockwork.Clock, grace time.Duration, onFire func()) *CompletionTrigger {
	return &CompletionTrigger{
		clock:  clock,
		grace:  grace,
		onFire: onFire,
	}
}

// CheckAndArm arms the delayed transition the first time every required slot
// holds a score. Re-checking after arming is a no-op. It returns the instant
// the transition will fire, or nil when nothing changed.
func (c *CompletionTrigger) CheckAndArm(scoredSlots, requiredSlots int) *time.Time {
	if c.armed || scoredSlots < requiredSlots {
		return nil
	}
	c.armed = true
	c.timer = c.clock.AfterFunc(c.grace, c.onFire)
	fireAt := c.clock.Now().Add(c.grace)
	return &fireAt
}

// Armed reports whether the transition has been scheduled.
func (c *CompletionTrigger) Armed() bool {
	return c.armed
}

// Disarm cancels a pending transition so an unmounted or cancelled session
// leaves no orphaned callback. Safe to call when not armed.
func (c *CompletionTrigger) Disarm() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.armed = false
}
