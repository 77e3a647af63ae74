package channel

import (
	"testing"
)

type countingSubscription struct {
	unsubscribed int
}

func (c *countingSubscription) Unsubscribe() error {
	c.unsubscribed++
	return nil
}

func TestSubscriptionSetCloseReleasesAll(t *testing.T) {
	set := NewSubscriptionSet()
	subs := []*countingSubscription{{}, {}, {}}
	for _, sub := range subs {
		set.Add(sub)
	}
	if set.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", set.Len())
	}

	set.Close()
	for i, sub := range subs {
		if sub.unsubscribed != 1 {
			t.Errorf("sub[%d] unsubscribed %d times, want 1", i, sub.unsubscribed)
		}
	}
	if set.Len() != 0 {
		t.Errorf("Len() after close = %d, want 0", set.Len())
	}
}

func TestSubscriptionSetCloseIsIdempotent(t *testing.T) {
	set := NewSubscriptionSet()
	sub := &countingSubscription{}
	set.Add(sub)

	set.Close()
	set.Close()
	if sub.unsubscribed != 1 {
		t.Errorf("unsubscribed %d times across repeated closes, want 1", sub.unsubscribed)
	}
}

func TestSubscriptionSetLateAddReleasedImmediately(t *testing.T) {
	set := NewSubscriptionSet()
	set.Close()

	sub := &countingSubscription{}
	set.Add(sub)
	if sub.unsubscribed != 1 {
		t.Errorf("late add unsubscribed %d times, want 1", sub.unsubscribed)
	}
	if set.Len() != 0 {
		t.Errorf("Len() = %d, want 0", set.Len())
	}
}
