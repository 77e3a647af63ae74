package channel

import (
	"github.com/rs/zerolog/log"
)

// SubscriptionSet owns every topic subscription one session created. Closing
// the set releases all of them deterministically; a session that forgets to
// close leaks one subscription per topic per open.
type SubscriptionSet struct {
	subs   []Subscription
	closed bool
}

// NewSubscriptionSet returns an empty set.
func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{}
}

// Add takes ownership of sub.
func (s *SubscriptionSet) Add(sub Subscription) {
	if s.closed {
		// Late add after teardown: release immediately instead of leaking.
		if err := sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Msg("failed to unsubscribe late subscription")
		}
		return
	}
	s.subs = append(s.subs, sub)
}

// Len returns the number of live subscriptions.
func (s *SubscriptionSet) Len() int {
	if s.closed {
		return 0
	}
	return len(s.subs)
}

// Close unsubscribes everything the set owns. Safe to call more than once.
func (s *SubscriptionSet) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Msg("failed to unsubscribe")
		}
	}
	s.subs = nil
}
