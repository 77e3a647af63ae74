package channel

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// The push-channel connection is a process-wide resource shared across every
// concurrently open session. It is initialized on first use and reference
// counted: a session's teardown decrements the count but never force-closes
// the connection. Shutdown closes it at process exit.

var shared struct {
	mu   sync.Mutex
	ch   *NATSChannel
	refs int
}

// Acquire returns the shared channel, dialing it on first use.
func Acquire(cfg Config) (*NATSChannel, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.ch == nil {
		ch, err := Connect(cfg)
		if err != nil {
			return nil, err
		}
		shared.ch = ch
	}
	shared.refs++
	log.Debug().Int("refs", shared.refs).Msg("push channel acquired")
	return shared.ch, nil
}

// Release decrements the reference count. The connection stays open so other
// sessions and late joiners keep their transport.
func Release() {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.refs > 0 {
		shared.refs--
	}
	log.Debug().Int("refs", shared.refs).Msg("push channel released")
}

// Shutdown closes the shared connection regardless of reference count.
func Shutdown() {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.ch != nil {
		shared.ch.Close()
		shared.ch = nil
		shared.refs = 0
	}
}
