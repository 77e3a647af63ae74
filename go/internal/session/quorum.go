package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openmat/scorecast/go/internal/channel"
	"github.com/openmat/scorecast/go/internal/events"
	"github.com/rs/zerolog/log"
)

// QuorumTracker maintains the count of currently-connected assessors from
// push messages. The channel only pushes on change, so a client attaching
// mid-session proactively requests a snapshot, retrying until the channel
// reports itself connected.
type QuorumTracker struct {
	store   *Store
	ch      channel.PushChannel
	matchID string
	clock   clockwork.Clock
	retry   time.Duration
}

// NewQuorumTracker wires a tracker to its store and channel.
func NewQuorumTracker(store *Store, ch channel.PushChannel, matchID string, clock clockwork.Clock, retry time.Duration) *QuorumTracker {
	return &QuorumTracker{
		store:   store,
		ch:      ch,
		matchID: matchID,
		clock:   clock,
		retry:   retry,
	}
}

// ApplyConnections consumes one judge-connections message. The count is a
// liveness value, not a log: the latest reported value simply overwrites,
// with no ordering assumption.
func (q *QuorumTracker) ApplyConnections(data []byte) {
	var payload events.JudgeConnectionsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Debug().Err(err).Msg("dropping malformed connections message")
		return
	}
	q.store.SetConnectedCount(payload.ConnectedCount)
}

// RequestSnapshot publishes one connections request if the channel is
// connected. It reports whether the request went out.
func (q *QuorumTracker) RequestSnapshot() bool {
	if !q.ch.IsConnected() {
		return false
	}
	err := q.ch.Publish(events.ConnectionsRequestSubject, events.ConnectionsRequestPayload{
		MatchID: q.matchID,
	})
	if err != nil {
		log.Error().Err(err).Str("match_id", q.matchID).Msg("failed to request connections snapshot")
		return false
	}
	log.Debug().Str("match_id", q.matchID).Msg("requested connections snapshot")
	return true
}

// RunSnapshotRequest retries the initial snapshot request on a short
// interval until it succeeds or ctx is cancelled. It only publishes, never
// mutates the store, so it is safe to run off the coordinator loop.
func (q *QuorumTracker) RunSnapshotRequest(ctx context.Context) {
	if q.RequestSnapshot() {
		return
	}
	ticker := q.clock.NewTicker(q.retry)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if q.RequestSnapshot() {
				return
			}
		}
	}
}
