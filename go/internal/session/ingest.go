package session

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/openmat/scorecast/go/internal/events"
	"github.com/rs/zerolog/log"
)

// Ingestor consumes push messages and mutates the store. The transport is
// at-least-once and may reorder; dedup keys plus slot semantics make
// application effectively exactly-once and order-independent.
type Ingestor struct {
	store *Store
	slots *SlotAssigner

	// onApplied runs after every successful mutation, so the completion
	// trigger can re-check the fully-scored condition.
	onApplied func()
}

// NewIngestor wires an ingestor to its store and slot assigner.
func NewIngestor(store *Store, slots *SlotAssigner, onApplied func()) *Ingestor {
	return &Ingestor{
		store:     store,
		slots:     slots,
		onApplied: onApplied,
	}
}

// DedupKey composes the identity of one score submission. Two deliveries of
// the same submission always produce the same key.
func DedupKey(assessorID string, score float64, submittedAt string) string {
	return fmt.Sprintf("%s|%v|%s", assessorID, score, submittedAt)
}

// ApplyScore consumes one judge-score message, or is a no-op. Malformed
// messages are dropped without error.
func (in *Ingestor) ApplyScore(data []byte) {
	var payload events.ScoreSubmittedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Debug().Err(err).Msg("dropping malformed score message")
		return
	}
	if math.IsNaN(payload.Score) || math.IsInf(payload.Score, 0) {
		log.Debug().Str("assessor_id", payload.AssessorID).Msg("dropping non-finite score")
		return
	}

	key := DedupKey(payload.AssessorID, payload.Score, payload.SubmittedAt)
	if in.store.SeenKey(key) {
		log.Debug().
			Str("assessor_id", payload.AssessorID).
			Str("key", key).
			Msg("dropping duplicate score delivery")
		return
	}

	scores := in.store.Session().Scores
	slot, ok := in.slots.Resolve(payload.AssessorID, scores)
	if !ok {
		log.Warn().
			Str("assessor_id", payload.AssessorID).
			Msg("no slot available for assessor, dropping score")
		return
	}

	in.store.MarkKey(key)
	if !in.store.SetScore(slot, payload.Score) {
		return
	}

	log.Info().
		Str("assessor_id", payload.AssessorID).
		Int("slot", slot).
		Float64("score", payload.Score).
		Float64("total", in.store.Total()).
		Msg("score applied")

	if in.onApplied != nil {
		in.onApplied()
	}
}
