package session

import (
	"math"

	"time"

	"github.com/openmat/scorecast/go/internal/models"
)

// Listener observes store mutations. It receives a deep copy of the session
// so observers can never alias the store's internal state.
type Listener func(models.Session)

// Store is the authoritative-for-the-client representation of one active
// session. It has a single owner: every mutation runs on the coordinator's
// dispatch loop, so the store itself takes no locks and is not safe for
// concurrent use.
type Store struct {
	session models.Session

	// historyKeys strictly grows while the session is open; replayed
	// deliveries are recognized and discarded against it.
	historyKeys map[string]struct{}

	// history holds applied score records, most recent first, capped.
	history    []models.ScoreRecord
	historyCap int
	received   int

	listeners  map[int]Listener
	nextListen int
}

// NewStore wraps a freshly loaded session snapshot.
func NewStore(s models.Session, historyCap int) *Store {
	if s.Scores == nil {
		s.Scores = make([]float64, s.RequiredAssessorSlots)
	}
	if s.AthletesPresent == nil {
		s.AthletesPresent = make(map[string]bool)
	}
	return &Store{
		session:     s,
		historyKeys: make(map[string]struct{}),
		historyCap:  historyCap,
		listeners:   make(map[int]Listener),
	}
}

// Session returns a deep copy of the current state.
func (st *Store) Session() models.Session {
	return st.session.Clone()
}

// Subscribe registers a listener for every mutation. The returned func
// removes it.
func (st *Store) Subscribe(fn Listener) (cancel func()) {
	id := st.nextListen
	st.nextListen++
	st.listeners[id] = fn
	return func() {
		delete(st.listeners, id)
	}
}

func (st *Store) notify() {
	if len(st.listeners) == 0 {
		return
	}
	snapshot := st.session.Clone()
	for _, fn := range st.listeners {
		fn(snapshot)
	}
}

// SeenKey reports whether a dedup key was already applied.
func (st *Store) SeenKey(key string) bool {
	_, ok := st.historyKeys[key]
	return ok
}

// MarkKey records a dedup key. Keys are never removed while the session is
// open.
func (st *Store) MarkKey(key string) {
	st.historyKeys[key] = struct{}{}
}

// SetScore overwrites the score held by slot and appends a history record.
// Later submissions for the same slot replace the value; they never grow the
// slot array.
func (st *Store) SetScore(slot int, score float64) bool {
	if slot < 0 || slot >= len(st.session.Scores) {
		return false
	}
	st.session.Scores[slot] = score
	st.received++
	st.history = append([]models.ScoreRecord{{
		Slot:          slot,
		Score:         score,
		ReceivedOrder: st.received,
	}}, st.history...)
	if len(st.history) > st.historyCap {
		st.history = st.history[:st.historyCap]
	}
	st.notify()
	return true
}

// History returns applied score records, most recent first.
func (st *Store) History() []models.ScoreRecord {
	return append([]models.ScoreRecord(nil), st.history...)
}

// ScoredSlots counts slots holding a finite value greater than zero.
func (st *Store) ScoredSlots() int {
	n := 0
	for _, s := range st.session.Scores {
		if scoreCounts(s) {
			n++
		}
	}
	return n
}

// Total returns the arithmetic mean of all scored slots. Unscored slots are
// excluded, not treated as zero; an all-unscored session totals 0.
func (st *Store) Total() float64 {
	sum := 0.0
	n := 0
	for _, s := range st.session.Scores {
		if scoreCounts(s) {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func scoreCounts(s float64) bool {
	return s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s)
}

// SetStatus applies a lifecycle transition if it moves forward in the
// lifecycle order. Stale transitions are rejected and reported false.
func (st *Store) SetStatus(next models.SessionStatus) bool {
	if !st.session.Status.CanTransitionTo(next) {
		return false
	}
	st.session.Status = next
	st.notify()
	return true
}

// SetActualStartAt records the authoritative countdown anchor. It is set at
// most once per session instance: re-entering IN_PROGRESS via reconnection
// reuses the original value.
func (st *Store) SetActualStartAt(t time.Time) bool {
	if st.session.ActualStartAt != nil {
		return false
	}
	st.session.ActualStartAt = &t
	st.notify()
	return true
}

// SetConnectedCount overwrites the live assessor connection count,
// last-write-wins. The count is bounded to 0..RequiredAssessorSlots.
func (st *Store) SetConnectedCount(n int) {
	if n < 0 {
		n = 0
	}
	if n > st.session.RequiredAssessorSlots {
		n = st.session.RequiredAssessorSlots
	}
	if st.session.ConnectedAssessorCount == n {
		return
	}
	st.session.ConnectedAssessorCount = n
	st.notify()
}

// SetScheduledStartAt updates the planned start, or clears it when nil.
func (st *Store) SetScheduledStartAt(t *time.Time) {
	st.session.ScheduledStartAt = t
	st.notify()
}

// SetFieldID updates the assigned competition area.
func (st *Store) SetFieldID(fieldID string) {
	st.session.FieldID = fieldID
	st.notify()
}

// SetAthletePresent records one participant's presence confirmation.
func (st *Store) SetAthletePresent(athleteID string, present bool) {
	st.session.AthletesPresent[athleteID] = present
	st.notify()
}

// SetCompletionScheduledAt records when the armed completion will fire, or
// clears it when nil.
func (st *Store) SetCompletionScheduledAt(t *time.Time) {
	st.session.CompletionScheduledAt = t
	st.notify()
}
