package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openmat/scorecast/go/internal/events"
	"github.com/openmat/scorecast/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrQuorumNotMet blocks a manual start until every required assessor is
	// connected.
	ErrQuorumNotMet = errors.New("connected assessor count below required quorum")
	// ErrNotRunning is returned by Resume when the session is not in progress.
	ErrNotRunning = errors.New("session is not in progress")
	// ErrAlreadyRunning rejects a manual begin on a running session.
	ErrAlreadyRunning = errors.New("session already in progress, use resume")
	// ErrStartInFlight rejects a second begin while one is awaiting the server.
	ErrStartInFlight = errors.New("start request already in flight")
	// ErrSessionClosed rejects transitions on a terminal session.
	ErrSessionClosed = errors.New("session already completed or cancelled")
)

// ReadinessError carries every outstanding readiness violation. Error()
// surfaces the first one, the way the setup card shows its primary blocker.
type ReadinessError struct {
	Violations []Violation
}

func (e *ReadinessError) Error() string {
	if len(e.Violations) == 0 {
		return "session not ready"
	}
	return e.Violations[0].Message
}

// Hooks are the controller's callbacks into the rest of the synchronizer.
// They run on the coordinator loop.
type Hooks struct {
	// OnRunning starts the countdown, anchored to the authoritative start.
	OnRunning func(startAt time.Time)
	// OnCompleted fires exactly once when the session reaches COMPLETED,
	// driving the hand-off to the result view.
	OnCompleted func()
	// OnCancelled freezes the display when an external cancel arrives.
	OnCancelled func()
}

// Controller issues state-transition requests to the server and reconciles
// the optimistic local state with the server's authoritative reply and with
// status pushes. All methods run on the coordinator loop; network calls are
// split into prepare/commit/abort phases so the loop never blocks on I/O.
type Controller struct {
	store     *Store
	conflicts FieldConflictChecker
	clock     clockwork.Clock
	hooks     Hooks

	// inFlight marks a begin request awaiting the server's reply.
	inFlight bool
	// finalizing marks that a finalize request has been issued; it makes the
	// three completion paths (timer zero, completion trigger, status push)
	// collapse to a single server call.
	finalizing bool
	// completed guards the one-shot OnCompleted hand-off.
	completed bool
}

// NewController wires a controller to its store.
func NewController(store *Store, conflicts FieldConflictChecker, clock clockwork.Clock, hooks Hooks) *Controller {
	if conflicts == nil {
		conflicts = NoConflictChecker{}
	}
	return &Controller{
		store:     store,
		conflicts: conflicts,
		clock:     clock,
		hooks:     hooks,
	}
}

// BeginPrepare validates the manual start: readiness gate first, then the
// connection quorum. On success it marks the request in flight; the caller
// then issues the server call and reports back via BeginCommit or
// BeginAbort.
func (c *Controller) BeginPrepare() error {
	s := c.store.Session()
	if s.Status.Terminal() {
		return ErrSessionClosed
	}
	if s.Status == models.SessionStatusInProgress {
		return ErrAlreadyRunning
	}
	if c.inFlight {
		return ErrStartInFlight
	}
	if violations := EvaluateReadiness(s, c.conflicts); len(violations) > 0 {
		return &ReadinessError{Violations: violations}
	}
	if s.ConnectedAssessorCount < s.RequiredAssessorSlots {
		return fmt.Errorf("%w: %d of %d connected",
			ErrQuorumNotMet, s.ConnectedAssessorCount, s.RequiredAssessorSlots)
	}
	c.inFlight = true
	return nil
}

// BeginCommit applies the server's confirmed start. serverStart is the
// confirmed server time when provided; the local clock is the fallback.
func (c *Controller) BeginCommit(serverStart *time.Time) {
	c.inFlight = false

	startAt := c.clock.Now()
	if serverStart != nil {
		startAt = *serverStart
	}
	c.store.SetStatus(models.SessionStatusInProgress)
	c.store.SetActualStartAt(startAt)
	c.runTimer()
}

// BeginAbort clears the in-flight flag after a rejected start. The session
// never advanced optimistically, so there is nothing else to roll back.
func (c *Controller) BeginAbort(err error) {
	c.inFlight = false
	log.Error().Err(err).Msg("start request rejected by server")
}

// Resume re-enters an already-running session, bypassing the readiness gate
// entirely: once running, re-entry must always succeed so an operator can
// recover from an accidental navigation.
func (c *Controller) Resume() error {
	s := c.store.Session()
	if s.Status != models.SessionStatusInProgress || s.ActualStartAt == nil {
		return ErrNotRunning
	}
	c.runTimer()
	return nil
}

// FinalizePrepare claims the one-shot finalize. Only the first caller gets
// true and issues the server request; later callers observe the guard and
// no-op.
func (c *Controller) FinalizePrepare() bool {
	if c.finalizing {
		return false
	}
	if c.store.Session().Status.Terminal() {
		return false
	}
	c.finalizing = true
	return true
}

// FinalizeCommit applies the confirmed completion.
func (c *Controller) FinalizeCommit() {
	c.store.SetStatus(models.SessionStatusCompleted)
	c.markCompleted()
}

// FinalizeAbort rolls the guard back after a server rejection so a later
// trigger can retry.
func (c *Controller) FinalizeAbort(err error) {
	c.finalizing = false
	log.Error().Err(err).Msg("finalize request rejected by server")
}

// ApplyStatusPush reconciles an external status message. Transitions that
// would move the lifecycle backward are rejected, so a stale IN_PROGRESS
// replayed after completion cannot reopen the session.
func (c *Controller) ApplyStatusPush(data []byte) {
	var payload events.StatusPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Debug().Err(err).Msg("dropping malformed status message")
		return
	}

	next := models.SessionStatus(payload.Status)
	if !next.Known() {
		log.Warn().Str("status", payload.Status).Msg("unknown status push, ignoring")
		return
	}

	if !c.store.SetStatus(next) {
		log.Debug().
			Str("status", payload.Status).
			Str("current", string(c.store.Session().Status)).
			Msg("rejecting stale status push")
		return
	}

	switch next {
	case models.SessionStatusInProgress:
		startAt := c.clock.Now()
		if payload.StartTime != nil {
			startAt = *payload.StartTime
		}
		c.store.SetActualStartAt(startAt)
		c.runTimer()
	case models.SessionStatusCompleted:
		// Server already completed the match; suppress any local finalize.
		c.finalizing = true
		c.markCompleted()
	case models.SessionStatusCancelled:
		if c.hooks.OnCancelled != nil {
			c.hooks.OnCancelled()
		}
	}
}

// runTimer anchors the countdown to the stored start, which is set at most
// once, so reconnection replays reuse the original anchor.
func (c *Controller) runTimer() {
	s := c.store.Session()
	if s.ActualStartAt == nil {
		return
	}
	if c.hooks.OnRunning != nil {
		c.hooks.OnRunning(*s.ActualStartAt)
	}
}

func (c *Controller) markCompleted() {
	if c.completed {
		return
	}
	c.completed = true
	if c.hooks.OnCompleted != nil {
		c.hooks.OnCompleted()
	}
}
