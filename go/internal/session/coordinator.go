package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openmat/scorecast/go/clients/score_api_client"
	"github.com/openmat/scorecast/go/internal/channel"
	"github.com/openmat/scorecast/go/internal/events"
	"github.com/openmat/scorecast/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrCoordinatorStopped is returned by operations issued after Run exited.
var ErrCoordinatorStopped = errors.New("session coordinator stopped")

// Config holds the synchronizer's tunables.
type Config struct {
	RequiredAssessorSlots  int
	DefaultDurationSeconds int
	TickInterval           time.Duration
	CompletionGrace        time.Duration
	HistoryCap             int
	SnapshotRetryInterval  time.Duration
}

// DefaultConfig returns the domain defaults: a panel of five, 500ms display
// ticks, and a five-second grace delay before the result view takes over.
func DefaultConfig() Config {
	return Config{
		RequiredAssessorSlots:  5,
		DefaultDurationSeconds: 120,
		TickInterval:           500 * time.Millisecond,
		CompletionGrace:        5 * time.Second,
		HistoryCap:             100,
		SnapshotRetryInterval:  2 * time.Second,
	}
}

// MatchAPI is what the coordinator needs from the scoring server's REST API.
type MatchAPI interface {
	GetPerformanceByMatch(ctx context.Context, matchID string) (*score_api_client.PerformanceResponse, error)
	GetPerformanceMatch(ctx context.Context, performanceID string) (*score_api_client.PerformanceMatchResponse, error)
	UpdateMatchStatus(ctx context.Context, matchID, status string) (*score_api_client.MatchStatusResponse, error)
	UpdateScheduledStartTime(ctx context.Context, matchID string, scheduledStart *time.Time) error
	UpdateAthletePresence(ctx context.Context, matchID string, present map[string]bool) error
}

// Coordinator owns one live session: it fetches the initial snapshot,
// subscribes to the session's push topics, and serializes every mutation
// (push messages, timer ticks, user actions) onto a single dispatch loop.
// No two store mutations are ever concurrent, so nothing below it locks.
type Coordinator struct {
	cfg       Config
	api       MatchAPI
	ch        channel.PushChannel
	clock     clockwork.Clock
	sessionID string
	matchID   string

	store   *Store
	slots   *SlotAssigner
	ingest  *Ingestor
	timer   *TimerEngine
	quorum  *QuorumTracker
	trigger *CompletionTrigger
	ctrl    *Controller

	ops  chan func()
	done chan struct{}

	subs            *channel.SubscriptionSet
	removeReconnect func()
	snapshotCancel  context.CancelFunc

	runCtx context.Context

	// Set before Run; observed from the loop.
	onTick     func(remainingSec int)
	onNavigate func()
}

// Open fetches the session snapshot, builds the synchronizer and subscribes
// to the session's push topics. Run must be called to start processing.
func Open(ctx context.Context, cfg Config, api MatchAPI, ch channel.PushChannel, clock clockwork.Clock, conflicts FieldConflictChecker, matchID string) (*Coordinator, error) {
	perf, err := api.GetPerformanceByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("fetch performance: %w", err)
	}
	match, err := api.GetPerformanceMatch(ctx, perf.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch performance match: %w", err)
	}

	c := &Coordinator{
		cfg:       cfg,
		api:       api,
		ch:        ch,
		clock:     clock,
		sessionID: perf.ID,
		matchID:   perf.MatchID,
		ops:       make(chan func(), 256),
		done:      make(chan struct{}),
		subs:      channel.NewSubscriptionSet(),
	}

	c.store = NewStore(buildSession(cfg, perf, match), cfg.HistoryCap)
	c.slots = NewSlotAssigner(c.store.Session().Assessors, cfg.RequiredAssessorSlots)

	c.timer = NewTimerEngine(clock,
		func(remaining int) {
			if c.onTick != nil {
				c.onTick(remaining)
			}
		},
		func() {
			c.finalize("countdown reached zero")
		},
	)

	c.trigger = NewCompletionTrigger(clock, cfg.CompletionGrace, func() {
		// AfterFunc fires off-loop; serialize before touching state.
		c.do(func() {
			c.finalize("all slots scored")
		})
	})

	c.ingest = NewIngestor(c.store, c.slots, func() {
		s := c.store.Session()
		if fireAt := c.trigger.CheckAndArm(c.store.ScoredSlots(), s.RequiredAssessorSlots); fireAt != nil {
			c.store.SetCompletionScheduledAt(fireAt)
			log.Info().
				Str("session_id", c.sessionID).
				Time("fire_at", *fireAt).
				Msg("completion armed")
		}
	})

	c.quorum = NewQuorumTracker(c.store, ch, c.matchID, clock, cfg.SnapshotRetryInterval)

	c.ctrl = NewController(c.store, conflicts, clock, Hooks{
		OnRunning: func(startAt time.Time) {
			c.timer.Start(startAt, time.Duration(c.store.Session().DurationSeconds)*time.Second)
		},
		OnCompleted: func() {
			c.timer.Stop()
			c.trigger.Disarm()
			c.store.SetCompletionScheduledAt(nil)
			if c.onNavigate != nil {
				c.onNavigate()
			}
		},
		OnCancelled: func() {
			c.timer.Stop()
			c.trigger.Disarm()
			c.store.SetCompletionScheduledAt(nil)
		},
	})

	if err := c.subscribe(); err != nil {
		c.subs.Close()
		return nil, err
	}

	// The channel only pushes connection counts on change; ask for one now,
	// and again after every reconnect.
	snapCtx, cancel := context.WithCancel(context.Background())
	c.snapshotCancel = cancel
	go c.quorum.RunSnapshotRequest(snapCtx)
	c.removeReconnect = ch.NotifyReconnect(func() {
		go c.quorum.RunSnapshotRequest(snapCtx)
	})

	// A session observed already running resumes its original countdown.
	if s := c.store.Session(); s.Status == models.SessionStatusInProgress && s.ActualStartAt != nil {
		c.ops <- func() { _ = c.ctrl.Resume() }
	}

	log.Info().
		Str("session_id", c.sessionID).
		Str("match_id", c.matchID).
		Str("status", string(c.store.Session().Status)).
		Msg("session opened")
	return c, nil
}

func buildSession(cfg Config, perf *score_api_client.PerformanceResponse, match *score_api_client.PerformanceMatchResponse) models.Session {
	status := models.SessionStatus(perf.Status)
	if !status.Known() {
		status = models.SessionStatusScheduled
	}

	duration := match.DurationSeconds
	if duration <= 0 {
		duration = cfg.DefaultDurationSeconds
	}

	assessors := make([]models.Assessor, 0, len(perf.Assessors))
	for _, a := range perf.Assessors {
		assessors = append(assessors, models.Assessor{ID: a.ID, Name: a.Name})
	}

	present := make(map[string]bool, len(perf.Athletes))
	for _, athlete := range perf.Athletes {
		present[athlete.ID] = athlete.Present
	}

	return models.Session{
		ID:                    perf.ID,
		MatchID:               perf.MatchID,
		Status:                status,
		ScheduledStartAt:      match.ScheduledStartTime,
		ActualStartAt:         match.StartTime,
		DurationSeconds:       duration,
		FieldID:               match.FieldID,
		RequiredAssessorSlots: cfg.RequiredAssessorSlots,
		Assessors:             assessors,
		AthletesPresent:       present,
		Scores:                make([]float64, cfg.RequiredAssessorSlots),
	}
}

func (c *Coordinator) subscribe() error {
	type topic struct {
		subject string
		handler channel.Handler
	}
	topics := []topic{
		{events.StatusSubject(c.sessionID), func(data []byte) {
			c.do(func() { c.ctrl.ApplyStatusPush(data) })
		}},
		{events.JudgeScoreSubject(c.sessionID), func(data []byte) {
			c.do(func() { c.ingest.ApplyScore(data) })
		}},
		{events.JudgeConnectionsSubject(c.sessionID), func(data []byte) {
			c.do(func() { c.quorum.ApplyConnections(data) })
		}},
	}
	for _, t := range topics {
		sub, err := c.ch.Subscribe(t.subject, t.handler)
		if err != nil {
			return fmt.Errorf("subscribe session topics: %w", err)
		}
		c.subs.Add(sub)
	}
	return nil
}

// Run processes the dispatch loop until ctx is cancelled, then tears the
// session down: unsubscribes every topic, stops the display ticker and
// disarms any pending completion.
func (c *Coordinator) Run(ctx context.Context) error {
	c.runCtx = ctx
	ticker := c.clock.NewTicker(c.cfg.TickInterval)
	defer func() {
		ticker.Stop()
		c.timer.Stop()
		c.trigger.Disarm()
		c.subs.Close()
		c.removeReconnect()
		c.snapshotCancel()
		close(c.done)
		log.Info().Str("session_id", c.sessionID).Msg("session closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-c.ops:
			fn()
		case <-ticker.Chan():
			c.timer.Tick()
		}
	}
}

// do serializes fn onto the dispatch loop, dropping it if the loop has
// stopped.
func (c *Coordinator) do(fn func()) {
	select {
	case c.ops <- fn:
	case <-c.done:
	}
}

// call runs fn on the loop and waits for its result.
func (c *Coordinator) call(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case c.ops <- func() { reply <- fn() }:
	case <-c.done:
		return ErrCoordinatorStopped
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrCoordinatorStopped
	}
}

// SetTickObserver registers the countdown observer. Must be set before Run.
func (c *Coordinator) SetTickObserver(fn func(remainingSec int)) {
	c.onTick = fn
}

// SetNavigateHook registers the result-view hand-off. Must be set before Run.
func (c *Coordinator) SetNavigateHook(fn func()) {
	c.onNavigate = fn
}

// OnUpdate registers a store listener; it runs on the dispatch loop with a
// session snapshot and the remaining countdown seconds after every mutation.
// Must be called before Run. The returned cancel may be called at any time.
func (c *Coordinator) OnUpdate(fn func(s models.Session, remainingSec int)) (cancel func()) {
	remove := c.store.Subscribe(func(s models.Session) {
		fn(s, c.remaining(s))
	})
	return func() {
		c.do(remove)
	}
}

// Begin performs the gated manual start: the readiness gate, then the
// connection quorum, then the server transition. The local session only
// advances once the server confirms; on rejection it remains READY.
func (c *Coordinator) Begin(ctx context.Context) error {
	if err := c.call(c.ctrl.BeginPrepare); err != nil {
		return err
	}

	resp, err := c.api.UpdateMatchStatus(ctx, c.matchID, string(models.SessionStatusInProgress))
	if err != nil {
		c.do(func() { c.ctrl.BeginAbort(err) })
		return fmt.Errorf("begin session: %w", err)
	}

	c.do(func() { c.ctrl.BeginCommit(resp.StartTime) })
	return nil
}

// Resume re-enters an already-running session without consulting the gate.
func (c *Coordinator) Resume() error {
	return c.call(c.ctrl.Resume)
}

// Readiness evaluates the start gate, reporting every outstanding blocker.
func (c *Coordinator) Readiness() ([]Violation, error) {
	var violations []Violation
	err := c.call(func() error {
		violations = EvaluateReadiness(c.store.Session(), c.ctrl.conflicts)
		return nil
	})
	return violations, err
}

// SessionID returns the immutable session identifier.
func (c *Coordinator) SessionID() string {
	return c.sessionID
}

// Snapshot returns the current session and the remaining countdown seconds.
func (c *Coordinator) Snapshot() (models.Session, int, error) {
	var s models.Session
	var remaining int
	err := c.call(func() error {
		s = c.store.Session()
		remaining = c.remaining(s)
		return nil
	})
	return s, remaining, err
}

// History returns applied score records, most recent first.
func (c *Coordinator) History() ([]models.ScoreRecord, error) {
	var records []models.ScoreRecord
	err := c.call(func() error {
		records = c.store.History()
		return nil
	})
	return records, err
}

// remaining derives the countdown from the snapshot itself rather than the
// timer engine, which is only anchored after the start is recorded.
func (c *Coordinator) remaining(s models.Session) int {
	if s.ActualStartAt == nil {
		return s.DurationSeconds
	}
	left := time.Duration(s.DurationSeconds)*time.Second - c.clock.Since(*s.ActualStartAt)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// SetScheduledStart updates the planned start on the server, then locally
// once confirmed.
func (c *Coordinator) SetScheduledStart(ctx context.Context, scheduledStart *time.Time) error {
	if err := c.api.UpdateScheduledStartTime(ctx, c.matchID, scheduledStart); err != nil {
		return err
	}
	return c.call(func() error {
		c.store.SetScheduledStartAt(scheduledStart)
		return nil
	})
}

// SetAthletePresence records presence confirmations on the server, then
// locally once confirmed.
func (c *Coordinator) SetAthletePresence(ctx context.Context, present map[string]bool) error {
	if err := c.api.UpdateAthletePresence(ctx, c.matchID, present); err != nil {
		return err
	}
	return c.call(func() error {
		for id, p := range present {
			c.store.SetAthletePresent(id, p)
		}
		return nil
	})
}

// finalize runs on the loop. The first caller wins the guard and issues the
// server request off-loop; the reply is serialized back in.
func (c *Coordinator) finalize(reason string) {
	if !c.ctrl.FinalizePrepare() {
		return
	}
	log.Info().Str("session_id", c.sessionID).Str("reason", reason).Msg("finalizing session")

	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		_, err := c.api.UpdateMatchStatus(ctx, c.matchID, string(models.SessionStatusCompleted))
		if err != nil {
			c.do(func() { c.ctrl.FinalizeAbort(err) })
			return
		}
		c.do(c.ctrl.FinalizeCommit)
	}()
}
