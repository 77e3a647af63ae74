package models

import (
	"time"
)

// SessionStatus defines the lifecycle status of a judged session.
type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "SCHEDULED"
	SessionStatusReady      SessionStatus = "READY"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
)

// lifecycleRank orders statuses along the lifecycle graph. Transitions may
// only move forward; COMPLETED and CANCELLED are terminal.
var lifecycleRank = map[SessionStatus]int{
	SessionStatusScheduled:  0,
	SessionStatusReady:      1,
	SessionStatusInProgress: 2,
	SessionStatusCompleted:  3,
	SessionStatusCancelled:  3,
}

// Known reports whether s is one of the defined lifecycle statuses.
func (s SessionStatus) Known() bool {
	_, ok := lifecycleRank[s]
	return ok
}

// Terminal reports whether no further transitions are allowed out of s.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is a valid forward
// transition. Stale or replayed status messages that would move the session
// backward are rejected here.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if !s.Known() || !next.Known() {
		return false
	}
	if s == next {
		return false
	}
	if s.Terminal() {
		return false
	}
	return lifecycleRank[next] > lifecycleRank[s]
}

// Assessor is one member of the fixed judging panel.
type Assessor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ScoreRecord is one applied score submission, kept for display history.
type ScoreRecord struct {
	Slot          int     `json:"slot"`
	Score         float64 `json:"score"`
	ReceivedOrder int     `json:"received_order"`
}

// Session is the synchronizer's live view of one judged match.
type Session struct {
	ID                     string          `json:"id"`
	MatchID                string          `json:"match_id"`
	Status                 SessionStatus   `json:"status"`
	ScheduledStartAt       *time.Time      `json:"scheduled_start_at,omitempty"`
	ActualStartAt          *time.Time      `json:"actual_start_at,omitempty"`
	DurationSeconds        int             `json:"duration_seconds"`
	FieldID                string          `json:"field_id,omitempty"`
	RequiredAssessorSlots  int             `json:"required_assessor_slots"`
	Assessors              []Assessor      `json:"assessors"`
	AthletesPresent        map[string]bool `json:"athletes_present"`
	ConnectedAssessorCount int             `json:"connected_assessor_count"`
	Scores                 []float64       `json:"scores"`
	CompletionScheduledAt  *time.Time      `json:"completion_scheduled_at,omitempty"`
}

// Clone returns a deep copy so callers can hand sessions across goroutine
// boundaries without aliasing the store's internal state.
func (s Session) Clone() Session {
	out := s
	out.Assessors = append([]Assessor(nil), s.Assessors...)
	out.Scores = append([]float64(nil), s.Scores...)
	out.AthletesPresent = make(map[string]bool, len(s.AthletesPresent))
	for id, present := range s.AthletesPresent {
		out.AthletesPresent[id] = present
	}
	if s.ScheduledStartAt != nil {
		t := *s.ScheduledStartAt
		out.ScheduledStartAt = &t
	}
	if s.ActualStartAt != nil {
		t := *s.ActualStartAt
		out.ActualStartAt = &t
	}
	if s.CompletionScheduledAt != nil {
		t := *s.CompletionScheduledAt
		out.CompletionScheduledAt = &t
	}
	return out
}
