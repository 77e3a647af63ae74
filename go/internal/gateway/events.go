package gateway

import (
	"encoding/json"
	"time"

	"github.com/openmat/scorecast/go/internal/models"
	"github.com/openmat/scorecast/go/internal/session"
)

// ProjectionEvent is the envelope pushed to projection display clients.
type ProjectionEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of projection event.
type EventType string

const (
	EventTypeStateUpdated EventType = "StateUpdated"
	EventTypeTimerTick    EventType = "TimerTick"
)

// TimerTickPayload carries one countdown tick for the display clock.
type TimerTickPayload struct {
	RemainingSec int    `json:"remaining_sec"`
	Clock        string `json:"clock"`
}

// SlotView is one judging position on the projection display.
type SlotView struct {
	Slot     int     `json:"slot"`
	Assessor string  `json:"assessor,omitempty"`
	Score    float64 `json:"score"`
	Scored   bool    `json:"scored"`
}

// SessionView is the display-facing snapshot of a session: per-slot scores,
// the running total and the countdown.
type SessionView struct {
	SessionID      string     `json:"session_id"`
	MatchID        string     `json:"match_id"`
	Status         string     `json:"status"`
	Slots          []SlotView `json:"slots"`
	Total          float64    `json:"total"`
	RemainingSec   int        `json:"remaining_sec"`
	Clock          string     `json:"clock"`
	ConnectedCount int        `json:"connected_count"`
	RequiredCount  int        `json:"required_count"`
}

// BuildSessionView projects a session snapshot for display clients.
func BuildSessionView(s models.Session, remainingSec int) SessionView {
	view := SessionView{
		SessionID:      s.ID,
		MatchID:        s.MatchID,
		Status:         string(s.Status),
		RemainingSec:   remainingSec,
		Clock:          session.FormatClock(remainingSec),
		ConnectedCount: s.ConnectedAssessorCount,
		RequiredCount:  s.RequiredAssessorSlots,
	}

	sum := 0.0
	scored := 0
	for i, score := range s.Scores {
		slot := SlotView{Slot: i + 1, Score: score, Scored: score > 0}
		if i < len(s.Assessors) {
			slot.Assessor = s.Assessors[i].Name
		}
		view.Slots = append(view.Slots, slot)
		if score > 0 {
			sum += score
			scored++
		}
	}
	if scored > 0 {
		view.Total = sum / float64(scored)
	}
	return view
}
