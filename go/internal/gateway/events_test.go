package gateway

import (
	"math"
	"testing"

	"github.com/openmat/scorecast/go/internal/models"
)

func displaySession() models.Session {
	return models.Session{
		ID:                    "perf-1",
		MatchID:               "match-1",
		Status:                models.SessionStatusInProgress,
		RequiredAssessorSlots: 5,
		Assessors: []models.Assessor{
			{ID: "a1", Name: "North"}, {ID: "a2", Name: "East"},
		},
		ConnectedAssessorCount: 4,
		Scores:                 []float64{9.0, 7.5, 8.7, 8.0, 9.2},
	}
}

func TestBuildSessionView(t *testing.T) {
	view := BuildSessionView(displaySession(), 75)

	if view.SessionID != "perf-1" || view.Status != "IN_PROGRESS" {
		t.Errorf("view identity = (%s, %s), want (perf-1, IN_PROGRESS)", view.SessionID, view.Status)
	}
	if len(view.Slots) != 5 {
		t.Fatalf("slots = %d, want 5", len(view.Slots))
	}
	if view.Slots[0].Slot != 1 || view.Slots[0].Assessor != "North" {
		t.Errorf("slot[0] = %+v, want position 1 named North", view.Slots[0])
	}
	if view.Slots[2].Assessor != "" {
		t.Errorf("slot[2] has assessor %q, want unnamed", view.Slots[2].Assessor)
	}
	if math.Abs(view.Total-8.48) > 1e-9 {
		t.Errorf("Total = %v, want 8.48", view.Total)
	}
	if view.Clock != "01:15" || view.RemainingSec != 75 {
		t.Errorf("clock = (%s, %d), want (01:15, 75)", view.Clock, view.RemainingSec)
	}
	if view.ConnectedCount != 4 || view.RequiredCount != 5 {
		t.Errorf("counts = (%d, %d), want (4, 5)", view.ConnectedCount, view.RequiredCount)
	}
}

func TestBuildSessionViewPartialPanel(t *testing.T) {
	s := displaySession()
	s.Scores = []float64{8.0, 0, 9.0, 0, 0}

	view := BuildSessionView(s, 0)
	if math.Abs(view.Total-8.5) > 1e-9 {
		t.Errorf("Total = %v, want 8.5 (unscored slots excluded)", view.Total)
	}
	if view.Slots[1].Scored {
		t.Errorf("slot[1] reported scored at 0")
	}
	if !view.Slots[2].Scored {
		t.Errorf("slot[2] not reported scored")
	}
}
