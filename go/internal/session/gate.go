package session

import (
	"fmt"
	"time"

	"github.com/openmat/scorecast/go/internal/models"
)

// Violation is one unmet precondition blocking a manual start.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ViolationScheduledStartMissing = "SCHEDULED_START_MISSING"
	ViolationFieldMissing          = "FIELD_MISSING"
	ViolationFieldConflict         = "FIELD_CONFLICT"
	ViolationAssessorsIncomplete   = "ASSESSORS_INCOMPLETE"
	ViolationAthletesUnconfirmed   = "ATHLETES_UNCONFIRMED"
)

// FieldConflictChecker is the external collaborator that knows whether a
// field/time window clashes with another session.
type FieldConflictChecker interface {
	HasConflict(fieldID string, start time.Time) bool
}

// NoConflictChecker never reports a conflict. Used when scheduling conflict
// detection is handled elsewhere or disabled.
type NoConflictChecker struct{}

func (NoConflictChecker) HasConflict(string, time.Time) bool { return false }

// EvaluateReadiness checks every start precondition independently and
// reports all outstanding violations at once, so an operator sees the full
// list of blockers rather than just the first. An empty result permits the
// start.
func EvaluateReadiness(s models.Session, conflicts FieldConflictChecker) []Violation {
	var violations []Violation

	if s.ScheduledStartAt == nil {
		violations = append(violations, Violation{
			Code:    ViolationScheduledStartMissing,
			Message: "scheduled start time is not set",
		})
	}

	if s.FieldID == "" {
		violations = append(violations, Violation{
			Code:    ViolationFieldMissing,
			Message: "no competition field assigned",
		})
	} else if s.ScheduledStartAt != nil && conflicts != nil && conflicts.HasConflict(s.FieldID, *s.ScheduledStartAt) {
		violations = append(violations, Violation{
			Code:    ViolationFieldConflict,
			Message: fmt.Sprintf("field %s is already booked for this time window", s.FieldID),
		})
	}

	assigned := 0
	for i, assessor := range s.Assessors {
		if i >= s.RequiredAssessorSlots {
			break
		}
		if assessor.ID != "" {
			assigned++
		}
	}
	if assigned < s.RequiredAssessorSlots {
		violations = append(violations, Violation{
			Code: ViolationAssessorsIncomplete,
			Message: fmt.Sprintf("%d of %d assessor slots assigned",
				assigned, s.RequiredAssessorSlots),
		})
	}

	unconfirmed := 0
	for _, present := range s.AthletesPresent {
		if !present {
			unconfirmed++
		}
	}
	if unconfirmed > 0 {
		violations = append(violations, Violation{
			Code:    ViolationAthletesUnconfirmed,
			Message: fmt.Sprintf("%d athlete(s) not yet confirmed present", unconfirmed),
		})
	}

	return violations
}
