package session

import (
	"github.com/openmat/scorecast/go/internal/models"
)

// SlotAssigner maps an assessor identity to one of the fixed display
// positions, stable for the session's lifetime. Assessors on the roster get
// their roster position; anyone else claims the first still-empty slot on
// first sight and keeps it (first-seen-wins). When every slot is taken,
// submissions from further assessors are silently ignored.
type SlotAssigner struct {
	slots  int
	claims map[string]int
	taken  []bool
}

// NewSlotAssigner seeds the assigner from the session's assessor roster.
func NewSlotAssigner(assessors []models.Assessor, slots int) *SlotAssigner {
	a := &SlotAssigner{
		slots:  slots,
		claims: make(map[string]int, slots),
		taken:  make([]bool, slots),
	}
	for i, assessor := range assessors {
		if i >= slots {
			break
		}
		if assessor.ID == "" {
			continue
		}
		a.claims[assessor.ID] = i
		a.taken[i] = true
	}
	return a
}

// Resolve returns the slot for assessorID, claiming one if the assessor is
// unknown. scores is consulted so unknown assessors only claim slots still
// holding 0. ok is false when the submission must be dropped.
func (a *SlotAssigner) Resolve(assessorID string, scores []float64) (slot int, ok bool) {
	if assessorID != "" {
		if slot, ok := a.claims[assessorID]; ok {
			return slot, true
		}
	}

	for i := 0; i < a.slots && i < len(scores); i++ {
		if a.taken[i] || scores[i] != 0 {
			continue
		}
		if assessorID != "" {
			a.claims[assessorID] = i
			a.taken[i] = true
		}
		return i, true
	}
	return 0, false
}
