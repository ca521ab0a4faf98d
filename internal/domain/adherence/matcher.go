package adherence

import (
	"sort"
	"time"

	"github.com/medtrack/medtrack/internal/domain/schedule"
)

// MatchSet is one medication's matched dose log plus the anchor instant day
// indices count from.
type MatchSet struct {
	Results []MatchResult
	Start   time.Time
}

type slotKey struct {
	day  int
	slot int
}

// Match reconciles a dose log against a medication's schedule. Doses are
// processed in ascending time order; each one either carries an explicit
// slot id from the client, or greedily claims the first unspecified slot
// not yet consumed on its patient-day. Doses left over get slot id 0 and
// read as extra or as-needed downstream. The pass is a single deterministic
// left-to-right sweep over a consumed (day, slot) set, so identical input
// always yields identical output.
func Match(spec *schedule.Spec, doses []DoseEvent, habits schedule.Habits) MatchSet {
	habits = habits.WithDefaults()

	sorted := append([]DoseEvent(nil), doses...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	set := MatchSet{Results: make([]MatchResult, 0, len(sorted))}
	if len(sorted) == 0 {
		return set
	}
	set.Start = habits.DayAnchor(sorted[0].Time)

	var unspecified []int
	if spec != nil {
		for _, slot := range spec.Times {
			if slot.Type == schedule.SlotUnspecified {
				unspecified = append(unspecified, slot.ID)
			}
		}
	}

	consumed := map[slotKey]bool{}
	dayIndex := func(dose DoseEvent) int {
		return habits.DaysBetween(set.Start, habits.DayAnchor(dose.Time))
	}

	// labeled doses claim their slots first so an unlabeled dose can
	// never steal a slot the client explicitly recorded
	for _, dose := range sorted {
		if dose.ScheduledSlotID != 0 {
			day := dayIndex(dose)
			consumed[slotKey{day, dose.ScheduledSlotID}] = true
			set.Results = append(set.Results, MatchResult{DoseID: dose.ID, DayIndex: day, SlotID: dose.ScheduledSlotID})
		}
	}
	for _, dose := range sorted {
		if dose.ScheduledSlotID != 0 {
			continue
		}
		day := dayIndex(dose)
		result := MatchResult{DoseID: dose.ID, DayIndex: day}
		for _, slotID := range unspecified {
			if !consumed[slotKey{day, slotID}] {
				consumed[slotKey{day, slotID}] = true
				result.SlotID = slotID
				break
			}
		}
		set.Results = append(set.Results, result)
	}
	return set
}

// lookup finds the result matched to a given (day, slot) pair.
func (m MatchSet) lookup(day, slotID int) (MatchResult, bool) {
	for _, r := range m.Results {
		if r.SlotID == slotID && r.DayIndex == day && r.SlotID != 0 {
			return r, true
		}
	}
	return MatchResult{}, false
}
