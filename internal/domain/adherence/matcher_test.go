package adherence

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/schedule"
)

func unspecifiedSpec(ids ...int) *schedule.Spec {
	times := make([]schedule.TimeSlot, len(ids))
	for i, id := range ids {
		times[i] = schedule.TimeSlot{ID: id, Type: schedule.SlotUnspecified}
	}
	return &schedule.Spec{
		Regularly: true,
		Until:     schedule.Until{Type: schedule.UntilForever},
		Frequency: schedule.Frequency{N: 1, Unit: schedule.UnitDay, CycleStarts: []string{"2024-01-01"}},
		Times:     times,
	}
}

func at(day, hour int) time.Time {
	return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
}

func TestMatch_EmptyLog(t *testing.T) {
	set := Match(unspecifiedSpec(1), nil, schedule.Habits{})
	if len(set.Results) != 0 {
		t.Errorf("expected no results, got %d", len(set.Results))
	}
	if !set.Start.IsZero() {
		t.Errorf("expected zero anchor, got %s", set.Start)
	}
}

func TestMatch_GreedyUnlabeledDoses(t *testing.T) {
	first := DoseEvent{ID: uuid.New(), Time: at(1, 10), Taken: true}
	second := DoseEvent{ID: uuid.New(), Time: at(1, 20), Taken: true}

	set := Match(unspecifiedSpec(1), []DoseEvent{second, first}, schedule.Habits{})
	if len(set.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(set.Results))
	}
	if set.Results[0].DoseID != first.ID || set.Results[0].SlotID != 1 || set.Results[0].DayIndex != 0 {
		t.Errorf("earlier dose should claim the slot: %+v", set.Results[0])
	}
	if set.Results[1].DoseID != second.ID || set.Results[1].SlotID != 0 {
		t.Errorf("later dose should be unmatched: %+v", set.Results[1])
	}
}

func TestMatch_LabeledDoseClaimsSlotFirst(t *testing.T) {
	labeled := DoseEvent{ID: uuid.New(), Time: at(1, 20), Taken: true, ScheduledSlotID: 1}
	unlabeled := DoseEvent{ID: uuid.New(), Time: at(1, 10), Taken: true}

	set := Match(unspecifiedSpec(1, 2), []DoseEvent{labeled, unlabeled}, schedule.Habits{})
	byDose := map[uuid.UUID]MatchResult{}
	for _, r := range set.Results {
		byDose[r.DoseID] = r
	}
	if byDose[labeled.ID].SlotID != 1 {
		t.Errorf("labeled dose should keep its slot: %+v", byDose[labeled.ID])
	}
	if byDose[unlabeled.ID].SlotID != 2 {
		t.Errorf("unlabeled dose should fall to the next free slot: %+v", byDose[unlabeled.ID])
	}
}

func TestMatch_DayIndicesAreWakeAnchored(t *testing.T) {
	habits := schedule.Habits{Wake: "07:00"}
	doses := []DoseEvent{
		{ID: uuid.New(), Time: at(1, 10), Taken: true},
		{ID: uuid.New(), Time: at(2, 3), Taken: true},  // before waking: still day 0
		{ID: uuid.New(), Time: at(2, 12), Taken: true}, // day 1
	}

	set := Match(unspecifiedSpec(1, 2), doses, habits)
	days := []int{set.Results[0].DayIndex, set.Results[1].DayIndex, set.Results[2].DayIndex}
	if !reflect.DeepEqual(days, []int{0, 0, 1}) {
		t.Errorf("expected day indices [0 0 1], got %v", days)
	}
}

func TestMatch_FirstDoseBeforeWakeAnchorsPreviousDay(t *testing.T) {
	habits := schedule.Habits{Wake: "07:00"}
	dose := DoseEvent{ID: uuid.New(), Time: at(2, 3), Taken: true}

	set := Match(unspecifiedSpec(1), []DoseEvent{dose}, habits)
	if want := at(1, 7); !set.Start.Equal(want) {
		t.Errorf("expected anchor %s, got %s", want, set.Start)
	}
	if set.Results[0].DayIndex != 0 {
		t.Errorf("first dose must land on day 0, got %d", set.Results[0].DayIndex)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	doses := []DoseEvent{
		{ID: uuid.New(), Time: at(1, 9), Taken: true},
		{ID: uuid.New(), Time: at(1, 13), Taken: false},
		{ID: uuid.New(), Time: at(2, 9), Taken: true, ScheduledSlotID: 2},
	}
	spec := unspecifiedSpec(1, 2)
	first := Match(spec, doses, schedule.Habits{})
	second := Match(spec, doses, schedule.Habits{})
	if !reflect.DeepEqual(first, second) {
		t.Error("matching must be deterministic")
	}
	if len(first.Results) != len(doses) {
		t.Errorf("every dose must appear exactly once, got %d results", len(first.Results))
	}
}
