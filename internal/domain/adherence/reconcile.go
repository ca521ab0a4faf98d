package adherence

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/medtrack/medtrack/internal/domain/schedule"
)

// Reconcile aligns every medication's predicted occurrences with the
// patient's dose log over a window and merges the results into a single
// timeline with adherence statistics. Medications are independent, so the
// per-medication generate-and-match work fans out concurrently; the merge
// re-sorts deterministically afterwards.
func Reconcile(meds []MedicationSchedule, doses []DoseEvent, habits schedule.Habits, start, end, notifyUserID string, now time.Time) (*Report, error) {
	habits = habits.WithDefaults()
	if _, _, err := windowBounds(start, end, habits.Location()); err != nil {
		return nil, err
	}

	perMed := make([][]Entry, len(meds))
	errs := make([]error, len(meds))
	var wg sync.WaitGroup
	for i := range meds {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			perMed[i], errs[i] = reconcileMedication(meds[i], doses, habits, start, end, notifyUserID, now)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var timeline []Entry
	for _, entries := range perMed {
		timeline = append(timeline, entries...)
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].instant.Before(timeline[j].instant)
	})

	return &Report{Schedule: timeline, Statistics: computeStatistics(timeline)}, nil
}

// ReconcileDaily is Reconcile with the timeline bucketed per calendar day
// and statistics recomputed per bucket.
func ReconcileDaily(meds []MedicationSchedule, doses []DoseEvent, habits schedule.Habits, start, end, notifyUserID string, now time.Time) ([]DayReport, error) {
	report, err := Reconcile(meds, doses, habits, start, end, notifyUserID, now)
	if err != nil {
		return nil, err
	}
	loc := habits.WithDefaults().Location()

	var days []DayReport
	index := map[string]int{}
	for _, entry := range report.Schedule {
		day := entry.instant.In(loc).Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(days)
			index[day] = i
			days = append(days, DayReport{Day: day})
		}
		days[i].Schedule = append(days[i].Schedule, entry)
	}
	for i := range days {
		days[i].Statistics = computeStatistics(days[i].Schedule)
	}
	return days, nil
}

func reconcileMedication(med MedicationSchedule, doses []DoseEvent, habits schedule.Habits, start, end, notifyUserID string, now time.Time) ([]Entry, error) {
	loc := habits.Location()

	occurrences, err := med.History.Generate(start, end, habits, schedule.GenOptions{NotifyUserID: notifyUserID})
	if err != nil {
		return nil, err
	}

	windowStart, windowEnd, err := windowBounds(start, end, loc)
	if err != nil {
		return nil, err
	}
	var medDoses []DoseEvent
	for _, dose := range doses {
		if dose.MedicationID != med.ID {
			continue
		}
		if dose.Time.Before(windowStart) || dose.Time.After(windowEnd) {
			continue
		}
		medDoses = append(medDoses, dose)
	}

	matches := Match(med.History.Current(), medDoses, habits)
	byID := make(map[string]DoseEvent, len(medDoses))
	for _, dose := range medDoses {
		byID[dose.ID.String()] = dose
	}

	entries := make([]Entry, 0, len(occurrences)+len(medDoses))
	for _, occ := range occurrences {
		entries = append(entries, occurrenceEntry(med, occ, matches, byID, habits, loc, now))
	}

	// doses that matched no predicted slot surface as extra entries
	for _, result := range matches.Results {
		if result.SlotID != 0 {
			continue
		}
		dose, ok := byID[result.DoseID.String()]
		if !ok {
			continue
		}
		entries = append(entries, extraEntry(med, dose, now))
	}
	return entries, nil
}

func occurrenceEntry(med MedicationSchedule, occ schedule.Occurrence, matches MatchSet, byID map[string]DoseEvent, habits schedule.Habits, loc *time.Location, now time.Time) Entry {
	instant := occ.Instant(loc)
	entry := Entry{
		MedicationID: med.ID,
		Happened:     instant.Before(now),
		instant:      instant,
	}
	if occ.DateOnly {
		entry.Kind = "date"
		entry.Date = occ.Date
	} else {
		entry.Kind = "time"
		entry.Date = occ.At.UTC().Format(time.RFC3339)
		if !occ.NotifyAt.IsZero() {
			at := occ.NotifyAt.UTC()
			entry.NotifyAt = &at
		}
	}
	if occ.SlotID != 0 {
		slotID := occ.SlotID
		entry.Scheduled = &slotID
	}

	if !entry.Happened || occ.SlotID == 0 || matches.Start.IsZero() {
		if entry.Happened && occ.SlotID != 0 {
			took := false
			entry.TookMed = &took
		}
		return entry
	}

	day := occurrenceDayIndex(occ, matches.Start, habits, loc)
	result, found := matches.lookup(day, occ.SlotID)
	if !found {
		took := false
		entry.TookMed = &took
		return entry
	}

	doseID := result.DoseID
	entry.DoseID = &doseID
	dose := byID[result.DoseID.String()]
	took := dose.Taken
	entry.TookMed = &took
	if dose.Taken && !occ.DateOnly {
		delay := int(dose.Time.Truncate(time.Minute).Sub(occ.At).Minutes())
		entry.DelayMins = &delay
	}
	return entry
}

func extraEntry(med MedicationSchedule, dose DoseEvent, now time.Time) Entry {
	doseID := dose.ID
	took := dose.Taken
	entry := Entry{
		Kind:         "time",
		Date:         dose.Time.UTC().Format(time.RFC3339),
		MedicationID: med.ID,
		Happened:     dose.Time.Before(now),
		TookMed:      &took,
		DoseID:       &doseID,
		instant:      dose.Time,
	}
	if spec, err := med.History.SpecFor(dose.Time); err == nil && spec != nil {
		entry.TakeWithFood = spec.TakeWithFood
		entry.TakeWith = spec.TakeWith
		entry.TakeWithout = spec.TakeWithout
	}
	return entry
}

// occurrenceDayIndex buckets an occurrence into the same patient-day scheme
// the matcher uses. Timed occurrences use the wake-anchored day containing
// their instant; date-only occurrences use their calendar date directly, so
// a "some time today" dose and that day's recorded doses always share a day
// index even when the dose was logged before waking.
func occurrenceDayIndex(occ schedule.Occurrence, anchor time.Time, habits schedule.Habits, loc *time.Location) int {
	if occ.DateOnly {
		noon, err := time.ParseInLocation("2006-01-02", occ.Date, loc)
		if err != nil {
			return 0
		}
		return habits.DaysBetween(anchor, noon.Add(12*time.Hour))
	}
	return habits.DaysBetween(anchor, habits.DayAnchor(occ.At))
}

func windowBounds(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	s, err := time.ParseInLocation("2006-01-02", start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, schedule.ErrInvalidDateRange
	}
	e, err := time.ParseInLocation("2006-01-02", end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, schedule.ErrInvalidDateRange
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, schedule.ErrInvalidDateRange
	}
	return s, e.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

// computeStatistics summarizes past predicted entries: the percentage with
// a taken dose, the mean absolute delay and the mean signed delay. Extra
// doses are excluded so spontaneous as-needed use doesn't skew adherence.
func computeStatistics(entries []Entry) Statistics {
	var past, taken int
	var delays []int
	for _, entry := range entries {
		if !entry.Happened || entry.Scheduled == nil {
			continue
		}
		past++
		if entry.TookMed != nil && *entry.TookMed {
			taken++
			if entry.DelayMins != nil {
				delays = append(delays, *entry.DelayMins)
			}
		}
	}
	if taken == 0 || past == 0 {
		return Statistics{}
	}

	pct := 100 * float64(taken) / float64(past)
	stats := Statistics{TookMedication: &pct}
	if len(delays) > 0 {
		var sum, absSum float64
		for _, d := range delays {
			sum += float64(d)
			absSum += math.Abs(float64(d))
		}
		delta := sum / float64(len(delays))
		delay := absSum / float64(len(delays))
		stats.Delta = &delta
		stats.Delay = &delay
	}
	return stats
}
