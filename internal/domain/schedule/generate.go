package schedule

import (
	"sort"
	"time"
)

const defaultNotifyOffsetMins = 30

// Occurrence is one concrete predicted dose produced by expanding a spec
// over a window. Timed occurrences carry a UTC instant; unspecified slots
// produce date-only occurrences that can happen any time that day.
type Occurrence struct {
	SlotID   int
	DateOnly bool
	Date     string    // YYYY-MM-DD, date-only occurrences
	At       time.Time // UTC, timed occurrences
	NotifyAt time.Time // zero when reminders are paused or not applicable
}

// Instant is the moment used for ordering and past/future classification.
// Date-only occurrences sort to the very end of their calendar day, so a
// "some time today" dose never precedes that day's timed doses.
func (o Occurrence) Instant(loc *time.Location) time.Time {
	if !o.DateOnly {
		return o.At
	}
	day, err := civilFromString(o.Date)
	if err != nil {
		return time.Time{}
	}
	return day.in(loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// GenOptions tune a single generation run.
type GenOptions struct {
	// DosesTaken is how many doses already count against an until-count
	// stop condition.
	DosesTaken int

	// NotifyUserID selects which user's notification offsets apply.
	// Empty falls back to each slot's default offset.
	NotifyUserID string

	// HasLater marks that a newer schedule version takes over immediately
	// after the window, so occurrences on the final day belong to it.
	HasLater bool
}

// Generate expands the spec into ordered occurrences between two calendar
// dates, inclusive, in the patient's timezone. A purely as-needed spec has
// no predicted occurrences and yields an empty result.
func (s *Spec) Generate(start, end string, habits Habits, opts GenOptions) ([]Occurrence, error) {
	habits = habits.WithDefaults()
	loc := habits.Location()

	startDay, err := civilFromString(start)
	if err != nil {
		return nil, ErrInvalidDateRange
	}
	endDay, err := civilFromString(end)
	if err != nil {
		return nil, ErrInvalidDateRange
	}
	if endDay.before(startDay) {
		return nil, ErrInvalidDateRange
	}
	if !s.Regularly {
		return []Occurrence{}, nil
	}

	occurrences := s.expand(startDay, endDay, habits, loc, opts)
	sortOccurrences(occurrences, loc)
	return s.applyStop(occurrences, startDay, habits, loc, opts), nil
}

// expand walks every cycle anchor's cadence across the window and emits one
// occurrence per retained date per time slot.
func (s *Spec) expand(startDay, endDay civilDate, habits Habits, loc *time.Location, opts GenOptions) []Occurrence {
	freq := s.Frequency
	seen := map[civilDate]bool{}
	var dates []civilDate

	for _, anchorRaw := range freq.CycleStarts {
		anchor, err := civilFromString(anchorRaw)
		if err != nil {
			continue
		}

		// step along the anchor's own cadence to the first date inside
		// the window, so month and year cadences keep the anchor's
		// day-of-month rather than inheriting the window start's
		diff := startDay.unitsSince(anchor, freq.Unit)
		date := anchor.addUnits(diff-mod(diff, freq.N), freq.Unit)
		for date.before(startDay) {
			date = date.addUnits(freq.N, freq.Unit)
		}

		for ; !date.after(endDay); date = date.addUnits(freq.N, freq.Unit) {
			if freq.Exclude != nil {
				residue := mod(date.unitsSince(anchor, freq.Unit), freq.Exclude.CycleLength)
				if containsInt(freq.Exclude.Offsets, residue) {
					continue
				}
			}
			if !seen[date] {
				seen[date] = true
				dates = append(dates, date)
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].before(dates[j]) })

	startInstant := startDay.in(loc)
	endInstant := endDay.in(loc)
	sleepsLate := habits.SleepsLate()

	var out []Occurrence
	for _, date := range dates {
		for _, slot := range s.Times {
			switch slot.Type {
			case SlotUnspecified:
				// the final day belongs to the next version when
				// one takes over right after the window
				if opts.HasLater && date == endDay {
					continue
				}
				out = append(out, Occurrence{SlotID: slot.ID, DateOnly: true, Date: date.String()})
			case SlotExact:
				at := exactInstant(date, slot.Time, loc)
				if dropTimed(at, startInstant, endInstant, opts.HasLater) {
					continue
				}
				out = append(out, timedOccurrence(slot, at, opts.NotifyUserID))
			case SlotEvent:
				at, err := eventInstant(date, slot, habits, loc, sleepsLate)
				if err != nil {
					continue
				}
				if dropTimed(at, startInstant, endInstant, opts.HasLater) {
					continue
				}
				out = append(out, timedOccurrence(slot, at, opts.NotifyUserID))
			}
		}
	}
	return out
}

// exactInstant resolves an exact slot on a calendar date. Exact times are
// stored as UTC clock times, so the date's local midnight is first carried
// into UTC and the stored time is applied to that UTC day. The occurrence
// then shifts with the patient's timezone while staying fixed in UTC.
func exactInstant(date civilDate, clock string, loc *time.Location) time.Time {
	hour, min, err := parseClock(clock)
	if err != nil {
		return time.Time{}
	}
	u := date.in(loc).In(time.UTC)
	return time.Date(u.Year(), u.Month(), u.Day(), hour, min, 0, 0, time.UTC)
}

// eventInstant resolves an event slot against the patient's habits. Before
// and after the same meal resolve to the same dose time; the distinction
// only moves the reminder. Sleep is the exception: after-sleep means on
// waking, and before-sleep lands on the next calendar day for patients who
// go to bed after midnight.
func eventInstant(date civilDate, slot TimeSlot, habits Habits, loc *time.Location, sleepsLate bool) (time.Time, error) {
	event := slot.Event
	atWake := event == EventSleep && slot.When == After
	var hour, min int
	var err error
	if atWake {
		hour, min, err = parseClock(habits.WithDefaults().Wake)
	} else {
		hour, min, err = habits.eventTime(event)
	}
	if err != nil {
		return time.Time{}, err
	}
	at := time.Date(date.Year, date.Month, date.Day, hour, min, 0, 0, loc)
	if sleepsLate && event == EventSleep && slot.When == Before {
		at = at.AddDate(0, 0, 1)
	}
	return at.UTC(), nil
}

func dropTimed(at, startInstant, endInstant time.Time, hasLater bool) bool {
	if at.Before(startInstant) {
		return true
	}
	return hasLater && at.After(endInstant)
}

func timedOccurrence(slot TimeSlot, at time.Time, notifyUser string) Occurrence {
	occ := Occurrence{SlotID: slot.ID, At: at}
	if notifyAt, ok := notifyInstant(slot, at, notifyUser); ok {
		occ.NotifyAt = notifyAt
	}
	return occ
}

// notifyInstant applies the per-user reminder offset, falling back to the
// slot default and then to 30 minutes.
func notifyInstant(slot TimeSlot, at time.Time, user string) (time.Time, bool) {
	offset := defaultNotifyOffsetMins
	if n, ok := slot.Notifications[user]; ok && user != "" {
		if n.Paused {
			return time.Time{}, false
		}
		offset = n.OffsetMins
	} else if n, ok := slot.Notifications["default"]; ok {
		if n.Paused {
			return time.Time{}, false
		}
		offset = n.OffsetMins
	}
	return at.Add(-time.Duration(offset) * time.Minute), true
}

// applyStop enforces the until clause on an already-sorted occurrence list.
func (s *Spec) applyStop(occurrences []Occurrence, windowStart civilDate, habits Habits, loc *time.Location, opts GenOptions) []Occurrence {
	switch s.Until.Type {
	case UntilDate:
		stop, err := civilFromString(s.Until.Stop)
		if err != nil {
			return occurrences
		}
		// end of the stop date's calendar day
		cutoff := stop.in(loc).AddDate(0, 0, 1)
		kept := occurrences[:0]
		for _, occ := range occurrences {
			if occ.Instant(loc).Before(cutoff) {
				kept = append(kept, occ)
			}
		}
		return kept
	case UntilCount:
		limit := s.Until.Count - opts.DosesTaken - s.elapsedBefore(windowStart, habits, loc)
		if limit < 0 {
			limit = 0
		}
		if limit < len(occurrences) {
			return occurrences[:limit]
		}
		return occurrences
	default:
		return occurrences
	}
}

// elapsedBefore counts occurrences between the spec's own start (its
// earliest cycle anchor) and the day before the window, so a count-limited
// schedule stops after n doses total, not n doses per request. This is a
// second bounded expansion pass rather than a recursive generate call.
func (s *Spec) elapsedBefore(windowStart civilDate, habits Habits, loc *time.Location) int {
	specStart, ok := s.earliestAnchor()
	if !ok || !specStart.before(windowStart) {
		return 0
	}
	prior := s.expand(specStart, windowStart.addUnits(-1, UnitDay), habits, loc, GenOptions{})
	return len(prior)
}

func (s *Spec) earliestAnchor() (civilDate, bool) {
	var earliest civilDate
	found := false
	for _, raw := range s.Frequency.CycleStarts {
		day, err := civilFromString(raw)
		if err != nil {
			continue
		}
		if !found || day.before(earliest) {
			earliest = day
			found = true
		}
	}
	return earliest, found
}

func sortOccurrences(occurrences []Occurrence, loc *time.Location) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Instant(loc).Before(occurrences[j].Instant(loc))
	})
}

// SortOccurrences orders a merged occurrence list the same way Generate
// orders its own output.
func SortOccurrences(occurrences []Occurrence, habits Habits) {
	sortOccurrences(occurrences, habits.Location())
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
