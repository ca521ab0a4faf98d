package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Summary renders the spec as short human-readable phrases for list views,
// e.g. "Daily for 5 doses" or "Mon/Tue/Wed/Thu/Fri" for a weekday-only
// daily schedule. As-needed and regular components each contribute a phrase.
func (s *Spec) Summary() []string {
	var summaries []string
	if s.Regularly {
		summaries = append(summaries, s.regularSummary())
	}
	if s.AsNeeded {
		summaries = append(summaries, "As needed")
	}
	return summaries
}

func (s *Spec) regularSummary() string {
	freq := s.Frequency
	summary := fmt.Sprintf("Every %d %ss", freq.N, freq.Unit)
	switch {
	case freq.N == 1 && freq.Unit == UnitDay:
		summary = "Daily"
	case freq.N == 1:
		summary = strings.ToUpper(string(freq.Unit[0])) + string(freq.Unit[1:]) + "ly"
	case freq.N == 7 && freq.Unit == UnitDay:
		summary = "Weekly"
	case freq.N == 14 && freq.Unit == UnitDay:
		summary = "Fortnightly"
	case freq.N == 3 && freq.Unit == UnitMonth:
		summary = "Quarterly"
	case freq.N == 12 && freq.Unit == UnitMonth:
		summary = "Yearly"
	}

	hasExcludes := freq.Exclude != nil && len(freq.Exclude.Offsets) > 0

	if freq.N == 1 && freq.Unit == UnitDay && hasExcludes &&
		freq.Exclude.CycleLength == 7 && len(freq.CycleStarts) == 1 {
		// weekday-style cycles read better as day-of-week lists
		if days, ok := s.weekdaySummary(); ok {
			summary = days
		}
	} else if hasExcludes {
		summary += excludeSummary(freq)
	}

	switch s.Until.Type {
	case UntilCount:
		summary += fmt.Sprintf(" for %d doses", s.Until.Count)
	case UntilDate:
		if stop, err := parseDate(s.Until.Stop); err == nil {
			summary += fmt.Sprintf(" until %s", stop.Format("1/2/06"))
		}
	}

	if n := len(s.Times); n == 1 {
		summary += " - 1 event per day"
	} else if n > 1 {
		summary += fmt.Sprintf(" - %d events per day", n)
	}
	return summary
}

func (s *Spec) weekdaySummary() (string, bool) {
	anchor, err := civilFromString(s.Frequency.CycleStarts[0])
	if err != nil {
		return "", false
	}
	var days []string
	for i := 0; i < s.Frequency.Exclude.CycleLength; i++ {
		if containsInt(s.Frequency.Exclude.Offsets, i) {
			continue
		}
		days = append(days, anchor.addUnits(i, UnitDay).in(time.UTC).Format("Mon"))
	}
	return strings.Join(days, "/"), true
}

func excludeSummary(freq Frequency) string {
	ordinals := make([]string, len(freq.Exclude.Offsets))
	for i, off := range freq.Exclude.Offsets {
		ordinals[i] = ordinalize(off + 1)
	}
	var list string
	if len(ordinals) == 1 {
		list = ordinals[0]
	} else {
		list = strings.Join(ordinals[:len(ordinals)-1], ", ") + " and " + ordinals[len(ordinals)-1]
	}

	cycle := fmt.Sprintf("%d-%s cycle", freq.Exclude.CycleLength, freq.Unit)
	switch {
	case freq.Unit == UnitDay && freq.Exclude.CycleLength == 7:
		cycle = "week"
	case freq.Unit == UnitDay && freq.Exclude.CycleLength == 14:
		cycle = "fortnight"
	case freq.Unit == UnitMonth && freq.Exclude.CycleLength == 12:
		cycle = "year"
	case freq.Unit == UnitMonth && freq.Exclude.CycleLength == 3:
		cycle = "quarter"
	}
	return fmt.Sprintf(" except every %s %ss in a %s", list, freq.Unit, cycle)
}

func ordinalize(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
