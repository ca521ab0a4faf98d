package schedule

import (
	"encoding/json"
	"strings"
)

// The first mobile releases sent a flatter schedule shape:
//
//	{"type": "as_needed", "not_to_exceed": 3}
//	{"type": "regularly", "n": 1, "times_of_day": ["before_sleep", "20:00"],
//	 "stop_date": "2024-06-01"}
//
// with exactly one of number_of_times, times_of_day or interval. Those
// documents still live in stored version histories, so they are translated
// into the current shape on read rather than rejected.

func parseLegacy(raw map[string]json.RawMessage) (*Spec, error) {
	var typ string
	if err := json.Unmarshal(raw["type"], &typ); err != nil {
		return nil, invalid("type", "must be a string")
	}

	s := &Spec{}
	switch typ {
	case "as_needed":
		s.AsNeeded = true
		if msg, ok := raw["not_to_exceed"]; ok {
			n, err := positiveInt(msg)
			if err != nil {
				return nil, invalid("not_to_exceed", "must be a positive integer")
			}
			s.NotToExceed = n
		}
		return s, nil
	case "regularly":
	default:
		return nil, invalidf("type", "unknown schedule type %q", typ)
	}

	s.Regularly = true

	n, err := positiveInt(raw["n"])
	if err != nil {
		return nil, invalid("n", "must be a positive integer")
	}
	starts, err := parseCycleStarts(nil)
	if err != nil {
		return nil, err
	}
	s.Frequency = Frequency{N: n, Unit: UnitDay, CycleStarts: starts}

	s.Until = Until{Type: UntilForever}
	if msg, ok := raw["stop_date"]; ok {
		var stop string
		if err := json.Unmarshal(msg, &stop); err != nil {
			return nil, invalid("stop_date", "must be a YYYY-MM-DD date")
		}
		if _, err := parseDate(stop); err != nil {
			return nil, invalidf("stop_date", "bad date %q", stop)
		}
		s.Until = Until{Type: UntilDate, Stop: stop}
	}

	_, hasCount := raw["number_of_times"]
	_, hasTimes := raw["times_of_day"]
	_, hasInterval := raw["interval"]
	matched := 0
	for _, ok := range []bool{hasCount, hasTimes, hasInterval} {
		if ok {
			matched++
		}
	}
	if matched != 1 {
		return nil, invalid("number_of_times", "exactly one of number_of_times, times_of_day or interval is required")
	}

	switch {
	case hasCount:
		count, err := positiveInt(raw["number_of_times"])
		if err != nil {
			return nil, invalid("number_of_times", "must be a positive integer")
		}
		s.Times = make([]TimeSlot, count)
		for i := range s.Times {
			s.Times[i] = TimeSlot{Type: SlotUnspecified}
		}
	case hasTimes:
		slots, err := parseLegacyTimes(raw["times_of_day"])
		if err != nil {
			return nil, err
		}
		s.Times = slots
	case hasInterval:
		// interval is minutes between doses; translate to that many
		// unspecified slots per day
		interval, err := positiveInt(raw["interval"])
		if err != nil {
			return nil, invalid("interval", "must be a positive integer")
		}
		count := (24 * 60) / interval
		if count < 1 {
			count = 1
		}
		s.Times = make([]TimeSlot, count)
		for i := range s.Times {
			s.Times[i] = TimeSlot{Type: SlotUnspecified}
		}
	}
	return s, nil
}

func parseLegacyTimes(msg json.RawMessage) ([]TimeSlot, error) {
	var times []string
	if err := json.Unmarshal(msg, &times); err != nil {
		return nil, invalid("times_of_day", "must be an array")
	}
	if len(times) == 0 {
		return nil, invalid("times_of_day", "must be non-empty")
	}
	slots := make([]TimeSlot, 0, len(times))
	for _, t := range times {
		if slot, ok := legacyEventSlot(t); ok {
			slots = append(slots, slot)
			continue
		}
		if _, _, err := parseClock(t); err != nil {
			return nil, invalidf("times_of_day", "bad time %q", t)
		}
		slots = append(slots, TimeSlot{Type: SlotExact, Time: t})
	}
	return slots, nil
}

// legacyEventSlot maps slugs like "before_sleep" and "after_lunch" onto
// event slots.
func legacyEventSlot(slug string) (TimeSlot, bool) {
	var when WhenType
	var rest string
	switch {
	case strings.HasPrefix(slug, "before_"):
		when, rest = Before, strings.TrimPrefix(slug, "before_")
	case strings.HasPrefix(slug, "after_"):
		when, rest = After, strings.TrimPrefix(slug, "after_")
	default:
		return TimeSlot{}, false
	}
	switch EventName(rest) {
	case EventBreakfast, EventLunch, EventDinner, EventSleep:
		return TimeSlot{Type: SlotEvent, Event: EventName(rest), When: when}, true
	}
	return TimeSlot{}, false
}
