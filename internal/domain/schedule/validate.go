package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// ParseSpecJSON validates and decodes a raw schedule document. The check is
// strict: wrong types, unknown keys inside nested objects, out-of-range
// exclude offsets and malformed dates all fail with a ValidationError naming
// the first offending field. Top-level unknown keys are ignored. A null or
// empty document normalizes to a plain as-needed schedule. Legacy documents
// (recognized by a top-level "type" string) are translated first.
func ParseSpecJSON(data []byte) (*Spec, error) {
	if len(data) == 0 || string(data) == "null" {
		return &Spec{AsNeeded: true}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalid("schedule", "document is not a JSON object")
	}
	if len(raw) == 0 {
		return &Spec{AsNeeded: true}, nil
	}
	if _, legacy := raw["type"]; legacy {
		if _, modern := raw["regularly"]; !modern {
			return parseLegacy(raw)
		}
	}
	return parseModern(raw)
}

// ParseSpec is ParseSpecJSON over an already-decoded generic document.
func ParseSpec(doc map[string]interface{}) (*Spec, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, invalid("schedule", "document cannot be encoded")
	}
	return ParseSpecJSON(data)
}

func parseModern(raw map[string]json.RawMessage) (*Spec, error) {
	s := &Spec{}
	var err error

	if s.AsNeeded, err = boolField(raw, "as_needed", false); err != nil {
		return nil, err
	}
	if s.Regularly, err = boolField(raw, "regularly", false); err != nil {
		return nil, err
	}
	if !s.AsNeeded && !s.Regularly {
		return nil, invalid("as_needed", "schedule must be as-needed, regular or both")
	}

	if s.AsNeeded {
		if msg, ok := raw["not_to_exceed"]; ok {
			n, err := positiveInt(msg)
			if err != nil {
				return nil, invalid("not_to_exceed", "must be a positive integer")
			}
			s.NotToExceed = n
		}
	}

	if !s.Regularly {
		return s, nil
	}

	if s.Until, err = parseUntil(raw["until"]); err != nil {
		return nil, err
	}
	if s.Frequency, err = parseFrequency(raw["frequency"]); err != nil {
		return nil, err
	}
	if s.Times, err = parseTimes(raw["times"]); err != nil {
		return nil, err
	}
	if s.TakeWithFood, err = parseTakeWithFood(raw); err != nil {
		return nil, err
	}
	if s.TakeWith, err = idListField(raw, "take_with_medications"); err != nil {
		return nil, err
	}
	if s.TakeWithout, err = idListField(raw, "take_without_medications"); err != nil {
		return nil, err
	}
	return s, nil
}

// checkKeys enforces the strict shape of nested objects: any key outside the
// allowed set is rejected rather than silently ignored, so typos surface.
func checkKeys(field string, raw map[string]json.RawMessage, allowed ...string) error {
	for key := range raw {
		ok := false
		for _, a := range allowed {
			if key == a {
				ok = true
				break
			}
		}
		if !ok {
			return invalidf(field, "unknown key %q", key)
		}
	}
	return nil
}

func parseUntil(msg json.RawMessage) (Until, error) {
	if msg == nil {
		return Until{}, invalid("until", "required for regular schedules")
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(msg, &keys); err != nil {
		return Until{}, invalid("until", "must be an object")
	}
	if err := checkKeys("until", keys, "type", "stop"); err != nil {
		return Until{}, err
	}
	var obj struct {
		Type string          `json:"type"`
		Stop json.RawMessage `json:"stop"`
	}
	if err := json.Unmarshal(msg, &obj); err != nil {
		return Until{}, invalid("until", "must be an object")
	}
	switch UntilType(obj.Type) {
	case UntilForever:
		return Until{Type: UntilForever}, nil
	case UntilCount:
		n, err := positiveInt(obj.Stop)
		if err != nil {
			return Until{}, invalid("until.stop", "must be a positive integer")
		}
		return Until{Type: UntilCount, Count: n}, nil
	case UntilDate:
		var date string
		if err := json.Unmarshal(obj.Stop, &date); err != nil {
			return Until{}, invalid("until.stop", "must be a YYYY-MM-DD date")
		}
		if _, err := parseDate(date); err != nil {
			return Until{}, invalidf("until.stop", "bad date %q", date)
		}
		return Until{Type: UntilDate, Stop: date}, nil
	default:
		return Until{}, invalidf("until.type", "unknown type %q", obj.Type)
	}
}

func parseFrequency(msg json.RawMessage) (Frequency, error) {
	if msg == nil {
		return Frequency{}, invalid("frequency", "required for regular schedules")
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(msg, &keys); err != nil {
		return Frequency{}, invalid("frequency", "must be an object")
	}
	if err := checkKeys("frequency", keys, "n", "unit", "exclude", "start"); err != nil {
		return Frequency{}, err
	}
	var obj struct {
		N       json.RawMessage `json:"n"`
		Unit    string          `json:"unit"`
		Exclude json.RawMessage `json:"exclude"`
		Start   json.RawMessage `json:"start"`
	}
	if err := json.Unmarshal(msg, &obj); err != nil {
		return Frequency{}, invalid("frequency", "must be an object")
	}

	f := Frequency{}
	n, err := positiveInt(obj.N)
	if err != nil {
		return Frequency{}, invalid("frequency.n", "must be a positive integer")
	}
	f.N = n

	switch Unit(obj.Unit) {
	case UnitDay, UnitMonth, UnitYear:
		f.Unit = Unit(obj.Unit)
	default:
		return Frequency{}, invalidf("frequency.unit", "unknown unit %q", obj.Unit)
	}

	if obj.Exclude != nil {
		ex, err := parseExclude(obj.Exclude)
		if err != nil {
			return Frequency{}, err
		}
		f.Exclude = ex
	}

	starts, err := parseCycleStarts(obj.Start)
	if err != nil {
		return Frequency{}, err
	}
	f.CycleStarts = starts
	return f, nil
}

func parseExclude(msg json.RawMessage) (*Exclude, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(msg, &keys); err != nil {
		return nil, invalid("frequency.exclude", "must be an object")
	}
	if err := checkKeys("frequency.exclude", keys, "exclude", "repeat"); err != nil {
		return nil, err
	}
	var obj struct {
		Exclude []json.RawMessage `json:"exclude"`
		Repeat  json.RawMessage   `json:"repeat"`
	}
	if err := json.Unmarshal(msg, &obj); err != nil {
		return nil, invalid("frequency.exclude", "must be an object")
	}
	cycle, err := positiveInt(obj.Repeat)
	if err != nil {
		return nil, invalid("frequency.exclude.repeat", "must be a positive integer")
	}
	if len(obj.Exclude) == 0 {
		return nil, invalid("frequency.exclude.exclude", "must be a non-empty array")
	}
	offsets := make([]int, 0, len(obj.Exclude))
	for i, m := range obj.Exclude {
		off, err := nonNegativeInt(m)
		if err != nil || off >= cycle {
			return nil, invalidf(fmt.Sprintf("frequency.exclude.exclude[%d]", i), "must be an integer in [0, %d)", cycle)
		}
		offsets = append(offsets, off)
	}
	if len(offsets) >= cycle {
		return nil, invalid("frequency.exclude.exclude", "cannot exclude every position in the cycle")
	}
	return &Exclude{Offsets: offsets, CycleLength: cycle}, nil
}

// parseCycleStarts accepts a single date, an array of dates, or nothing.
// An absent anchor defaults to today: the cadence starts the day the
// schedule is created.
func parseCycleStarts(msg json.RawMessage) ([]string, error) {
	if msg == nil || string(msg) == "null" {
		return []string{time.Now().UTC().Format(dateLayout)}, nil
	}
	var one string
	if err := json.Unmarshal(msg, &one); err == nil {
		if _, err := parseDate(one); err != nil {
			return nil, invalidf("frequency.start", "bad date %q", one)
		}
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(msg, &many); err != nil {
		return nil, invalid("frequency.start", "must be a date or array of dates")
	}
	if len(many) == 0 {
		return []string{time.Now().UTC().Format(dateLayout)}, nil
	}
	for i, s := range many {
		if _, err := parseDate(s); err != nil {
			return nil, invalidf(fmt.Sprintf("frequency.start[%d]", i), "bad date %q", s)
		}
	}
	return many, nil
}

func parseTimes(msg json.RawMessage) ([]TimeSlot, error) {
	if msg == nil {
		return nil, invalid("times", "required for regular schedules")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(msg, &items); err != nil {
		return nil, invalid("times", "must be an array")
	}
	if len(items) == 0 {
		return nil, invalid("times", "must be non-empty for regular schedules")
	}
	slots := make([]TimeSlot, 0, len(items))
	seen := map[int]bool{}
	for i, item := range items {
		slot, err := parseSlot(item, i)
		if err != nil {
			return nil, err
		}
		if slot.ID != 0 {
			if seen[slot.ID] {
				return nil, invalidf(fmt.Sprintf("times[%d].id", i), "duplicate id %d", slot.ID)
			}
			seen[slot.ID] = true
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func parseSlot(msg json.RawMessage, idx int) (TimeSlot, error) {
	field := func(name string) string { return fmt.Sprintf("times[%d].%s", idx, name) }
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(msg, &keys); err != nil {
		return TimeSlot{}, invalidf(fmt.Sprintf("times[%d]", idx), "must be an object")
	}
	switch SlotType(jsonString(keys["type"])) {
	case SlotExact:
		if err := checkKeys(fmt.Sprintf("times[%d]", idx), keys, "id", "type", "time", "notifications"); err != nil {
			return TimeSlot{}, err
		}
	case SlotEvent:
		if err := checkKeys(fmt.Sprintf("times[%d]", idx), keys, "id", "type", "event", "when", "notifications"); err != nil {
			return TimeSlot{}, err
		}
	default:
		if err := checkKeys(fmt.Sprintf("times[%d]", idx), keys, "id", "type", "notifications"); err != nil {
			return TimeSlot{}, err
		}
	}
	var obj struct {
		ID            json.RawMessage            `json:"id"`
		Type          string                     `json:"type"`
		Time          string                     `json:"time"`
		Event         string                     `json:"event"`
		When          string                     `json:"when"`
		Notifications map[string]json.RawMessage `json:"notifications"`
	}
	if err := json.Unmarshal(msg, &obj); err != nil {
		return TimeSlot{}, invalidf(fmt.Sprintf("times[%d]", idx), "must be an object")
	}

	slot := TimeSlot{Type: SlotType(obj.Type)}
	if obj.ID != nil {
		id, err := positiveInt(obj.ID)
		if err != nil {
			return TimeSlot{}, invalid(field("id"), "must be a positive integer")
		}
		slot.ID = id
	}

	switch slot.Type {
	case SlotExact:
		if _, _, err := parseClock(obj.Time); err != nil {
			return TimeSlot{}, invalidf(field("time"), "bad time %q, want HH:MM", obj.Time)
		}
		slot.Time = obj.Time
	case SlotEvent:
		switch EventName(obj.Event) {
		case EventBreakfast, EventLunch, EventDinner, EventSleep:
			slot.Event = EventName(obj.Event)
		default:
			return TimeSlot{}, invalidf(field("event"), "unknown event %q", obj.Event)
		}
		switch WhenType(obj.When) {
		case Before, After:
			slot.When = WhenType(obj.When)
		default:
			return TimeSlot{}, invalidf(field("when"), "must be %q or %q", Before, After)
		}
	case SlotUnspecified:
	default:
		return TimeSlot{}, invalidf(field("type"), "unknown slot type %q", obj.Type)
	}

	if len(obj.Notifications) > 0 {
		slot.Notifications = make(map[string]Notify, len(obj.Notifications))
		for user, v := range obj.Notifications {
			var paused string
			if err := json.Unmarshal(v, &paused); err == nil {
				if paused != "paused" {
					return TimeSlot{}, invalidf(field("notifications."+user), "must be %q or an offset in minutes", "paused")
				}
				slot.Notifications[user] = Notify{Paused: true}
				continue
			}
			offset, err := nonNegativeInt(v)
			if err != nil {
				return TimeSlot{}, invalid(field("notifications."+user), "must be \"paused\" or an offset in minutes")
			}
			slot.Notifications[user] = Notify{OffsetMins: offset}
		}
	}
	return slot, nil
}

func parseTakeWithFood(raw map[string]json.RawMessage) (*bool, error) {
	msg, ok := raw["take_with_food"]
	if !ok || string(msg) == "null" {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(msg, &b); err != nil {
		return nil, invalid("take_with_food", "must be true, false or null")
	}
	return &b, nil
}

func boolField(raw map[string]json.RawMessage, name string, def bool) (bool, error) {
	msg, ok := raw[name]
	if !ok {
		return def, nil
	}
	var b bool
	if err := json.Unmarshal(msg, &b); err != nil {
		return false, invalid(name, "must be a boolean")
	}
	return b, nil
}

func idListField(raw map[string]json.RawMessage, name string) ([]int, error) {
	msg, ok := raw[name]
	if !ok || string(msg) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(msg, &items); err != nil {
		return nil, invalid(name, "must be an array of medication ids")
	}
	ids := make([]int, 0, len(items))
	for i, m := range items {
		id, err := nonNegativeInt(m)
		if err != nil {
			return nil, invalidf(fmt.Sprintf("%s[%d]", name, i), "must be a medication id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// positiveInt rejects floats with fractional parts, so 1.5 is not silently
// truncated to 1.
func positiveInt(msg json.RawMessage) (int, error) {
	n, err := nonNegativeInt(msg)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("not positive")
	}
	return n, nil
}

func jsonString(msg json.RawMessage) string {
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return ""
	}
	return s
}

func nonNegativeInt(msg json.RawMessage) (int, error) {
	if msg == nil {
		return 0, fmt.Errorf("missing")
	}
	var f float64
	if err := json.Unmarshal(msg, &f); err != nil {
		return 0, err
	}
	n := int(f)
	if float64(n) != f || n < 0 {
		return 0, fmt.Errorf("not a non-negative integer")
	}
	return n, nil
}
