package schedule

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Unit is the calendar unit a frequency cadence counts in.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// UntilType discriminates the stop condition of a regular schedule.
type UntilType string

const (
	UntilForever UntilType = "forever"
	UntilCount   UntilType = "number"
	UntilDate    UntilType = "date"
)

// Until says when a regular schedule stops: never, after a fixed number of
// doses, or after a calendar date.
type Until struct {
	Type  UntilType
	Count int    // set when Type == UntilCount
	Stop  string // YYYY-MM-DD, set when Type == UntilDate
}

// Exclude skips positions inside a repeating cycle: an offsets residue set
// over a cycle of CycleLength frequency units.
type Exclude struct {
	Offsets     []int
	CycleLength int
}

// Frequency is the "every n units" cadence of a regular schedule, counted
// from one or more anchor dates. Multiple anchors run as independent
// interleaved cadences.
type Frequency struct {
	N           int
	Unit        Unit
	Exclude     *Exclude
	CycleStarts []string // YYYY-MM-DD anchors, never empty on a valid spec
}

// SlotType discriminates how a time slot resolves to a time of day.
type SlotType string

const (
	SlotExact       SlotType = "exact"
	SlotEvent       SlotType = "event"
	SlotUnspecified SlotType = "unspecified"
)

// EventName names the habit a SlotEvent slot is anchored to.
type EventName string

const (
	EventBreakfast EventName = "breakfast"
	EventLunch     EventName = "lunch"
	EventDinner    EventName = "dinner"
	EventSleep     EventName = "sleep"
)

// WhenType positions an event slot relative to its habit.
type WhenType string

const (
	Before WhenType = "before"
	After  WhenType = "after"
)

// Notify holds one user's reminder preference for a slot: either paused or
// a lead time in minutes before the dose.
type Notify struct {
	Paused     bool
	OffsetMins int
}

// TimeSlot is one position within a single day's plan. IDs are assigned when
// a spec is pushed onto a medication's version history and are stable across
// subsequent edits; 0 means not yet assigned.
type TimeSlot struct {
	ID            int
	Type          SlotType
	Time          string    // HH:MM in UTC, exact slots only
	Event         EventName // event slots only
	When          WhenType  // event slots only
	Notifications map[string]Notify
}

// Spec is a validated, immutable schedule definition. At least one of
// AsNeeded and Regularly is true; the regular fields are meaningful only
// when Regularly is.
type Spec struct {
	AsNeeded     bool
	Regularly    bool
	Until        Until
	Frequency    Frequency
	Times        []TimeSlot
	TakeWithFood *bool // nil = doesn't matter
	TakeWith     []int
	TakeWithout  []int
	NotToExceed  int // as-needed daily cap, 0 = none
}

// -- wire format --
//
// Specs travel as the snake_case JSON shape the mobile clients send:
//
//	{
//	  "as_needed": true, "regularly": true,
//	  "until": {"type": "number", "stop": 5},
//	  "frequency": {"n": 1, "unit": "day",
//	                "exclude": {"exclude": [5, 6], "repeat": 7},
//	                "start": ["2024-01-01"]},
//	  "times": [{"id": 1, "type": "event", "event": "lunch", "when": "after",
//	             "notifications": {"default": 30, "7": "paused"}}],
//	  "take_with_food": null,
//	  "take_with_medications": [], "take_without_medications": []
//	}

func (u Until) MarshalJSON() ([]byte, error) {
	switch u.Type {
	case UntilCount:
		return json.Marshal(map[string]interface{}{"type": string(u.Type), "stop": u.Count})
	case UntilDate:
		return json.Marshal(map[string]interface{}{"type": string(u.Type), "stop": u.Stop})
	default:
		return json.Marshal(map[string]interface{}{"type": string(UntilForever)})
	}
}

func (f Frequency) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"n":     f.N,
		"unit":  string(f.Unit),
		"start": f.CycleStarts,
	}
	if f.Exclude != nil {
		out["exclude"] = map[string]interface{}{
			"exclude": f.Exclude.Offsets,
			"repeat":  f.Exclude.CycleLength,
		}
	}
	return json.Marshal(out)
}

func (t TimeSlot) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"type": string(t.Type)}
	if t.ID != 0 {
		out["id"] = t.ID
	}
	switch t.Type {
	case SlotExact:
		out["time"] = t.Time
	case SlotEvent:
		out["event"] = string(t.Event)
		out["when"] = string(t.When)
	}
	if len(t.Notifications) > 0 {
		notify := make(map[string]interface{}, len(t.Notifications))
		for user, n := range t.Notifications {
			if n.Paused {
				notify[user] = "paused"
			} else {
				notify[user] = n.OffsetMins
			}
		}
		out["notifications"] = notify
	}
	return json.Marshal(out)
}

func (s *Spec) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"as_needed": s.AsNeeded,
		"regularly": s.Regularly,
	}
	if s.Regularly {
		out["until"] = s.Until
		out["frequency"] = s.Frequency
		out["times"] = s.Times
		out["take_with_food"] = s.TakeWithFood
		if s.TakeWith != nil {
			out["take_with_medications"] = s.TakeWith
		}
		if s.TakeWithout != nil {
			out["take_without_medications"] = s.TakeWithout
		}
	}
	if s.AsNeeded && s.NotToExceed > 0 {
		out["not_to_exceed"] = s.NotToExceed
	}
	return json.Marshal(out)
}

// UnmarshalJSON runs the strict validator so a Spec decoded from storage is
// always a valid one.
func (s *Spec) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSpecJSON(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// SameSemantics reports whether two specs prescribe the same plan. Slot ids
// and notification preferences are cosmetic for this purpose: editing them
// must not grow the version history.
func SameSemantics(a, b *Spec) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.AsNeeded != b.AsNeeded || a.Regularly != b.Regularly {
		return false
	}
	if a.NotToExceed != b.NotToExceed {
		return false
	}
	if !a.Regularly {
		return true
	}
	if a.Until != b.Until {
		return false
	}
	if !sameFrequency(a.Frequency, b.Frequency) {
		return false
	}
	if !boolPtrEqual(a.TakeWithFood, b.TakeWithFood) {
		return false
	}
	if !intSliceEqual(a.TakeWith, b.TakeWith) || !intSliceEqual(a.TakeWithout, b.TakeWithout) {
		return false
	}
	if len(a.Times) != len(b.Times) {
		return false
	}
	for i := range a.Times {
		if !sameSlot(a.Times[i], b.Times[i]) {
			return false
		}
	}
	return true
}

// sameSlot ignores ID and Notifications.
func sameSlot(a, b TimeSlot) bool {
	return a.Type == b.Type && a.Time == b.Time && a.Event == b.Event && a.When == b.When
}

func sameFrequency(a, b Frequency) bool {
	if a.N != b.N || a.Unit != b.Unit {
		return false
	}
	if (a.Exclude == nil) != (b.Exclude == nil) {
		return false
	}
	if a.Exclude != nil {
		if a.Exclude.CycleLength != b.Exclude.CycleLength {
			return false
		}
		if !intSetEqual(a.Exclude.Offsets, b.Exclude.Offsets) {
			return false
		}
	}
	return stringSliceEqual(a.CycleStarts, b.CycleStarts)
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intSetEqual(a, b []int) bool {
	as := append([]int(nil), a...)
	bs := append([]int(nil), b...)
	sort.Ints(as)
	sort.Ints(bs)
	return intSliceEqual(as, bs)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Spec) String() string {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("schedule.Spec(marshal error: %v)", err)
	}
	return string(raw)
}
