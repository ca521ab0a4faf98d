package schedule

import (
	"encoding/json"
	"time"
)

// Version is one entry in a medication's schedule history: the spec plus
// the instant it took effect. A zero EffectiveFrom means the version has
// applied since before anything was recorded.
type Version struct {
	Spec          *Spec
	EffectiveFrom time.Time
}

type versionWire struct {
	Spec          *Spec      `json:"spec"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
}

func (v Version) MarshalJSON() ([]byte, error) {
	w := versionWire{Spec: v.Spec}
	if !v.EffectiveFrom.IsZero() {
		t := v.EffectiveFrom.UTC()
		w.EffectiveFrom = &t
	}
	return json.Marshal(w)
}

func (v *Version) UnmarshalJSON(data []byte) error {
	var w versionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v.Spec = w.Spec
	if w.EffectiveFrom != nil {
		v.EffectiveFrom = w.EffectiveFrom.UTC()
	} else {
		v.EffectiveFrom = time.Time{}
	}
	return nil
}

// History is a medication's append-only, time-ordered schedule versions.
type History []Version

// Current returns the latest version's spec, or nil for an empty history.
func (h History) Current() *Spec {
	if len(h) == 0 {
		return nil
	}
	return h[len(h)-1].Spec
}

// Push appends a new version effective at now, unless the new spec means
// the same thing as the current one, in which case the current version is
// updated in place (so notification and id edits don't grow the history).
// Slot ids from the current version are carried over onto structurally
// matching slots before comparison, and brand new slots receive fresh ids.
func (h History) Push(spec *Spec, now time.Time) History {
	if len(h) == 0 {
		AssignSlotIDs(nil, spec)
		return History{{Spec: spec, EffectiveFrom: now.UTC()}}
	}
	last := h[len(h)-1]
	AssignSlotIDs(last.Spec, spec)
	if SameSemantics(last.Spec, spec) {
		h[len(h)-1] = Version{Spec: spec, EffectiveFrom: last.EffectiveFrom}
		return h
	}
	return append(h, Version{Spec: spec, EffectiveFrom: now.UTC()})
}

// SpecFor returns the version in effect at the given instant. Instants
// before the first version resolve to the first version, so doses recorded
// before any schedule edit still reconcile against something.
func (h History) SpecFor(t time.Time) (*Spec, error) {
	if len(h) == 0 {
		return nil, ErrNoVersion
	}
	spec := h[0].Spec
	for _, v := range h[1:] {
		if v.EffectiveFrom.After(t) {
			break
		}
		spec = v.Spec
	}
	return spec, nil
}

// AssignSlotIDs gives every slot of next a stable id. Slots structurally
// matching a slot of prev (same variant, matched in order) keep that slot's
// id; remaining slots get fresh small integers that don't collide with any
// id already present.
func AssignSlotIDs(prev, next *Spec) {
	if next == nil {
		return
	}
	maxID := 0
	for _, slot := range next.Times {
		if slot.ID > maxID {
			maxID = slot.ID
		}
	}

	var prevSlots []TimeSlot
	if prev != nil {
		prevSlots = prev.Times
		for _, slot := range prevSlots {
			if slot.ID > maxID {
				maxID = slot.ID
			}
		}
	}

	used := make(map[int]bool, len(next.Times))
	for _, slot := range next.Times {
		if slot.ID != 0 {
			used[slot.ID] = true
		}
	}

	claimed := make([]bool, len(prevSlots))
	for i := range next.Times {
		if next.Times[i].ID != 0 {
			continue
		}
		for j, p := range prevSlots {
			if claimed[j] || p.ID == 0 || used[p.ID] || !sameSlot(next.Times[i], p) {
				continue
			}
			next.Times[i].ID = p.ID
			claimed[j] = true
			used[p.ID] = true
			break
		}
		if next.Times[i].ID == 0 {
			maxID++
			next.Times[i].ID = maxID
			used[maxID] = true
		}
	}
}

// Generate expands a full version history over a window, partitioning the
// window across versions by their effective-from instants. Each version
// covers from the day it took effect (or the window start) up to the day
// the next version takes over; occurrences on that boundary day belong to
// the newer version. Per-version results are concatenated and re-sorted,
// since date-only and timed ordering differ across the seams.
func (h History) Generate(start, end string, habits Habits, opts GenOptions) ([]Occurrence, error) {
	if len(h) == 0 {
		return []Occurrence{}, nil
	}
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

	type span struct {
		spec       *Spec
		start, end civilDate
		hasLater   bool
	}
	var spans []span
	for i, v := range h {
		subStart := startDay
		if !v.EffectiveFrom.IsZero() {
			from := civilOf(v.EffectiveFrom.In(loc))
			if startDay.before(from) {
				subStart = from
			}
		}
		subEnd := endDay
		hasLater := false
		if i+1 < len(h) && !h[i+1].EffectiveFrom.IsZero() {
			boundary := civilOf(h[i+1].EffectiveFrom.In(loc))
			if boundary.before(subEnd) || boundary == subEnd {
				subEnd = boundary
				hasLater = true
			}
		}
		if subStart.after(endDay) || subEnd.before(startDay) || subEnd.before(subStart) {
			continue
		}
		spans = append(spans, span{spec: v.Spec, start: subStart, end: subEnd, hasLater: hasLater})
	}

	// everything postdates the window: project the earliest version back
	if len(spans) == 0 {
		spans = append(spans, span{spec: h[0].Spec, start: startDay, end: endDay})
	}

	var merged []Occurrence
	for _, sp := range spans {
		occurrences, err := sp.spec.Generate(sp.start.String(), sp.end.String(), habits, GenOptions{
			DosesTaken:   opts.DosesTaken,
			NotifyUserID: opts.NotifyUserID,
			HasLater:     sp.hasLater,
		})
		if err != nil {
			return nil, err
		}
		merged = append(merged, occurrences...)
	}
	sortOccurrences(merged, loc)
	return merged, nil
}
