package schedule

import "time"

// Habits is a patient's daily routine: the times event slots anchor to,
// plus the timezone all day boundaries are computed in. Times are local
// HH:MM; empty fields fall back to defaults.
type Habits struct {
	Wake      string `json:"wake,omitempty"`
	Sleep     string `json:"sleep,omitempty"`
	Breakfast string `json:"breakfast,omitempty"`
	Lunch     string `json:"lunch,omitempty"`
	Dinner    string `json:"dinner,omitempty"`
	Timezone  string `json:"tz,omitempty"`
}

const (
	defaultWake      = "07:00"
	defaultBreakfast = "08:00"
	defaultLunch     = "12:00"
	defaultDinner    = "19:00"
	defaultSleep     = "23:00"
)

// WithDefaults fills in every unset habit.
func (h Habits) WithDefaults() Habits {
	if h.Wake == "" {
		h.Wake = defaultWake
	}
	if h.Breakfast == "" {
		h.Breakfast = defaultBreakfast
	}
	if h.Lunch == "" {
		h.Lunch = defaultLunch
	}
	if h.Dinner == "" {
		h.Dinner = defaultDinner
	}
	if h.Sleep == "" {
		h.Sleep = defaultSleep
	}
	if h.Timezone == "" {
		h.Timezone = "Etc/UTC"
	}
	return h
}

// Location resolves the habit timezone, falling back to UTC on a bad name.
func (h Habits) Location() *time.Location {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil || h.Timezone == "" {
		return time.UTC
	}
	return loc
}

// SleepsLate reports whether the patient's sleep time falls after midnight,
// in which case before-sleep doses belong to the next calendar day.
func (h Habits) SleepsLate() bool {
	h = h.WithDefaults()
	wh, wm, err := parseClock(h.Wake)
	if err != nil {
		return false
	}
	sh, sm, err := parseClock(h.Sleep)
	if err != nil {
		return false
	}
	return sh*60+sm < wh*60+wm
}

// eventTime returns the local clock time of a habit event.
func (h Habits) eventTime(event EventName) (hour, min int, err error) {
	h = h.WithDefaults()
	var s string
	switch event {
	case EventBreakfast:
		s = h.Breakfast
	case EventLunch:
		s = h.Lunch
	case EventDinner:
		s = h.Dinner
	case EventSleep:
		s = h.Sleep
	default:
		s = h.Wake
	}
	return parseClock(s)
}

// DayAnchor returns the wake instant that starts the patient-day containing
// t: the wake time on t's calendar date, or the previous date's wake time
// when t falls between midnight and waking.
func (h Habits) DayAnchor(t time.Time) time.Time {
	loc := h.Location()
	day := civilOf(t.In(loc))
	anchor := h.wakeInstant(day, loc)
	if anchor.After(t) {
		anchor = h.wakeInstant(day.addUnits(-1, UnitDay), loc)
	}
	return anchor
}

// DaysBetween counts whole calendar days from a's date to b's date in the
// patient's timezone.
func (h Habits) DaysBetween(a, b time.Time) int {
	loc := h.Location()
	return daysBetween(civilOf(a.In(loc)), civilOf(b.In(loc)))
}

// wakeInstant is the moment the patient's day begins on the given calendar
// date, used as the day boundary when bucketing doses into days.
func (h Habits) wakeInstant(day civilDate, loc *time.Location) time.Time {
	h = h.WithDefaults()
	hour, min, err := parseClock(h.Wake)
	if err != nil {
		hour, min = 7, 0
	}
	return time.Date(day.Year, day.Month, day.Day, hour, min, 0, 0, loc)
}
