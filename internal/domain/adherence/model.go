package adherence

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/schedule"
)

// DoseEvent is a recorded real-world dose: the patient took (or explicitly
// skipped) a medication at an instant. ScheduledSlotID links the dose to a
// schedule slot when the client recorded one; 0 means unlabeled.
type DoseEvent struct {
	ID              uuid.UUID
	MedicationID    uuid.UUID
	Time            time.Time
	Taken           bool
	ScheduledSlotID int
}

// MatchResult pairs one dose with the slot it was reconciled against.
// SlotID 0 means no predicted slot could absorb the dose; downstream it is
// surfaced as an extra or as-needed dose.
type MatchResult struct {
	DoseID   uuid.UUID
	DayIndex int
	SlotID   int
}

// MedicationSchedule is the slice of a medication the reconciler needs.
type MedicationSchedule struct {
	ID      uuid.UUID
	History schedule.History
}

// Entry is one row of the merged adherence timeline.
type Entry struct {
	Kind         string     `json:"type"` // "time" or "date"
	Date         string     `json:"date"` // RFC 3339 instant or YYYY-MM-DD
	MedicationID uuid.UUID  `json:"medication_id"`
	Scheduled    *int       `json:"scheduled,omitempty"` // slot id, predicted entries only
	Happened     bool       `json:"happened"`
	TookMed      *bool      `json:"took_medication,omitempty"`
	DoseID       *uuid.UUID `json:"dose_id,omitempty"`
	DelayMins    *int       `json:"delay,omitempty"`
	NotifyAt     *time.Time `json:"notification,omitempty"`

	// medication-wide constraints, carried on extra-dose entries
	TakeWithFood *bool `json:"take_with_food,omitempty"`
	TakeWith     []int `json:"take_with_medications,omitempty"`
	TakeWithout  []int `json:"take_without_medications,omitempty"`

	instant time.Time
}

// Statistics summarize past predicted entries. Percent taken plus the mean
// absolute delay and mean signed delay in minutes; all nil when the patient
// took nothing in the window.
type Statistics struct {
	TookMedication *float64 `json:"took_medication"`
	Delay          *float64 `json:"delay"`
	Delta          *float64 `json:"delta"`
}

// Report is a reconciled window: the merged timeline plus its statistics.
type Report struct {
	Schedule   []Entry    `json:"schedule"`
	Statistics Statistics `json:"statistics"`
}

// DayReport buckets a report's entries by calendar day.
type DayReport struct {
	Day        string     `json:"date"`
	Schedule   []Entry    `json:"schedule"`
	Statistics Statistics `json:"statistics"`
}
