package dose

import (
	"time"

	"github.com/google/uuid"
)

// Dose maps to the dose table: one row per recorded take/skip event.
// ScheduledSlotID is 0 when the patient did not say which slot the dose
// was for; the adherence matcher infers it later.
type Dose struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	MedicationID    uuid.UUID `db:"medication_id" json:"medication_id"`
	Time            time.Time `db:"time" json:"time"`
	Taken           bool      `db:"taken" json:"taken"`
	ScheduledSlotID int       `db:"scheduled_slot_id" json:"scheduled,omitempty"`
	Note            *string   `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
