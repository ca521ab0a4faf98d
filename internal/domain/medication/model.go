package medication

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/schedule"
)

// Medication statuses.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"
)

// Medication maps to the medication table. Schedule holds the full
// version history of the dosing schedule as JSONB.
type Medication struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	PatientID    uuid.UUID        `db:"patient_id" json:"patient_id"`
	Name         string           `db:"name" json:"name"`
	Brand        *string          `db:"brand" json:"brand,omitempty"`
	RxNormCode   *string          `db:"rx_norm_code" json:"rx_norm_code,omitempty"`
	Strength     *string          `db:"strength" json:"strength,omitempty"`
	Form         *string          `db:"form" json:"form,omitempty"`
	Route        *string          `db:"route" json:"route,omitempty"`
	Instructions *string          `db:"instructions" json:"instructions,omitempty"`
	Status       string           `db:"status" json:"status"`
	Schedule     schedule.History `db:"schedule" json:"schedule"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// CurrentSpec returns the latest schedule version, or nil when the
// medication has never been scheduled.
func (m *Medication) CurrentSpec() *schedule.Spec {
	return m.Schedule.Current()
}
