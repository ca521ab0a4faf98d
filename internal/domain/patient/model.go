package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/schedule"
)

// Patient maps to the patient table.
type Patient struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	FirstName string          `db:"first_name" json:"first_name"`
	LastName  string          `db:"last_name" json:"last_name"`
	BirthDate *time.Time      `db:"birth_date" json:"birth_date,omitempty"`
	Sex       *string         `db:"sex" json:"sex,omitempty"`
	Phone     *string         `db:"phone" json:"phone,omitempty"`
	Habits    schedule.Habits `db:"habits" json:"habits"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Location resolves the patient's timezone, falling back to UTC.
func (p *Patient) Location() *time.Location {
	return p.Habits.Location()
}
