package dose

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Dose) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dose, error)
	Update(ctx context.Context, d *Dose) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByMedication(ctx context.Context, medicationID uuid.UUID, limit, offset int) ([]*Dose, int, error)
	ListByPatientAndRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]*Dose, error)
}
