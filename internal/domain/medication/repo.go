package medication

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/schedule"
)

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	UpdateSchedule(ctx context.Context, id uuid.UUID, history schedule.History) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Medication, int, error)
	ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Medication, error)
}
