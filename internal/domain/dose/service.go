package dose

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/medication"
)

type Service struct {
	doses Repository
	meds  medication.Repository
}

func NewService(doses Repository, meds medication.Repository) *Service {
	return &Service{doses: doses, meds: meds}
}

// Record stores a take/skip event. When the patient labels the dose with a
// slot id, the id must exist in the schedule version in force at the dose
// time; the matcher trusts labels and a stale id would corrupt adherence.
func (s *Service) Record(ctx context.Context, d *Dose) error {
	if d.MedicationID == uuid.Nil {
		return fmt.Errorf("medication_id is required")
	}
	m, err := s.meds.GetByID(ctx, d.MedicationID)
	if err != nil {
		return fmt.Errorf("medication not found")
	}
	if d.PatientID == uuid.Nil {
		d.PatientID = m.PatientID
	}
	if d.PatientID != m.PatientID {
		return fmt.Errorf("dose patient does not match medication patient")
	}
	if d.Time.IsZero() {
		d.Time = time.Now().UTC()
	}
	if err := s.checkSlotLabel(m, d); err != nil {
		return err
	}
	return s.doses.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Dose, error) {
	return s.doses.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, d *Dose) error {
	existing, err := s.doses.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	d.PatientID = existing.PatientID
	d.MedicationID = existing.MedicationID
	if d.Time.IsZero() {
		d.Time = existing.Time
	}
	m, err := s.meds.GetByID(ctx, d.MedicationID)
	if err != nil {
		return fmt.Errorf("medication not found")
	}
	if err := s.checkSlotLabel(m, d); err != nil {
		return err
	}
	return s.doses.Update(ctx, d)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.doses.Delete(ctx, id)
}

func (s *Service) ListByMedication(ctx context.Context, medicationID uuid.UUID, limit, offset int) ([]*Dose, int, error) {
	return s.doses.ListByMedication(ctx, medicationID, limit, offset)
}

func (s *Service) checkSlotLabel(m *medication.Medication, d *Dose) error {
	if d.ScheduledSlotID == 0 {
		return nil
	}
	spec, err := m.Schedule.SpecFor(d.Time)
	if err != nil {
		return fmt.Errorf("medication has no schedule to label against")
	}
	for _, slot := range spec.Times {
		if slot.ID == d.ScheduledSlotID {
			return nil
		}
	}
	return fmt.Errorf("scheduled: slot %d does not exist in the schedule", d.ScheduledSlotID)
}
