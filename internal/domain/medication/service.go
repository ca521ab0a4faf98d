package medication

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/patient"
	"github.com/medtrack/medtrack/internal/domain/schedule"
)

type Service struct {
	meds     Repository
	patients patient.Repository
}

func NewService(meds Repository, patients patient.Repository) *Service {
	return &Service{meds: meds, patients: patients}
}

var validStatuses = map[string]bool{
	StatusActive: true, StatusPaused: true, StatusArchived: true,
}

// Create stores a new medication. rawSchedule may be nil, in which case the
// medication starts as-needed.
func (s *Service) Create(ctx context.Context, m *Medication, rawSchedule json.RawMessage) error {
	if m.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.Status == "" {
		m.Status = StatusActive
	}
	if !validStatuses[m.Status] {
		return fmt.Errorf("invalid medication status: %s", m.Status)
	}
	spec, err := schedule.ParseSpecJSON(rawSchedule)
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	m.Schedule = m.Schedule.Push(spec, time.Now())
	return s.meds.Create(ctx, m)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.meds.GetByID(ctx, id)
}

// Update replaces the medication's descriptive fields. The schedule history
// is never touched here; PushSchedule owns that.
func (s *Service) Update(ctx context.Context, m *Medication) error {
	existing, err := s.meds.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	if m.Status == "" {
		m.Status = existing.Status
	}
	if !validStatuses[m.Status] {
		return fmt.Errorf("invalid medication status: %s", m.Status)
	}
	m.PatientID = existing.PatientID
	m.Schedule = existing.Schedule
	return s.meds.Update(ctx, m)
}

// PushSchedule parses the submitted schedule document and folds it into the
// medication's version history. A semantically identical schedule updates the
// current version in place; a real change starts a new version effective now.
func (s *Service) PushSchedule(ctx context.Context, id uuid.UUID, rawSchedule json.RawMessage) (*Medication, error) {
	m, err := s.meds.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	spec, err := schedule.ParseSpecJSON(rawSchedule)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	m.Schedule = m.Schedule.Push(spec, time.Now())
	if err := s.meds.UpdateSchedule(ctx, id, m.Schedule); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid medication status: %s", status)
	}
	return s.meds.UpdateStatus(ctx, id, status)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.meds.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Medication, int, error) {
	return s.meds.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Medication, error) {
	return s.meds.ListActiveByPatient(ctx, patientID)
}

// Timeline projects the medication's schedule history over [start, end],
// generating expected dose occurrences against the owning patient's habits.
func (s *Service) Timeline(ctx context.Context, id uuid.UUID, start, end string, notifyUserID string) ([]schedule.Occurrence, []string, error) {
	m, err := s.meds.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.patients.GetByID(ctx, m.PatientID)
	if err != nil {
		return nil, nil, err
	}
	occurrences, err := m.Schedule.Generate(start, end, p.Habits.WithDefaults(), schedule.GenOptions{
		NotifyUserID: notifyUserID,
	})
	if err != nil {
		return nil, nil, err
	}
	var summary []string
	if spec := m.Schedule.Current(); spec != nil {
		summary = spec.Summary()
	}
	return occurrences, summary, nil
}
