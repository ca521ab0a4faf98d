package adherence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/dose"
	"github.com/medtrack/medtrack/internal/domain/medication"
	"github.com/medtrack/medtrack/internal/domain/patient"
	"github.com/medtrack/medtrack/internal/domain/schedule"
)

type Service struct {
	patients patient.Repository
	meds     medication.Repository
	doses    dose.Repository
}

func NewService(patients patient.Repository, meds medication.Repository, doses dose.Repository) *Service {
	return &Service{patients: patients, meds: meds, doses: doses}
}

// Report reconciles every active medication of the patient against the dose
// log over [start, end]. medicationID narrows the report to one medication
// when non-nil.
func (s *Service) Report(ctx context.Context, patientID uuid.UUID, medicationID *uuid.UUID, start, end, notifyUserID string) (*Report, error) {
	meds, doses, habits, err := s.load(ctx, patientID, medicationID, start, end)
	if err != nil {
		return nil, err
	}
	return Reconcile(meds, doses, habits, start, end, notifyUserID, time.Now())
}

// DailyReport is Report bucketed per calendar day in the patient's timezone.
func (s *Service) DailyReport(ctx context.Context, patientID uuid.UUID, medicationID *uuid.UUID, start, end, notifyUserID string) ([]DayReport, error) {
	meds, doses, habits, err := s.load(ctx, patientID, medicationID, start, end)
	if err != nil {
		return nil, err
	}
	return ReconcileDaily(meds, doses, habits, start, end, notifyUserID, time.Now())
}

func (s *Service) load(ctx context.Context, patientID uuid.UUID, medicationID *uuid.UUID, start, end string) ([]MedicationSchedule, []DoseEvent, schedule.Habits, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, nil, schedule.Habits{}, err
	}
	habits := p.Habits.WithDefaults()

	var medications []*medication.Medication
	if medicationID != nil {
		m, err := s.meds.GetByID(ctx, *medicationID)
		if err != nil {
			return nil, nil, habits, err
		}
		if m.PatientID != patientID {
			return nil, nil, habits, fmt.Errorf("medication not found")
		}
		medications = []*medication.Medication{m}
	} else {
		medications, err = s.meds.ListActiveByPatient(ctx, patientID)
		if err != nil {
			return nil, nil, habits, err
		}
	}

	startT, endT, err := windowBounds(start, end, habits.Location())
	if err != nil {
		return nil, nil, habits, err
	}
	doseRows, err := s.doses.ListByPatientAndRange(ctx, patientID, startT, endT)
	if err != nil {
		return nil, nil, habits, err
	}

	meds := make([]MedicationSchedule, 0, len(medications))
	for _, m := range medications {
		meds = append(meds, MedicationSchedule{ID: m.ID, History: m.Schedule})
	}
	events := make([]DoseEvent, 0, len(doseRows))
	for _, d := range doseRows {
		events = append(events, DoseEvent{
			ID:              d.ID,
			MedicationID:    d.MedicationID,
			Time:            d.Time,
			Taken:           d.Taken,
			ScheduledSlotID: d.ScheduledSlotID,
		})
	}
	return meds, events, habits, nil
}
