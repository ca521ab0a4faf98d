package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/schedule"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if p.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if err := validateHabits(p.Habits); err != nil {
		return err
	}
	p.Habits = p.Habits.WithDefaults()
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetByUserID(ctx context.Context, userID string) (*Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := validateHabits(p.Habits); err != nil {
		return err
	}
	p.Habits = p.Habits.WithDefaults()
	return s.patients.Update(ctx, p)
}

// UpdateHabits replaces the patient's routine and returns the stored result.
// Changing habits shifts where event slots land, so generated timelines pick
// up the new clock times immediately.
func (s *Service) UpdateHabits(ctx context.Context, id uuid.UUID, habits schedule.Habits) (schedule.Habits, error) {
	if err := validateHabits(habits); err != nil {
		return schedule.Habits{}, err
	}
	habits = habits.WithDefaults()
	if err := s.patients.UpdateHabits(ctx, id, habits); err != nil {
		return schedule.Habits{}, err
	}
	return habits, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func validateHabits(h schedule.Habits) error {
	for _, f := range []struct{ name, value string }{
		{"wake", h.Wake},
		{"sleep", h.Sleep},
		{"breakfast", h.Breakfast},
		{"lunch", h.Lunch},
		{"dinner", h.Dinner},
	} {
		if f.value == "" {
			continue
		}
		if _, err := time.Parse("15:04", f.value); err != nil {
			return fmt.Errorf("habits.%s: must be a HH:MM time", f.name)
		}
	}
	if h.Timezone != "" {
		if _, err := time.LoadLocation(h.Timezone); err != nil {
			return fmt.Errorf("habits.tz: unknown timezone %q", h.Timezone)
		}
	}
	return nil
}
