package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/schedule"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	UpdateHabits(ctx context.Context, id uuid.UUID, habits schedule.Habits) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}
