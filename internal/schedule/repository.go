package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrDuplicateSchedule = errors.New("schedule already exists for specialist and specialty")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	ListAll(ctx context.Context) ([]WeeklySchedule, error)
	ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]WeeklySchedule, error)
	GetByID(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error)
	GetBySpecialty(ctx context.Context, specialistID uuid.UUID, specialty string) (*WeeklySchedule, error)

	// Create returns ErrDuplicateSchedule when the pair already has one.
	Create(ctx context.Context, s WeeklySchedule) (*WeeklySchedule, error)
	Update(ctx context.Context, s WeeklySchedule) (*WeeklySchedule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
