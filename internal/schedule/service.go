package schedule

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/session"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) ListAll(ctx context.Context) ([]WeeklySchedule, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperr.Store("list schedules", err)
	}
	return list, nil
}

// Get returns every schedule of a specialist, one per specialty.
func (s *Service) Get(ctx context.Context, specialistID uuid.UUID) ([]WeeklySchedule, error) {
	list, err := s.repo.ListBySpecialist(ctx, specialistID)
	if err != nil {
		return nil, apperr.Store("load schedules", err)
	}
	return list, nil
}

// GetBySpecialty returns zero or one schedule for the pair.
func (s *Service) GetBySpecialty(ctx context.Context, specialistID uuid.UUID, specialty string) ([]WeeklySchedule, error) {
	ws, err := s.repo.GetBySpecialty(ctx, specialistID, strings.TrimSpace(specialty))
	if errors.Is(err, ErrScheduleNotFound) {
		return []WeeklySchedule{}, nil
	}
	if err != nil {
		return nil, apperr.Store("load schedule", err)
	}
	return []WeeklySchedule{*ws}, nil
}

// Require returns the schedule for the pair or a ConfigurationError when
// the specialist never configured one.
func (s *Service) Require(ctx context.Context, specialistID uuid.UUID, specialty string) (*WeeklySchedule, error) {
	ws, err := s.repo.GetBySpecialty(ctx, specialistID, strings.TrimSpace(specialty))
	if errors.Is(err, ErrScheduleNotFound) {
		return nil, apperr.Configuration("specialist has no availability configured for %s", specialty)
	}
	if err != nil {
		return nil, apperr.Store("load schedule", err)
	}
	return ws, nil
}

func (s *Service) Create(ctx context.Context, p session.Principal, specialistID uuid.UUID, specialty string, in Input) (*WeeklySchedule, error) {
	if err := authorize(p, specialistID); err != nil {
		return nil, err
	}
	specialty = strings.TrimSpace(specialty)
	if specialty == "" {
		return nil, apperr.Validation("specialty is required")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, WeeklySchedule{
		ID:           uuid.New(),
		SpecialistID: specialistID,
		Specialty:    specialty,
		Weekdays:     normalizeWeekdays(in.Weekdays),
		Hours:        Hours{Start: in.Start, End: in.End},
	})
	if errors.Is(err, ErrDuplicateSchedule) {
		return nil, apperr.Conflict("a schedule for %s already exists, update it instead", specialty)
	}
	if err != nil {
		return nil, apperr.Store("create schedule", err)
	}

	s.log.Info("schedule created",
		zap.String("schedule_id", created.ID.String()),
		zap.String("specialist_id", specialistID.String()),
		zap.String("specialty", specialty),
	)
	return created, nil
}

func (s *Service) Update(ctx context.Context, p session.Principal, id uuid.UUID, patch Patch) (*WeeklySchedule, error) {
	current, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrScheduleNotFound) {
		return nil, apperr.NotFound("schedule not found")
	}
	if err != nil {
		return nil, apperr.Store("load schedule", err)
	}
	if err := authorize(p, current.SpecialistID); err != nil {
		return nil, err
	}

	return s.update(ctx, *current, patch.apply(*current))
}

func (s *Service) update(ctx context.Context, current WeeklySchedule, in Input) (*WeeklySchedule, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	current.Weekdays = normalizeWeekdays(in.Weekdays)
	current.Hours = Hours{Start: in.Start, End: in.End}

	updated, err := s.repo.Update(ctx, current)
	if errors.Is(err, ErrScheduleNotFound) {
		return nil, apperr.Conflict("schedule was removed, reload and try again")
	}
	if err != nil {
		return nil, apperr.Store("update schedule", err)
	}

	s.log.Info("schedule updated",
		zap.String("schedule_id", updated.ID.String()),
		zap.Ints("weekdays", weekdayInts(updated.Weekdays)),
		zap.Int("start_hour", updated.Hours.Start),
		zap.Int("end_hour", updated.Hours.End),
	)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, p session.Principal, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrScheduleNotFound) {
		return apperr.NotFound("schedule not found")
	}
	if err != nil {
		return apperr.Store("load schedule", err)
	}
	if err := authorize(p, current.SpecialistID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrScheduleNotFound) {
		return apperr.Store("delete schedule", err)
	}
	s.log.Info("schedule deleted", zap.String("schedule_id", id.String()))
	return nil
}

// Save creates the schedule for the pair or replaces the existing one.
func (s *Service) Save(ctx context.Context, p session.Principal, specialistID uuid.UUID, specialty string, in Input) (*WeeklySchedule, error) {
	if err := authorize(p, specialistID); err != nil {
		return nil, err
	}
	specialty = strings.TrimSpace(specialty)

	current, err := s.repo.GetBySpecialty(ctx, specialistID, specialty)
	switch {
	case errors.Is(err, ErrScheduleNotFound):
		return s.Create(ctx, p, specialistID, specialty, in)
	case err != nil:
		return nil, apperr.Store("load schedule", err)
	}
	return s.update(ctx, *current, in)
}

func authorize(p session.Principal, specialistID uuid.UUID) error {
	if p.IsAdmin() || (p.IsSpecialist() && p.UserID == specialistID) {
		return nil
	}
	return apperr.Forbidden("only the specialist or an administrator can change this schedule")
}

func weekdayInts(days []Weekday) []int {
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = int(d)
	}
	return out
}
