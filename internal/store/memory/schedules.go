package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type Schedules struct {
	faults
	mu   sync.RWMutex
	byID map[uuid.UUID]schedule.WeeklySchedule
}

func NewSchedules() *Schedules {
	return &Schedules{byID: make(map[uuid.UUID]schedule.WeeklySchedule)}
}

func cloneSchedule(s schedule.WeeklySchedule) schedule.WeeklySchedule {
	s.Weekdays = slices.Clone(s.Weekdays)
	return s
}

func (r *Schedules) filter(keep func(schedule.WeeklySchedule) bool) []schedule.WeeklySchedule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []schedule.WeeklySchedule
	for _, s := range r.byID {
		if keep(s) {
			out = append(out, cloneSchedule(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SpecialistID != out[j].SpecialistID {
			return out[i].SpecialistID.String() < out[j].SpecialistID.String()
		}
		return out[i].Specialty < out[j].Specialty
	})
	return out
}

func (r *Schedules) ListAll(ctx context.Context) ([]schedule.WeeklySchedule, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.filter(func(schedule.WeeklySchedule) bool { return true }), nil
}

func (r *Schedules) ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]schedule.WeeklySchedule, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.filter(func(s schedule.WeeklySchedule) bool { return s.SpecialistID == specialistID }), nil
}

func (r *Schedules) GetByID(ctx context.Context, id uuid.UUID) (*schedule.WeeklySchedule, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	s = cloneSchedule(s)
	return &s, nil
}

func (r *Schedules) GetBySpecialty(ctx context.Context, specialistID uuid.UUID, specialty string) (*schedule.WeeklySchedule, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.byID {
		if s.SpecialistID == specialistID && s.Specialty == specialty {
			s = cloneSchedule(s)
			return &s, nil
		}
	}
	return nil, schedule.ErrScheduleNotFound
}

func (r *Schedules) Create(ctx context.Context, s schedule.WeeklySchedule) (*schedule.WeeklySchedule, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.SpecialistID == s.SpecialistID && existing.Specialty == s.Specialty {
			return nil, schedule.ErrDuplicateSchedule
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = now()
	s.UpdatedAt = s.CreatedAt
	r.byID[s.ID] = cloneSchedule(s)
	return &s, nil
}

func (r *Schedules) Update(ctx context.Context, s schedule.WeeklySchedule) (*schedule.WeeklySchedule, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[s.ID]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	current.Weekdays = slices.Clone(s.Weekdays)
	current.Hours = s.Hours
	current.UpdatedAt = now()
	r.byID[s.ID] = current

	out := cloneSchedule(current)
	return &out, nil
}

func (r *Schedules) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return schedule.ErrScheduleNotFound
	}
	delete(r.byID, id)
	return nil
}
