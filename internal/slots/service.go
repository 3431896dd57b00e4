package slots

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type ScheduleSource interface {
	Require(ctx context.Context, specialistID uuid.UUID, specialty string) (*schedule.WeeklySchedule, error)
	ListAll(ctx context.Context) ([]schedule.WeeklySchedule, error)
}

type AppointmentSource interface {
	ListRange(ctx context.Context, specialistID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error)
}

// SlotOpener writes placeholder rows for free slots.
type SlotOpener interface {
	OpenSlot(ctx context.Context, specialistID uuid.UUID, specialty string, at time.Time) (bool, error)
}

// Day groups the free slots of one calendar day.
type Day struct {
	Date    string `json:"date"`
	Weekday int    `json:"weekday"`
	Slots   []Slot `json:"slots"`
}

type Service struct {
	schedules    ScheduleSource
	appointments AppointmentSource
	opener       SlotOpener
	cfg          config.Config
	log          *zap.Logger
	now          func() time.Time
}

func NewService(schedules ScheduleSource, appointments AppointmentSource, opener SlotOpener, cfg config.Config, log *zap.Logger) *Service {
	if cfg.TimeZone == nil {
		cfg.TimeZone = time.UTC
	}
	return &Service{
		schedules:    schedules,
		appointments: appointments,
		opener:       opener,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Generate returns the slots of the pair over the booking horizon. A pair
// without a schedule is a ConfigurationError, not an empty list.
func (s *Service) Generate(ctx context.Context, specialistID uuid.UUID, specialty string) ([]Slot, error) {
	ws, err := s.schedules.Require(ctx, specialistID, specialty)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, *ws)
}

func (s *Service) expand(ctx context.Context, ws schedule.WeeklySchedule) ([]Slot, error) {
	from, until := schedule.Horizon(s.now(), s.cfg.TimeZone, s.cfg.HorizonDays)
	existing, err := s.appointments.ListRange(ctx, ws.SpecialistID, from, until)
	if err != nil {
		return nil, apperr.Store("load appointments", err)
	}
	step := time.Duration(s.cfg.SlotMinutes) * time.Minute
	return Expand(ws, existing, from, s.cfg.HorizonDays, step), nil
}

// AvailableDays lists the days that still have at least one free slot.
func (s *Service) AvailableDays(ctx context.Context, specialistID uuid.UUID, specialty string) ([]Day, error) {
	all, err := s.Generate(ctx, specialistID, specialty)
	if err != nil {
		return nil, err
	}

	days := []Day{}
	for _, slot := range all {
		if slot.Status != Free {
			continue
		}
		if n := len(days); n == 0 || days[n-1].Date != slot.Date {
			days = append(days, Day{Date: slot.Date, Weekday: int(schedule.WeekdayOf(slot.Start))})
		}
		last := &days[len(days)-1]
		last.Slots = append(last.Slots, slot)
	}
	return days, nil
}

// Materialize writes an open placeholder row for every free slot without
// one, across all schedules. It returns how many rows it created.
func (s *Service) Materialize(ctx context.Context) (int, error) {
	list, err := s.schedules.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, ws := range list {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		slots, err := s.expand(ctx, ws)
		if err != nil {
			s.log.Error("expand schedule", zap.String("schedule_id", ws.ID.String()), zap.Error(err))
			continue
		}
		for _, slot := range slots {
			if slot.Status != Free || slot.AppointmentID != nil {
				continue
			}
			ok, err := s.opener.OpenSlot(ctx, ws.SpecialistID, ws.Specialty, slot.Start)
			if err != nil {
				s.log.Error("open slot",
					zap.String("specialist_id", ws.SpecialistID.String()),
					zap.Time("start", slot.Start),
					zap.Error(err),
				)
				continue
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}
