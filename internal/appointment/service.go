package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/events"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/session"
)

// ScheduleSource resolves the weekly schedule a booking must fall into.
type ScheduleSource interface {
	Require(ctx context.Context, specialistID uuid.UUID, specialty string) (*schedule.WeeklySchedule, error)
}

// RecordLinker writes the medical record of a completed appointment.
type RecordLinker interface {
	Validate(p medrecord.Payload) error
	Link(ctx context.Context, t medrecord.Target, p medrecord.Payload) (*medrecord.Entry, error)
}

type Service struct {
	repo      Repository
	schedules ScheduleSource
	records   RecordLinker
	locker    redisclient.Locker
	publisher events.Publisher
	cfg       config.Config
	log       *zap.Logger
	now       func() time.Time
}

func NewService(
	repo Repository,
	schedules ScheduleSource,
	records RecordLinker,
	locker redisclient.Locker,
	publisher events.Publisher,
	cfg config.Config,
	log *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if cfg.TimeZone == nil {
		cfg.TimeZone = time.UTC
	}
	return &Service{
		repo:      repo,
		schedules: schedules,
		records:   records,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// SetClock replaces the wall clock used for horizon checks.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns the appointments the caller is party to; administrators see all.
func (s *Service) List(ctx context.Context, p session.Principal) ([]Appointment, error) {
	var (
		list []Appointment
		err  error
	)
	switch p.Role {
	case session.RolePatient:
		list, err = s.repo.ListByPatient(ctx, p.UserID)
	case session.RoleSpecialist:
		list, err = s.repo.ListBySpecialist(ctx, p.UserID)
	case session.RoleAdmin:
		list, err = s.repo.ListAll(ctx)
	default:
		return nil, apperr.Forbidden("unknown role")
	}
	if err != nil {
		return nil, apperr.Store("list appointments", err)
	}
	return nonNil(list), nil
}

func (s *Service) Get(ctx context.Context, p session.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case p.IsAdmin(),
		p.IsSpecialist() && a.SpecialistID == p.UserID,
		p.IsPatient() && a.BelongsToPatient(p.UserID),
		a.IsOpen() && a.Enabled:
		return a, nil
	}
	return nil, apperr.Forbidden("you cannot see this appointment")
}

// ListOpenSlots returns every row of a specialist, reserved or not.
func (s *Service) ListOpenSlots(ctx context.Context, p session.Principal, specialistID uuid.UUID) ([]Appointment, error) {
	if !p.IsAdmin() && !(p.IsSpecialist() && p.UserID == specialistID) {
		return nil, apperr.Forbidden("only the specialist or an administrator can list these slots")
	}
	list, err := s.repo.ListOpenSlots(ctx, specialistID)
	if err != nil {
		return nil, apperr.Store("list slots", err)
	}
	return nonNil(list), nil
}

// ListAvailable returns offered, unreserved rows of a specialty. Zero
// bounds default to the bookable horizon.
func (s *Service) ListAvailable(ctx context.Context, specialty string, from, to time.Time) ([]Appointment, error) {
	specialty = strings.TrimSpace(specialty)
	if specialty == "" {
		return nil, apperr.Validation("specialty is required")
	}
	hFrom, hUntil := schedule.Horizon(s.now(), s.cfg.TimeZone, s.cfg.HorizonDays)
	if from.IsZero() {
		from = hFrom
	}
	if to.IsZero() {
		to = hUntil
	}
	if !to.After(from) {
		return nil, apperr.Validation("the end of the range must be after its start")
	}

	list, err := s.repo.ListAvailable(ctx, specialty, from, to)
	if err != nil {
		return nil, apperr.Store("list available appointments", err)
	}
	return nonNil(list), nil
}

// RecentWith returns the latest n appointments between a patient and a
// specialist, newest first.
func (s *Service) RecentWith(ctx context.Context, patientID, specialistID uuid.UUID, n int) ([]Appointment, error) {
	list, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Store("list appointments", err)
	}
	out := make([]Appointment, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		if list[i].SpecialistID == specialistID {
			out = append(out, list[i])
		}
	}
	return out, nil
}

// Update applies an administrative patch, such as withdrawing a slot.
func (s *Service) Update(ctx context.Context, p session.Principal, id uuid.UUID, patch Patch) (*Appointment, error) {
	if !p.IsAdmin() {
		return nil, apperr.Forbidden("only administrators can edit appointments")
	}
	if patch.Enabled == nil {
		return nil, apperr.Validation("nothing to update")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOpen() {
		return nil, apperr.Validation("only open slots can be enabled or withdrawn")
	}

	updated, err := s.repo.Update(ctx, id, patch)
	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		return nil, apperr.NotFound("appointment not found")
	case errors.Is(err, ErrSlotTaken):
		return nil, apperr.Conflict("slot was just reserved, please refresh")
	case err != nil:
		return nil, apperr.Store("update appointment", err)
	}
	s.logEvent(ctx, &updated.ID, events.AppointmentUpdated, map[string]any{
		"enabled": updated.Enabled,
		"by":      p.UserID.String(),
	})
	return updated, nil
}

// BulkDelete removes rows outright. Administrative escape hatch only.
func (s *Service) BulkDelete(ctx context.Context, p session.Principal, ids []uuid.UUID) (int64, error) {
	if !p.IsAdmin() {
		return 0, apperr.Forbidden("only administrators can delete appointments")
	}
	if len(ids) == 0 {
		return 0, apperr.Validation("select at least one appointment")
	}
	n, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		return 0, apperr.Store("delete appointments", err)
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	s.logEvent(ctx, nil, events.AppointmentsDeleted, map[string]any{
		"ids":     strIDs,
		"deleted": n,
		"by":      p.UserID.String(),
	})
	return n, nil
}

// OpenSlot materialises an unreserved, offered row. It reports false when
// the instant already has a row.
func (s *Service) OpenSlot(ctx context.Context, specialistID uuid.UUID, specialty string, at time.Time) (bool, error) {
	created, err := s.repo.Create(ctx, Appointment{
		ID:           uuid.New(),
		SpecialistID: specialistID,
		Specialty:    specialty,
		DateTime:     at,
		Enabled:      true,
	})
	if errors.Is(err, ErrSlotTaken) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Store("open slot", err)
	}
	s.logEvent(ctx, &created.ID, events.SlotOpened, map[string]any{
		"specialist_id": specialistID.String(),
		"specialty":     specialty,
		"date_time":     at,
	})
	return true, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, apperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, apperr.Store("load appointment", err)
	}
	return a, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	now := s.now()
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     now,
	}

	fields := []zap.Field{zap.String("event", eventType)}
	if appointmentID != nil {
		fields = append(fields, zap.String("appointment_id", appointmentID.String()))
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error("failed to insert event log", append(fields, zap.Error(err))...)
	}

	err = s.publisher.Publish(ctx, events.Event{
		ID:            uuid.New(),
		Type:          eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		OccurredAt:    now,
	})
	if err != nil {
		s.log.Warn("failed to publish event", append(fields, zap.Error(err))...)
	}

	s.log.Info("appointment event", fields...)
}

func nonNil(list []Appointment) []Appointment {
	if list == nil {
		return []Appointment{}
	}
	return list
}
