package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/events"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/session"
)

// SlotChoice is what the caller picked from the generated slots: either an
// existing open row, or a specialist, calendar day and displayed time.
type SlotChoice struct {
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	SpecialistID  uuid.UUID  `json:"specialist_id"`
	Specialty     string     `json:"specialty"`
	Date          string     `json:"date"`  // 2006-01-02, clinic calendar
	Label         string     `json:"label"` // "02:30 PM"
	PatientID     *uuid.UUID `json:"patient_id,omitempty"`
}

const dateLayout = "2006-01-02"

var labelLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

// SlotTime rebuilds the instant of a displayed slot from the local
// calendar day and its 12-hour label.
func SlotTime(date, label string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, apperr.Validation("date must look like 2006-01-02")
	}

	label = strings.ToUpper(strings.TrimSpace(label))
	for _, layout := range labelLayouts {
		clock, err := time.Parse(layout, label)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, apperr.Validation("time must look like 02:30 PM")
}

// Reserve books a slot for a patient. Patients book for themselves;
// administrators must name the patient.
func (s *Service) Reserve(ctx context.Context, p session.Principal, choice SlotChoice) (*Appointment, error) {
	patientID, err := bookingPatient(p, choice)
	if err != nil {
		return nil, err
	}

	if choice.AppointmentID != nil {
		return s.reserveExisting(ctx, p, *choice.AppointmentID, patientID)
	}
	return s.reserveNew(ctx, p, choice, patientID)
}

func bookingPatient(p session.Principal, choice SlotChoice) (uuid.UUID, error) {
	if !p.Enabled {
		return uuid.Nil, apperr.Forbidden("your account is not enabled")
	}
	switch p.Role {
	case session.RolePatient:
		if choice.PatientID != nil && *choice.PatientID != p.UserID {
			return uuid.Nil, apperr.Forbidden("patients can only book for themselves")
		}
		return p.UserID, nil
	case session.RoleAdmin:
		if choice.PatientID == nil || *choice.PatientID == uuid.Nil {
			return uuid.Nil, apperr.Validation("select the patient the appointment is for")
		}
		return *choice.PatientID, nil
	}
	return uuid.Nil, apperr.Forbidden("specialists cannot book appointments")
}

func (s *Service) inHorizon(at time.Time) bool {
	from, until := schedule.Horizon(s.now(), s.cfg.TimeZone, s.cfg.HorizonDays)
	return !at.Before(from) && at.Before(until)
}

func (s *Service) reserveExisting(ctx context.Context, p session.Principal, id, patientID uuid.UUID) (*Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsOpen() {
		return nil, apperr.Conflict("slot no longer available, please refresh and pick another")
	}
	if !a.Enabled {
		return nil, apperr.Validation("this slot is not offered")
	}
	ws, err := s.schedules.Require(ctx, a.SpecialistID, a.Specialty)
	if err != nil {
		return nil, err
	}
	if !ws.Covers(a.DateTime.In(s.cfg.TimeZone), s.cfg.SlotMinutes) {
		return nil, apperr.Validation("the specialist does not attend at that time")
	}
	if !s.inHorizon(a.DateTime) {
		return nil, apperr.Validation("this slot is outside the booking window")
	}

	var reserved *Appointment
	err = s.withSlotLock(ctx, a.SpecialistID, a.DateTime, func(lockCtx context.Context) error {
		var err error
		reserved, err = s.repo.Reserve(lockCtx, a.ID, patientID)
		return err
	})
	if err != nil {
		return nil, s.bookingError(err)
	}

	s.reserved(ctx, p, reserved)
	return reserved, nil
}

func (s *Service) reserveNew(ctx context.Context, p session.Principal, choice SlotChoice, patientID uuid.UUID) (*Appointment, error) {
	if choice.SpecialistID == uuid.Nil {
		return nil, apperr.Validation("select a specialist")
	}
	specialty := strings.TrimSpace(choice.Specialty)
	if specialty == "" {
		return nil, apperr.Validation("select a specialty")
	}
	at, err := SlotTime(choice.Date, choice.Label, s.cfg.TimeZone)
	if err != nil {
		return nil, err
	}

	ws, err := s.schedules.Require(ctx, choice.SpecialistID, specialty)
	if err != nil {
		return nil, err
	}
	if !ws.Covers(at, s.cfg.SlotMinutes) {
		return nil, apperr.Validation("the specialist does not attend at that time")
	}
	if !s.inHorizon(at) {
		return nil, apperr.Validation("appointments can be booked from tomorrow up to %d days ahead", s.cfg.HorizonDays)
	}

	var reserved *Appointment
	err = s.withSlotLock(ctx, choice.SpecialistID, at, func(lockCtx context.Context) error {
		existing, err := s.repo.GetAt(lockCtx, choice.SpecialistID, at)
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			pending := StatusPending
			reserved, err = s.repo.Create(lockCtx, Appointment{
				ID:           uuid.New(),
				SpecialistID: choice.SpecialistID,
				Specialty:    specialty,
				DateTime:     at,
				PatientID:    &patientID,
				Status:       &pending,
				Enabled:      true,
			})
			return err
		case err != nil:
			return err
		}

		// A placeholder row already exists at this instant.
		if !existing.IsOpen() || existing.Specialty != specialty {
			return ErrSlotTaken
		}
		if !existing.Enabled {
			return apperr.Validation("this slot is not offered")
		}
		reserved, err = s.repo.Reserve(lockCtx, existing.ID, patientID)
		return err
	})
	if err != nil {
		return nil, s.bookingError(err)
	}

	s.reserved(ctx, p, reserved)
	return reserved, nil
}

func (s *Service) withSlotLock(ctx context.Context, specialistID uuid.UUID, at time.Time, fn func(ctx context.Context) error) error {
	return s.locker.WithSlotLock(ctx, redisclient.SlotKey(specialistID, at), fn)
}

func (s *Service) bookingError(err error) error {
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return apperr.Conflict("slot is being booked by someone else, please refresh and retry")
	case errors.Is(err, ErrSlotTaken):
		return apperr.Conflict("slot no longer available, please refresh and pick another")
	case errors.Is(err, ErrAppointmentNotFound):
		return apperr.Conflict("slot was removed, please refresh and pick another")
	}
	return apperr.Wrap("reserve appointment", err)
}

func (s *Service) reserved(ctx context.Context, p session.Principal, a *Appointment) {
	s.logEvent(ctx, &a.ID, events.AppointmentReserved, map[string]any{
		"specialist_id": a.SpecialistID.String(),
		"specialty":     a.Specialty,
		"patient_id":    a.PatientID.String(),
		"date_time":     a.DateTime,
		"booked_by":     p.UserID.String(),
	})
	s.log.Debug("slot reserved",
		zap.String("appointment_id", a.ID.String()),
		zap.Time("date_time", a.DateTime),
	)
}
