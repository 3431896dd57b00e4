package medrecord

import (
	"context"
	"errors"
	"slices"

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

// Validate checks a payload before the appointment it belongs to is
// completed, so a bad record never leaves a half-applied completion.
func (s *Service) Validate(p Payload) error {
	if len(p.Fields) > MaxDynamicFields {
		return apperr.Validation("at most %d additional fields can be recorded", MaxDynamicFields)
	}
	return validation.Struct(p)
}

// Link writes the record of a completed appointment.
func (s *Service) Link(ctx context.Context, t Target, p Payload) (*Entry, error) {
	if !t.Completed {
		return nil, apperr.Validation("medical records can only be added to completed appointments")
	}
	if err := s.Validate(p); err != nil {
		return nil, err
	}

	entry, err := s.repo.Create(ctx, Entry{
		ID:            uuid.New(),
		AppointmentID: t.AppointmentID,
		PatientID:     t.PatientID,
		SpecialistID:  t.SpecialistID,
		Vitals:        p.Vitals.trimmed(),
		Fields:        p.fields(),
	})
	if errors.Is(err, ErrDuplicateEntry) {
		return nil, apperr.Conflict("this appointment already has a medical record")
	}
	if err != nil {
		return nil, apperr.Store("save medical record", err)
	}

	s.log.Info("medical record linked",
		zap.String("record_id", entry.ID.String()),
		zap.String("appointment_id", t.AppointmentID.String()),
		zap.Int("fields", len(entry.Fields)),
	)
	return entry, nil
}

func (s *Service) ForAppointment(ctx context.Context, p session.Principal, appointmentID uuid.UUID) (*Entry, error) {
	e, err := s.repo.GetByAppointment(ctx, appointmentID)
	if errors.Is(err, ErrEntryNotFound) {
		return nil, apperr.NotFound("no medical record for this appointment")
	}
	if err != nil {
		return nil, apperr.Store("load medical record", err)
	}

	switch {
	case p.IsAdmin(), p.UserID == e.PatientID, p.UserID == e.SpecialistID:
		return e, nil
	}
	return nil, apperr.Forbidden("you cannot see this medical record")
}

// List returns the records visible to p, newest first. A nil patientID
// means "everything p may see".
func (s *Service) List(ctx context.Context, p session.Principal, patientID *uuid.UUID) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)

	switch p.Role {
	case session.RolePatient:
		if patientID != nil && *patientID != p.UserID {
			return nil, apperr.Forbidden("patients can only see their own medical history")
		}
		entries, err = s.repo.ListByPatient(ctx, p.UserID)

	case session.RoleSpecialist:
		if patientID == nil {
			entries, err = s.repo.ListBySpecialist(ctx, p.UserID)
			break
		}
		seen, serr := s.repo.PatientsSeenBy(ctx, p.UserID)
		if serr != nil {
			return nil, apperr.Store("load medical records", serr)
		}
		if !slices.Contains(seen, *patientID) {
			return nil, apperr.Forbidden("you have not attended this patient")
		}
		entries, err = s.repo.ListByPatient(ctx, *patientID)

	case session.RoleAdmin:
		if patientID == nil {
			entries, err = s.repo.ListAll(ctx)
		} else {
			entries, err = s.repo.ListByPatient(ctx, *patientID)
		}

	default:
		return nil, apperr.Forbidden("unknown role")
	}

	if err != nil {
		return nil, apperr.Store("load medical records", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// PatientsSeenBy lists the distinct patients a specialist wrote records for.
func (s *Service) PatientsSeenBy(ctx context.Context, p session.Principal, specialistID uuid.UUID) ([]uuid.UUID, error) {
	if !p.IsAdmin() && !(p.IsSpecialist() && p.UserID == specialistID) {
		return nil, apperr.Forbidden("only the specialist or an administrator can list attended patients")
	}
	ids, err := s.repo.PatientsSeenBy(ctx, specialistID)
	if err != nil {
		return nil, apperr.Store("load attended patients", err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}
