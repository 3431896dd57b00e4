package appointment

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/events"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/session"
	"github.com/hackgods/clinic-scheduling/internal/validation"
)

const (
	MinReasonLength = 10
	MinNotesLength  = 20
	MinReviewLength = 15
)

// Statuses each actor may move an appointment out of.
var (
	acceptFrom           = []Status{StatusPending}
	rejectFrom           = []Status{StatusPending}
	completeFrom         = []Status{StatusAccepted}
	patientCancelFrom    = []Status{StatusPending, StatusAccepted}
	specialistCancelFrom = []Status{StatusPending}
	adminCancelFrom      = []Status{StatusPending}
)

var verbs = map[Status]string{
	StatusAccepted:  "accept",
	StatusRejected:  "reject",
	StatusCancelled: "cancel",
	StatusCompleted: "complete",
}

func (s *Service) Accept(ctx context.Context, p session.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.loadForSpecialist(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, p, a, acceptFrom, StatusAccepted, "", events.AppointmentAccepted)
}

func (s *Service) Reject(ctx context.Context, p session.Principal, id uuid.UUID, reason string) (*Appointment, error) {
	if err := minText("reason", reason, MinReasonLength); err != nil {
		return nil, err
	}
	a, err := s.loadForSpecialist(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, p, a, rejectFrom, StatusRejected, reason, events.AppointmentRejected)
}

// Cancel applies the guard of the caller's role. The slot stays taken.
func (s *Service) Cancel(ctx context.Context, p session.Principal, id uuid.UUID, reason string) (*Appointment, error) {
	if err := minText("reason", reason, MinReasonLength); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var from []Status
	switch {
	case p.IsPatient():
		if !a.BelongsToPatient(p.UserID) {
			return nil, apperr.Forbidden("you can only cancel your own appointments")
		}
		from = patientCancelFrom
	case p.IsSpecialist():
		if a.SpecialistID != p.UserID {
			return nil, apperr.Forbidden("you can only cancel your own appointments")
		}
		from = specialistCancelFrom
	case p.IsAdmin():
		from = adminCancelFrom
	default:
		return nil, apperr.Forbidden("unknown role")
	}

	return s.transition(ctx, p, a, from, StatusCancelled, reason, events.AppointmentCancelled)
}

// Complete closes an accepted appointment with the specialist's notes and,
// when given, writes its medical record. The record is validated before
// the status changes.
func (s *Service) Complete(ctx context.Context, p session.Principal, id uuid.UUID, notes string, record *medrecord.Payload) (*Appointment, *medrecord.Entry, error) {
	if err := minText("notes", notes, MinNotesLength); err != nil {
		return nil, nil, err
	}
	if record != nil {
		if err := s.records.Validate(*record); err != nil {
			return nil, nil, err
		}
	}
	a, err := s.loadForSpecialist(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}

	completed, err := s.transition(ctx, p, a, completeFrom, StatusCompleted, notes, events.AppointmentCompleted)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return completed, nil, nil
	}

	entry, err := s.linkRecord(ctx, completed, *record)
	if err != nil {
		return completed, nil, err
	}
	return completed, entry, nil
}

// AddRecord attaches the medical record to an appointment completed
// without one.
func (s *Service) AddRecord(ctx context.Context, p session.Principal, id uuid.UUID, record medrecord.Payload) (*medrecord.Entry, error) {
	a, err := s.loadForSpecialist(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.linkRecord(ctx, a, record)
}

func (s *Service) linkRecord(ctx context.Context, a *Appointment, record medrecord.Payload) (*medrecord.Entry, error) {
	if a.IsOpen() {
		return nil, apperr.Validation("this slot has not been reserved")
	}
	entry, err := s.records.Link(ctx, medrecord.Target{
		AppointmentID: a.ID,
		PatientID:     *a.PatientID,
		SpecialistID:  a.SpecialistID,
		Completed:     a.CurrentStatus() == StatusCompleted,
	}, record)
	if err != nil {
		s.log.Error("medical record not linked",
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return entry, nil
}

// Rate stores the patient's rating and review of a completed appointment.
// It is not a status change and may happen once.
func (s *Service) Rate(ctx context.Context, p session.Principal, id uuid.UUID, rating int, review string) (*Appointment, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, apperr.Validation("rating must be between %d and %d", MinRating, MaxRating)
	}
	if err := minText("review", review, MinReviewLength); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPatient() || !a.BelongsToPatient(p.UserID) {
		return nil, apperr.Forbidden("only the patient can rate this appointment")
	}
	if a.CurrentStatus() != StatusCompleted {
		return nil, apperr.Validation("only completed appointments can be rated")
	}
	if a.Rating != nil {
		return nil, apperr.Validation("this appointment was already rated")
	}

	rated, err := s.repo.Rate(ctx, a.ID, rating, strings.TrimSpace(review))
	if errors.Is(err, ErrStateChanged) {
		return nil, apperr.Conflict("the appointment changed, please refresh and retry")
	}
	if err != nil {
		return nil, apperr.Store("rate appointment", err)
	}

	s.logEvent(ctx, &rated.ID, events.AppointmentRated, map[string]any{
		"rating": rating,
	})
	return rated, nil
}

func (s *Service) loadForSpecialist(ctx context.Context, p session.Principal, id uuid.UUID) (*Appointment, error) {
	if !p.IsSpecialist() {
		return nil, apperr.Forbidden("only the specialist can do this")
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.SpecialistID != p.UserID {
		return nil, apperr.Forbidden("this appointment belongs to another specialist")
	}
	return a, nil
}

// transition checks the guard locally, then writes conditionally so a row
// changed by someone else in between surfaces as a conflict.
func (s *Service) transition(ctx context.Context, p session.Principal, a *Appointment, from []Status, to Status, comment, event string) (*Appointment, error) {
	if a.IsOpen() {
		return nil, apperr.Validation("this slot has not been reserved")
	}
	current := a.CurrentStatus()
	if !slices.Contains(from, current) {
		return nil, apperr.Validation("cannot %s an appointment that is %s", verbs[to], current)
	}

	comment = strings.TrimSpace(comment)
	updated, err := s.repo.Transition(ctx, a.ID, from, to, comment)
	if errors.Is(err, ErrStateChanged) {
		return nil, apperr.Conflict("the appointment changed, please refresh and retry")
	}
	if err != nil {
		return nil, apperr.Store(verbs[to]+" appointment", err)
	}

	s.logEvent(ctx, &updated.ID, event, map[string]any{
		"from": string(current),
		"to":   string(to),
		"by":   p.UserID.String(),
		"role": string(p.Role),
	})
	return updated, nil
}

func minText(field, value string, n int) error {
	if validation.TrimmedLen(value) < n {
		return apperr.Validation("%s must have at least %d characters", field, n)
	}
	return nil
}
