package medrecord

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrEntryNotFound  = errors.New("medical record not found")
	ErrDuplicateEntry = errors.New("appointment already has a medical record")
)

// Repository lists entries newest first.
type Repository interface {
	Create(ctx context.Context, e Entry) (*Entry, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Entry, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Entry, error)
	ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]Entry, error)
	ListAll(ctx context.Context) ([]Entry, error)
	PatientsSeenBy(ctx context.Context, specialistID uuid.UUID) ([]uuid.UUID, error)
}
