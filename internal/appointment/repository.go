package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrSlotTaken means the instant already has a patient or a row.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrStateChanged means a conditional write matched no row.
	ErrStateChanged = errors.New("appointment state changed")
)

// Repository contains all DB interactions needed by the service.
// List methods order by date_time ascending.
type Repository interface {
	ListAll(ctx context.Context) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]Appointment, error)
	// ListOpenSlots returns every row of the specialist, reserved or not.
	ListOpenSlots(ctx context.Context, specialistID uuid.UUID) ([]Appointment, error)
	// ListRange returns the specialist's rows of any specialty in [from, to).
	ListRange(ctx context.Context, specialistID uuid.UUID, from, to time.Time) ([]Appointment, error)
	// ListAvailable returns enabled, unreserved rows of a specialty in [from, to).
	ListAvailable(ctx context.Context, specialty string, from, to time.Time) ([]Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAt(ctx context.Context, specialistID uuid.UUID, at time.Time) (*Appointment, error)

	// Create returns ErrSlotTaken when the specialist already has a row at that instant.
	Create(ctx context.Context, a Appointment) (*Appointment, error)
	// Update patches an open row. A reserved row returns ErrSlotTaken.
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*Appointment, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)

	// Reserve sets the patient and pending status only while the row is open.
	Reserve(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error)
	// Transition moves a reserved row whose status is in from. A null
	// status matches StatusPending.
	Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, comment string) (*Appointment, error)
	// Rate stores rating and review once on a completed row.
	Rate(ctx context.Context, id uuid.UUID, rating int, review string) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
