package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

const (
	MinRating = 1
	MaxRating = 6
)

// Appointment is a bookable instant of a specialist. A row without a
// patient is an open slot; a row without a status reads as pending.
type Appointment struct {
	ID           uuid.UUID  `json:"id"`
	SpecialistID uuid.UUID  `json:"specialist_id"`
	Specialty    string     `json:"specialty"`
	DateTime     time.Time  `json:"date_time"`
	PatientID    *uuid.UUID `json:"patient_id,omitempty"`
	Status       *Status    `json:"status,omitempty"`
	Comment      string     `json:"comment,omitempty"`
	Rating       *int       `json:"rating,omitempty"`
	Review       string     `json:"review,omitempty"`
	Enabled      bool       `json:"enabled"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (a Appointment) CurrentStatus() Status {
	if a.Status == nil {
		return StatusPending
	}
	return *a.Status
}

func (a Appointment) IsOpen() bool {
	return a.PatientID == nil || *a.PatientID == uuid.Nil
}

func (a Appointment) BelongsToPatient(id uuid.UUID) bool {
	return !a.IsOpen() && *a.PatientID == id
}

// Patch carries the administrative changes Update may apply.
type Patch struct {
	Enabled *bool `json:"enabled,omitempty"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
