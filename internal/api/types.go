package api

import (
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type ScheduleRequest struct {
	SpecialistID *uuid.UUID `json:"specialist_id,omitempty"`
	Specialty    string     `json:"specialty" validate:"trimmin=1"`
	schedule.Input
}

type ReserveRequest struct {
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	SpecialistID  uuid.UUID  `json:"specialist_id"`
	Specialty     string     `json:"specialty"`
	Date          string     `json:"date"`
	Label         string     `json:"label"`
	PatientID     *uuid.UUID `json:"patient_id,omitempty"`
}

func (r ReserveRequest) choice() appointment.SlotChoice {
	return appointment.SlotChoice{
		AppointmentID: r.AppointmentID,
		SpecialistID:  r.SpecialistID,
		Specialty:     r.Specialty,
		Date:          r.Date,
		Label:         r.Label,
		PatientID:     r.PatientID,
	}
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type CompleteRequest struct {
	Notes  string             `json:"notes"`
	Record *medrecord.Payload `json:"record,omitempty"`
}

type CompleteResponse struct {
	Appointment *appointment.Appointment `json:"appointment"`
	Record      *medrecord.Entry         `json:"record,omitempty"`
}

type RateRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type BulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// SeenPatient is a patient a specialist attended, with their latest
// appointments together.
type SeenPatient struct {
	PatientID uuid.UUID                 `json:"patient_id"`
	Recent    []appointment.Appointment `json:"recent"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
