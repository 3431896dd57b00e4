package medrecord

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxDynamicFields bounds the free-form findings a specialist may add.
const MaxDynamicFields = 3

type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindRange  FieldKind = "range"
	KindSwitch FieldKind = "switch"
)

type DynamicField struct {
	Key   string    `json:"key"`
	Value string    `json:"value"`
	Kind  FieldKind `json:"kind"`
}

// Vitals are free text as typed by the specialist ("1.75 m", "120/80").
type Vitals struct {
	Height        string `json:"height,omitempty"`
	Weight        string `json:"weight,omitempty"`
	Temperature   string `json:"temperature,omitempty"`
	BloodPressure string `json:"blood_pressure,omitempty"`
}

// Entry is immutable once written.
type Entry struct {
	ID            uuid.UUID      `json:"id"`
	AppointmentID uuid.UUID      `json:"appointment_id"`
	PatientID     uuid.UUID      `json:"patient_id"`
	SpecialistID  uuid.UUID      `json:"specialist_id"`
	Vitals        Vitals         `json:"vitals"`
	Fields        []DynamicField `json:"fields"`
	CreatedAt     time.Time      `json:"created_at"`
}

type FieldInput struct {
	Key   string    `json:"key" validate:"trimmin=1,max=60"`
	Value string    `json:"value" validate:"max=200"`
	Kind  FieldKind `json:"kind,omitempty" validate:"omitempty,oneof=text number range switch"`
}

// Payload is what a specialist submits when completing an appointment.
type Payload struct {
	Vitals Vitals       `json:"vitals"`
	Fields []FieldInput `json:"fields" validate:"max=3,dive"`
}

// Target identifies the completed appointment a record belongs to.
type Target struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	SpecialistID  uuid.UUID
	Completed     bool
}

// inferKind classifies a value the specialist did not tag: "si"/"no"
// toggles become switches, plain numbers become numbers.
func inferKind(value string) FieldKind {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "si", "sí", "no":
		return KindSwitch
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return KindNumber
	}
	return KindText
}

func (p Payload) fields() []DynamicField {
	out := make([]DynamicField, 0, len(p.Fields))
	for _, f := range p.Fields {
		kind := f.Kind
		if kind == "" {
			kind = inferKind(f.Value)
		}
		out = append(out, DynamicField{
			Key:   strings.TrimSpace(f.Key),
			Value: strings.TrimSpace(f.Value),
			Kind:  kind,
		})
	}
	return out
}

func (v Vitals) trimmed() Vitals {
	return Vitals{
		Height:        strings.TrimSpace(v.Height),
		Weight:        strings.TrimSpace(v.Weight),
		Temperature:   strings.TrimSpace(v.Temperature),
		BloodPressure: strings.TrimSpace(v.BloodPressure),
	}
}
