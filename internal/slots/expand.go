// Package slots turns weekly schedules into dated, bookable slots.
package slots

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type Status string

const (
	Free     Status = "free"
	Occupied Status = "occupied"
)

const labelLayout = "03:04 PM"

type Slot struct {
	SpecialistID  uuid.UUID  `json:"specialist_id"`
	Specialty     string     `json:"specialty"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	Date          string     `json:"date"`
	Label         string     `json:"label"`
	Status        Status     `json:"status"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

// Expand lists the slots of ws on every matching day from `from` (a local
// midnight) through `days` days after it, inclusive, stepping by step
// inside the schedule's hours. Rows in existing mark their instant: a row
// of this specialty is occupied once it has a patient or is withdrawn; a
// row of another specialty always is. The result is ordered by time and
// depends only on its inputs.
func Expand(ws schedule.WeeklySchedule, existing []appointment.Appointment, from time.Time, days int, step time.Duration) []Slot {
	if step <= 0 || ws.Hours.End <= ws.Hours.Start {
		return []Slot{}
	}

	byInstant := make(map[int64]appointment.Appointment, len(existing))
	for _, a := range existing {
		if a.SpecialistID == ws.SpecialistID {
			byInstant[a.DateTime.Unix()] = a
		}
	}

	loc := from.Location()
	out := []Slot{}
	for d := 0; d <= days; d++ {
		day := time.Date(from.Year(), from.Month(), from.Day()+d, 0, 0, 0, 0, loc)
		if !ws.HasWeekday(schedule.WeekdayOf(day)) {
			continue
		}

		first := time.Date(day.Year(), day.Month(), day.Day(), ws.Hours.Start, 0, 0, 0, loc)
		last := time.Date(day.Year(), day.Month(), day.Day(), ws.Hours.End, 0, 0, 0, loc)
		for start := first; start.Before(last); start = start.Add(step) {
			slot := Slot{
				SpecialistID: ws.SpecialistID,
				Specialty:    ws.Specialty,
				Start:        start,
				End:          start.Add(step),
				Date:         start.Format("2006-01-02"),
				Label:        start.Format(labelLayout),
				Status:       Free,
			}
			if a, ok := byInstant[start.Unix()]; ok {
				if a.Specialty == ws.Specialty {
					id := a.ID
					slot.AppointmentID = &id
				}
				if a.Specialty != ws.Specialty || !a.IsOpen() || !a.Enabled {
					slot.Status = Occupied
				}
			}
			out = append(out, slot)
		}
	}
	return out
}
