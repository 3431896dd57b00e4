package schedule

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Weekday numbers days Monday-first: 1=Mon .. 7=Sun.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf maps t's calendar day to a Weekday, Sunday being 7.
func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// Hours is a contiguous range of whole hours, end exclusive.
type Hours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type WeeklySchedule struct {
	ID           uuid.UUID `json:"id"`
	SpecialistID uuid.UUID `json:"specialist_id"`
	Specialty    string    `json:"specialty"`
	Weekdays     []Weekday `json:"weekdays"`
	Hours        Hours     `json:"hours"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (w WeeklySchedule) HasWeekday(d Weekday) bool {
	return slices.Contains(w.Weekdays, d)
}

// Covers reports whether t, read in its own location, starts a slot of
// slotMinutes inside this schedule.
func (w WeeklySchedule) Covers(t time.Time, slotMinutes int) bool {
	if !w.HasWeekday(WeekdayOf(t)) {
		return false
	}
	if t.Second() != 0 || t.Nanosecond() != 0 || slotMinutes <= 0 || t.Minute()%slotMinutes != 0 {
		return false
	}
	return t.Hour() >= w.Hours.Start && t.Hour() < w.Hours.End
}

// Input is the mutable part of a schedule as submitted by a specialist.
type Input struct {
	Weekdays []Weekday `json:"weekdays" validate:"required,min=1,max=5,unique,dive,weekday,max=5"`
	Start    int       `json:"start" validate:"min=0,max=23"`
	End      int       `json:"end" validate:"min=0,max=23,gtfield=Start"`
}

// Patch carries optional changes for Update.
type Patch struct {
	Weekdays []Weekday `json:"weekdays,omitempty"`
	Start    *int      `json:"start,omitempty"`
	End      *int      `json:"end,omitempty"`
}

func (p Patch) apply(w WeeklySchedule) Input {
	in := Input{Weekdays: w.Weekdays, Start: w.Hours.Start, End: w.Hours.End}
	if p.Weekdays != nil {
		in.Weekdays = p.Weekdays
	}
	if p.Start != nil {
		in.Start = *p.Start
	}
	if p.End != nil {
		in.End = *p.End
	}
	return in
}

func normalizeWeekdays(days []Weekday) []Weekday {
	out := slices.Clone(days)
	slices.Sort(out)
	return out
}
