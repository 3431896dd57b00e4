package slots

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

var buenosAires, _ = time.LoadLocation("America/Argentina/Buenos_Aires")

func tomorrow() time.Time {
	// Friday 16 Oct 2026
	return time.Date(2026, 10, 16, 0, 0, 0, 0, buenosAires)
}

func weekly(days []schedule.Weekday, start, end int) schedule.WeeklySchedule {
	return schedule.WeeklySchedule{
		ID:           uuid.New(),
		SpecialistID: uuid.New(),
		Specialty:    "Cardiología",
		Weekdays:     days,
		Hours:        schedule.Hours{Start: start, End: end},
	}
}

func TestExpandMondayWednesdayMornings(t *testing.T) {
	ws := weekly([]schedule.Weekday{schedule.Monday, schedule.Wednesday}, 9, 11)

	got := Expand(ws, nil, tomorrow(), 15, 30*time.Minute)

	perDay := map[string][]string{}
	for _, s := range got {
		wd := schedule.WeekdayOf(s.Start)
		assert.Contains(t, []schedule.Weekday{schedule.Monday, schedule.Wednesday}, wd)
		assert.Equal(t, Free, s.Status)
		assert.Nil(t, s.AppointmentID)
		assert.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
		perDay[s.Date] = append(perDay[s.Date], s.Label)
	}

	require.Len(t, perDay, 4)
	for _, date := range []string{"2026-10-19", "2026-10-21", "2026-10-26", "2026-10-28"} {
		assert.Equal(t, []string{"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM"}, perDay[date], date)
	}
}

func TestExpandHorizonIncludesLastDayAndExcludesToday(t *testing.T) {
	// Thursday and Saturday: today (15th) must be skipped, the 31st kept.
	ws := weekly([]schedule.Weekday{schedule.Thursday, schedule.Saturday}, 14, 15)

	got := Expand(ws, nil, tomorrow(), 15, 30*time.Minute)

	var dates []string
	for _, s := range got {
		if len(dates) == 0 || dates[len(dates)-1] != s.Date {
			dates = append(dates, s.Date)
		}
	}
	assert.Equal(t, []string{"2026-10-17", "2026-10-22", "2026-10-24", "2026-10-29", "2026-10-31"}, dates)
}

func TestExpandSundayIsSeven(t *testing.T) {
	ws := weekly([]schedule.Weekday{schedule.Sunday}, 10, 11)

	got := Expand(ws, nil, tomorrow(), 15, 30*time.Minute)

	require.Len(t, got, 4)
	assert.Equal(t, "2026-10-18", got[0].Date)
	assert.Equal(t, time.Sunday, got[0].Start.Weekday())
}

func TestExpandMarksExistingRows(t *testing.T) {
	ws := weekly([]schedule.Weekday{schedule.Tuesday}, 14, 15)
	patient := uuid.New()
	pending := appointment.StatusPending

	booked := appointment.Appointment{
		ID: uuid.New(), SpecialistID: ws.SpecialistID, Specialty: ws.Specialty,
		DateTime: time.Date(2026, 10, 20, 14, 0, 0, 0, buenosAires), PatientID: &patient, Status: &pending, Enabled: true,
	}
	placeholder := appointment.Appointment{
		ID: uuid.New(), SpecialistID: ws.SpecialistID, Specialty: ws.Specialty,
		DateTime: time.Date(2026, 10, 20, 14, 30, 0, 0, buenosAires), Enabled: true,
	}
	otherSpecialty := appointment.Appointment{
		ID: uuid.New(), SpecialistID: ws.SpecialistID, Specialty: "Clínica",
		DateTime: time.Date(2026, 10, 27, 14, 0, 0, 0, buenosAires), Enabled: true,
	}
	otherSpecialist := appointment.Appointment{
		ID: uuid.New(), SpecialistID: uuid.New(), Specialty: ws.Specialty,
		DateTime: time.Date(2026, 10, 27, 14, 30, 0, 0, buenosAires), PatientID: &patient, Enabled: true,
	}

	got := Expand(ws, []appointment.Appointment{booked, placeholder, otherSpecialty, otherSpecialist}, tomorrow(), 15, 30*time.Minute)
	require.Len(t, got, 4)

	assert.Equal(t, Occupied, got[0].Status)
	assert.Equal(t, booked.ID, *got[0].AppointmentID)

	assert.Equal(t, Free, got[1].Status)
	assert.Equal(t, placeholder.ID, *got[1].AppointmentID)

	assert.Equal(t, Occupied, got[2].Status)
	assert.Nil(t, got[2].AppointmentID)

	assert.Equal(t, Free, got[3].Status)
	assert.Nil(t, got[3].AppointmentID)
}

func TestExpandIsDeterministic(t *testing.T) {
	ws := weekly([]schedule.Weekday{schedule.Monday, schedule.Friday}, 8, 12)
	first := Expand(ws, nil, tomorrow(), 15, 30*time.Minute)
	second := Expand(ws, nil, tomorrow(), 15, 30*time.Minute)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Start.Before(first[i].Start))
	}
}

func TestExpandEmptyRange(t *testing.T) {
	ws := weekly([]schedule.Weekday{schedule.Monday}, 10, 10)
	assert.Empty(t, Expand(ws, nil, tomorrow(), 15, 30*time.Minute))
}
