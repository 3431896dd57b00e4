package appointment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/session"
)

func TestSlotTime(t *testing.T) {
	tests := []struct {
		date, label string
		want        time.Time
		wantErr     bool
	}{
		{"2026-10-20", "02:00 PM", time.Date(2026, 10, 20, 14, 0, 0, 0, buenosAires), false},
		{"2026-10-20", "2:30 pm", time.Date(2026, 10, 20, 14, 30, 0, 0, buenosAires), false},
		{"2026-10-20", "09:30AM", time.Date(2026, 10, 20, 9, 30, 0, 0, buenosAires), false},
		{"2026-10-20", "12:00 AM", time.Date(2026, 10, 20, 0, 0, 0, 0, buenosAires), false},
		{"2026-10-20", "16:30", time.Date(2026, 10, 20, 16, 30, 0, 0, buenosAires), false},
		{"20/10/2026", "02:00 PM", time.Time{}, true},
		{"2026-10-20", "half past two", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.date+" "+tt.label, func(t *testing.T) {
			got, err := appointment.SlotTime(tt.date, tt.label, buenosAires)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperr.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestConcurrentReserveBooksOnce(t *testing.T) {
	f := newFixture(t)
	const bookers = 8

	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		mu       sync.Mutex
		won      int
		conflict int
	)
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := session.Principal{UserID: uuid.New(), Role: session.RolePatient, Enabled: true}
			<-start
			_, err := f.svc.Reserve(context.Background(), p, f.choice("2026-10-20", "02:00 PM"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, apperr.ErrConflict):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, bookers-1, conflict)

	all, err := f.svc.List(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSecondBookerOfSameSlotConflicts(t *testing.T) {
	f := newFixture(t)
	f.reserve(t)

	other := session.Principal{UserID: uuid.New(), Role: session.RolePatient, Enabled: true}
	_, err := f.svc.Reserve(context.Background(), other, f.choice("2026-10-20", "02:00 PM"))
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, "slot no longer available, please refresh and pick another", apperr.Message(err))
}

func TestWhoMayBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.specialist, f.choice("2026-10-20", "02:00 PM"))
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	disabled := f.patient
	disabled.Enabled = false
	_, err = f.svc.Reserve(ctx, disabled, f.choice("2026-10-20", "02:00 PM"))
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	someoneElse := uuid.New()
	c := f.choice("2026-10-20", "02:00 PM")
	c.PatientID = &someoneElse
	_, err = f.svc.Reserve(ctx, f.patient, c)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = f.svc.Reserve(ctx, f.admin, f.choice("2026-10-20", "02:00 PM"))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, "select the patient the appointment is for", apperr.Message(err))

	c.PatientID = &f.patient.UserID
	booked, err := f.svc.Reserve(ctx, f.admin, c)
	require.NoError(t, err)
	assert.Equal(t, f.patient.UserID, *booked.PatientID)
}

func TestReserveOutsideScheduleOrHorizon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		choice appointment.SlotChoice
		want   error
	}{
		{"wrong weekday", f.choice("2026-10-21", "02:00 PM"), apperr.ErrValidation},
		{"after hours", f.choice("2026-10-20", "03:00 PM"), apperr.ErrValidation},
		{"off the grid", f.choice("2026-10-20", "02:15 PM"), apperr.ErrValidation},
		{"past tuesday", f.choice("2026-10-13", "02:00 PM"), apperr.ErrValidation},
		{"beyond the horizon", f.choice("2026-11-03", "02:00 PM"), apperr.ErrValidation},
		{"bad date", f.choice("next tuesday", "02:00 PM"), apperr.ErrValidation},
		{"unknown specialty", appointment.SlotChoice{
			SpecialistID: f.specialist.UserID, Specialty: "Dermatología", Date: "2026-10-20", Label: "02:00 PM",
		}, apperr.ErrConfiguration},
		{"no specialist", appointment.SlotChoice{Specialty: specialty, Date: "2026-10-20", Label: "02:00 PM"}, apperr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Reserve(ctx, f.patient, tt.choice)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	// the following Tuesday is still inside the window
	_, err := f.svc.Reserve(ctx, f.patient, f.choice("2026-10-27", "02:30 PM"))
	require.NoError(t, err)
}

func TestReserveOpenRowByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.slots.Materialize(ctx)
	require.NoError(t, err)
	open, err := f.svc.ListAvailable(ctx, specialty, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, open, 4)

	id := open[0].ID
	booked, err := f.svc.Reserve(ctx, f.patient, appointment.SlotChoice{AppointmentID: &id})
	require.NoError(t, err)
	assert.Equal(t, id, booked.ID)
	assert.Equal(t, appointment.StatusPending, booked.CurrentStatus())

	other := session.Principal{UserID: uuid.New(), Role: session.RolePatient, Enabled: true}
	_, err = f.svc.Reserve(ctx, other, appointment.SlotChoice{AppointmentID: &id})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	// picking the same open row by its time lands on the placeholder
	second := open[1]
	byTime, err := f.svc.Reserve(ctx, other, f.choice(second.DateTime.In(buenosAires).Format("2006-01-02"), second.DateTime.In(buenosAires).Format("03:04 PM")))
	require.NoError(t, err)
	assert.Equal(t, second.ID, byTime.ID)

	missing := uuid.New()
	_, err = f.svc.Reserve(ctx, other, appointment.SlotChoice{AppointmentID: &missing})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestReserveOpenRowFollowsSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.slots.Materialize(ctx)
	require.NoError(t, err)
	open, err := f.svc.ListAvailable(ctx, specialty, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, open, 4)

	ws, err := f.schedules.Require(ctx, f.specialist.UserID, specialty)
	require.NoError(t, err)

	// Tuesdays now start an hour later, the 14:00 rows are no longer offered
	start, end := 15, 16
	_, err = f.schedules.Update(ctx, f.specialist, ws.ID, schedule.Patch{Start: &start, End: &end})
	require.NoError(t, err)

	id := open[0].ID
	_, err = f.svc.Reserve(ctx, f.patient, appointment.SlotChoice{AppointmentID: &id})
	assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)

	require.NoError(t, f.schedules.Delete(ctx, f.specialist, ws.ID))

	_, err = f.slots.Generate(ctx, f.specialist.UserID, specialty)
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))

	_, err = f.svc.Reserve(ctx, f.patient, appointment.SlotChoice{AppointmentID: &id})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration), "got %v", err)

	stored, err := f.store.Appointments.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.IsOpen())
}

func TestReserveWithdrawnRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.slots.Materialize(ctx)
	require.NoError(t, err)
	open, err := f.svc.ListAvailable(ctx, specialty, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotEmpty(t, open)

	off := false
	_, err = f.svc.Update(ctx, f.admin, open[0].ID, appointment.Patch{Enabled: &off})
	require.NoError(t, err)

	id := open[0].ID
	_, err = f.svc.Reserve(ctx, f.patient, appointment.SlotChoice{AppointmentID: &id})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	available, err := f.svc.ListAvailable(ctx, specialty, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, available, len(open)-1)
}

func TestReserveStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Appointments.Fail(errors.New("connection reset by peer"))

	_, err := f.svc.Reserve(context.Background(), f.patient, f.choice("2026-10-20", "02:00 PM"))
	assert.True(t, errors.Is(err, apperr.ErrStore))
	assert.NotContains(t, apperr.Message(err), "connection reset")
}
