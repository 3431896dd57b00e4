package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/events"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/session"
	"github.com/hackgods/clinic-scheduling/internal/store/memory"
)

type fixture struct {
	store        *memory.Store
	schedules    *schedule.Service
	appointments *appointment.Service
	slots        *Service
	specialist   session.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Config{TimeZone: buenosAires, HorizonDays: 15, SlotMinutes: 30}
	log := zap.NewNop()
	clock := func() time.Time { return time.Date(2026, 10, 15, 10, 0, 0, 0, buenosAires) }

	store := memory.NewStore()
	schedules := schedule.NewService(store.Schedules, log)
	records := medrecord.NewService(store.Records, log)
	appts := appointment.NewService(store.Appointments, schedules, records, redisclient.NewLocalLocker(), events.Nop{}, cfg, log)
	appts.SetClock(clock)

	svc := NewService(schedules, store.Appointments, appts, cfg, log)
	svc.SetClock(clock)

	return &fixture{
		store:        store,
		schedules:    schedules,
		appointments: appts,
		slots:        svc,
		specialist:   session.Principal{UserID: uuid.New(), Role: session.RoleSpecialist, Enabled: true},
	}
}

func (f *fixture) configure(t *testing.T, days []schedule.Weekday, start, end int) {
	t.Helper()
	_, err := f.schedules.Create(context.Background(), f.specialist, f.specialist.UserID, "Cardiología",
		schedule.Input{Weekdays: days, Start: start, End: end})
	require.NoError(t, err)
}

func TestGenerateWithoutScheduleIsConfigurationError(t *testing.T) {
	f := newFixture(t)

	_, err := f.slots.Generate(context.Background(), f.specialist.UserID, "Cardiología")
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
	assert.Contains(t, apperr.Message(err), "no availability configured")
}

func TestGenerateMarksReservedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configure(t, []schedule.Weekday{schedule.Tuesday}, 14, 15)

	patient := session.Principal{UserID: uuid.New(), Role: session.RolePatient, Enabled: true}
	booked, err := f.appointments.Reserve(ctx, patient, appointment.SlotChoice{
		SpecialistID: f.specialist.UserID,
		Specialty:    "Cardiología",
		Date:         "2026-10-20",
		Label:        "02:00 PM",
	})
	require.NoError(t, err)

	got, err := f.slots.Generate(ctx, f.specialist.UserID, "Cardiología")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, Occupied, got[0].Status)
	assert.Equal(t, booked.ID, *got[0].AppointmentID)
	for _, s := range got[1:] {
		assert.Equal(t, Free, s.Status)
	}

	again, err := f.slots.Generate(ctx, f.specialist.UserID, "Cardiología")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestAvailableDaysSkipsFullDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configure(t, []schedule.Weekday{schedule.Tuesday}, 14, 15)

	for _, label := range []string{"02:00 PM", "02:30 PM"} {
		p := session.Principal{UserID: uuid.New(), Role: session.RolePatient, Enabled: true}
		_, err := f.appointments.Reserve(ctx, p, appointment.SlotChoice{
			SpecialistID: f.specialist.UserID, Specialty: "Cardiología", Date: "2026-10-20", Label: label,
		})
		require.NoError(t, err)
	}

	days, err := f.slots.AvailableDays(ctx, f.specialist.UserID, "Cardiología")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2026-10-27", days[0].Date)
	assert.Equal(t, 2, days[0].Weekday)
	assert.Len(t, days[0].Slots, 2)
}

func TestMaterializeOpensFreeSlotsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.configure(t, []schedule.Weekday{schedule.Tuesday}, 14, 15)

	n, err := f.slots.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = f.slots.Materialize(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.slots.Generate(ctx, f.specialist.UserID, "Cardiología")
	require.NoError(t, err)
	for _, s := range got {
		assert.Equal(t, Free, s.Status)
		assert.NotNil(t, s.AppointmentID)
	}

	available, err := f.appointments.ListAvailable(ctx, "Cardiología", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, available, 4)
}

func TestGenerateStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.configure(t, []schedule.Weekday{schedule.Tuesday}, 14, 15)
	f.store.Appointments.Fail(errors.New("connection reset"))

	_, err := f.slots.Generate(context.Background(), f.specialist.UserID, "Cardiología")
	assert.True(t, errors.Is(err, apperr.ErrStore))
	assert.NotContains(t, apperr.Message(err), "connection reset")
}
