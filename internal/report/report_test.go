package report

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
	"github.com/hackgods/clinic-scheduling/internal/session"
)

var buenosAires, _ = time.LoadLocation("America/Argentina/Buenos_Aires")

type staticSource struct {
	list []appointment.Appointment
	err  error
}

func (s staticSource) ListAll(context.Context) ([]appointment.Appointment, error) {
	return s.list, s.err
}

func row(specialist uuid.UUID, specialty string, at time.Time, status *appointment.Status, reserved bool) appointment.Appointment {
	a := appointment.Appointment{ID: uuid.New(), SpecialistID: specialist, Specialty: specialty, DateTime: at, Status: status, Enabled: true}
	if reserved {
		p := uuid.New()
		a.PatientID = &p
	}
	return a
}

func ptr(s appointment.Status) *appointment.Status { return &s }

func fixtures() (uuid.UUID, uuid.UUID, []appointment.Appointment) {
	cardio, clinic := uuid.MustParse("11111111-1111-1111-1111-111111111111"), uuid.MustParse("22222222-2222-2222-2222-222222222222")
	day := func(d, h int) time.Time { return time.Date(2026, 10, d, h, 0, 0, 0, buenosAires) }

	return cardio, clinic, []appointment.Appointment{
		row(cardio, "Cardiología", day(20, 14), ptr(appointment.StatusCompleted), true),
		row(cardio, "Cardiología", day(20, 15), ptr(appointment.StatusCancelled), true),
		row(cardio, "Cardiología", day(27, 14), nil, true),
		row(clinic, "Clínica", day(21, 9), ptr(appointment.StatusCompleted), true),
		// 23:30 local is still the 21st even though it is the 22nd in UTC
		row(clinic, "Clínica", time.Date(2026, 10, 21, 23, 30, 0, 0, buenosAires), ptr(appointment.StatusAccepted), true),
		row(clinic, "Clínica", day(22, 9), nil, false),
	}
}

func TestSummarize(t *testing.T) {
	cardio, clinic, list := fixtures()

	sum := Summarize(list, buenosAires, time.Time{}, time.Time{})

	assert.Equal(t, 5, sum.Total)
	assert.Nil(t, sum.From)
	assert.Equal(t, []Count{{"Cardiología", 3}, {"Clínica", 2}}, sum.BySpecialty)
	assert.Equal(t, []Count{{"2026-10-20", 2}, {"2026-10-21", 2}, {"2026-10-27", 1}}, sum.ByDay)
	assert.Equal(t, []Count{{cardio.String(), 3}, {clinic.String(), 2}}, sum.RequestedBySpecialist)
	assert.Equal(t, []Count{{cardio.String(), 1}, {clinic.String(), 1}}, sum.CompletedBySpecialist)
}

func TestSummarizeRange(t *testing.T) {
	_, clinic, list := fixtures()
	from := time.Date(2026, 10, 21, 0, 0, 0, 0, buenosAires)
	to := time.Date(2026, 10, 27, 0, 0, 0, 0, buenosAires)

	sum := Summarize(list, buenosAires, from, to)

	assert.Equal(t, 2, sum.Total)
	require.NotNil(t, sum.From)
	assert.Equal(t, []Count{{"Clínica", 2}}, sum.BySpecialty)
	assert.Equal(t, []Count{{clinic.String(), 1}}, sum.CompletedBySpecialist)
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil, buenosAires, time.Time{}, time.Time{})
	assert.Zero(t, sum.Total)
	assert.NotNil(t, sum.BySpecialty)
	assert.Empty(t, sum.ByDay)
}

func TestAppointmentsReport(t *testing.T) {
	_, _, list := fixtures()
	svc := NewService(staticSource{list: list}, buenosAires, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Appointments(ctx, session.Principal{Role: session.RoleSpecialist}, time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	admin := session.Principal{UserID: uuid.New(), Role: session.RoleAdmin, Enabled: true}
	day := time.Date(2026, 10, 21, 0, 0, 0, 0, buenosAires)
	_, err = svc.Appointments(ctx, admin, day, day)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	sum, err := svc.Appointments(ctx, admin, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Total)

	failing := NewService(staticSource{err: errors.New("timeout")}, buenosAires, zap.NewNop())
	_, err = failing.Appointments(ctx, admin, time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, apperr.ErrStore))
}
