package schedule_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/session"
	"github.com/hackgods/clinic-scheduling/internal/store/memory"
)

func newService() (*schedule.Service, *memory.Schedules) {
	repo := memory.NewSchedules()
	return schedule.NewService(repo, zap.NewNop()), repo
}

func specialist() session.Principal {
	return session.Principal{UserID: uuid.New(), Role: session.RoleSpecialist, Enabled: true}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      schedule.Input
		wantMsg string
	}{
		{"end before start", schedule.Input{Weekdays: []schedule.Weekday{1}, Start: 12, End: 9}, "end must be after start"},
		{"end equals start", schedule.Input{Weekdays: []schedule.Weekday{1}, Start: 9, End: 9}, "end must be after start"},
		{"no weekdays", schedule.Input{Start: 9, End: 12}, "weekdays is required"},
		{"saturday", schedule.Input{Weekdays: []schedule.Weekday{6}, Start: 9, End: 12}, "weekdays[0] must be at most 5"},
		{"repeated weekday", schedule.Input{Weekdays: []schedule.Weekday{2, 2}, Start: 9, End: 12}, "weekdays must not repeat values"},
		{"end out of day", schedule.Input{Weekdays: []schedule.Weekday{2}, Start: 9, End: 24}, "end must be at most 23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService()
			p := specialist()

			_, err := svc.Create(context.Background(), p, p.UserID, "Cardiología", tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
			assert.Equal(t, tt.wantMsg, apperr.Message(err))
		})
	}
}

func TestCreateSortsWeekdaysAndRejectsSecondForPair(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	p := specialist()

	created, err := svc.Create(ctx, p, p.UserID, " Cardiología ", schedule.Input{Weekdays: []schedule.Weekday{3, 1}, Start: 9, End: 11})
	require.NoError(t, err)
	assert.Equal(t, []schedule.Weekday{1, 3}, created.Weekdays)
	assert.Equal(t, "Cardiología", created.Specialty)

	_, err = svc.Create(ctx, p, p.UserID, "Cardiología", schedule.Input{Weekdays: []schedule.Weekday{2}, Start: 8, End: 10})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	// another specialty is a separate pair
	_, err = svc.Create(ctx, p, p.UserID, "Clínica", schedule.Input{Weekdays: []schedule.Weekday{2}, Start: 8, End: 10})
	require.NoError(t, err)

	list, err := svc.Get(ctx, p.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOnlyOwnerOrAdminMutates(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	owner := specialist()
	in := schedule.Input{Weekdays: []schedule.Weekday{1}, Start: 9, End: 10}

	_, err := svc.Create(ctx, specialist(), owner.UserID, "Cardiología", in)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	patient := session.Principal{UserID: owner.UserID, Role: session.RolePatient}
	_, err = svc.Create(ctx, patient, owner.UserID, "Cardiología", in)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	admin := session.Principal{UserID: uuid.New(), Role: session.RoleAdmin, Enabled: true}
	created, err := svc.Create(ctx, admin, owner.UserID, "Cardiología", in)
	require.NoError(t, err)

	err = svc.Delete(ctx, specialist(), created.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestUpdateMergesPatch(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	p := specialist()

	created, err := svc.Create(ctx, p, p.UserID, "Cardiología", schedule.Input{Weekdays: []schedule.Weekday{1}, Start: 9, End: 12})
	require.NoError(t, err)

	end := 15
	updated, err := svc.Update(ctx, p, created.ID, schedule.Patch{End: &end})
	require.NoError(t, err)
	assert.Equal(t, schedule.Hours{Start: 9, End: 15}, updated.Hours)
	assert.Equal(t, []schedule.Weekday{1}, updated.Weekdays)

	start := 16
	_, err = svc.Update(ctx, p, created.ID, schedule.Patch{Start: &start})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Update(ctx, p, uuid.New(), schedule.Patch{End: &end})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSaveCreatesThenReplaces(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	p := specialist()

	first, err := svc.Save(ctx, p, p.UserID, "Cardiología", schedule.Input{Weekdays: []schedule.Weekday{1, 2}, Start: 9, End: 12})
	require.NoError(t, err)

	second, err := svc.Save(ctx, p, p.UserID, "Cardiología", schedule.Input{Weekdays: []schedule.Weekday{5}, Start: 14, End: 18})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []schedule.Weekday{5}, second.Weekdays)

	got, err := svc.GetBySpecialty(ctx, p.UserID, "Cardiología")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, schedule.Hours{Start: 14, End: 18}, got[0].Hours)
}

func TestDeleteAndRequire(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	p := specialist()

	created, err := svc.Create(ctx, p, p.UserID, "Cardiología", schedule.Input{Weekdays: []schedule.Weekday{1}, Start: 9, End: 10})
	require.NoError(t, err)

	ws, err := svc.Require(ctx, p.UserID, "Cardiología")
	require.NoError(t, err)
	assert.Equal(t, created.ID, ws.ID)

	require.NoError(t, svc.Delete(ctx, p, created.ID))

	got, err := svc.GetBySpecialty(ctx, p.UserID, "Cardiología")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.Require(ctx, p.UserID, "Cardiología")
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))

	err = svc.Delete(ctx, p, created.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestStoreFailureIsStoreError(t *testing.T) {
	svc, repo := newService()
	repo.Fail(errors.New("dial tcp: connection refused"))

	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, apperr.ErrStore))
	assert.Equal(t, "load schedules failed, please retry", apperr.Message(err))
}
