package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buenosAires, _ = time.LoadLocation("America/Argentina/Buenos_Aires")

func TestWeekdayOf(t *testing.T) {
	assert.Equal(t, Monday, WeekdayOf(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, Saturday, WeekdayOf(time.Date(2026, 10, 24, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, Sunday, WeekdayOf(time.Date(2026, 10, 25, 12, 0, 0, 0, time.UTC)))
}

func TestCovers(t *testing.T) {
	ws := WeeklySchedule{Weekdays: []Weekday{Tuesday}, Hours: Hours{Start: 14, End: 15}}
	at := func(day, hour, minute int) time.Time {
		return time.Date(2026, 10, day, hour, minute, 0, 0, buenosAires)
	}

	assert.True(t, ws.Covers(at(20, 14, 0), 30))
	assert.True(t, ws.Covers(at(20, 14, 30), 30))
	assert.False(t, ws.Covers(at(20, 15, 0), 30), "end hour is exclusive")
	assert.False(t, ws.Covers(at(20, 13, 30), 30))
	assert.False(t, ws.Covers(at(20, 14, 15), 30), "off the slot grid")
	assert.False(t, ws.Covers(at(21, 14, 0), 30), "wrong weekday")
}

func TestHorizon(t *testing.T) {
	now := time.Date(2026, 10, 15, 23, 30, 0, 0, buenosAires)
	from, until := Horizon(now, buenosAires, 15)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, buenosAires), from)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, buenosAires), until)

	// 02:30 UTC on the 16th is still the 15th in Buenos Aires.
	from, _ = Horizon(time.Date(2026, 10, 16, 2, 30, 0, 0, time.UTC), buenosAires, 15)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, buenosAires), from)
}

type countingRepo struct {
	Repository
	lookups int
	byKey   map[string]WeeklySchedule
}

func (r *countingRepo) GetBySpecialty(_ context.Context, specialistID uuid.UUID, specialty string) (*WeeklySchedule, error) {
	r.lookups++
	s, ok := r.byKey[cacheKey(specialistID, specialty)]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	return &s, nil
}

func (r *countingRepo) Update(_ context.Context, s WeeklySchedule) (*WeeklySchedule, error) {
	r.byKey[cacheKey(s.SpecialistID, s.Specialty)] = s
	return &s, nil
}

func TestCachedRepository(t *testing.T) {
	ctx := context.Background()
	ws := WeeklySchedule{ID: uuid.New(), SpecialistID: uuid.New(), Specialty: "Cardiología", Weekdays: []Weekday{Monday}, Hours: Hours{Start: 9, End: 10}}
	inner := &countingRepo{byKey: map[string]WeeklySchedule{cacheKey(ws.SpecialistID, ws.Specialty): ws}}
	cached := NewCachedRepository(inner, 8, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := cached.GetBySpecialty(ctx, ws.SpecialistID, ws.Specialty)
		require.NoError(t, err)
		assert.Equal(t, ws.ID, got.ID)
	}
	assert.Equal(t, 1, inner.lookups)

	ws.Hours.End = 12
	_, err := cached.Update(ctx, ws)
	require.NoError(t, err)

	got, err := cached.GetBySpecialty(ctx, ws.SpecialistID, ws.Specialty)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hours.End)
	assert.Equal(t, 2, inner.lookups)

	_, err = cached.GetBySpecialty(ctx, uuid.New(), "Clínica")
	assert.ErrorIs(t, err, ErrScheduleNotFound)
	assert.Equal(t, 1, cached.Len())
}
