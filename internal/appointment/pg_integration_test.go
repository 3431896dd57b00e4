//go:build integration

package appointment

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

// Run with: CLINIC_TEST_POSTGRES_DSN=postgres://... go test -tags integration ./internal/appointment/
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("CLINIC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CLINIC_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.ConnectPostgres(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool, zap.NewNop()))
	return pool
}

func openRow(t *testing.T, repo *PgRepository, specialistID uuid.UUID, at time.Time) *Appointment {
	t.Helper()
	a, err := repo.Create(context.Background(), Appointment{
		SpecialistID: specialistID,
		Specialty:    "Cardiología",
		DateTime:     at,
		Enabled:      true,
	})
	require.NoError(t, err)
	return a
}

func TestPgReserveIsConditional(t *testing.T) {
	repo := NewPgRepository(testPool(t))
	ctx := context.Background()
	specialist := uuid.New()
	at := time.Date(2026, 10, 20, 17, 0, 0, 0, time.UTC)

	a := openRow(t, repo, specialist, at)
	assert.True(t, a.IsOpen())

	_, err := repo.Create(ctx, Appointment{SpecialistID: specialist, Specialty: "Cardiología", DateTime: at, Enabled: true})
	assert.ErrorIs(t, err, ErrSlotTaken)

	first, second := uuid.New(), uuid.New()
	reserved, err := repo.Reserve(ctx, a.ID, first)
	require.NoError(t, err)
	assert.Equal(t, first, *reserved.PatientID)
	assert.Equal(t, StatusPending, reserved.CurrentStatus())

	_, err = repo.Reserve(ctx, a.ID, second)
	assert.ErrorIs(t, err, ErrSlotTaken)

	off := false
	_, err = repo.Update(ctx, a.ID, Patch{Enabled: &off})
	assert.ErrorIs(t, err, ErrSlotTaken)
	_, err = repo.Update(ctx, uuid.New(), Patch{Enabled: &off})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	stored, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *stored.PatientID)
	assert.True(t, stored.Enabled)
}

func TestPgTransitionTreatsNullStatusAsPending(t *testing.T) {
	pool := testPool(t)
	repo := NewPgRepository(pool)
	ctx := context.Background()

	a := openRow(t, repo, uuid.New(), time.Date(2026, 10, 20, 17, 30, 0, 0, time.UTC))
	_, err := pool.Exec(ctx, `UPDATE appointments SET patient_id = $2, status = NULL WHERE id = $1`, a.ID, uuid.New())
	require.NoError(t, err)

	accepted, err := repo.Transition(ctx, a.ID, []Status{StatusPending}, StatusAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.CurrentStatus())

	_, err = repo.Transition(ctx, a.ID, []Status{StatusPending}, StatusAccepted, "")
	assert.ErrorIs(t, err, ErrStateChanged)

	_, err = repo.Rate(ctx, a.ID, 4, "Muy buena atención en general.")
	assert.ErrorIs(t, err, ErrStateChanged, "only completed rows take a rating")

	notes := "Paciente en buen estado general."
	completed, err := repo.Transition(ctx, a.ID, []Status{StatusAccepted}, StatusCompleted, notes)
	require.NoError(t, err)
	assert.Equal(t, notes, completed.Comment)

	rated, err := repo.Rate(ctx, a.ID, 4, "Muy buena atención en general.")
	require.NoError(t, err)
	assert.Equal(t, 4, *rated.Rating)

	_, err = repo.Rate(ctx, a.ID, 6, "Cambio de opinión sobre la atención.")
	assert.ErrorIs(t, err, ErrStateChanged)
}

func TestPgTransitionNeedsAPatient(t *testing.T) {
	repo := NewPgRepository(testPool(t))
	a := openRow(t, repo, uuid.New(), time.Date(2026, 10, 27, 17, 0, 0, 0, time.UTC))

	_, err := repo.Transition(context.Background(), a.ID, []Status{StatusPending}, StatusAccepted, "")
	assert.ErrorIs(t, err, ErrStateChanged)
}
