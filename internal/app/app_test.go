package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/session"
)

func memoryConfig() config.Config {
	return config.Config{
		StoreDriver:   config.StoreDriverMemory,
		TimeZone:      time.UTC,
		HorizonDays:   15,
		SlotMinutes:   30,
		SlotCacheSize: 16,
	}
}

func TestOpenMemory(t *testing.T) {
	a, err := Open(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Empty(t, a.Critical)
	assert.Empty(t, a.Optional)

	specialist := session.Principal{UserID: uuid.New(), Role: session.RoleSpecialist, Enabled: true}
	_, err = a.Schedules.Save(context.Background(), specialist, specialist.UserID, "Pediatría",
		schedule.Input{Weekdays: []schedule.Weekday{schedule.Monday}, Start: 9, End: 10})
	require.NoError(t, err)

	generated, err := a.Slots.Generate(context.Background(), specialist.UserID, "Pediatría")
	require.NoError(t, err)
	assert.NotEmpty(t, generated)

	n, err := a.Slots.Materialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(generated), n)
	assert.NotNil(t, a.Locker(time.Minute))
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "sqlite"

	a, err := Open(context.Background(), cfg, zap.NewNop())
	assert.Nil(t, a)
	assert.EqualError(t, err, `unknown store driver "sqlite"`)
}
