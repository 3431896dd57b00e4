// Package app wires the configured store, lock and broker into the
// scheduling services shared by the server and the worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/events"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/report"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
	"github.com/hackgods/clinic-scheduling/internal/slots"
	"github.com/hackgods/clinic-scheduling/internal/store/memory"
)

const scheduleCacheTTL = time.Minute

type App struct {
	Schedules    *schedule.Service
	Slots        *slots.Service
	Appointments *appointment.Service
	Records      *medrecord.Service
	Reports      *report.Service

	// Critical checks gate readiness; optional ones only degrade it.
	Critical map[string]api.Check
	Optional map[string]api.Check

	rdb     *redis.Client
	local   *redisclient.LocalLocker
	closers []func()
}

type repositories struct {
	schedules    schedule.Repository
	appointments appointment.Repository
	records      medrecord.Repository
}

// Open connects everything cfg asks for. On error, whatever was already
// opened is closed again.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{
		Critical: map[string]api.Check{},
		Optional: map[string]api.Check{},
	}

	repos, err := a.openStore(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.openLocker(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher, err := a.openPublisher(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	cached := schedule.NewCachedRepository(repos.schedules, cfg.SlotCacheSize, scheduleCacheTTL)
	a.Schedules = schedule.NewService(cached, log.Named("schedule"))
	a.Records = medrecord.NewService(repos.records, log.Named("medrecord"))
	a.Appointments = appointment.NewService(repos.appointments, a.Schedules, a.Records, locker, publisher, cfg, log.Named("appointment"))
	a.Slots = slots.NewService(a.Schedules, repos.appointments, a.Appointments, cfg, log.Named("slots"))
	a.Reports = report.NewService(repos.appointments, cfg.TimeZone, log.Named("report"))
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repositories, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using the in-memory store, data is lost on restart")
		store := memory.NewStore()
		return repositories{
			schedules:    store.Schedules,
			appointments: store.Appointments,
			records:      store.Records,
		}, nil

	case config.StoreDriverPostgres:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, log)
		if err != nil {
			return repositories{}, err
		}
		a.closers = append(a.closers, pool.Close)

		if err := db.Migrate(ctx, pool, log); err != nil {
			return repositories{}, err
		}
		a.Critical["postgres"] = pool.Ping
		return repositories{
			schedules:    schedule.NewPgRepository(pool),
			appointments: appointment.NewPgRepository(pool),
			records:      medrecord.NewPgRepository(pool),
		}, nil
	}
	return repositories{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openLocker uses Redis when an address is configured. Without it the lock
// is process-local and the store's conditional writes are the only
// cross-process guard.
func (a *App) openLocker(ctx context.Context, cfg config.Config, log *zap.Logger) (redisclient.Locker, error) {
	a.local = redisclient.NewLocalLocker()
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, slot locks are process-local")
		return a.local, nil
	}

	rdb, err := redisclient.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := rdb.Close(); err != nil {
			log.Warn("close redis", zap.Error(err))
		}
	})
	a.rdb = rdb
	a.Critical["redis"] = redisclient.Ping(rdb)
	return redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL), nil
}

// Locker returns a lock with its own TTL on the same backend as the
// booking lock.
func (a *App) Locker(ttl time.Duration) redisclient.Locker {
	if a.rdb != nil {
		return redisclient.NewRedisSlotLocker(a.rdb, ttl)
	}
	return a.local
}

func (a *App) openPublisher(cfg config.Config, log *zap.Logger) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.Nop{}, nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	a.closers = append(a.closers, func() { _ = conn.Close() })

	pub, err := events.NewAMQPPublisher(conn, cfg.AMQPExchange, log.Named("events"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = pub.Close() })

	a.Optional["amqp"] = func(context.Context) error {
		if conn.IsClosed() {
			return errors.New("amqp connection closed")
		}
		return nil
	}
	log.Info("publishing appointment events", zap.String("exchange", cfg.AMQPExchange))
	return pub, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
