package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

// leaderKey makes one worker instance materialize per tick.
const leaderKey = "lock:slot-worker:leader"

// Worker runs Materialize on a fixed cadence.
type Worker struct {
	svc      *Service
	locker   redisclient.Locker
	interval time.Duration
	log      *zap.Logger

	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewWorker takes a locker whose lock outlives a whole run; the callback
// context of a Redis locker expires with its TTL.
func NewWorker(svc *Service, locker redisclient.Locker, interval time.Duration, log *zap.Logger) *Worker {
	return &Worker{svc: svc, locker: locker, interval: interval, log: log}
}

func (w *Worker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("slot worker interval must be > 0, got %s", w.interval)
	}
	runCtx, cancel := context.WithCancel(ctx)

	c := cron.New()
	if _, err := c.AddFunc("@every "+w.interval.String(), func() { _, _ = w.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule slot worker: %w", err)
	}
	c.Start()

	w.cron = c
	w.cancel = cancel
	return nil
}

// Stop waits for a run in progress to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

// RunOnce materializes free slots unless another instance holds the
// leader lock, in which case it does nothing.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	created := 0

	err := w.locker.WithSlotLock(ctx, leaderKey, func(lockCtx context.Context) error {
		var err error
		created, err = w.svc.Materialize(lockCtx)
		return err
	})
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		w.log.Info("another slot worker is running, skipping")
		return 0, nil
	case err != nil:
		w.log.Error("materialize run failed", zap.Int("created", created), zap.Error(err))
		return created, err
	}

	w.log.Info("materialize run complete",
		zap.Int("created", created),
		zap.Duration("took", time.Since(start)),
	)
	return created, nil
}
