package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/slots"
)

// leaderTTL bounds one materialize run.
const leaderTTL = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.StoreDriver == config.StoreDriverMemory {
		zl.Fatal("slot-worker needs a shared store, set STORE_DRIVER=postgres")
	}

	zl.Info("slot-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Open(rootCtx, cfg, zl)
	if err != nil {
		zl.Fatal("startup failed", zap.Error(err))
	}
	defer deps.Close()

	worker := slots.NewWorker(deps.Slots, deps.Locker(leaderTTL), cfg.WorkerInterval, zl.Named("slot-worker"))

	// Run once at startup
	_, _ = worker.RunOnce(rootCtx)

	if err := worker.Start(rootCtx); err != nil {
		zl.Fatal("start slot worker", zap.Error(err))
	}

	<-rootCtx.Done()
	zl.Info("shutdown signal received, stopping slot worker")
	worker.Stop()
}
