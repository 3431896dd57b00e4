package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/session"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

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

	zl.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("store", cfg.StoreDriver),
		zap.String("timezone", cfg.TimeZone.String()),
		zap.Int("horizon_days", cfg.HorizonDays),
		zap.Int("slot_minutes", cfg.SlotMinutes),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Open(rootCtx, cfg, zl)
	if err != nil {
		zl.Fatal("startup failed", zap.Error(err))
	}
	defer deps.Close()

	router := api.NewRouter(api.RouterConfig{
		Schedules:         deps.Schedules,
		Slots:             deps.Slots,
		Appointments:      deps.Appointments,
		Records:           deps.Records,
		Reports:           deps.Reports,
		Verifier:          session.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Health:            api.NewHealthHandler(deps.Critical, deps.Optional, cfg.Env, version),
		Log:               zl.Named("http"),
		TimeZone:          cfg.TimeZone,
		CORSOrigins:       cfg.CORSOrigins,
		BookingsPerMinute: cfg.RateLimitPerMinute,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			zl.Error("http server failed", zap.Error(err))
		}
	case <-rootCtx.Done():
	}

	zl.Info("shutting down api-server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
