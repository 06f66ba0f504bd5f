package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caredesk/appointment-booking/internal/api"
	"github.com/caredesk/appointment-booking/internal/booking"
	"github.com/caredesk/appointment-booking/internal/config"
	"github.com/caredesk/appointment-booking/internal/db"
	redisclient "github.com/caredesk/appointment-booking/internal/redis"
	"github.com/caredesk/appointment-booking/internal/reminder"
	"github.com/caredesk/appointment-booking/pkg/logging"
)

const version = "1.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	log.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "backend", cfg.StorageBackend)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("error closing redis", "error", err)
		}
	}()
	log.Info("connected to Redis")

	var pgPool *pgxpool.Pool
	var repo booking.Repository

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Error("postgres connection error", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()
		log.Info("connected to Postgres")

		repo = booking.NewPgRepository(pgPool)

	case config.BackendRedis:
		loadCtx, cancelLoad := context.WithTimeout(rootCtx, 10*time.Second)
		repo, err = booking.NewBlobRepository(loadCtx, rdb, cfg.BookingsKey)
		cancelLoad()
		if err != nil {
			log.Error("bookings blob load error", "error", err)
			os.Exit(1)
		}
	}

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)

	reminderStore := reminder.NewRedisStore(rdb, cfg.RemindersKey)
	dispatcher := reminder.NewDispatcher(log)
	scheduler := reminder.NewScheduler(reminderStore, dispatcher, nil, log)

	rearmCtx, cancelRearm := context.WithTimeout(rootCtx, 10*time.Second)
	rearmed, err := scheduler.Rearm(rearmCtx)
	cancelRearm()
	if err != nil {
		log.Error("rearm reminders error", "error", err)
		os.Exit(1)
	}
	log.Info("rearmed reminders from store", "count", rearmed)

	svc := booking.NewService(repo, locker, booking.ServiceConfig{
		Window: booking.Window{
			Days:         cfg.WindowDays,
			DayStartHour: cfg.DayStartHour,
			DayEndHour:   cfg.DayEndHour,
			SlotInterval: cfg.SlotInterval,
		},
		Reminders: scheduler,
		Logger:    log,
	})

	router := api.NewRouter(api.RouterConfig{
		Bookings:    svc,
		Reminders:   scheduler,
		PgPool:      pgPool,
		Redis:       rdb,
		DefaultLead: cfg.DefaultLead,
		Env:         cfg.Env,
		Version:     version,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("http server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	} else {
		log.Info("server shutdown complete")
	}
}
