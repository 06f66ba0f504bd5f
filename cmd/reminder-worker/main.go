package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caredesk/appointment-booking/internal/config"
	redisclient "github.com/caredesk/appointment-booking/internal/redis"
	"github.com/caredesk/appointment-booking/internal/reminder"
	"github.com/caredesk/appointment-booking/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	log.Info("reminder-worker starting up", "env", cfg.Env, "interval", cfg.WorkerInterval)

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

	store := reminder.NewRedisStore(rdb, cfg.RemindersKey)
	dispatcher := reminder.NewDispatcher(log)
	worker := reminder.NewWorker(store, dispatcher, log)

	// Run once at startup so reminders that came due while nothing was
	// running fire immediately.
	runOnce(rootCtx, worker, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, worker, log)
		}
	}
}

func runOnce(ctx context.Context, worker *reminder.Worker, log *logging.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := worker.ProcessDue(runCtx)
	if err != nil {
		log.Error("reminder sweep error", "error", err)
		return
	}
	log.Info("reminder sweep complete", "fired", n, "duration", time.Since(start))
}
