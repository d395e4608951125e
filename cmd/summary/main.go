package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"scamguard/internal/config"
	"scamguard/internal/domain/services"
	"scamguard/internal/infrastructure/cache"
	"scamguard/internal/infrastructure/database"
	"scamguard/internal/infrastructure/database/repository"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("SCAMGUARD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Format:      cfg.Logger.Format,
		TimeFormat:  cfg.Logger.TimeFormat,
		Environment: cfg.App.Environment,
	}).WithComponent("summary-worker")
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting weekly summary worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The audit log is the only data source for the report
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	// Redis is optional; without it every replica sends its own report
	var locker services.JobLocker
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, running without distributed lock")
		} else {
			defer redisCache.Close()
			locker = redisCache
		}
	}

	var alerts services.AlertPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err := streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, summaries will only be logged")
		} else {
			defer natsPublisher.Close()
			alerts = natsPublisher
		}
	}

	guardian := services.NewGuardianNotifier(alerts, services.GuardianConfig{
		Enabled: cfg.Guardian.Enabled,
		Name:    cfg.Guardian.Name,
		Phone:   cfg.Guardian.Phone,
	}, nil, log)
	generator := services.NewWeeklySummaryGenerator(repository.NewEventRepository(db.Pool()), guardian, log)

	scheduler := services.NewSummaryScheduler(generator, locker, services.SchedulerConfig{
		Interval:   cfg.Summary.Interval,
		RunOnStart: cfg.Summary.RunOnStart,
		LockTTL:    cfg.Summary.LockTTL,
		MaxRetries: cfg.Summary.MaxRetries,
		RetryDelay: cfg.Summary.RetryDelay,
	}, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("scheduler stopped with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down summary worker...")
	cancel()

	select {
	case <-done:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn().Msg("scheduler did not stop in time")
	}

	if last, ok := scheduler.Last(); ok {
		log.Info().
			Str("status", string(last.Status)).
			Int("attempts", last.Attempts).
			Time("completed_at", last.CompletedAt).
			Msg("last weekly summary run")
	}
	log.Info().Msg("shutdown complete")
}
