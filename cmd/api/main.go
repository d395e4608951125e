package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"scamguard/internal/api"
	"scamguard/internal/api/handlers"
	apimiddleware "scamguard/internal/api/middleware"
	"scamguard/internal/config"
	"scamguard/internal/domain/services"
	"scamguard/internal/grpc/health"
	"scamguard/internal/infrastructure/cache"
	"scamguard/internal/infrastructure/database"
	"scamguard/internal/infrastructure/database/repository"
	"scamguard/internal/observability/metrics"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("SCAMGUARD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting scamguard")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.NewEngineMetrics(registry)

	// Infrastructure
	redisCache, db := initInfrastructure(ctx, cfg, log)
	defer func() {
		if db != nil {
			db.Close()
		}
		if redisCache != nil {
			_ = redisCache.Close()
		}
	}()

	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, alerts stay local")
		}
	}
	eventBus := streaming.NewEventBus(natsPublisher, log)
	defer eventBus.Close()

	wsHub := streaming.NewWebSocketHub(log)
	go wsHub.Run(ctx)

	publisher := streaming.NewPublisher(eventBus, wsHub)

	// State persistence
	var kv services.KeyValueStore
	if redisCache != nil {
		kv = redisCache
	}
	writer := services.NewStateWriter(kv, cfg.Detection.WriterBuffer, cfg.Detection.StoreTimeout, engineMetrics, log)
	writerCtx, stopWriter := context.WithCancel(context.Background())
	writerDone := make(chan struct{})
	go func() {
		writer.Run(writerCtx)
		close(writerDone)
	}()

	// Audit log
	var (
		eventRecorder services.EventRecorder
		eventLister   handlers.EventLister
		contactStore  services.ContactStore
		summary       *services.WeeklySummaryGenerator
	)

	guardian := services.NewGuardianNotifier(publisher, services.GuardianConfig{
		Enabled: cfg.Guardian.Enabled,
		Name:    cfg.Guardian.Name,
		Phone:   cfg.Guardian.Phone,
	}, engineMetrics, log)

	if db != nil {
		events := repository.NewEventRepository(db.Pool())
		eventRecorder = events
		eventLister = events
		contactStore = repository.NewContactRepository(db.Pool())
		summary = services.NewWeeklySummaryGenerator(events, guardian, log)
	}

	// Domain services
	trusted := services.NewTrustedSenderRegistry(cfg.Detection.TrustedSenders, contactStore, log)
	calls := services.NewCallContextStore(cfg.Detection.CorrelationWindow, writer, log)
	tracker := services.NewPatternTracker(services.PatternTrackerConfig{
		Window:     cfg.Detection.RepeatWindow,
		Threshold:  cfg.Detection.RepeatThreshold,
		NotifyMode: services.ParseNotifyMode(cfg.Detection.RepeatNotifyMode),
	}, writer, log)
	learning := services.NewLearningStore(writer, engineMetrics, log)
	history := services.NewBlockedHistory(cfg.Detection.BlockedHistoryLimit, writer, log)

	hydrate(ctx, cfg, kv, trusted, calls, tracker, learning, history, log)

	reporter := services.NewReporter(history, eventRecorder, publisher, guardian, engineMetrics, log)
	engine := services.NewScamRuleEngine(services.EngineDeps{
		Trusted:  trusted,
		Calls:    calls,
		Tracker:  tracker,
		Learning: learning,
		Reporter: reporter,
	}, engineMetrics, log)

	// Health
	checker := health.NewChecker(10*time.Second, log)
	if redisCache != nil {
		checker.AddDependency("redis", redisCache)
	}
	if db != nil {
		checker.AddDependency("postgres", db)
	}
	if natsPublisher != nil {
		checker.AddDependency("nats", health.PingFunc(func(context.Context) error {
			if !natsPublisher.IsConnected() {
				return streaming.ErrNotConnected
			}
			return nil
		}))
	}
	go checker.Run(ctx)

	// HTTP server
	h := handlers.NewHandlers(handlers.Dependencies{
		Engine:   engine,
		History:  history,
		Learning: learning,
		Trusted:  trusted,
		Summary:  summary,
		Events:   eventLister,
		Health:   checker,
		WSHub:    wsHub,
		EventBus: eventBus,
		Version:  cfg.App.Version,
		Logger:   log,
	})

	var limiter apimiddleware.RateLimitStore
	if redisCache != nil {
		limiter = redisCache
	}
	router := api.NewRouter(*cfg, h, limiter, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// gRPC health server
	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gRPC listener")
	}
	grpcServer := grpc.NewServer()
	checker.Register(grpcServer)

	go func() {
		log.Info().Str("addr", grpcListener.Addr().String()).Msg("starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal().Err(err).Msg("gRPC server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Finish in-flight reports, then drain queued state writes
	reporter.Wait()
	stopWriter()
	<-writerDone
	if err := writer.Flush(shutdownCtx); err != nil {
		log.Warn().Err(err).Int("pending", writer.Pending()).Msg("state flush incomplete")
	}

	log.Info().
		Int64("dropped_writes", writer.Dropped()).
		Int64("failed_writes", writer.Failed()).
		Msg("shutdown complete")
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Format:      cfg.Logger.Format,
		TimeFormat:  cfg.Logger.TimeFormat,
		Environment: cfg.App.Environment,
	})
}

// initInfrastructure connects the optional stores. Failures degrade to
// in-memory operation instead of aborting startup.
func initInfrastructure(ctx context.Context, cfg *config.Config, log *logger.Logger) (*cache.RedisCache, *database.PostgresDB) {
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		c, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, detector state will not persist")
		} else {
			redisCache = c
		}
	}

	var db *database.PostgresDB
	if cfg.Database.Enabled {
		pg, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to PostgreSQL, continuing without audit log")
		} else if err := pg.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to apply schema, continuing without audit log")
			pg.Close()
		} else {
			db = pg
		}
	}

	return redisCache, db
}

// hydrate restores detector state saved by a previous run
func hydrate(
	ctx context.Context,
	cfg *config.Config,
	kv services.KeyValueStore,
	trusted *services.TrustedSenderRegistry,
	calls *services.CallContextStore,
	tracker *services.PatternTracker,
	learning *services.LearningStore,
	history *services.BlockedHistory,
	log *logger.Logger,
) {
	loadCtx, cancel := context.WithTimeout(ctx, 5*cfg.Detection.StoreTimeout)
	defer cancel()

	if err := trusted.Reload(loadCtx); err != nil {
		log.Warn().Err(err).Msg("failed to load trusted contacts")
	}
	if kv == nil {
		return
	}

	loaders := []struct {
		name string
		load func(context.Context, services.KeyValueStore) error
	}{
		{"call records", calls.Load},
		{"fingerprints", tracker.Load},
		{"learned patterns", learning.Load},
		{"blocked history", history.Load},
	}
	for _, l := range loaders {
		if err := l.load(loadCtx, kv); err != nil {
			log.Warn().Err(err).Str("state", l.name).Msg("failed to hydrate state")
		}
	}
	log.Info().
		Int("calls", calls.Len()).
		Int("fingerprints", tracker.Len()).
		Int("blocked", history.Len()).
		Msg("detector state restored")
}
