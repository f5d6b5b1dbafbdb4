// Package main is the entry point for the LingoQuest API server.
//
// The service follows Clean Architecture and DDD:
// - Domain: pure learning/gamification logic without external dependencies
// - Application: use-case orchestration (Commands/Queries/Event Handlers)
// - Infrastructure: PostgreSQL, Redis, AI provider, background jobs
// - Interface: REST API
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lingoquest/lingoquest-backend/config"
	"github.com/lingoquest/lingoquest-backend/internal/application/command"
	"github.com/lingoquest/lingoquest-backend/internal/application/eventhandler"
	"github.com/lingoquest/lingoquest-backend/internal/application/query"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
	"github.com/lingoquest/lingoquest-backend/internal/infrastructure/external/ai"
	"github.com/lingoquest/lingoquest-backend/internal/infrastructure/jobs"
	"github.com/lingoquest/lingoquest-backend/internal/infrastructure/messaging"
	"github.com/lingoquest/lingoquest-backend/internal/infrastructure/persistence/postgres"
	redisstore "github.com/lingoquest/lingoquest-backend/internal/infrastructure/persistence/redis"
	"github.com/lingoquest/lingoquest-backend/internal/infrastructure/scheduler"
	schedulerjobs "github.com/lingoquest/lingoquest-backend/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/lingoquest/lingoquest-backend/internal/interface/http"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: true,
	})
	log.Info("starting LingoQuest API server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Migrations
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", logger.Err(err))
	} else {
		applied := 0
		for _, m := range status {
			if m.IsApplied {
				applied++
			}
		}
		log.Info("migrations completed",
			logger.Int("applied", applied),
			logger.Int("total", len(status)))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Repositories
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	taskRepo := postgres.NewTaskRepository(dbConn)
	lessonRepo := postgres.NewLessonRepository(dbConn)
	chatRepo := postgres.NewChatRepository(dbConn)

	// Seed the task catalog. Upserts are idempotent, so a restart with an
	// unchanged catalog is a no-op.
	log.Info("seeding task catalog")
	for _, def := range task.Catalog() {
		if err := taskRepo.Upsert(ctx, def); err != nil {
			return fmt.Errorf("failed to seed task %s: %w", def.ID, err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Redis (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache    *redisstore.Cache
		progressCache *redisstore.ProgressCache
		activityFeed  *redisstore.ActivityFeed
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis")
		redisCfg := redisstore.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		}

		redisCache, err = redisstore.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			if cfg.Features.IsEnabled(config.FeatureProgressCache, "") {
				progressCache = redisstore.NewProgressCache(redisCache)
			}
			if cfg.Features.IsEnabled(config.FeatureActivityFeed, "") {
				activityFeed = redisstore.NewActivityFeed(redisCache)
			}
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Event Bus & Dispatcher
	// ─────────────────────────────────────────────────────────────────────────
	localBusConfig := messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		Log:            log,
	}

	var eventBus shared.EventBus
	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureRedisEventBus, "") {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Cache:          redisCache,
			LocalBusConfig: localBusConfig,
			Log:            log,
		})
		if err != nil {
			return fmt.Errorf("failed to start Redis event bus: %w", err)
		}
		defer redisBus.Close()
		eventBus = redisBus
		log.Info("using Redis-backed event bus")
	} else {
		localBus := messaging.NewInMemoryEventBus(localBusConfig)
		defer localBus.Close()
		eventBus = localBus
		log.Info("using in-memory event bus")
	}

	dispatcher := messaging.NewDispatcher(messaging.DefaultDispatcherConfig(eventBus))
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))

	if activityFeed != nil {
		taskCompleted := eventhandler.NewOnTaskCompletedHandler(activityFeed, log, eventhandler.TaskCompletedConfig{
			RecordActivity: true,
		})
		if err := dispatcher.Register(taskCompleted.EventType(), "activity_on_task_completed", taskCompleted.Handle); err != nil {
			return fmt.Errorf("failed to register task-completed handler: %w", err)
		}

		levelUp := eventhandler.NewOnLevelUpHandler(activityFeed, log)
		if err := dispatcher.Register(levelUp.EventType(), "activity_on_level_up", levelUp.Handle); err != nil {
			return fmt.Errorf("failed to register level-up handler: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}
	defer func() { _ = dispatcher.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. AI Client
	// ─────────────────────────────────────────────────────────────────────────
	aiClient, err := ai.NewClient(ai.ClientConfig{
		APIKey:        cfg.AI.APIKey,
		BaseURL:       cfg.AI.BaseURL,
		Model:         cfg.AI.Model,
		Timeout:       cfg.AI.RequestTimeout,
		HistoryWindow: cfg.AI.HistoryWindow,
		Temperature:   cfg.AI.Temperature,
		Logger:        slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. Background Generation Worker
	// ─────────────────────────────────────────────────────────────────────────
	generationWorker := jobs.NewGenerationWorker(lessonRepo, userRepo, aiClient, eventBus, jobs.GenerationWorkerConfig{
		QueueSize:  cfg.Jobs.QueueSize,
		Workers:    cfg.Jobs.Workers,
		JobTimeout: cfg.Jobs.GenerationTimeout,
		Log:        log,
	})
	if err := generationWorker.Start(); err != nil {
		return fmt.Errorf("failed to start generation worker: %w", err)
	}
	defer func() { _ = generationWorker.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. Scheduler
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(log)
	if cfg.Jobs.ReaperEnabled && cfg.Features.IsEnabled(config.FeatureGenerationReaper, "") {
		reaper := schedulerjobs.NewReapStaleGenerationsJob(lessonRepo, eventBus, cfg.Jobs.StaleGenerationAge, log)
		if err := sched.Register(reaper, scheduler.NewIntervalSchedule(cfg.Jobs.ReapInterval)); err != nil {
			return fmt.Errorf("failed to register reaper job: %w", err)
		}
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() { _ = sched.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. Application Layer
	// ─────────────────────────────────────────────────────────────────────────
	var invalidator command.ProgressCacheInvalidator
	if progressCache != nil {
		invalidator = progressCache
	}

	incrementProgress := command.NewIncrementProgressHandler(userRepo, taskRepo, eventBus, invalidator, log)
	recordLogin := command.NewRecordLoginHandler(userRepo, incrementProgress, eventBus, log)

	registerUser := command.NewRegisterUserHandler(userRepo, eventBus, log)
	authenticate := command.NewAuthenticateHandler(userRepo, recordLogin, eventBus, log)
	generateLesson := command.NewGenerateLessonHandler(userRepo, lessonRepo, generationWorker, log)

	var regenerateLesson *command.RegenerateLessonHandler
	if cfg.Features.IsEnabled(config.FeatureLessonRegenerate, "") {
		regenerateLesson = command.NewRegenerateLessonHandler(lessonRepo, generationWorker, log)
	}

	interact := command.NewInteractHandler(userRepo, lessonRepo, chatRepo, aiClient, incrementProgress, eventBus, cfg.AI.HistoryWindow, log)

	var reportCache query.ProgressReportCache
	if progressCache != nil {
		reportCache = progressCache
	}

	lessonQuery := query.NewLessonHandler(lessonRepo, log)
	chatHistoryQuery := query.NewChatHistoryHandler(lessonRepo, chatRepo, log)
	listTasksQuery := query.NewListTasksHandler(userRepo, taskRepo, log)
	progressQuery := query.NewTaskProgressHandler(userRepo, taskRepo, reportCache, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HTTP Server
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpserver.DefaultConfig()
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout

	var activityReader httpserver.ActivityReader
	if activityFeed != nil {
		activityReader = activityFeed
	}

	server := httpserver.NewServer(serverConfig, httpserver.Dependencies{
		RegisterUser:     registerUser,
		Authenticate:     authenticate,
		GenerateLesson:   generateLesson,
		Interact:         interact,
		RegenerateLesson: regenerateLesson,
		Lessons:          lessonQuery,
		ChatHistory:      chatHistoryQuery,
		Tasks:            listTasksQuery,
		Progress:         progressQuery,
		Activity:         activityReader,
		Logger:           log,
		HealthChecker:    &healthChecker{db: dbConn, cache: redisCache},
	})

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 13. Graceful Shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Err(err))
	}

	log.Info("server stopped")
	return nil
}

// healthChecker reports the health of hard dependencies. Redis is optional;
// when disabled it is not part of the report.
type healthChecker struct {
	db    *postgres.Connection
	cache *redisstore.Cache
}

func (h *healthChecker) Check(ctx context.Context) map[string]error {
	results := map[string]error{
		"postgres": h.db.Ping(ctx),
	}
	if h.cache != nil {
		results["redis"] = h.cache.Ping(ctx)
	}
	return results
}
