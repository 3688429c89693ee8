package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"brainstorm-api/internal/config"
	"brainstorm-api/internal/domain/cache"
	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/reconcile"
	"brainstorm-api/internal/domain/retry"
	"brainstorm-api/internal/domain/updates"
	"brainstorm-api/internal/domain/workflow"
	"brainstorm-api/internal/infrastructure/auth"
	infracache "brainstorm-api/internal/infrastructure/cache"
	"brainstorm-api/internal/infrastructure/crontab"
	"brainstorm-api/internal/infrastructure/database"
	"brainstorm-api/internal/infrastructure/llmprovider"
	"brainstorm-api/internal/infrastructure/lock"
	"brainstorm-api/internal/infrastructure/metrics"
	"brainstorm-api/internal/infrastructure/queue"
	conversationrepo "brainstorm-api/internal/infrastructure/repository/conversation"
	"brainstorm-api/internal/infrastructure/repository/memory"
	projectrepo "brainstorm-api/internal/infrastructure/repository/project"
	runrepo "brainstorm-api/internal/infrastructure/repository/run"
	"brainstorm-api/internal/interfaces/httpserver"
	"brainstorm-api/internal/webhook"
	"brainstorm-api/internal/worker"
)

// storage groups the persistence backends selected by STORAGE_BACKEND.
type storage struct {
	Projects project.Repository
	Messages conversation.Repository
	Runs     coordination.RunRepository
	Stale    coordination.StaleRunLister
	Queue    queue.TaskQueue
	Checks   map[string]httpserver.ReadinessCheck
}

type cleanupStack []func()

func (c *cleanupStack) push(fn func()) { *c = append(*c, fn) }

func (c cleanupStack) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// buildApplication assembles every component. The returned cleanup releases connections.
func buildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, func(), error) {
	var cleanups cleanupStack
	fail := func(err error) (*Application, func(), error) {
		cleanups.run()
		return nil, func() {}, err
	}

	store, closeStore, err := newStorage(ctx, cfg, log)
	if err != nil {
		return fail(err)
	}
	cleanups.push(closeStore)

	redisClient, err := newRedisClient(cfg, log)
	if err != nil {
		return fail(err)
	}
	if redisClient != nil {
		cleanups.push(func() {
			if err := redisClient.Close(); err != nil {
				log.Warn().Err(err).Msg("close redis client")
			}
		})
		store.Checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	resultCache, err := newResultCache(cfg, redisClient, log)
	if err != nil {
		return fail(err)
	}

	registry, err := newRegistry(cfg, log)
	if err != nil {
		return fail(err)
	}

	table, err := newWorkflowTable(cfg)
	if err != nil {
		return fail(err)
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		return fail(fmt.Errorf("initialize auth validator: %w", err))
	}

	broker := updates.NewBroker(cfg.UpdatesBufferSize, cfg.UpdatesTTL, log)
	recorder := metrics.NewRecorder()

	dispatcher := workflow.NewDispatcher(registry, resultCache, log,
		workflow.WithTimeout(cfg.CapabilityTimeout),
		workflow.WithRecorder(recorder),
	)
	reconciler := reconcile.NewReconciler(store.Projects, log,
		reconcile.WithSimilarity(reconcile.Jaccard{}, cfg.SimilarityThreshold),
	)

	service := coordination.NewService(coordination.Dependencies{
		Projects:   store.Projects,
		Messages:   store.Messages,
		Runs:       store.Runs,
		Queue:      store.Queue,
		Registry:   registry,
		Table:      table,
		Executor:   dispatcher,
		Reconciler: reconciler,
		Publisher:  broker,
		Locker:     newLocker(cfg, redisClient, log),
		Notifier:   webhook.NewHTTPService(cfg.WebhookURL, retry.WebhookPolicy(), log),
	}, log,
		coordination.WithHistoryLimit(cfg.HistoryFetchLimit),
		coordination.WithReplyTimeout(cfg.CapabilityTimeout),
	)

	pool := worker.NewPool(store.Queue, service, worker.Config{
		WorkerCount:  cfg.BackgroundWorkerCount,
		TaskTimeout:  cfg.BackgroundTaskTimeout,
		PollInterval: cfg.WorkerPollInterval,
	}, log)

	reaper := coordination.NewReaper(store.Runs, store.Stale, broker, cfg.BackgroundTaskTimeout, log)
	cron := crontab.NewCrontab(reaper, log)

	httpServer := httpserver.New(cfg, log, service, broker, authValidator, store.Checks)

	log.Info().
		Str("storage", cfg.StorageBackend).
		Str("cache", cfg.CacheBackend).
		Str("project_lock", cfg.ProjectLock).
		Str("llm_provider", cfg.LLMProvider).
		Int("workers", cfg.BackgroundWorkerCount).
		Msg("application assembled")

	return NewApplication(httpServer, pool, cron, log), cleanups.run, nil
}

func newStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, func(), error) {
	if cfg.StorageBackend == config.StorageBackendMemory {
		runs := memory.NewRunRepository()
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		return &storage{
			Projects: memory.NewProjectRepository(),
			Messages: memory.NewMessageRepository(),
			Runs:     runs,
			Stale:    runs,
			Queue:    queue.NewMemoryQueue(),
			Checks:   map[string]httpserver.ReadinessCheck{},
		}, func() {}, nil
	}

	db, err := newGormDB(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	runs := runrepo.NewRepository(db)
	store := &storage{
		Projects: projectrepo.NewRepository(db),
		Messages: conversationrepo.NewRepository(db),
		Runs:     runs,
		Stale:    runs,
		Queue:    queue.NewPostgresQueue(db, log),
		Checks: map[string]httpserver.ReadinessCheck{
			"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		},
	}
	closeDB := func() {
		if err := database.Close(db); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
	return store, closeDB, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		URL:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(ctx, newDatabaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(ctx, db, log); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// newRedisClient connects only when a Redis backed component is selected.
func newRedisClient(cfg *config.Config, log zerolog.Logger) (redis.UniversalClient, error) {
	if cfg.CacheBackend != config.CacheBackendRedis && cfg.ProjectLock != config.ProjectLockRedis {
		return nil, nil
	}
	return infracache.NewRedisClient(cfg.RedisURL, log)
}

func newResultCache(cfg *config.Config, redisClient redis.UniversalClient, log zerolog.Logger) (*cache.ResponseCache, error) {
	var store cache.Store
	if cfg.CacheBackend == config.CacheBackendRedis {
		store = infracache.NewRedisStore(redisClient, "brainstorm:cache", nil)
	} else {
		mem, err := infracache.NewMemoryStore(cfg.CacheMaxEntries, nil)
		if err != nil {
			return nil, fmt.Errorf("create memory cache: %w", err)
		}
		store = mem
	}
	return cache.NewResponseCache(store, cfg.CacheTTL, log, cache.WithRecorder(metrics.NewRecorder())), nil
}

func newLocker(cfg *config.Config, redisClient redis.UniversalClient, log zerolog.Logger) coordination.ProjectLocker {
	switch cfg.ProjectLock {
	case config.ProjectLockLocal:
		return lock.NewLocalLocker()
	case config.ProjectLockRedis:
		return lock.NewRedisLocker(redisClient, cfg.ProjectLockTTL, log)
	default:
		return coordination.NopLocker{}
	}
}

func newRegistry(cfg *config.Config, log zerolog.Logger) (*capability.DefaultRegistry, error) {
	provider, err := llmprovider.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	registry, err := capability.NewDefaultRegistry(provider, cfg.LLMMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("register capabilities: %w", err)
	}
	return registry, nil
}

func newWorkflowTable(cfg *config.Config) (*workflow.Table, error) {
	if cfg.WorkflowTablePath == "" {
		return workflow.DefaultTable(), nil
	}
	table, err := workflow.LoadTable(cfg.WorkflowTablePath)
	if err != nil {
		return nil, fmt.Errorf("load workflow table: %w", err)
	}
	return table, nil
}
