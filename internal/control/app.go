package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fedhatrac/categorizer/internal/categorize"
	"github.com/fedhatrac/categorizer/internal/core/config"
	"github.com/fedhatrac/categorizer/internal/events/kafka"
	"github.com/fedhatrac/categorizer/internal/infra/redis"
	"github.com/fedhatrac/categorizer/internal/infra/storage"
	"github.com/fedhatrac/categorizer/internal/infra/storage/memory"
	"github.com/fedhatrac/categorizer/internal/infra/storage/postgres"
	"github.com/fedhatrac/categorizer/internal/ops"
	"github.com/fedhatrac/categorizer/internal/pipeline"
	"github.com/fedhatrac/categorizer/internal/pipeline/metrics"
	"github.com/fedhatrac/categorizer/internal/refresh"
)

// Deps are the external capabilities the pipeline consumes but does not
// implement: the ML classifier and its trainer. Either may be nil; the ML
// strategy then stays inert and refresh is disabled.
type Deps struct {
	Classifier categorize.Classifier
	Trainer    refresh.Trainer
}

// App wires the categorization pipeline and manages its lifecycle.
type App struct {
	cfg       *config.AppConfig
	pool      *pipeline.Pool
	backfill  *pipeline.Backfill
	refresher *refresh.Refresher // nil when disabled
	opsServer *ops.Server
	queue     *redis.Queue
	publisher *kafka.Publisher // nil when disabled
	redis     *redis.Client
	db        *postgres.DB // nil in memory mode
	holder    *categorize.Holder
	log       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApp creates an App with all dependencies initialized.
func NewApp(cfg *config.AppConfig, deps Deps) (*App, error) {
	ctx := context.Background()
	log := slog.Default().With("component", "app")

	// 1. Redis, retried so a briefly unavailable broker does not kill startup.
	var redisClient *redis.Client
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		redisClient, err = redis.NewClient(cfg.Redis)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	// 2. Storage
	var txns storage.TransactionRepository
	var categories storage.CategoryRepository
	var db *postgres.DB

	if cfg.Database.DSN != "" {
		err := retry.Do(ctx, retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond)),
			func(ctx context.Context) error {
				var err error
				db, err = postgres.NewDB(ctx, cfg.Database)
				if err != nil {
					return retry.RetryableError(err)
				}
				return nil
			})
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := db.Migrate("migrations"); err != nil {
			return nil, err
		}

		txns = postgres.NewTxRepo(db, cfg.Categories.SentinelID)

		cached, err := storage.NewCachedCategories(postgres.NewCategoryRepo(db))
		if err != nil {
			return nil, err
		}
		categories = cached

		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		txns = memory.NewTxRepo(store, cfg.Categories.SentinelID)
		categories = memory.NewCategoryRepo(store)
		slog.Warn("No database DSN configured, using in-memory storage")
	}

	// 3. Dispatcher with swappable classifier
	holder := categorize.NewHolder(deps.Classifier)
	dispatcher := categorize.NewDispatcher(cfg.Rules, categorize.Options{
		AmountRules: cfg.Features.AmountRules,
		DateRules:   cfg.Features.DateRules,
		ML:          cfg.Features.MLEnabled,
	}, holder, categories)

	// 4. Queue, guard, optional event publisher
	queue := redis.NewQueue(redisClient, cfg.Redis.Queue, cfg.Redis.DeadLetterQueue)
	guard := redis.NewGuard(redisClient)

	var publisher *kafka.Publisher
	var pub pipeline.Publisher
	if len(cfg.Events.Brokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		pub = publisher
		slog.Info("Event publishing enabled", "topic", cfg.Events.Topic)
	}

	// 5. Pipeline
	proc := pipeline.NewProcessor(
		txns, categories, dispatcher, guard, pub,
		cfg.Pipeline.GuardTTL.Std(), cfg.Categories.SentinelID,
	)
	pool := pipeline.NewPool(pipeline.Config{
		Workers:     cfg.Pipeline.Workers,
		BatchSize:   cfg.Pipeline.BatchSize,
		PollTimeout: cfg.Pipeline.PollTimeout.Std(),
	}, queue, proc)
	backfill := pipeline.NewBackfill(txns, proc, cfg.Pipeline.BatchSize)

	// 6. Model refresh
	var refresher *refresh.Refresher
	if cfg.Refresh.Enabled {
		if deps.Trainer == nil {
			slog.Warn("Model refresh enabled but no trainer provided, disabling")
		} else {
			refresher = refresh.NewRefresher(
				txns, deps.Trainer, holder,
				cfg.Refresh.Interval.Std(), cfg.Refresh.Window.Std(),
			)
		}
	}

	// 7. Ops server
	checks := map[string]ops.Checker{
		"redis": redisClient.Ping,
	}
	if db != nil {
		checks["database"] = db.Health
	}
	opsServer := ops.NewServer(cfg.Server.Port, checks)

	return &App{
		cfg:       cfg,
		pool:      pool,
		backfill:  backfill,
		refresher: refresher,
		opsServer: opsServer,
		queue:     queue,
		publisher: publisher,
		redis:     redisClient,
		db:        db,
		holder:    holder,
		log:       log,
	}, nil
}

// Start runs the optional startup backfill, then launches the worker pool,
// the refresher, the queue depth collector and the ops server.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.Features.BackfillOnStartup {
		a.log.Info("Categorizing uncategorized transactions on startup")
		if err := a.backfill.Run(ctx); err != nil {
			a.log.Error("Startup backfill failed", "error", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.pool.Run(runCtx)
	}()

	if a.refresher != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.refresher.Run(runCtx)
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.collectQueueDepth(runCtx)
	}()

	go func() {
		if err := a.opsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Ops server failed", "error", err)
		}
	}()

	a.log.Info("Categorizer started", "workers", a.cfg.Pipeline.Workers)
	return nil
}

// Stop shuts the pipeline down: no new batch fetches, in-flight items
// complete, then connections close.
func (a *App) Stop(ctx context.Context) error {
	if err := a.opsServer.Stop(ctx); err != nil {
		a.log.Warn("Failed to stop ops server", "error", err)
	}

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("Failed to close event publisher", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
	if err := a.redis.Close(); err != nil {
		a.log.Warn("Failed to close redis", "error", err)
	}
	return nil
}

// SwapClassifier installs a new classifier without stopping workers.
func (a *App) SwapClassifier(c categorize.Classifier) {
	a.holder.Swap(c)
}

func (a *App) collectQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := a.queue.Size(ctx); err == nil {
				metrics.QueueDepth.Set(float64(n))
			}
		}
	}
}
