package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/faultline/internal/core/config"
	"github.com/vietddude/faultline/internal/core/worker"
	"github.com/vietddude/faultline/internal/eventlog"
	"github.com/vietddude/faultline/internal/handler"
	redisclient "github.com/vietddude/faultline/internal/infra/redis"
	"github.com/vietddude/faultline/internal/infra/storage"
	"github.com/vietddude/faultline/internal/infra/storage/memory"
	"github.com/vietddude/faultline/internal/infra/storage/postgres"
	"github.com/vietddude/faultline/internal/pipeline/health"
	"github.com/vietddude/faultline/internal/surface"

	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

// Pipeline is the main application struct that manages the error pipeline
// lifecycle: logging service, handler, retention, health surface.
type Pipeline struct {
	cfg          config.AppConfig
	events       *eventlog.Service
	handler      *handler.Handler
	notifier     surface.Notifier
	pruner       *worker.Pruner
	healthMon    *health.Monitor
	healthServer *health.Server
	store        storage.KVStore
	archive      storage.EntryArchive
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewPipeline creates a pipeline with all dependencies initialized.
func NewPipeline(cfg config.AppConfig) (*Pipeline, error) {

	// 1. Initialize Persistence
	var store storage.KVStore
	var redisClient *redisclient.Client

	if cfg.Redis.URL != "" {
		client, err := connectRedis(context.Background(), cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, falling back to memory store", "error", err)
			store = memory.NewStore()
		} else {
			redisClient = client
			store = client
			slog.Info("Using Redis store")
		}
	} else {
		store = memory.NewStore()
		slog.Info("Using Memory store")
	}

	// 2. Initialize Archive
	var archive storage.EntryArchive
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = connectPostgres(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations
		// Note: Goose needs the raw *sql.DB underneath sqlx
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		archive = postgres.NewEntryRepo(db)
		slog.Info("Using PostgreSQL archive")
	}

	// 3. Initialize Logging Service
	events := eventlog.NewService(eventlog.Options{
		MaxBufferSize:        cfg.Pipeline.MaxBufferSize,
		MaxRetentionDays:     cfg.Pipeline.MaxRetentionDays,
		EnablePersistence:    cfg.Pipeline.PersistenceEnabled(),
		EnableConsoleLogging: cfg.Pipeline.ConsoleLoggingEnabled(),
		Environment:          cfg.Pipeline.Environment,
		Component:            cfg.Pipeline.Component,
	}, store, archive)

	// 4. Initialize Handler and User Surface
	notifier := surface.NewLogNotifier(slog.Default())
	h := handler.New(events, notifier, handler.Options{
		EnableRecovery:          cfg.Handler.RecoveryEnabled(),
		EnableUserNotifications: cfg.Handler.UserNotificationsEnabled(),
	})

	// 5. Initialize Health Monitor
	healthMon := health.NewMonitor(events)
	if redisClient != nil {
		healthMon.AddProbe("redis", redisClient.Health)
	}
	if db != nil {
		healthMon.AddProbe("postgres", db.Health)
	}

	healthServer := health.NewServer(healthMon, events, cfg.Server.Port)

	// 6. Initialize Pruner
	pruner := worker.NewPruner(events, archive)

	return &Pipeline{
		cfg:          cfg,
		events:       events,
		handler:      h,
		notifier:     notifier,
		pruner:       pruner,
		healthMon:    healthMon,
		healthServer: healthServer,
		store:        store,
		archive:      archive,
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}, nil
}

// Start starts the pipeline and all its components. Capture channels are
// attached via Handler().Start by hosts that have them.
func (p *Pipeline) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := p.healthServer.Start(); err != nil && err != http.ErrServerClosed {
			p.log.Error("Health server failed", "error", err)
		}
	}()

	// Start DB Metrics Collector
	if p.db != nil {
		p.db.StartMetricsCollector(ctx)
	}

	// Start Pruner
	p.log.Info("Starting retention pruner", "retention_days", p.events.RetentionDays())
	go p.pruner.Start(ctx)

	return nil
}

// Stop stops the pipeline.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.log.Info("Stopping pipeline...")

	// Wait for capture channels to drain
	p.handler.Stop()

	// Close Redis
	if p.redisClient != nil {
		if err := p.redisClient.Close(); err != nil {
			p.log.Warn("Failed to close Redis", "error", err)
		}
	}

	// Close DB
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			p.log.Warn("Failed to close database", "error", err)
		}
	}

	// Stop Health Server
	return p.healthServer.Stop(ctx)
}

// Events returns the logging service for hosts embedding the pipeline.
func (p *Pipeline) Events() *eventlog.Service { return p.events }

// Handler returns the error handler for hosts embedding the pipeline.
func (p *Pipeline) Handler() *handler.Handler { return p.handler }

// Archive returns the durable entry archive, nil when no database is
// configured.
func (p *Pipeline) Archive() storage.EntryArchive { return p.archive }

// connectRedis dials redis with a short fibonacci backoff so a briefly
// unavailable container does not force the memory fallback.
func connectRedis(ctx context.Context, cfg redisclient.Config) (*redisclient.Client, error) {
	var client *redisclient.Client
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := redisclient.NewClient(cfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	return client, err
}

func connectPostgres(ctx context.Context, cfg postgres.Config) (*postgres.DB, error) {
	var db *postgres.DB
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		d, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		db = d
		return nil
	})
	return db, err
}
