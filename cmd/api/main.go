package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homeaccess_backend/internal/adapters"
	"homeaccess_backend/internal/adapters/storage"
	"homeaccess_backend/internal/email"
	"homeaccess_backend/internal/events"
	apphttp "homeaccess_backend/internal/http"
	"homeaccess_backend/internal/http/router"
	"homeaccess_backend/internal/leads"
	leadsvc "homeaccess_backend/internal/leads/service"
	"homeaccess_backend/internal/maps"
	"homeaccess_backend/internal/matching"
	"homeaccess_backend/internal/notification"
	"homeaccess_backend/internal/proposals"
	"homeaccess_backend/internal/scheduler"
	"homeaccess_backend/migrations"
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/db"
	"homeaccess_backend/platform/idempotency"
	"homeaccess_backend/platform/logger"
	"homeaccess_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	idemStore, closeRedis := initIdempotencyStore(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(pool, sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	mapsModule, err := maps.NewModule(cfg, log)
	if err != nil {
		log.Error("failed to initialize maps module", "error", err)
		panic("failed to initialize maps module: " + err.Error())
	}

	leadsModule := leads.NewModule(pool, eventBus, val, cfg, log)
	if signer := initPreviewSigner(ctx, cfg, log); signer != nil {
		leadsModule.Service().SetPreviewSigner(signer)
	}
	if tracker, closeTracker := initViewTracker(cfg, log); tracker != nil {
		defer closeTracker()
		leadsModule.Service().SetViewTracker(tracker)
	}

	// Matching geocodes through the maps resolver (provider, then city table).
	matchingModule := matching.NewModule(pool, mapsModule.Resolver(), val, log)
	proposalsModule := proposals.NewModule(pool, eventBus, val, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:      cfg,
		Logger:      log,
		Health:      db.NewPoolAdapter(pool),
		EventBus:    eventBus,
		Idempotency: idemStore,
		Modules: []apphttp.Module{
			mapsModule,
			leadsModule,
			matchingModule,
			proposalsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initIdempotencyStore(cfg *config.Config, log *logger.Logger) (*idempotency.Store, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; Idempotency-Key replay disabled")
		return nil, nil
	}

	rdb, err := idempotency.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		return nil, nil
	}

	return idempotency.NewStore(rdb, cfg.GetIdempotencyTTL()), func() {
		_ = rdb.Close()
	}
}

func initPreviewSigner(ctx context.Context, cfg *config.Config, log *logger.Logger) leadsvc.PreviewSigner {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; lead preview images are served unsigned")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketLeadPreviews()
	if err := withRetry(ctx, log, "ensure lead-previews bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "leadPreviewsBucket", bucket)

	return adapters.NewLeadPreviewSigner(storageSvc, bucket)
}

func initViewTracker(cfg config.SchedulerConfig, log *logger.Logger) (leadsvc.ViewTracker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; lead views are counted inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
