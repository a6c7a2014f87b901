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

	"sales_crm_backend/internal/events"
	apphttp "sales_crm_backend/internal/http"
	"sales_crm_backend/internal/http/router"
	"sales_crm_backend/internal/leads"
	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/internal/scheduler"
	"sales_crm_backend/migrations"
	"sales_crm_backend/platform/config"
	"sales_crm_backend/platform/db"
	platformevents "sales_crm_backend/platform/events"
	"sales_crm_backend/platform/logger"
	"sales_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "scoreQueue", cfg.GetScoreQueueMode())

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
	eventBus := platformevents.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	queue, closeQueue, err := initScoreQueue(ctx, cfg, pool, eventBus, log)
	if err != nil {
		log.Error("failed to initialize score queue", "error", err)
		panic("failed to initialize score queue: " + err.Error())
	}
	defer closeQueue()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, eventBus, val, queue, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
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
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initScoreQueue picks the backend that receives scoring triggers. The returned
// close function is always safe to call.
func initScoreQueue(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (ports.ScoreQueue, func(), error) {
	switch cfg.GetScoreQueueMode() {
	case config.ScoreQueueRedis:
		client, err := scheduler.NewClient(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil

	case config.ScoreQueueLocal:
		recalculator, err := leads.NewScoreRecalculator(pool, bus, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		local := scheduler.NewLocalQueue(recalculator, log, scheduler.LocalQueueOptions{Workers: cfg.GetAsynqConcurrency()})
		local.Start(ctx)
		return local, func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := local.Stop(stopCtx); err != nil {
				log.Warn("local score queue stopped with jobs in flight", "error", err)
			}
		}, nil

	default:
		log.Warn("no score queue configured; scores will not be recalculated")
		return scheduler.NewNoopQueue(log), func() {}, nil
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
