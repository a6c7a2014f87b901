package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"sales_crm_backend/internal/leads/ports"
	leadrepo "sales_crm_backend/internal/leads/repository"
	"sales_crm_backend/internal/scheduler"
	"sales_crm_backend/platform/config"
	"sales_crm_backend/platform/db"
	"sales_crm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Re-enqueues a recalculation for every lead, e.g. after the score policy changed.
// Jobs are paced so the worker pool and the store are not flooded.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead score backfill")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	repo := leadrepo.New(pool)
	limiter := rate.NewLimiter(rate.Limit(getPositiveIntEnv("BACKFILL_RATE", 50)), 10)
	batchSize := getPositiveIntEnv("BACKFILL_BATCH_SIZE", 500)

	var (
		cursor uuid.UUID
		total  int
		failed atomic.Int64
	)
	for {
		refs, err := repo.ListLeadRefs(ctx, cursor, batchSize)
		if err != nil {
			log.Error("failed to list leads", "error", err)
			return
		}
		if len(refs) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		for _, ref := range refs {
			g.Go(func() error {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
				job := ports.ScoreJob{LeadID: ref.ID, OrganizationID: ref.OrganizationID, EnqueuedAt: time.Now().UTC()}
				enqueueCtx, cancel := context.WithTimeout(gctx, 5*time.Second)
				defer cancel()
				if err := client.Enqueue(enqueueCtx, job); err != nil {
					failed.Add(1)
					log.Warn("backfill enqueue failed", "lead_id", ref.ID.String(), "error", err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			log.Warn("backfill interrupted", "error", err, "enqueued", total)
			return
		}

		total += len(refs)
		cursor = refs[len(refs)-1].ID
		log.Info("backfill batch enqueued", "batch", len(refs), "total", total)
	}

	log.Info("lead score backfill complete", "total", total, "failed", failed.Load())
}

func getPositiveIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
