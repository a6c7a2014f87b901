package scheduler

import (
	"context"
	"time"

	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/internal/leads/repository"
	"sales_crm_backend/platform/logger"
)

const (
	defaultReconcileInterval = 5 * time.Minute
	defaultReconcileGrace    = 2 * time.Minute
	reconcileBatchSize       = 100
)

// StaleScoreFinder lists leads whose facts changed after their last scoring.
type StaleScoreFinder interface {
	ListStaleScores(ctx context.Context, changedBefore time.Time, limit int) ([]repository.LeadRef, error)
}

// StaleScoreReconciler periodically re-enqueues leads whose trigger was lost.
type StaleScoreReconciler struct {
	finder   StaleScoreFinder
	queue    ports.ScoreQueue
	log      *logger.Logger
	interval time.Duration
	grace    time.Duration
	Now      func() time.Time
}

func NewStaleScoreReconciler(finder StaleScoreFinder, queue ports.ScoreQueue, log *logger.Logger, interval, grace time.Duration) *StaleScoreReconciler {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	if grace <= 0 {
		grace = defaultReconcileGrace
	}
	return &StaleScoreReconciler{
		finder:   finder,
		queue:    queue,
		log:      log,
		interval: interval,
		grace:    grace,
		Now:      time.Now,
	}
}

func (r *StaleScoreReconciler) Run(ctx context.Context) {
	if r == nil || r.finder == nil {
		return
	}

	r.reconcile(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile enqueues one batch and returns how many jobs it scheduled.
// Leads left over are picked up on the next tick.
func (r *StaleScoreReconciler) reconcile(ctx context.Context) int {
	refs, err := r.finder.ListStaleScores(ctx, r.Now().Add(-r.grace), reconcileBatchSize)
	if err != nil {
		r.log.Warn("stale score scan failed", "error", err)
		return 0
	}

	for _, ref := range refs {
		r.queue.EnqueueScoreRecalculation(ctx, ref.ID, ref.OrganizationID, 0)
	}
	if len(refs) > 0 {
		r.log.Info("stale scores re-enqueued", "count", len(refs))
	}
	return len(refs)
}
