package scheduler

import (
	"context"
	"time"

	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// NoopQueue discards score jobs. It is wired when no queue backend is configured.
type NoopQueue struct {
	log *logger.Logger
}

func NewNoopQueue(log *logger.Logger) *NoopQueue {
	return &NoopQueue{log: log}
}

var _ ports.ScoreQueue = (*NoopQueue)(nil)

func (q *NoopQueue) EnqueueScoreRecalculation(ctx context.Context, leadID, _ uuid.UUID, delay time.Duration) {
	q.log.WithContext(ctx).Debug("score job discarded, no queue configured", "lead_id", leadID, "delay", delay)
}
