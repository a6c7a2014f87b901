package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	pendingKeyPrefix    = "leadscore:pending:"
	defaultPendingGrace = 30 * time.Second
)

// Coalescer tracks which leads already have a score job waiting in the queue.
// A marker lives until the worker picks the job up or its TTL runs out.
type Coalescer struct {
	rdb   redis.UniversalClient
	grace time.Duration
}

func NewCoalescer(rdb redis.UniversalClient, grace time.Duration) *Coalescer {
	if grace <= 0 {
		grace = defaultPendingGrace
	}
	return &Coalescer{rdb: rdb, grace: grace}
}

func pendingKey(leadID uuid.UUID) string {
	return pendingKeyPrefix + leadID.String()
}

// Reserve marks leadID as pending. It returns false when a job is already
// waiting. Redis errors are returned with reserved=true so callers enqueue anyway.
func (c *Coalescer) Reserve(ctx context.Context, leadID uuid.UUID, delay time.Duration) (bool, error) {
	if c == nil || c.rdb == nil {
		return true, nil
	}
	ok, err := c.rdb.SetNX(ctx, pendingKey(leadID), time.Now().UTC().Format(time.RFC3339Nano), delay+c.grace).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

// Release drops the pending marker so the next trigger schedules a new job.
func (c *Coalescer) Release(ctx context.Context, leadID uuid.UUID) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, pendingKey(leadID)).Err()
}
