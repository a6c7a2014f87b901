// Package ports defines the capability interfaces the leads module depends on.
// Implementations live in infrastructure packages and are wired in main.go.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScoreQueue accepts requests to recompute one lead's derived state after a delay.
// Implementations never block the caller and never return an error: a job that
// cannot be queued is logged and dropped, and the stale-score reconciler catches up.
type ScoreQueue interface {
	EnqueueScoreRecalculation(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, delay time.Duration)
}

// ScoreJob is one recalculation request. Delay is only set while the job is
// on its way into a queue.
type ScoreJob struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	EnqueuedAt     time.Time
	Delay          time.Duration
}

// ScoreJobProcessor runs a delivered job. It returns an error only when the
// job should be delivered again, such as on shutdown.
type ScoreJobProcessor interface {
	Process(ctx context.Context, job ScoreJob) error
}
