package scoring

import (
	"math/rand/v2"
	"time"

	"sales_crm_backend/platform/config"
)

// TriggerDelays is how long each kind of mutation waits before its
// recalculation becomes eligible. Delays batch rapid successive edits.
type TriggerDelays struct {
	Create        time.Duration
	Update        time.Duration
	Interaction   time.Duration
	Assign        time.Duration
	BulkJitterMax time.Duration
}

// DefaultTriggerDelays are used when nothing is configured.
func DefaultTriggerDelays() TriggerDelays {
	return TriggerDelays{
		Create:        2 * time.Second,
		Update:        time.Second,
		Interaction:   2 * time.Second,
		Assign:        time.Second,
		BulkJitterMax: 5 * time.Second,
	}
}

func NewTriggerDelays(cfg config.ScoringConfig) TriggerDelays {
	return TriggerDelays{
		Create:        cfg.GetScoreDelayCreate(),
		Update:        cfg.GetScoreDelayUpdate(),
		Interaction:   cfg.GetScoreDelayInteraction(),
		Assign:        cfg.GetScoreDelayAssign(),
		BulkJitterMax: cfg.GetScoreBulkJitterMax(),
	}
}

// Bulk returns a uniform random delay in [0, BulkJitterMax) so a bulk edit
// does not release every job against the store at once.
func (d TriggerDelays) Bulk() time.Duration {
	if d.BulkJitterMax <= 0 {
		return 0
	}
	return rand.N(d.BulkJitterMax)
}
