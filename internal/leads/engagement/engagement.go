// Package engagement keeps a lead's interaction counters current. Counters are
// updated synchronously with the interaction insert, before any scoring job is
// queued, so the next recalculation always sees them.
package engagement

import (
	"context"
	"time"

	"sales_crm_backend/internal/leads/domain"
	"sales_crm_backend/internal/leads/followup"
	"sales_crm_backend/internal/leads/repository"
)

// DefaultResponseWindow is how long an outbound contact waits for a reply.
const DefaultResponseWindow = 48 * time.Hour

// Fold applies one interaction to the metrics. Notes are logged but do not
// open or close a response window.
func Fold(metrics domain.EngagementMetrics, interaction domain.Interaction, window time.Duration) domain.EngagementMetrics {
	next := metrics
	next.TotalInteractions++

	at := interaction.CreatedAt
	if next.LastInteractionDate == nil || !at.Before(*next.LastInteractionDate) {
		next.LastInteractionDate = &at
		next.LastInteractionType = string(interaction.Type)
	}

	if interaction.Type == domain.InteractionNote {
		return next
	}

	switch interaction.Direction {
	case domain.DirectionOutbound:
		next.OutboundCount++
		next.OutboundAwaitingSince = &at
	case domain.DirectionInbound:
		if next.OutboundAwaitingSince != nil {
			if at.Sub(*next.OutboundAwaitingSince) <= window {
				next.RespondedCount++
			}
			next.OutboundAwaitingSince = nil
		}
	}

	next.ResponseRate = responseRate(next.RespondedCount, next.OutboundCount)
	return next
}

func responseRate(responded, outbound int) float64 {
	if outbound == 0 {
		return 0
	}
	rate := float64(responded) / float64(outbound)
	if rate > 1 {
		return 1
	}
	return rate
}

// Store is the transactional write the accumulator depends on.
type Store interface {
	RecordInteraction(ctx context.Context, params repository.CreateInteractionParams, apply repository.InteractionApplier) (domain.Interaction, domain.Lead, error)
}

// Accumulator records interactions together with their metric and follow-up effects.
type Accumulator struct {
	store  Store
	window time.Duration
}

func NewAccumulator(store Store, window time.Duration) *Accumulator {
	if window <= 0 {
		window = DefaultResponseWindow
	}
	return &Accumulator{store: store, window: window}
}

// Record stores the interaction and returns it with the updated lead.
func (a *Accumulator) Record(ctx context.Context, params repository.CreateInteractionParams) (domain.Interaction, domain.Lead, error) {
	return a.store.RecordInteraction(ctx, params, a.apply)
}

func (a *Accumulator) apply(lead domain.Lead, interaction domain.Interaction) (domain.EngagementMetrics, *domain.FollowUpSchedule) {
	return Fold(lead.Engagement, interaction, a.window), followup.FromInteraction(interaction)
}
