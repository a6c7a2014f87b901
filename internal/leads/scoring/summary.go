package scoring

import (
	"sort"
	"time"

	"sales_crm_backend/internal/leads/domain"
)

// Summary aggregates a bounded window of recent interactions.
type Summary struct {
	Count            int
	ByType           map[domain.InteractionType]int
	Meetings         int
	PositiveOutcomes int
	NegativeOutcomes int
	Inbound          int
	MostRecent       *time.Time
	// Responses and AvgResponseTime measure outbound to next inbound gaps.
	Responses       int
	AvgResponseTime time.Duration
}

// Summarize folds interactions in any order into a Summary.
func Summarize(interactions []domain.Interaction) Summary {
	summary := Summary{ByType: map[domain.InteractionType]int{}}
	if len(interactions) == 0 {
		return summary
	}

	ordered := make([]domain.Interaction, len(interactions))
	copy(ordered, interactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	var awaiting *time.Time
	var totalResponse time.Duration
	for i := range ordered {
		in := ordered[i]
		summary.Count++
		summary.ByType[in.Type]++

		switch in.Type {
		case domain.InteractionMeeting, domain.InteractionSiteVisit:
			summary.Meetings++
		}
		switch in.Outcome {
		case domain.OutcomePositive:
			summary.PositiveOutcomes++
		case domain.OutcomeNegative:
			summary.NegativeOutcomes++
		}

		if in.Type == domain.InteractionNote {
			continue
		}
		if in.Direction == domain.DirectionInbound {
			summary.Inbound++
			if awaiting != nil {
				totalResponse += in.CreatedAt.Sub(*awaiting)
				summary.Responses++
				awaiting = nil
			}
		} else if awaiting == nil {
			at := in.CreatedAt
			awaiting = &at
		}
	}

	last := ordered[len(ordered)-1].CreatedAt
	summary.MostRecent = &last
	if summary.Responses > 0 {
		summary.AvgResponseTime = totalResponse / time.Duration(summary.Responses)
	}
	return summary
}
