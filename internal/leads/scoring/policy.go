// Package scoring computes derived lead scores and keeps them in sync with
// lead facts through the background recalculation worker.
package scoring

import (
	"math"
	"time"

	"sales_crm_backend/internal/leads/domain"
	"sales_crm_backend/internal/leads/followup"
)

const fastResponseThreshold = 24 * time.Hour

// Input is everything a policy may look at. It is a read-only snapshot.
type Input struct {
	Lead    domain.Lead
	Summary Summary
	Now     time.Time
}

// Result is the derived state produced by a policy.
type Result struct {
	Score      int
	Grade      domain.Grade
	Priority   domain.Priority
	Confidence int
	Factors    map[string]float64
	Version    string
}

// Policy turns a snapshot into derived state. Implementations must be pure
// and total: missing inputs lower confidence instead of failing.
type Policy interface {
	Compute(in Input) Result
}

// DefaultPolicy is the weighted additive policy.
type DefaultPolicy struct {
	weights Weights
}

// NewDefaultPolicy creates a policy with the given weights.
func NewDefaultPolicy(weights Weights) *DefaultPolicy {
	return &DefaultPolicy{weights: weights}
}

var _ Policy = (*DefaultPolicy)(nil)

func (p *DefaultPolicy) Compute(in Input) Result {
	factors := map[string]float64{}
	lead := in.Lead
	w := p.weights

	score := 0.0
	score += addFactor(factors, "budget", p.scoreBudget(lead.Budget))
	score += addFactor(factors, "requirements", p.scoreRequirements(lead.Requirements))
	score += addFactor(factors, "status", w.Status[lead.Status])
	score += addFactor(factors, "qualification", w.Qualification[lead.QualificationStatus])
	if lead.AssignedTo != nil {
		score += addFactor(factors, "assigned", w.Assigned)
	}
	score += addFactor(factors, "source", w.Source[domain.NormalizeSource(string(lead.Source))])
	score += addFactor(factors, "interactions", p.scoreInteractionVolume(lead.Engagement))
	score += addFactor(factors, "response_rate", clampFloat(lead.Engagement.ResponseRate, 0, 1)*w.ResponseRate)
	score += addFactor(factors, "recency", p.scoreRecency(lead.Engagement, in.Now))
	score += addFactor(factors, "meetings", p.scoreMeetings(in.Summary))
	score += addFactor(factors, "outcomes", p.scoreOutcomes(in.Summary))
	if in.Summary.Responses > 0 && in.Summary.AvgResponseTime <= fastResponseThreshold {
		score += addFactor(factors, "fast_response", w.FastResponse)
	}
	score += addFactor(factors, "stale", p.scoreStale(lead, in.Now))

	final := clampScore(score)
	return Result{
		Score:      final,
		Grade:      domain.GradeForScore(final),
		Priority:   p.priority(lead, final, in.Now),
		Confidence: confidence(lead),
		Factors:    factors,
		Version:    w.Version,
	}
}

// priority applies the qualitative escalation on top of the score tier.
// Only a follow-up planned by a person escalates: the auto follow-up is the
// worker's own output and must not feed back into the next run.
func (p *DefaultPolicy) priority(lead domain.Lead, score int, now time.Time) domain.Priority {
	base := domain.PriorityForScore(score)
	if domain.IsClosedLost(lead.Status) {
		return base
	}
	overdue := lead.FollowUp.IsHumanScheduled() && followup.View(lead.FollowUp, now).IsOverdue
	if lead.Status == domain.StatusNegotiation || overdue {
		return base.Escalate()
	}
	return base
}

func (p *DefaultPolicy) scoreBudget(budget domain.Budget) float64 {
	if budget.Amount == nil || *budget.Amount <= 0 {
		return 0
	}
	for _, tier := range p.weights.BudgetTiers {
		if *budget.Amount >= tier.Min {
			if budget.IsValidated {
				return tier.Points
			}
			return tier.Points * p.weights.UnvalidatedBudgetFactor
		}
	}
	return 0
}

// scoreRequirements counts non-empty top-level requirement entries.
func (p *DefaultPolicy) scoreRequirements(requirements map[string]any) float64 {
	filled := 0
	for _, value := range requirements {
		if !isEmptyValue(value) {
			filled++
		}
	}
	for _, tier := range p.weights.RequirementTiers {
		if filled >= tier.Min {
			return tier.Points
		}
	}
	return 0
}

func (p *DefaultPolicy) scoreInteractionVolume(metrics domain.EngagementMetrics) float64 {
	count := metrics.TotalInteractions
	if count > p.weights.InteractionCap {
		count = p.weights.InteractionCap
	}
	return float64(count) * p.weights.PerInteraction
}

func (p *DefaultPolicy) scoreRecency(metrics domain.EngagementMetrics, now time.Time) float64 {
	if metrics.LastInteractionDate == nil {
		return 0
	}
	days := now.Sub(*metrics.LastInteractionDate).Hours() / 24
	r := p.weights.Recency
	switch {
	case days <= 3:
		return r.Within3Days
	case days <= 7:
		return r.Within7Days
	case days <= 30:
		return r.Within30Days
	default:
		return r.Older
	}
}

func (p *DefaultPolicy) scoreMeetings(summary Summary) float64 {
	return math.Min(float64(summary.Meetings)*p.weights.PerMeeting, p.weights.MeetingCap)
}

func (p *DefaultPolicy) scoreOutcomes(summary Summary) float64 {
	positive := math.Min(float64(summary.PositiveOutcomes)*p.weights.PerPositive, p.weights.PositiveCap)
	negative := math.Max(float64(summary.NegativeOutcomes)*p.weights.PerNegative, p.weights.NegativeCap)
	return positive + negative
}

// scoreStale penalizes open leads nobody has talked to for a long time.
func (p *DefaultPolicy) scoreStale(lead domain.Lead, now time.Time) float64 {
	if p.weights.StaleAfterDays == 0 || domain.IsTerminalStatus(lead.Status) {
		return 0
	}
	last := lead.CreatedAt
	if lead.Engagement.LastInteractionDate != nil {
		last = *lead.Engagement.LastInteractionDate
	}
	if last.IsZero() {
		return 0
	}
	if now.Sub(last) > time.Duration(p.weights.StaleAfterDays)*24*time.Hour {
		return p.weights.StalePenalty
	}
	return 0
}

// confidence is the weighted share of scoring inputs that were present.
func confidence(lead domain.Lead) int {
	total := 0
	if lead.Budget.Amount != nil && *lead.Budget.Amount > 0 {
		total += 25
		if lead.Budget.IsValidated {
			total += 10
		}
	}
	if len(lead.Requirements) > 0 {
		total += 20
	}
	if lead.Engagement.TotalInteractions > 0 {
		total += 20
	}
	if lead.AssignedTo != nil {
		total += 10
	}
	if lead.Source != "" && domain.NormalizeSource(string(lead.Source)) != domain.SourceOther {
		total += 10
	}
	if lead.QualificationStatus == domain.QualificationQualified || lead.QualificationStatus == domain.QualificationDisqualified {
		total += 5
	}
	return total
}

func addFactor(factors map[string]float64, key string, value float64) float64 {
	if math.Abs(value) < 0.01 {
		return 0
	}
	factors[key] = math.Round(value*10) / 10
	return value
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

func clampScore(value float64) int {
	return int(math.Round(clampFloat(value, 0, 100)))
}

func clampFloat(value float64, min float64, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
