package domain

// Grade is the coarse A-D banding of a score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// GradeForScore is the only place grades are derived; grade is never set independently of score.
func GradeForScore(score int) Grade {
	switch {
	case score >= 85:
		return GradeA
	case score >= 65:
		return GradeB
	case score >= 40:
		return GradeC
	default:
		return GradeD
	}
}

// Priority is the escalation tier used by dashboards and follow-up cadence.
type Priority string

const (
	PriorityVeryLow  Priority = "Very Low"
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// priorityOrder lists tiers from lowest to highest.
var priorityOrder = []Priority{
	PriorityVeryLow,
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityCritical,
}

// PriorityForScore returns the base tier before qualitative escalation.
func PriorityForScore(score int) Priority {
	switch {
	case score >= 80:
		return PriorityCritical
	case score >= 60:
		return PriorityHigh
	case score >= 40:
		return PriorityMedium
	case score >= 20:
		return PriorityLow
	default:
		return PriorityVeryLow
	}
}

// Rank returns the tier's position, 0 for Very Low. Unknown values rank -1.
func (p Priority) Rank() int {
	for i, tier := range priorityOrder {
		if tier == p {
			return i
		}
	}
	return -1
}

// Escalate raises the tier by one, capped at Critical.
func (p Priority) Escalate() Priority {
	rank := p.Rank()
	if rank < 0 {
		return p
	}
	if rank+1 >= len(priorityOrder) {
		return PriorityCritical
	}
	return priorityOrder[rank+1]
}

// AtLeast returns every tier at or above p, highest first.
func (p Priority) AtLeast() []Priority {
	rank := p.Rank()
	if rank < 0 {
		return nil
	}
	tiers := make([]Priority, 0, len(priorityOrder)-rank)
	for i := len(priorityOrder) - 1; i >= rank; i-- {
		tiers = append(tiers, priorityOrder[i])
	}
	return tiers
}

// ParsePriority accepts a tier name as written in Priority values.
func ParsePriority(value string) (Priority, bool) {
	p := Priority(value)
	return p, p.Rank() >= 0
}

// Urgency is the read-side classification of an overdue follow-up.
type Urgency string

const (
	UrgencyNone     Urgency = ""
	UrgencyMedium   Urgency = "Medium"
	UrgencyHigh     Urgency = "High"
	UrgencyCritical Urgency = "Critical"
)
