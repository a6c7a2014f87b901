// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Budget is the buyer's stated spend and whether sales has confirmed it.
type Budget struct {
	Amount      *float64
	IsValidated bool
	Source      string
}

// EngagementMetrics are the running interaction counters kept on the lead row.
// OutboundCount, RespondedCount and OutboundAwaitingSince back ResponseRate.
type EngagementMetrics struct {
	TotalInteractions     int
	ResponseRate          float64
	LastInteractionDate   *time.Time
	LastInteractionType   string
	OutboundCount         int
	RespondedCount        int
	OutboundAwaitingSince *time.Time
}

// FollowUpSchedule is the next planned contact. Overdue state is never stored.
type FollowUpSchedule struct {
	NextFollowUpDate *time.Time
	FollowUpType     string
	Notes            string
}

// IsAuto reports whether the schedule was written by the scoring worker
// rather than by a person.
func (f FollowUpSchedule) IsAuto() bool {
	return f.FollowUpType == FollowUpTypeAuto
}

// IsHumanScheduled reports whether a person planned the next contact.
func (f FollowUpSchedule) IsHumanScheduled() bool {
	return f.NextFollowUpDate != nil && !f.IsAuto()
}

// ScoreState is the derived state owned by the scoring worker.
type ScoreState struct {
	Score           int
	Grade           Grade
	Priority        Priority
	Confidence      int
	Factors         map[string]float64
	LastScoreUpdate *time.Time
}

// Lead is the aggregate under management.
type Lead struct {
	ID                  uuid.UUID
	OrganizationID      uuid.UUID
	ContactName         string
	ContactPhone        string
	ContactEmail        *string
	Status              Status
	QualificationStatus QualificationStatus
	AssignedTo          *uuid.UUID
	Budget              Budget
	Requirements        map[string]any
	Source              Source
	Scoring             ScoreState
	Engagement          EngagementMetrics
	FollowUp            FollowUpSchedule
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// InitialScoreState is the derived state of a lead that has never been scored.
func InitialScoreState() ScoreState {
	return ScoreState{
		Score:    0,
		Grade:    GradeD,
		Priority: PriorityVeryLow,
	}
}

// Interaction is an immutable entry in a lead's contact log.
type Interaction struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	ActorID        uuid.UUID
	Type           InteractionType
	Content        string
	Outcome        Outcome
	Direction      Direction
	NextAction     string
	ScheduledAt    *time.Time
	CreatedAt      time.Time
}
