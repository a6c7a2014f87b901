// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"sales_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published after a lead row is committed.
type LeadCreated struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	AssignedTo     *uuid.UUID `json:"assignedTo,omitempty"`
	Source         string     `json:"source"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadAssigned is published when the assigned agent changes.
type LeadAssigned struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	PreviousAgent  *uuid.UUID `json:"previousAgent,omitempty"`
	NewAgent       *uuid.UUID `json:"newAgent,omitempty"`
	AssignedBy     uuid.UUID  `json:"assignedBy"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadInteractionRecorded is published once an interaction and its metrics are stored.
type LeadInteractionRecorded struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	InteractionID  uuid.UUID `json:"interactionId"`
	Type           string    `json:"type"`
	Direction      string    `json:"direction"`
}

func (e LeadInteractionRecorded) EventName() string { return "leads.interaction.recorded" }

// =============================================================================
// Scoring Domain Events
// =============================================================================

// LeadScoreUpdated is published when a recalculation changes the stored score tuple.
type LeadScoreUpdated struct {
	BaseEvent
	LeadID           uuid.UUID `json:"leadId"`
	OrganizationID   uuid.UUID `json:"organizationId"`
	Score            float64   `json:"score"`
	Grade            string    `json:"grade"`
	Priority         string    `json:"priority"`
	PreviousPriority string    `json:"previousPriority"`
	Confidence       float64   `json:"confidence"`
	PolicyVersion    string    `json:"policyVersion"`
}

func (e LeadScoreUpdated) EventName() string { return "scoring.lead.score_updated" }

// LeadPriorityEscalated is published when a lead enters the High or Critical tier.
type LeadPriorityEscalated struct {
	BaseEvent
	LeadID           uuid.UUID  `json:"leadId"`
	OrganizationID   uuid.UUID  `json:"organizationId"`
	AssignedTo       *uuid.UUID `json:"assignedTo,omitempty"`
	Priority         string     `json:"priority"`
	PreviousPriority string     `json:"previousPriority"`
	Score            float64    `json:"score"`
}

func (e LeadPriorityEscalated) EventName() string { return "scoring.lead.priority_escalated" }
