// Package leads provides lead management functionality.
// This file holds the module's reactions to its own events: an activity log
// for request-path changes and a trail of score changes.
package leads

import (
	"context"

	"sales_crm_backend/internal/events"
	"sales_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// subscribeLeadEvents records lead activity raised on the request path.
func subscribeLeadEvents(bus events.Bus, log *logger.Logger) {
	if bus == nil {
		return
	}

	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadCreated)
		if !ok {
			return nil
		}
		log.WithContext(ctx).WithLead(e.LeadID.String(), e.OrganizationID.String()).Info("lead created",
			"source", e.Source,
			"assigned", e.AssignedTo != nil,
		)
		return nil
	}))

	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadAssigned)
		if !ok {
			return nil
		}
		log.WithContext(ctx).WithLead(e.LeadID.String(), e.OrganizationID.String()).Info("lead assigned",
			"previous_agent", agentString(e.PreviousAgent),
			"new_agent", agentString(e.NewAgent),
			"assigned_by", e.AssignedBy.String(),
		)
		return nil
	}))

	bus.Subscribe(events.LeadInteractionRecorded{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadInteractionRecorded)
		if !ok {
			return nil
		}
		log.WithContext(ctx).WithLead(e.LeadID.String(), e.OrganizationID.String()).Info("lead interaction recorded",
			"interaction_id", e.InteractionID.String(),
			"type", e.Type,
			"direction", e.Direction,
		)
		return nil
	}))
}

// subscribeScoreEvents logs score changes and priority escalations so agents'
// dashboards can be traced back to the recalculation that produced them. It
// must be registered on the bus the recalculator publishes to.
func subscribeScoreEvents(bus events.Bus, log *logger.Logger) {
	if bus == nil {
		return
	}

	bus.Subscribe(events.LeadScoreUpdated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadScoreUpdated)
		if !ok {
			return nil
		}
		log.WithContext(ctx).WithLead(e.LeadID.String(), e.OrganizationID.String()).Debug("lead score updated",
			"score", e.Score,
			"grade", e.Grade,
			"priority", e.Priority,
			"confidence", e.Confidence,
			"policy_version", e.PolicyVersion,
		)
		return nil
	}))

	bus.Subscribe(events.LeadPriorityEscalated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadPriorityEscalated)
		if !ok {
			return nil
		}
		log.WithContext(ctx).WithLead(e.LeadID.String(), e.OrganizationID.String()).Info("lead priority escalated",
			"priority", e.Priority,
			"previous_priority", e.PreviousPriority,
			"score", e.Score,
			"assigned_to", agentString(e.AssignedTo),
		)
		return nil
	}))
}

func agentString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
