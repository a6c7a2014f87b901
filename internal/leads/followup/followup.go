// Package followup maintains the next planned contact for a lead and derives
// overdue state at read time.
package followup

import (
	"fmt"
	"strings"
	"time"

	"sales_crm_backend/internal/leads/domain"
)

const day = 24 * time.Hour

// Status is the read-time view of a follow-up schedule.
type Status struct {
	IsOverdue   bool
	OverdueDays int
	Urgency     domain.Urgency
}

// View derives overdue state from the schedule. It must be called on every read.
func View(schedule domain.FollowUpSchedule, now time.Time) Status {
	if schedule.NextFollowUpDate == nil || !now.After(*schedule.NextFollowUpDate) {
		return Status{}
	}

	days := int(now.Sub(*schedule.NextFollowUpDate) / day)
	return Status{
		IsOverdue:   true,
		OverdueDays: days,
		Urgency:     urgencyFor(days),
	}
}

func urgencyFor(overdueDays int) domain.Urgency {
	switch {
	case overdueDays > 7:
		return domain.UrgencyCritical
	case overdueDays > 3:
		return domain.UrgencyHigh
	default:
		return domain.UrgencyMedium
	}
}

// FromInteraction returns the schedule declared by an interaction, or nil when
// the interaction does not plan a next contact.
func FromInteraction(interaction domain.Interaction) *domain.FollowUpSchedule {
	action := strings.TrimSpace(interaction.NextAction)
	if action == "" || interaction.ScheduledAt == nil {
		return nil
	}

	at := interaction.ScheduledAt.UTC()
	return &domain.FollowUpSchedule{
		NextFollowUpDate: &at,
		FollowUpType:     action,
		Notes:            interaction.Content,
	}
}

// Cadence is the gap between the last contact and the next automatic follow-up.
func Cadence(priority domain.Priority) time.Duration {
	switch priority {
	case domain.PriorityCritical:
		return day
	case domain.PriorityHigh:
		return 2 * day
	case domain.PriorityMedium:
		return 4 * day
	case domain.PriorityLow:
		return 7 * day
	default:
		return 14 * day
	}
}

// AutoSchedule computes the follow-up the scoring worker should store.
// ok is false when the current schedule must be left untouched. A nil schedule
// with ok true clears an automatic follow-up. The result only depends on stored
// facts, so repeated runs produce the same value.
func AutoSchedule(lead domain.Lead, priority domain.Priority) (schedule *domain.FollowUpSchedule, ok bool) {
	if lead.FollowUp.IsHumanScheduled() {
		return nil, false
	}

	if domain.IsTerminalStatus(lead.Status) {
		if lead.FollowUp.IsAuto() {
			return nil, true
		}
		return nil, false
	}

	base := lead.CreatedAt
	if lead.Engagement.LastInteractionDate != nil {
		base = *lead.Engagement.LastInteractionDate
	}
	next := base.Add(Cadence(priority)).UTC()

	return &domain.FollowUpSchedule{
		NextFollowUpDate: &next,
		FollowUpType:     domain.FollowUpTypeAuto,
		Notes:            fmt.Sprintf("%s priority cadence", priority),
	}, true
}

// SameSchedule reports whether two schedules would store identical values.
func SameSchedule(a, b *domain.FollowUpSchedule) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.FollowUpType != b.FollowUpType || a.Notes != b.Notes {
		return false
	}
	if a.NextFollowUpDate == nil || b.NextFollowUpDate == nil {
		return a.NextFollowUpDate == nil && b.NextFollowUpDate == nil
	}
	return a.NextFollowUpDate.Equal(*b.NextFollowUpDate)
}
