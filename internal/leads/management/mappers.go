package management

import (
	"time"

	"sales_crm_backend/internal/leads/domain"
	"sales_crm_backend/internal/leads/followup"
	"sales_crm_backend/internal/leads/repository"
	"sales_crm_backend/internal/leads/transport"
)

func toBudget(req transport.BudgetRequest) domain.Budget {
	return domain.Budget{
		Amount:      req.Amount,
		IsValidated: req.IsValidated,
		Source:      req.Source,
	}
}

// ToLeadResponse maps a lead to its API shape. Overdue state is derived from now
// and never stored.
func ToLeadResponse(lead domain.Lead, now time.Time) transport.LeadResponse {
	requirements := lead.Requirements
	if requirements == nil {
		requirements = map[string]any{}
	}

	return transport.LeadResponse{
		ID:                  lead.ID,
		ContactName:         lead.ContactName,
		ContactPhone:        lead.ContactPhone,
		ContactEmail:        lead.ContactEmail,
		Status:              string(lead.Status),
		QualificationStatus: string(lead.QualificationStatus),
		AssignedTo:          lead.AssignedTo,
		Budget: transport.BudgetResponse{
			Amount:      lead.Budget.Amount,
			IsValidated: lead.Budget.IsValidated,
			Source:      lead.Budget.Source,
		},
		Requirements:    requirements,
		Source:          string(lead.Source),
		Score:           lead.Scoring.Score,
		ScoreGrade:      string(lead.Scoring.Grade),
		Priority:        string(lead.Scoring.Priority),
		Confidence:      lead.Scoring.Confidence,
		LastScoreUpdate: lead.Scoring.LastScoreUpdate,
		Engagement: transport.EngagementResponse{
			TotalInteractions:   lead.Engagement.TotalInteractions,
			ResponseRate:        lead.Engagement.ResponseRate,
			LastInteractionDate: lead.Engagement.LastInteractionDate,
			LastInteractionType: lead.Engagement.LastInteractionType,
		},
		FollowUp:  toFollowUpResponse(lead.FollowUp, now),
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
}

func toFollowUpResponse(schedule domain.FollowUpSchedule, now time.Time) transport.FollowUpResponse {
	view := followup.View(schedule, now)
	return transport.FollowUpResponse{
		NextFollowUpDate: schedule.NextFollowUpDate,
		FollowUpType:     schedule.FollowUpType,
		Notes:            schedule.Notes,
		IsOverdue:        view.IsOverdue,
		OverdueDays:      view.OverdueDays,
		Urgency:          string(view.Urgency),
	}
}

func ToInteractionResponse(interaction domain.Interaction) transport.InteractionResponse {
	return transport.InteractionResponse{
		ID:          interaction.ID,
		LeadID:      interaction.LeadID,
		ActorID:     interaction.ActorID,
		Type:        string(interaction.Type),
		Content:     interaction.Content,
		Outcome:     string(interaction.Outcome),
		Direction:   string(interaction.Direction),
		NextAction:  interaction.NextAction,
		ScheduledAt: interaction.ScheduledAt,
		CreatedAt:   interaction.CreatedAt,
	}
}

// ToScoreBreakdownResponse reports the stored score. Pending is set while a
// change to the lead has not been scored yet.
func ToScoreBreakdownResponse(lead domain.Lead, history []repository.ScoreHistoryEntry) transport.ScoreBreakdownResponse {
	factors := lead.Scoring.Factors
	if factors == nil {
		factors = map[string]float64{}
	}

	resp := transport.ScoreBreakdownResponse{
		LeadID:          lead.ID,
		Score:           lead.Scoring.Score,
		Grade:           string(lead.Scoring.Grade),
		Priority:        string(lead.Scoring.Priority),
		Confidence:      lead.Scoring.Confidence,
		Factors:         factors,
		LastScoreUpdate: lead.Scoring.LastScoreUpdate,
		Pending:         lead.Scoring.LastScoreUpdate == nil || lead.Scoring.LastScoreUpdate.Before(lead.UpdatedAt),
		History:         make([]transport.ScoreHistoryResponse, len(history)),
	}
	for i, entry := range history {
		resp.History[i] = transport.ScoreHistoryResponse{
			Score:      entry.Score,
			Grade:      string(entry.Grade),
			Priority:   string(entry.Priority),
			Confidence: entry.Confidence,
			RecordedAt: entry.RecordedAt,
		}
	}
	return resp
}
