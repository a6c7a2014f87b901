package repository

import (
	"context"
	"time"

	"sales_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const interactionColumns = `id, lead_id, organization_id, actor_id, type, content, outcome, direction,
	next_action, scheduled_at, created_at`

type CreateInteractionParams struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	ActorID        uuid.UUID
	Type           domain.InteractionType
	Content        string
	Outcome        domain.Outcome
	Direction      domain.Direction
	NextAction     string
	ScheduledAt    *time.Time
}

// InteractionApplier derives the lead's new engagement metrics and, optionally,
// a new follow-up schedule from the locked lead row and the stored interaction.
type InteractionApplier func(lead domain.Lead, interaction domain.Interaction) (domain.EngagementMetrics, *domain.FollowUpSchedule)

func scanInteraction(row pgx.Row) (domain.Interaction, error) {
	var (
		item                     domain.Interaction
		kind, outcome, direction string
		nextAction               *string
	)
	if err := row.Scan(
		&item.ID, &item.LeadID, &item.OrganizationID, &item.ActorID, &kind, &item.Content, &outcome, &direction,
		&nextAction, &item.ScheduledAt, &item.CreatedAt,
	); err != nil {
		return domain.Interaction{}, err
	}
	item.Type = domain.InteractionType(kind)
	item.Outcome = domain.Outcome(outcome)
	item.Direction = domain.Direction(direction)
	item.NextAction = derefString(nextAction)
	return item, nil
}

// RecordInteraction appends an interaction and writes the derived engagement
// metrics in one transaction. The lead row stays locked for the duration so
// concurrent additions serialize and no increment is lost.
func (r *Repository) RecordInteraction(ctx context.Context, params CreateInteractionParams, apply InteractionApplier) (domain.Interaction, domain.Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Interaction{}, domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := scanLead(tx.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE
	`, params.LeadID, params.OrganizationID))
	if err != nil {
		return domain.Interaction{}, domain.Lead{}, err
	}

	var nextAction *string
	if params.NextAction != "" {
		nextAction = &params.NextAction
	}
	interaction, err := scanInteraction(tx.QueryRow(ctx, `
		INSERT INTO lead_interactions (
			lead_id, organization_id, actor_id, type, content, outcome, direction, next_action, scheduled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+interactionColumns,
		params.LeadID, params.OrganizationID, params.ActorID, string(params.Type), params.Content,
		string(params.Outcome), string(params.Direction), nextAction, timeOrNil(params.ScheduledAt),
	))
	if err != nil {
		return domain.Interaction{}, domain.Lead{}, err
	}

	metrics, schedule := apply(lead, interaction)
	followUpSet := schedule != nil
	if schedule == nil {
		schedule = &lead.FollowUp
	}

	updated, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads SET
			total_interactions = $3,
			response_rate = $4,
			last_interaction_date = $5,
			last_interaction_type = $6,
			outbound_count = $7,
			responded_count = $8,
			outbound_awaiting_since = $9,
			next_follow_up_date = CASE WHEN $10 THEN $11 ELSE next_follow_up_date END,
			follow_up_type = CASE WHEN $10 THEN $12 ELSE follow_up_type END,
			follow_up_notes = CASE WHEN $10 THEN $13 ELSE follow_up_notes END,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+leadColumns,
		params.LeadID, params.OrganizationID,
		metrics.TotalInteractions, metrics.ResponseRate, timeOrNil(metrics.LastInteractionDate), metrics.LastInteractionType,
		metrics.OutboundCount, metrics.RespondedCount, timeOrNil(metrics.OutboundAwaitingSince),
		followUpSet, timeOrNil(schedule.NextFollowUpDate), schedule.FollowUpType, schedule.Notes,
	))
	if err != nil {
		return domain.Interaction{}, domain.Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Interaction{}, domain.Lead{}, err
	}
	return interaction, updated, nil
}

// ListRecentInteractions returns the newest interactions first, bounded by limit.
func (r *Repository) ListRecentInteractions(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, limit int) ([]domain.Interaction, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+interactionColumns+`
		FROM lead_interactions
		WHERE lead_id = $1 AND organization_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, leadID, organizationID, limit)
	if err != nil {
		return nil, err
	}
	return collectInteractions(rows)
}

// ListInteractions returns one page of a lead's interactions and the total count.
func (r *Repository) ListInteractions(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, limit int, offset int) ([]domain.Interaction, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM lead_interactions WHERE lead_id = $1 AND organization_id = $2
	`, leadID, organizationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+interactionColumns+`
		FROM lead_interactions
		WHERE lead_id = $1 AND organization_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, leadID, organizationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectInteractions(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func collectInteractions(rows pgx.Rows) ([]domain.Interaction, error) {
	defer rows.Close()

	items := make([]domain.Interaction, 0)
	for rows.Next() {
		item, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
