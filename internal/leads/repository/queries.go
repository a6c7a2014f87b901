package repository

import (
	"context"
	"time"

	"sales_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LeadRef identifies a lead across organizations.
type LeadRef struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
}

// ListByPriority returns leads whose priority is one of tiers, highest score first.
func (r *Repository) ListByPriority(ctx context.Context, organizationID uuid.UUID, tiers []domain.Priority, limit int, offset int) ([]domain.Lead, int, error) {
	names := make([]string, len(tiers))
	for i, tier := range tiers {
		names[i] = string(tier)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads WHERE organization_id = $1 AND priority = ANY($2)
	`, organizationID, names).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE organization_id = $1 AND priority = ANY($2)
		ORDER BY score DESC, id ASC
		LIMIT $3 OFFSET $4
	`, organizationID, names, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListOverdueFollowUps returns leads whose next follow-up is before now, oldest first.
func (r *Repository) ListOverdueFollowUps(ctx context.Context, organizationID uuid.UUID, now time.Time, limit int, offset int) ([]domain.Lead, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE organization_id = $1 AND next_follow_up_date IS NOT NULL AND next_follow_up_date < $2
	`, organizationID, now.UTC()).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE organization_id = $1 AND next_follow_up_date IS NOT NULL AND next_follow_up_date < $2
		ORDER BY next_follow_up_date ASC, id ASC
		LIMIT $3 OFFSET $4
	`, organizationID, now.UTC(), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListStaleScores finds leads whose facts changed after their last successful
// scoring, and that have stayed that way since before changedBefore.
func (r *Repository) ListStaleScores(ctx context.Context, changedBefore time.Time, limit int) ([]LeadRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id
		FROM leads
		WHERE (last_score_update IS NULL OR last_score_update < updated_at)
			AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, changedBefore.UTC(), limit)
	if err != nil {
		return nil, err
	}
	return collectRefs(rows)
}

// ListLeadRefs pages through every lead by id for backfills.
func (r *Repository) ListLeadRefs(ctx context.Context, afterID uuid.UUID, limit int) ([]LeadRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id
		FROM leads
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectRefs(rows)
}

func collectRefs(rows pgx.Rows) ([]LeadRef, error) {
	defer rows.Close()

	refs := make([]LeadRef, 0)
	for rows.Next() {
		var ref LeadRef
		if err := rows.Scan(&ref.ID, &ref.OrganizationID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return refs, nil
}
