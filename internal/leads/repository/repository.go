package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sales_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, organization_id, contact_name, contact_phone, contact_email,
	status, qualification_status, assigned_to,
	budget_amount, budget_is_validated, budget_source, requirements, source,
	score, score_grade, priority, confidence, score_factors, last_score_update,
	total_interactions, response_rate, last_interaction_date, last_interaction_type,
	outbound_count, responded_count, outbound_awaiting_since,
	next_follow_up_date, follow_up_type, follow_up_notes,
	created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead                                       domain.Lead
		status, qualification, source, grade, tier string
		requirementsJSON, factorsJSON              []byte
	)
	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &lead.ContactName, &lead.ContactPhone, &lead.ContactEmail,
		&status, &qualification, &lead.AssignedTo,
		&lead.Budget.Amount, &lead.Budget.IsValidated, &lead.Budget.Source, &requirementsJSON, &source,
		&lead.Scoring.Score, &grade, &tier, &lead.Scoring.Confidence, &factorsJSON, &lead.Scoring.LastScoreUpdate,
		&lead.Engagement.TotalInteractions, &lead.Engagement.ResponseRate, &lead.Engagement.LastInteractionDate, &lead.Engagement.LastInteractionType,
		&lead.Engagement.OutboundCount, &lead.Engagement.RespondedCount, &lead.Engagement.OutboundAwaitingSince,
		&lead.FollowUp.NextFollowUpDate, &lead.FollowUp.FollowUpType, &lead.FollowUp.Notes,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	lead.Status = domain.Status(status)
	lead.QualificationStatus = domain.QualificationStatus(qualification)
	lead.Source = domain.Source(source)
	lead.Scoring.Grade = domain.Grade(grade)
	lead.Scoring.Priority = domain.Priority(tier)

	if len(requirementsJSON) > 0 {
		if err := json.Unmarshal(requirementsJSON, &lead.Requirements); err != nil {
			return domain.Lead{}, fmt.Errorf("decode requirements: %w", err)
		}
	}
	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &lead.Scoring.Factors); err != nil {
			return domain.Lead{}, fmt.Errorf("decode score factors: %w", err)
		}
	}
	return lead, nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

type CreateLeadParams struct {
	OrganizationID      uuid.UUID
	ContactName         string
	ContactPhone        string
	ContactEmail        *string
	Status              domain.Status
	QualificationStatus domain.QualificationStatus
	AssignedTo          *uuid.UUID
	Budget              domain.Budget
	Requirements        map[string]any
	Source              domain.Source
}

// Create inserts a lead in its unscored initial state.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	requirements, err := encodeRequirements(params.Requirements)
	if err != nil {
		return domain.Lead{}, err
	}
	initial := domain.InitialScoreState()

	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			organization_id, contact_name, contact_phone, contact_email,
			status, qualification_status, assigned_to,
			budget_amount, budget_is_validated, budget_source, requirements, source,
			score, score_grade, priority, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+leadColumns,
		params.OrganizationID, params.ContactName, params.ContactPhone, params.ContactEmail,
		string(params.Status), string(params.QualificationStatus), params.AssignedTo,
		params.Budget.Amount, params.Budget.IsValidated, params.Budget.Source, requirements, string(params.Source),
		initial.Score, string(initial.Grade), string(initial.Priority), initial.Confidence,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID))
}

// UpdateLeadParams is a partial update; nil fields are left untouched.
type UpdateLeadParams struct {
	ContactName         *string
	ContactPhone        *string
	ContactEmail        *string
	Status              *domain.Status
	QualificationStatus *domain.QualificationStatus
	Budget              *domain.Budget
	Requirements        map[string]any
	RequirementsSet     bool
	Source              *domain.Source
}

// UpdateResult carries the row before and after an update made under a row lock.
type UpdateResult struct {
	Previous domain.Lead
	Lead     domain.Lead
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params UpdateLeadParams) (UpdateResult, error) {
	fields := []setField{
		{params.ContactName != nil, "contact_name", derefString(params.ContactName)},
		{params.ContactPhone != nil, "contact_phone", derefString(params.ContactPhone)},
		{params.ContactEmail != nil, "contact_email", params.ContactEmail},
	}
	if params.Status != nil {
		fields = append(fields, setField{true, "status", string(*params.Status)})
	}
	if params.QualificationStatus != nil {
		fields = append(fields, setField{true, "qualification_status", string(*params.QualificationStatus)})
	}
	if params.Budget != nil {
		fields = append(fields,
			setField{true, "budget_amount", params.Budget.Amount},
			setField{true, "budget_is_validated", params.Budget.IsValidated},
			setField{true, "budget_source", params.Budget.Source},
		)
	}
	if params.RequirementsSet {
		requirements, err := encodeRequirements(params.Requirements)
		if err != nil {
			return UpdateResult{}, err
		}
		fields = append(fields, setField{true, "requirements", requirements})
	}
	if params.Source != nil {
		fields = append(fields, setField{true, "source", string(*params.Source)})
	}

	return r.updateLocked(ctx, id, organizationID, fields)
}

// Assign sets or clears the assigned agent.
func (r *Repository) Assign(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, assignee *uuid.UUID) (UpdateResult, error) {
	return r.updateLocked(ctx, id, organizationID, []setField{{true, "assigned_to", assignee}})
}

type setField struct {
	enabled bool
	column  string
	value   interface{}
}

// updateLocked applies a field-level update while holding the row lock so the
// caller can compare the previous and new facts without a race.
func (r *Repository) updateLocked(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, fields []setField) (UpdateResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return UpdateResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	previous, err := scanLead(tx.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE
	`, id, organizationID))
	if err != nil {
		return UpdateResult{}, err
	}

	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1
	for _, field := range fields {
		if !field.enabled {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field.column, argIdx))
		args = append(args, field.value)
		argIdx++
	}

	if len(setClauses) == 0 {
		if err := tx.Commit(ctx); err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{Previous: previous, Lead: previous}, nil
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id, organizationID)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $%d AND organization_id = $%d
		RETURNING `+leadColumns, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	updated, err := scanLead(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return UpdateResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Previous: previous, Lead: updated}, nil
}

// BulkUpdateParams applies the same change to many leads.
type BulkUpdateParams struct {
	Status              *domain.Status
	QualificationStatus *domain.QualificationStatus
	AssignedTo          *uuid.UUID
	AssignedToSet       bool
}

// BulkUpdate changes many leads in one statement and returns the affected ids.
func (r *Repository) BulkUpdate(ctx context.Context, ids []uuid.UUID, organizationID uuid.UUID, params BulkUpdateParams) ([]uuid.UUID, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	if params.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*params.Status))
		argIdx++
	}
	if params.QualificationStatus != nil {
		setClauses = append(setClauses, fmt.Sprintf("qualification_status = $%d", argIdx))
		args = append(args, string(*params.QualificationStatus))
		argIdx++
	}
	if params.AssignedToSet {
		setClauses = append(setClauses, fmt.Sprintf("assigned_to = $%d", argIdx))
		args = append(args, params.AssignedTo)
		argIdx++
	}
	if len(setClauses) == 0 || len(ids) == 0 {
		return []uuid.UUID{}, nil
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, ids, organizationID)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = ANY($%d) AND organization_id = $%d
		RETURNING id`, strings.Join(setClauses, ", "), argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	affected := make([]uuid.UUID, 0, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		affected = append(affected, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return affected, nil
}

// Delete removes the lead; interactions and score history cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM leads WHERE id = $1 AND organization_id = $2", id, organizationID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeRequirements(requirements map[string]any) ([]byte, error) {
	if requirements == nil {
		requirements = map[string]any{}
	}
	raw, err := json.Marshal(requirements)
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}
	return raw, nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func timeOrNil(value *time.Time) interface{} {
	if value == nil {
		return nil
	}
	return value.UTC()
}
