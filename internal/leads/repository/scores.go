package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sales_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ScoreUpdate is the derived state written by the scoring worker.
type ScoreUpdate struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	Score          int
	Grade          domain.Grade
	Priority       domain.Priority
	Confidence     int
	Factors        map[string]float64
}

// ScoreWriteResult reports what UpdateLeadScore did.
type ScoreWriteResult struct {
	// Found is false when the lead no longer exists; nothing was written.
	Found bool
	// Changed is true when the score tuple differs from the stored one.
	Changed          bool
	PreviousScore    int
	PreviousPriority domain.Priority
	// ScoredAt is the database time stamped on last_score_update.
	ScoredAt time.Time
}

// UpdateLeadScore writes only the derived score columns, leaving every
// request-owned column and updated_at untouched. A history row is appended
// only when the tuple changed, so redelivered jobs add nothing.
// last_score_update is stamped by the database after the row lock is held, so
// it compares correctly with updated_at whatever the worker's clock says.
func (r *Repository) UpdateLeadScore(ctx context.Context, update ScoreUpdate) (ScoreWriteResult, error) {
	factors, err := json.Marshal(update.Factors)
	if err != nil {
		return ScoreWriteResult{}, fmt.Errorf("encode score factors: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ScoreWriteResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		prevScore, prevConfidence int
		prevGrade, prevPriority   string
	)
	err = tx.QueryRow(ctx, `
		SELECT score, score_grade, priority, confidence
		FROM leads
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE
	`, update.LeadID, update.OrganizationID).Scan(&prevScore, &prevGrade, &prevPriority, &prevConfidence)
	if errors.Is(err, pgx.ErrNoRows) {
		return ScoreWriteResult{Found: false}, nil
	}
	if err != nil {
		return ScoreWriteResult{}, err
	}

	result := ScoreWriteResult{
		Found:            true,
		PreviousScore:    prevScore,
		PreviousPriority: domain.Priority(prevPriority),
		Changed: prevScore != update.Score ||
			prevGrade != string(update.Grade) ||
			prevPriority != string(update.Priority) ||
			prevConfidence != update.Confidence,
	}

	err = tx.QueryRow(ctx, `
		UPDATE leads SET
			score = $3, score_grade = $4, priority = $5, confidence = $6,
			score_factors = $7, last_score_update = clock_timestamp()
		WHERE id = $1 AND organization_id = $2
		RETURNING last_score_update
	`, update.LeadID, update.OrganizationID, update.Score, string(update.Grade), string(update.Priority),
		update.Confidence, factors).Scan(&result.ScoredAt)
	if err != nil {
		return ScoreWriteResult{}, err
	}

	if result.Changed {
		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_score_history (lead_id, organization_id, score, score_grade, priority, confidence, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, update.LeadID, update.OrganizationID, update.Score, string(update.Grade), string(update.Priority),
			update.Confidence, result.ScoredAt); err != nil {
			return ScoreWriteResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ScoreWriteResult{}, err
	}
	return result, nil
}

// SetAutoFollowUp writes or clears the worker-owned follow-up. The guard keeps
// a follow-up a person scheduled in the meantime. A nil schedule clears.
func (r *Repository) SetAutoFollowUp(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, schedule *domain.FollowUpSchedule) error {
	var (
		next  interface{}
		kind  string
		notes string
	)
	if schedule != nil {
		next = timeOrNil(schedule.NextFollowUpDate)
		kind = schedule.FollowUpType
		notes = schedule.Notes
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			next_follow_up_date = $3, follow_up_type = $4, follow_up_notes = $5
		WHERE id = $1 AND organization_id = $2
			AND (next_follow_up_date IS NULL OR follow_up_type = $6)
	`, leadID, organizationID, next, kind, notes, domain.FollowUpTypeAuto)
	return err
}

// ScoreHistoryEntry is one recorded change of a lead's derived score.
type ScoreHistoryEntry struct {
	Score      int
	Grade      domain.Grade
	Priority   domain.Priority
	Confidence int
	RecordedAt time.Time
}

func (r *Repository) ListScoreHistory(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, limit int) ([]ScoreHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT score, score_grade, priority, confidence, recorded_at
		FROM lead_score_history
		WHERE lead_id = $1 AND organization_id = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`, leadID, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ScoreHistoryEntry, 0)
	for rows.Next() {
		var (
			item            ScoreHistoryEntry
			grade, priority string
		)
		if err := rows.Scan(&item.Score, &grade, &priority, &item.Confidence, &item.RecordedAt); err != nil {
			return nil, err
		}
		item.Grade = domain.Grade(grade)
		item.Priority = domain.Priority(priority)
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
