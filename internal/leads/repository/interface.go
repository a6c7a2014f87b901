package repository

import (
	"context"
	"time"

	"sales_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (domain.Lead, error)
}

// LeadWriter provides request-path write operations.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
	Update(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params UpdateLeadParams) (UpdateResult, error)
	Assign(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, assignee *uuid.UUID) (UpdateResult, error)
	BulkUpdate(ctx context.Context, ids []uuid.UUID, organizationID uuid.UUID, params BulkUpdateParams) ([]uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) error
}

// InteractionStore appends interactions and reads them back.
type InteractionStore interface {
	RecordInteraction(ctx context.Context, params CreateInteractionParams, apply InteractionApplier) (domain.Interaction, domain.Lead, error)
	ListRecentInteractions(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, limit int) ([]domain.Interaction, error)
	ListInteractions(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, limit int, offset int) ([]domain.Interaction, int, error)
}

// ScoreWriter is the worker-owned write surface for derived fields.
type ScoreWriter interface {
	UpdateLeadScore(ctx context.Context, update ScoreUpdate) (ScoreWriteResult, error)
	SetAutoFollowUp(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, schedule *domain.FollowUpSchedule) error
}

// ScoreReader serves dashboard reads of derived fields.
type ScoreReader interface {
	ListScoreHistory(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, limit int) ([]ScoreHistoryEntry, error)
	ListByPriority(ctx context.Context, organizationID uuid.UUID, tiers []domain.Priority, limit int, offset int) ([]domain.Lead, int, error)
	ListOverdueFollowUps(ctx context.Context, organizationID uuid.UUID, now time.Time, limit int, offset int) ([]domain.Lead, int, error)
}

// StaleScoreFinder lists leads whose derived state lags their facts.
type StaleScoreFinder interface {
	ListStaleScores(ctx context.Context, changedBefore time.Time, limit int) ([]LeadRef, error)
}

// LeadRefLister pages through all lead ids.
type LeadRefLister interface {
	ListLeadRefs(ctx context.Context, afterID uuid.UUID, limit int) ([]LeadRef, error)
}

// LeadsRepository is the full repository surface.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	InteractionStore
	ScoreWriter
	ScoreReader
	StaleScoreFinder
	LeadRefLister
}

var _ LeadsRepository = (*Repository)(nil)
