package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales_crm_backend/internal/events"
	"sales_crm_backend/internal/leads/domain"
	"sales_crm_backend/internal/leads/followup"
	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/internal/leads/repository"
	"sales_crm_backend/platform/config"
	"sales_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the read and write surface the worker needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (domain.Lead, error)
	ListRecentInteractions(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, limit int) ([]domain.Interaction, error)
	UpdateLeadScore(ctx context.Context, update repository.ScoreUpdate) (repository.ScoreWriteResult, error)
	SetAutoFollowUp(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, schedule *domain.FollowUpSchedule) error
}

// RecalculatorSettings bound the work done per job.
type RecalculatorSettings struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryBaseDelay time.Duration
	SummaryLimit   int
}

// SettingsFromConfig reads worker settings from the scoring config.
func SettingsFromConfig(cfg config.ScoringConfig) RecalculatorSettings {
	return RecalculatorSettings{
		MaxAttempts:    cfg.GetScoreMaxAttempts(),
		AttemptTimeout: cfg.GetScoreAttemptTimeout(),
		RetryBaseDelay: cfg.GetScoreRetryBaseDelay(),
		SummaryLimit:   cfg.GetScoreSummaryLimit(),
	}
}

// errLeadGone marks a job whose lead was deleted after enqueue.
var errLeadGone = errors.New("lead no longer exists")

// Recalculator is the only writer of a lead's derived score fields.
// Every run reads the latest facts and writes a pure function of them, so
// duplicate or out-of-order delivery converges on the same state.
type Recalculator struct {
	store    Store
	policy   Policy
	bus      events.Bus
	log      *logger.Logger
	settings RecalculatorSettings
	Now      func() time.Time
	// sleep waits between attempts; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRecalculator(store Store, policy Policy, bus events.Bus, log *logger.Logger, settings RecalculatorSettings) *Recalculator {
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = 3
	}
	if settings.AttemptTimeout <= 0 {
		settings.AttemptTimeout = 5 * time.Second
	}
	if settings.SummaryLimit < 1 {
		settings.SummaryLimit = 50
	}
	return &Recalculator{
		store:    store,
		policy:   policy,
		bus:      bus,
		log:      log,
		settings: settings,
		Now:      time.Now,
		sleep:    sleepContext,
	}
}

var _ ports.ScoreJobProcessor = (*Recalculator)(nil)

// Process runs one job. Transient failures are retried with quadratic backoff;
// once the attempt budget is spent the job is dropped and nil is returned so
// the queue does not loop on it. Only cancellation of ctx is returned.
func (r *Recalculator) Process(ctx context.Context, job ports.ScoreJob) error {
	log := r.log.WithContext(ctx).WithLead(job.LeadID.String(), job.OrganizationID.String())

	var lastErr error
	for attempt := 1; attempt <= r.settings.MaxAttempts; attempt++ {
		err := r.run(ctx, job)
		if err == nil {
			return nil
		}
		if errors.Is(err, errLeadGone) {
			log.Debug("score job discarded, lead deleted")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		log.Warn("score recalculation attempt failed", "attempt", attempt, "error", err)

		if attempt < r.settings.MaxAttempts {
			delay := time.Duration(attempt*attempt) * r.settings.RetryBaseDelay
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	log.ScoreJobDropped(job.LeadID.String(), r.settings.MaxAttempts, lastErr)
	return nil
}

func (r *Recalculator) run(ctx context.Context, job ports.ScoreJob) error {
	var lead domain.Lead
	err := r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		lead, err = r.store.GetByID(ctx, job.LeadID, job.OrganizationID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return errLeadGone
	}
	if err != nil {
		return fmt.Errorf("load lead: %w", err)
	}

	var interactions []domain.Interaction
	err = r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		interactions, err = r.store.ListRecentInteractions(ctx, job.LeadID, job.OrganizationID, r.settings.SummaryLimit)
		return err
	})
	if err != nil {
		return fmt.Errorf("load interactions: %w", err)
	}

	now := r.Now().UTC()
	result := r.policy.Compute(Input{Lead: lead, Summary: Summarize(interactions), Now: now})

	var written repository.ScoreWriteResult
	err = r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		written, err = r.store.UpdateLeadScore(ctx, repository.ScoreUpdate{
			LeadID:         lead.ID,
			OrganizationID: lead.OrganizationID,
			Score:          result.Score,
			Grade:          result.Grade,
			Priority:       result.Priority,
			Confidence:     result.Confidence,
			Factors:        result.Factors,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("write score: %w", err)
	}
	if !written.Found {
		return errLeadGone
	}

	if schedule, ok := followup.AutoSchedule(lead, result.Priority); ok && !followup.SameSchedule(schedule, currentAuto(lead)) {
		err = r.withTimeout(ctx, func(ctx context.Context) error {
			return r.store.SetAutoFollowUp(ctx, lead.ID, lead.OrganizationID, schedule)
		})
		if err != nil {
			return fmt.Errorf("write follow-up: %w", err)
		}
	}

	if written.Changed {
		r.publish(ctx, lead, result, written)
	}
	return nil
}

// currentAuto returns the stored worker-owned schedule, or nil when none is stored.
func currentAuto(lead domain.Lead) *domain.FollowUpSchedule {
	if lead.FollowUp.NextFollowUpDate == nil {
		return nil
	}
	schedule := lead.FollowUp
	return &schedule
}

func (r *Recalculator) publish(ctx context.Context, lead domain.Lead, result Result, written repository.ScoreWriteResult) {
	if r.bus == nil {
		return
	}

	r.bus.Publish(ctx, events.LeadScoreUpdated{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           lead.ID,
		OrganizationID:   lead.OrganizationID,
		Score:            float64(result.Score),
		Grade:            string(result.Grade),
		Priority:         string(result.Priority),
		PreviousPriority: string(written.PreviousPriority),
		Confidence:       float64(result.Confidence),
		PolicyVersion:    result.Version,
	})

	if result.Priority.Rank() >= domain.PriorityHigh.Rank() && result.Priority.Rank() > written.PreviousPriority.Rank() {
		r.bus.Publish(ctx, events.LeadPriorityEscalated{
			BaseEvent:        events.NewBaseEvent(),
			LeadID:           lead.ID,
			OrganizationID:   lead.OrganizationID,
			AssignedTo:       lead.AssignedTo,
			Priority:         string(result.Priority),
			PreviousPriority: string(written.PreviousPriority),
			Score:            float64(result.Score),
		})
	}
}

func (r *Recalculator) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, r.settings.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
