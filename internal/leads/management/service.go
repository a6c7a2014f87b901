// Package management handles the request-path lifecycle of leads.
// Every mutation that can move a score is followed by a scoring trigger;
// the trigger never fails the request.
package management

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales_crm_backend/internal/events"
	"sales_crm_backend/internal/leads/domain"
	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/internal/leads/repository"
	"sales_crm_backend/internal/leads/scoring"
	"sales_crm_backend/internal/leads/transport"
	"sales_crm_backend/platform/apperr"
	"sales_crm_backend/platform/phone"
	"sales_crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound  = "lead not found"
	defaultPageSize  = 20
	maxPageSize      = 100
	scoreHistorySize = 20
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.ScoreReader
	ListInteractions(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, limit int, offset int) ([]domain.Interaction, int, error)
}

// InteractionRecorder appends an interaction and folds it into the lead's metrics.
type InteractionRecorder interface {
	Record(ctx context.Context, params repository.CreateInteractionParams) (domain.Interaction, domain.Lead, error)
}

// Service handles lead management operations.
type Service struct {
	repo         Repository
	interactions InteractionRecorder
	queue        ports.ScoreQueue
	delays       scoring.TriggerDelays
	bus          events.Bus
	Now          func() time.Time
}

// New creates a new lead management service.
func New(repo Repository, interactions InteractionRecorder, queue ports.ScoreQueue, delays scoring.TriggerDelays, bus events.Bus) *Service {
	return &Service{
		repo:         repo,
		interactions: interactions,
		queue:        queue,
		delays:       delays,
		bus:          bus,
		Now:          time.Now,
	}
}

// Create stores a new lead in its unscored state and schedules its first scoring.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	params := repository.CreateLeadParams{
		OrganizationID:      tenantID,
		ContactName:         sanitize.Line(req.ContactName),
		ContactPhone:        phone.NormalizeE164(req.ContactPhone),
		Status:              domain.StatusNew,
		QualificationStatus: domain.QualificationPending,
		AssignedTo:          req.AssignedTo,
		Requirements:        req.Requirements,
		Source:              domain.NormalizeSource(req.Source),
	}
	if req.ContactEmail != "" {
		params.ContactEmail = &req.ContactEmail
	}
	if req.Status != "" {
		params.Status = domain.Status(req.Status)
	}
	if req.QualificationStatus != "" {
		params.QualificationStatus = domain.QualificationStatus(req.QualificationStatus)
	}
	if req.Budget != nil {
		params.Budget = toBudget(*req.Budget)
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, fmt.Errorf("create lead: %w", err)
	}

	s.queue.EnqueueScoreRecalculation(ctx, lead.ID, lead.OrganizationID, s.delays.Create)
	s.publish(ctx, events.LeadCreated{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		AssignedTo:     lead.AssignedTo,
		Source:         string(lead.Source),
	})

	return ToLeadResponse(lead, s.Now()), nil
}

// GetByID retrieves a lead with its derived follow-up view.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.LeadResponse{}, mapNotFound(err)
	}
	return ToLeadResponse(lead, s.Now()), nil
}

// Update applies a partial update. Only changes to scoring inputs trigger a rescore.
func (s *Service) Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	params := repository.UpdateLeadParams{
		ContactName:  sanitize.LinePtr(req.ContactName),
		ContactEmail: req.ContactEmail,
	}
	if req.ContactPhone != nil {
		normalized := phone.NormalizeE164(*req.ContactPhone)
		params.ContactPhone = &normalized
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		params.Status = &status
	}
	if req.QualificationStatus != nil {
		qualification := domain.QualificationStatus(*req.QualificationStatus)
		params.QualificationStatus = &qualification
	}
	if req.Budget != nil {
		budget := toBudget(*req.Budget)
		params.Budget = &budget
	}
	if req.Requirements != nil {
		params.Requirements = req.Requirements
		params.RequirementsSet = true
	}
	if req.Source != nil {
		source := domain.NormalizeSource(*req.Source)
		params.Source = &source
	}

	result, err := s.repo.Update(ctx, id, tenantID, params)
	if err != nil {
		return transport.LeadResponse{}, mapNotFound(err)
	}

	if scoringInputsChanged(result.Previous, result.Lead) {
		s.queue.EnqueueScoreRecalculation(ctx, id, tenantID, s.delays.Update)
	}

	return ToLeadResponse(result.Lead, s.Now()), nil
}

// Assign sets or clears the assigned agent.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, assigneeID *uuid.UUID, actorID uuid.UUID) (transport.LeadResponse, error) {
	result, err := s.repo.Assign(ctx, id, tenantID, assigneeID)
	if err != nil {
		return transport.LeadResponse{}, mapNotFound(err)
	}

	if !equalUUIDPtrs(result.Previous.AssignedTo, result.Lead.AssignedTo) {
		s.queue.EnqueueScoreRecalculation(ctx, id, tenantID, s.delays.Assign)
		s.publish(ctx, events.LeadAssigned{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         id,
			OrganizationID: tenantID,
			PreviousAgent:  result.Previous.AssignedTo,
			NewAgent:       result.Lead.AssignedTo,
			AssignedBy:     actorID,
		})
	}

	return ToLeadResponse(result.Lead, s.Now()), nil
}

// BulkUpdate changes status, qualification or assignee of many leads in one
// statement and spreads their rescoring over the jitter window.
func (s *Service) BulkUpdate(ctx context.Context, tenantID uuid.UUID, req transport.BulkUpdateRequest) (transport.BulkUpdateResponse, error) {
	params := repository.BulkUpdateParams{
		AssignedTo:    req.AssignedTo.Value,
		AssignedToSet: req.AssignedTo.Set,
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		params.Status = &status
	}
	if req.QualificationStatus != nil {
		qualification := domain.QualificationStatus(*req.QualificationStatus)
		params.QualificationStatus = &qualification
	}
	if params.Status == nil && params.QualificationStatus == nil && !params.AssignedToSet {
		return transport.BulkUpdateResponse{}, apperr.Validation("no fields to update")
	}

	ids, err := s.repo.BulkUpdate(ctx, dedupe(req.LeadIDs), tenantID, params)
	if err != nil {
		return transport.BulkUpdateResponse{}, fmt.Errorf("bulk update leads: %w", err)
	}

	for _, id := range ids {
		s.queue.EnqueueScoreRecalculation(ctx, id, tenantID, s.delays.Bulk())
	}

	return transport.BulkUpdateResponse{UpdatedCount: len(ids), LeadIDs: ids}, nil
}

// Delete removes a lead with its interactions and score history.
// Jobs still queued for it find no row and end without writing.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, tenantID); err != nil {
		return mapNotFound(err)
	}
	return nil
}

// AddInteraction records a contact and schedules a rescore once it is committed.
func (s *Service) AddInteraction(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, actorID uuid.UUID, req transport.AddInteractionRequest) (transport.AddInteractionResponse, error) {
	if req.NextAction != "" && req.ScheduledAt == nil {
		return transport.AddInteractionResponse{}, apperr.Validation("scheduledAt is required with nextAction")
	}

	interaction, lead, err := s.interactions.Record(ctx, repository.CreateInteractionParams{
		LeadID:         leadID,
		OrganizationID: tenantID,
		ActorID:        actorID,
		Type:           domain.InteractionType(req.Type),
		Content:        sanitize.Text(req.Content),
		Outcome:        domain.Outcome(req.Outcome),
		Direction:      domain.Direction(req.Direction),
		NextAction:     sanitize.Line(req.NextAction),
		ScheduledAt:    req.ScheduledAt,
	})
	if err != nil {
		return transport.AddInteractionResponse{}, mapNotFound(err)
	}

	s.queue.EnqueueScoreRecalculation(ctx, leadID, tenantID, s.delays.Interaction)
	s.publish(ctx, events.LeadInteractionRecorded{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		OrganizationID: tenantID,
		InteractionID:  interaction.ID,
		Type:           string(interaction.Type),
		Direction:      string(interaction.Direction),
	})

	return transport.AddInteractionResponse{
		Interaction: ToInteractionResponse(interaction),
		Lead:        ToLeadResponse(lead, s.Now()),
	}, nil
}

// ListInteractions returns one page of a lead's contact log, newest first.
func (s *Service) ListInteractions(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, req transport.PageRequest) (transport.InteractionListResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID, tenantID); err != nil {
		return transport.InteractionListResponse{}, mapNotFound(err)
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	items, total, err := s.repo.ListInteractions(ctx, leadID, tenantID, pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.InteractionListResponse{}, fmt.Errorf("list interactions: %w", err)
	}

	resp := transport.InteractionListResponse{
		Items:      make([]transport.InteractionResponse, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}
	for i, item := range items {
		resp.Items[i] = ToInteractionResponse(item)
	}
	return resp, nil
}

// GetScoreBreakdown returns the stored score with its factors and recent history.
func (s *Service) GetScoreBreakdown(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (transport.ScoreBreakdownResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return transport.ScoreBreakdownResponse{}, mapNotFound(err)
	}

	history, err := s.repo.ListScoreHistory(ctx, id, tenantID, scoreHistorySize)
	if err != nil {
		return transport.ScoreBreakdownResponse{}, fmt.Errorf("list score history: %w", err)
	}

	return ToScoreBreakdownResponse(lead, history), nil
}

// ListByPriority lists leads at or above the given tier, highest score first.
func (s *Service) ListByPriority(ctx context.Context, tenantID uuid.UUID, req transport.ListByPriorityRequest) (transport.LeadListResponse, error) {
	minPriority := domain.PriorityHigh
	if req.Min != "" {
		parsed, ok := domain.ParsePriority(req.Min)
		if !ok {
			return transport.LeadListResponse{}, apperr.Validation("unknown priority")
		}
		minPriority = parsed
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	leads, total, err := s.repo.ListByPriority(ctx, tenantID, minPriority.AtLeast(), pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.LeadListResponse{}, fmt.Errorf("list leads by priority: %w", err)
	}
	return s.leadList(leads, total, page, pageSize), nil
}

// ListOverdueFollowUps lists leads whose next follow-up has passed.
func (s *Service) ListOverdueFollowUps(ctx context.Context, tenantID uuid.UUID, req transport.PageRequest) (transport.LeadListResponse, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	leads, total, err := s.repo.ListOverdueFollowUps(ctx, tenantID, s.Now(), pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.LeadListResponse{}, fmt.Errorf("list overdue follow-ups: %w", err)
	}
	return s.leadList(leads, total, page, pageSize), nil
}

func (s *Service) leadList(leads []domain.Lead, total, page, pageSize int) transport.LeadListResponse {
	now := s.Now()
	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead, now)
	}
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

// scoringInputsChanged reports whether an update touched a field the policy reads.
// Contact details do not move the score.
func scoringInputsChanged(before, after domain.Lead) bool {
	if before.Status != after.Status || before.QualificationStatus != after.QualificationStatus {
		return true
	}
	if before.Source != after.Source {
		return true
	}
	if !sameBudget(before.Budget, after.Budget) {
		return true
	}
	return !sameRequirements(before.Requirements, after.Requirements)
}

func sameBudget(a, b domain.Budget) bool {
	if a.IsValidated != b.IsValidated {
		return false
	}
	if a.Amount == nil || b.Amount == nil {
		return a.Amount == nil && b.Amount == nil
	}
	return *a.Amount == *b.Amount
}

func sameRequirements(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for key, av := range a {
		bv, ok := b[key]
		if !ok || fmt.Sprint(av) != fmt.Sprint(bv) {
			return false
		}
	}
	return true
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgLeadNotFound)
	}
	return err
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func totalPages(total, pageSize int) int {
	return (total + pageSize - 1) / pageSize
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func equalUUIDPtrs(a *uuid.UUID, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
