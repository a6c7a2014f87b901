package management

import (
	"context"
	"sync"
	"testing"
	"time"

	"sales_crm_backend/internal/leads/domain"
	"sales_crm_backend/internal/leads/repository"
	"sales_crm_backend/internal/leads/scoring"
	"sales_crm_backend/internal/leads/transport"
	"sales_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	leads map[uuid.UUID]domain.Lead
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: map[uuid.UUID]domain.Lead{}}
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID, organizationID uuid.UUID) (domain.Lead, error) {
	lead, ok := r.leads[id]
	if !ok || lead.OrganizationID != organizationID {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (r *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (domain.Lead, error) {
	lead := domain.Lead{
		ID:                  uuid.New(),
		OrganizationID:      params.OrganizationID,
		ContactName:         params.ContactName,
		ContactPhone:        params.ContactPhone,
		ContactEmail:        params.ContactEmail,
		Status:              params.Status,
		QualificationStatus: params.QualificationStatus,
		AssignedTo:          params.AssignedTo,
		Budget:              params.Budget,
		Requirements:        params.Requirements,
		Source:              params.Source,
		Scoring:             domain.InitialScoreState(),
	}
	r.leads[lead.ID] = lead
	return lead, nil
}

func (r *fakeRepo) Update(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params repository.UpdateLeadParams) (repository.UpdateResult, error) {
	prev, err := r.GetByID(ctx, id, organizationID)
	if err != nil {
		return repository.UpdateResult{}, err
	}
	next := prev
	if params.ContactName != nil {
		next.ContactName = *params.ContactName
	}
	if params.ContactPhone != nil {
		next.ContactPhone = *params.ContactPhone
	}
	if params.Status != nil {
		next.Status = *params.Status
	}
	if params.QualificationStatus != nil {
		next.QualificationStatus = *params.QualificationStatus
	}
	if params.Budget != nil {
		next.Budget = *params.Budget
	}
	if params.RequirementsSet {
		next.Requirements = params.Requirements
	}
	if params.Source != nil {
		next.Source = *params.Source
	}
	r.leads[id] = next
	return repository.UpdateResult{Previous: prev, Lead: next}, nil
}

func (r *fakeRepo) Assign(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, assignee *uuid.UUID) (repository.UpdateResult, error) {
	prev, err := r.GetByID(ctx, id, organizationID)
	if err != nil {
		return repository.UpdateResult{}, err
	}
	next := prev
	next.AssignedTo = assignee
	r.leads[id] = next
	return repository.UpdateResult{Previous: prev, Lead: next}, nil
}

func (r *fakeRepo) BulkUpdate(_ context.Context, ids []uuid.UUID, organizationID uuid.UUID, params repository.BulkUpdateParams) ([]uuid.UUID, error) {
	var updated []uuid.UUID
	for _, id := range ids {
		lead, ok := r.leads[id]
		if !ok || lead.OrganizationID != organizationID {
			continue
		}
		if params.Status != nil {
			lead.Status = *params.Status
		}
		r.leads[id] = lead
		updated = append(updated, id)
	}
	return updated, nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID, organizationID uuid.UUID) error {
	lead, ok := r.leads[id]
	if !ok || lead.OrganizationID != organizationID {
		return repository.ErrNotFound
	}
	delete(r.leads, id)
	return nil
}

func (r *fakeRepo) ListScoreHistory(context.Context, uuid.UUID, uuid.UUID, int) ([]repository.ScoreHistoryEntry, error) {
	return nil, nil
}

func (r *fakeRepo) ListByPriority(_ context.Context, organizationID uuid.UUID, tiers []domain.Priority, limit int, _ int) ([]domain.Lead, int, error) {
	var out []domain.Lead
	for _, lead := range r.leads {
		for _, tier := range tiers {
			if lead.OrganizationID == organizationID && lead.Scoring.Priority == tier {
				out = append(out, lead)
			}
		}
	}
	return out, len(out), nil
}

func (r *fakeRepo) ListOverdueFollowUps(context.Context, uuid.UUID, time.Time, int, int) ([]domain.Lead, int, error) {
	return nil, 0, nil
}

func (r *fakeRepo) ListInteractions(context.Context, uuid.UUID, uuid.UUID, int, int) ([]domain.Interaction, int, error) {
	return nil, 0, nil
}

type fakeRecorder struct {
	repo *fakeRepo
	last repository.CreateInteractionParams
}

func (f *fakeRecorder) Record(ctx context.Context, params repository.CreateInteractionParams) (domain.Interaction, domain.Lead, error) {
	f.last = params
	lead, err := f.repo.GetByID(ctx, params.LeadID, params.OrganizationID)
	if err != nil {
		return domain.Interaction{}, domain.Lead{}, err
	}
	lead.Engagement.TotalInteractions++
	f.repo.leads[lead.ID] = lead
	return domain.Interaction{ID: uuid.New(), LeadID: lead.ID, Type: params.Type, Direction: params.Direction}, lead, nil
}

type queuedJob struct {
	leadID uuid.UUID
	delay  time.Duration
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []queuedJob
}

func (q *fakeQueue) EnqueueScoreRecalculation(_ context.Context, leadID, _ uuid.UUID, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, queuedJob{leadID: leadID, delay: delay})
}

func newTestService() (*Service, *fakeRepo, *fakeQueue) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	svc := New(repo, &fakeRecorder{repo: repo}, queue, scoring.DefaultTriggerDelays(), nil)
	return svc, repo, queue
}

func TestCreateNormalizesPhoneAndSchedulesScoring(t *testing.T) {
	svc, _, queue := newTestService()
	tenant := uuid.New()

	resp, err := svc.Create(context.Background(), tenant, transport.CreateLeadRequest{
		ContactName:  "Jan de Vries",
		ContactPhone: "06 12345678",
		Source:       "website",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ContactPhone != "+31612345678" {
		t.Fatalf("expected normalized phone, got %q", resp.ContactPhone)
	}
	if resp.Score != 0 || resp.ScoreGrade != "D" || resp.Priority != "Very Low" {
		t.Fatalf("unexpected initial score state %+v", resp)
	}
	if len(queue.jobs) != 1 || queue.jobs[0].leadID != resp.ID || queue.jobs[0].delay != 2*time.Second {
		t.Fatalf("expected one create job with 2s delay, got %+v", queue.jobs)
	}
}

func TestUpdateSchedulesOnlyForScoringInputs(t *testing.T) {
	svc, _, queue := newTestService()
	tenant := uuid.New()
	ctx := context.Background()
	created, _ := svc.Create(ctx, tenant, transport.CreateLeadRequest{ContactName: "A", ContactPhone: "0612345678"})
	queue.jobs = nil

	name := "Anna"
	if _, err := svc.Update(ctx, created.ID, tenant, transport.UpdateLeadRequest{ContactName: &name}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("contact change must not trigger scoring, got %+v", queue.jobs)
	}

	amount := 250000.0
	resp, err := svc.Update(ctx, created.ID, tenant, transport.UpdateLeadRequest{Budget: &transport.BudgetRequest{Amount: &amount, IsValidated: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Budget.Amount == nil || *resp.Budget.Amount != amount {
		t.Fatalf("expected budget to be stored")
	}
	if len(queue.jobs) != 1 || queue.jobs[0].delay != time.Second {
		t.Fatalf("expected one update job with 1s delay, got %+v", queue.jobs)
	}

	if _, err := svc.Update(ctx, created.ID, tenant, transport.UpdateLeadRequest{Budget: &transport.BudgetRequest{Amount: &amount, IsValidated: true}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("unchanged budget must not trigger scoring, got %d jobs", len(queue.jobs))
	}
}

func TestUpdateMissingLeadIsNotFound(t *testing.T) {
	svc, _, queue := newTestService()
	name := "x"

	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), transport.UpdateLeadRequest{ContactName: &name})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("expected no jobs")
	}
}

func TestGetByIDIsScopedToTenant(t *testing.T) {
	svc, _, _ := newTestService()
	created, _ := svc.Create(context.Background(), uuid.New(), transport.CreateLeadRequest{ContactName: "A", ContactPhone: "0612345678"})

	_, err := svc.GetByID(context.Background(), created.ID, uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected other tenant to get not found, got %v", err)
	}
}

func TestAssignSchedulesOnlyWhenAssigneeChanges(t *testing.T) {
	svc, _, queue := newTestService()
	tenant, actor, agent := uuid.New(), uuid.New(), uuid.New()
	ctx := context.Background()
	created, _ := svc.Create(ctx, tenant, transport.CreateLeadRequest{ContactName: "A", ContactPhone: "0612345678"})
	queue.jobs = nil

	resp, err := svc.Assign(ctx, created.ID, tenant, &agent, actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AssignedTo == nil || *resp.AssignedTo != agent {
		t.Fatalf("expected assignee %v, got %v", agent, resp.AssignedTo)
	}
	if len(queue.jobs) != 1 || queue.jobs[0].delay != time.Second {
		t.Fatalf("expected assign job with 1s delay, got %+v", queue.jobs)
	}

	if _, err := svc.Assign(ctx, created.ID, tenant, &agent, actor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("reassigning the same agent must not trigger scoring")
	}
}

func TestBulkUpdateSchedulesEveryLeadWithinJitter(t *testing.T) {
	svc, _, queue := newTestService()
	tenant := uuid.New()
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, 50)
	for i := 0; i < 50; i++ {
		lead, _ := svc.Create(ctx, tenant, transport.CreateLeadRequest{ContactName: "Lead", ContactPhone: "0612345678"})
		ids = append(ids, lead.ID)
	}
	queue.jobs = nil

	status := string(domain.StatusContacted)
	resp, err := svc.BulkUpdate(ctx, tenant, transport.BulkUpdateRequest{LeadIDs: append(ids, ids[0]), Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.UpdatedCount != 50 {
		t.Fatalf("expected 50 updated leads, got %d", resp.UpdatedCount)
	}
	if len(queue.jobs) != 50 {
		t.Fatalf("expected 50 jobs, got %d", len(queue.jobs))
	}
	seen := map[uuid.UUID]bool{}
	for _, job := range queue.jobs {
		if job.delay < 0 || job.delay >= 5*time.Second {
			t.Fatalf("delay %s outside jitter window", job.delay)
		}
		if seen[job.leadID] {
			t.Fatalf("duplicate job for %v", job.leadID)
		}
		seen[job.leadID] = true
	}
}

func TestBulkUpdateRequiresAField(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.BulkUpdate(context.Background(), uuid.New(), transport.BulkUpdateRequest{LeadIDs: []uuid.UUID{uuid.New()}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddInteractionSchedulesAfterRecording(t *testing.T) {
	svc, _, queue := newTestService()
	tenant := uuid.New()
	ctx := context.Background()
	created, _ := svc.Create(ctx, tenant, transport.CreateLeadRequest{ContactName: "A", ContactPhone: "0612345678"})
	queue.jobs = nil

	resp, err := svc.AddInteraction(ctx, created.ID, tenant, uuid.New(), transport.AddInteractionRequest{Type: "call", Direction: "outbound"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Lead.Engagement.TotalInteractions != 1 {
		t.Fatalf("expected metrics in response, got %+v", resp.Lead.Engagement)
	}
	if len(queue.jobs) != 1 || queue.jobs[0].delay != 2*time.Second {
		t.Fatalf("expected interaction job with 2s delay, got %+v", queue.jobs)
	}

	_, err = svc.AddInteraction(ctx, uuid.New(), tenant, uuid.New(), transport.AddInteractionRequest{Type: "call", Direction: "outbound"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("failed interaction must not trigger scoring")
	}
}

func TestAddInteractionStripsMarkup(t *testing.T) {
	repo := newFakeRepo()
	recorder := &fakeRecorder{repo: repo}
	svc := New(repo, recorder, &fakeQueue{}, scoring.DefaultTriggerDelays(), nil)
	tenant := uuid.New()
	ctx := context.Background()

	created, err := svc.Create(ctx, tenant, transport.CreateLeadRequest{ContactName: "  <b>Jan</b>  de Vries ", ContactPhone: "0612345678"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ContactName != "Jan de Vries" {
		t.Fatalf("expected cleaned name, got %q", created.ContactName)
	}

	scheduled := time.Now().Add(24 * time.Hour)
	_, err = svc.AddInteraction(ctx, created.ID, tenant, uuid.New(), transport.AddInteractionRequest{
		Type:        "note",
		Direction:   "outbound",
		Content:     "<p>Wants a   demo</p>",
		NextAction:  " send <i>deck</i> ",
		ScheduledAt: &scheduled,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recorder.last.Content != "Wants a demo" || recorder.last.NextAction != "send deck" {
		t.Fatalf("unexpected stored text %q / %q", recorder.last.Content, recorder.last.NextAction)
	}
}

func TestDeleteThenReadIsNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	tenant := uuid.New()
	ctx := context.Background()
	created, _ := svc.Create(ctx, tenant, transport.CreateLeadRequest{ContactName: "A", ContactPhone: "0612345678"})

	if err := svc.Delete(ctx, created.ID, tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(ctx, created.ID, tenant); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected second delete to be not found, got %v", err)
	}
}

func TestLeadResponseDerivesOverdueAtReadTime(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(-10 * 24 * time.Hour)
	lead := domain.Lead{
		ID:       uuid.New(),
		Scoring:  domain.InitialScoreState(),
		FollowUp: domain.FollowUpSchedule{NextFollowUpDate: &due, FollowUpType: "call"},
	}

	resp := ToLeadResponse(lead, now)
	if !resp.FollowUp.IsOverdue || resp.FollowUp.OverdueDays != 10 || resp.FollowUp.Urgency != "Critical" {
		t.Fatalf("unexpected follow-up view %+v", resp.FollowUp)
	}

	later := ToLeadResponse(lead, due.Add(-time.Hour))
	if later.FollowUp.IsOverdue || later.FollowUp.Urgency != "" {
		t.Fatalf("expected no urgency before due date, got %+v", later.FollowUp)
	}
}

func TestListByPriorityRejectsUnknownTier(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ListByPriority(context.Background(), uuid.New(), transport.ListByPriorityRequest{Min: "Urgent"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
