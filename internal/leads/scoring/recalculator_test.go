package scoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sales_crm_backend/internal/leads/domain"
	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/internal/leads/repository"
	"sales_crm_backend/platform/events"
	"sales_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// memoryStore mimics the repository's field-level writes against one map of leads.
type memoryStore struct {
	mu           sync.Mutex
	leads        map[uuid.UUID]domain.Lead
	interactions map[uuid.UUID][]domain.Interaction
	history      map[uuid.UUID]int
	scoreWrites  int
	getErrs      []error
	// clock stands in for the database clock that stamps last_score_update.
	clock func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		leads:        map[uuid.UUID]domain.Lead{},
		interactions: map[uuid.UUID][]domain.Interaction{},
		history:      map[uuid.UUID]int{},
		clock:        func() time.Time { return testNow },
	}
}

func (s *memoryStore) put(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = lead
}

func (s *memoryStore) get(id uuid.UUID) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leads[id]
}

func (s *memoryStore) delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leads, id)
}

func (s *memoryStore) GetByID(_ context.Context, id uuid.UUID, organizationID uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.getErrs) > 0 {
		err := s.getErrs[0]
		s.getErrs = s.getErrs[1:]
		return domain.Lead{}, err
	}
	lead, ok := s.leads[id]
	if !ok || lead.OrganizationID != organizationID {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *memoryStore) ListRecentInteractions(_ context.Context, leadID uuid.UUID, _ uuid.UUID, _ int) ([]domain.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Interaction(nil), s.interactions[leadID]...), nil
}

func (s *memoryStore) UpdateLeadScore(_ context.Context, update repository.ScoreUpdate) (repository.ScoreWriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[update.LeadID]
	if !ok {
		return repository.ScoreWriteResult{}, nil
	}
	s.scoreWrites++

	prev := lead.Scoring
	changed := prev.Score != update.Score || prev.Grade != update.Grade || prev.Priority != update.Priority || prev.Confidence != update.Confidence
	scoredAt := s.clock()
	lead.Scoring = domain.ScoreState{
		Score:           update.Score,
		Grade:           update.Grade,
		Priority:        update.Priority,
		Confidence:      update.Confidence,
		Factors:         update.Factors,
		LastScoreUpdate: &scoredAt,
	}
	s.leads[update.LeadID] = lead
	if changed {
		s.history[update.LeadID]++
	}
	return repository.ScoreWriteResult{Found: true, Changed: changed, PreviousScore: prev.Score, PreviousPriority: prev.Priority, ScoredAt: scoredAt}, nil
}

func (s *memoryStore) SetAutoFollowUp(_ context.Context, leadID uuid.UUID, _ uuid.UUID, schedule *domain.FollowUpSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok || lead.FollowUp.IsHumanScheduled() {
		return nil
	}
	if schedule == nil {
		lead.FollowUp = domain.FollowUpSchedule{}
	} else {
		lead.FollowUp = *schedule
	}
	s.leads[leadID] = lead
	return nil
}

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestRecalculator(store Store, bus events.Bus) *Recalculator {
	r := NewRecalculator(store, NewDefaultPolicy(DefaultWeights()), bus, logger.New("test"), RecalculatorSettings{
		MaxAttempts:    3,
		AttemptTimeout: time.Second,
		RetryBaseDelay: time.Millisecond,
	})
	r.Now = func() time.Time { return testNow }
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func seedLead(store *memoryStore) domain.Lead {
	lead := domain.Lead{
		ID:                  uuid.New(),
		OrganizationID:      uuid.New(),
		Status:              domain.StatusNew,
		QualificationStatus: domain.QualificationPending,
		Source:              domain.SourceWebsite,
		Scoring:             domain.InitialScoreState(),
		CreatedAt:           testNow.Add(-time.Hour),
	}
	store.put(lead)
	return lead
}

func jobFor(lead domain.Lead) ports.ScoreJob {
	return ports.ScoreJob{LeadID: lead.ID, OrganizationID: lead.OrganizationID, EnqueuedAt: testNow}
}

func TestProcessIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	lead := seedLead(store)
	r := newTestRecalculator(store, nil)

	if err := r.Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := store.get(lead.ID)
	if err := r.Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := store.get(lead.ID)

	if first.Scoring.Score != second.Scoring.Score ||
		first.Scoring.Grade != second.Scoring.Grade ||
		first.Scoring.Priority != second.Scoring.Priority ||
		first.Scoring.Confidence != second.Scoring.Confidence {
		t.Fatalf("derived state drifted: %+v vs %+v", first.Scoring, second.Scoring)
	}
	if !followupEqual(first.FollowUp, second.FollowUp) {
		t.Fatalf("follow-up drifted: %+v vs %+v", first.FollowUp, second.FollowUp)
	}
	if store.history[lead.ID] != 1 {
		t.Fatalf("expected one history row, got %d", store.history[lead.ID])
	}
}

func TestProcessIsIdempotentForOldLead(t *testing.T) {
	store := newMemoryStore()
	lead := seedLead(store)
	lead.CreatedAt = testNow.Add(-20 * 24 * time.Hour)
	store.put(lead)
	r := newTestRecalculator(store, nil)

	var runs []domain.Lead
	for i := 0; i < 3; i++ {
		if err := r.Process(context.Background(), jobFor(lead)); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		runs = append(runs, store.get(lead.ID))
	}

	for i := 1; i < len(runs); i++ {
		if runs[i].Scoring.Priority != runs[0].Scoring.Priority || runs[i].Scoring.Score != runs[0].Scoring.Score {
			t.Fatalf("run %d drifted: %s/%d vs %s/%d", i+1,
				runs[i].Scoring.Priority, runs[i].Scoring.Score, runs[0].Scoring.Priority, runs[0].Scoring.Score)
		}
		if !followupEqual(runs[i].FollowUp, runs[0].FollowUp) {
			t.Fatalf("run %d moved the follow-up: %+v vs %+v", i+1, runs[i].FollowUp, runs[0].FollowUp)
		}
	}
	if !runs[0].FollowUp.IsAuto() {
		t.Fatalf("expected an auto follow-up, got %+v", runs[0].FollowUp)
	}
	if store.history[lead.ID] != 1 {
		t.Fatalf("expected one history row, got %d", store.history[lead.ID])
	}
}

func TestProcessStampsScoreWithStoreClock(t *testing.T) {
	store := newMemoryStore()
	dbNow := testNow.Add(time.Hour)
	store.clock = func() time.Time { return dbNow }
	lead := seedLead(store)
	lead.UpdatedAt = dbNow.Add(-time.Second)
	store.put(lead)

	// The worker clock runs an hour behind the store.
	if err := newTestRecalculator(store, nil).Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scored := store.get(lead.ID).Scoring.LastScoreUpdate
	if scored == nil || !scored.Equal(dbNow) {
		t.Fatalf("expected last score update %s, got %v", dbNow, scored)
	}
	if scored.Before(lead.UpdatedAt) {
		t.Fatalf("freshly scored lead still looks stale")
	}
}

func TestProcessConvergesUnderDuplicateDelivery(t *testing.T) {
	single := newMemoryStore()
	lead := seedLead(single)
	dup := newMemoryStore()
	dup.put(lead)

	if err := newTestRecalculator(single, nil).Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("single run: %v", err)
	}

	r := newTestRecalculator(dup, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Process(context.Background(), jobFor(lead)); err != nil {
				t.Errorf("duplicate run: %v", err)
			}
		}()
	}
	wg.Wait()

	want := single.get(lead.ID).Scoring
	got := dup.get(lead.ID).Scoring
	if want.Score != got.Score || want.Grade != got.Grade || want.Priority != got.Priority || want.Confidence != got.Confidence {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestProcessDiscardsJobForDeletedLead(t *testing.T) {
	store := newMemoryStore()
	lead := seedLead(store)
	store.delete(lead.ID)

	if err := newTestRecalculator(store, nil).Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("expected silent discard, got %v", err)
	}
	if store.scoreWrites != 0 {
		t.Fatalf("expected no writes, got %d", store.scoreWrites)
	}
}

func TestProcessRetriesTransientErrors(t *testing.T) {
	store := newMemoryStore()
	lead := seedLead(store)
	store.getErrs = []error{errors.New("timeout"), errors.New("timeout")}

	if err := newTestRecalculator(store, nil).Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.scoreWrites != 1 {
		t.Fatalf("expected the third attempt to write, got %d writes", store.scoreWrites)
	}
}

func TestProcessDropsJobAfterAttemptBudget(t *testing.T) {
	store := newMemoryStore()
	lead := seedLead(store)
	store.getErrs = []error{errors.New("down"), errors.New("down"), errors.New("down"), errors.New("down")}

	if err := newTestRecalculator(store, nil).Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("expected drop without error, got %v", err)
	}
	if store.scoreWrites != 0 {
		t.Fatalf("expected no writes, got %d", store.scoreWrites)
	}
	if len(store.getErrs) != 1 {
		t.Fatalf("expected exactly 3 attempts, %d errors left", len(store.getErrs))
	}
}

func TestProcessReturnsCancellation(t *testing.T) {
	store := newMemoryStore()
	lead := seedLead(store)
	store.getErrs = []error{context.Canceled}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newTestRecalculator(store, nil).Process(ctx, jobFor(lead)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEndToEndBudgetUpdateRaisesScore(t *testing.T) {
	store := newMemoryStore()
	lead := seedLead(store)
	r := newTestRecalculator(store, nil)

	created := store.get(lead.ID)
	if created.Scoring.Score != 0 || created.Scoring.Grade != domain.GradeD || created.Scoring.Priority != domain.PriorityVeryLow {
		t.Fatalf("unexpected initial state %+v", created.Scoring)
	}

	if err := r.Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("first job: %v", err)
	}
	scored := store.get(lead.ID)
	if scored.Scoring.Grade != domain.GradeD || scored.Scoring.Confidence > 20 {
		t.Fatalf("expected low-confidence D lead, got %+v", scored.Scoring)
	}
	if scored.FollowUp.FollowUpType != domain.FollowUpTypeAuto {
		t.Fatalf("expected auto follow-up, got %+v", scored.FollowUp)
	}

	amount := 1_200_000.0
	updated := store.get(lead.ID)
	updated.Budget = domain.Budget{Amount: &amount, IsValidated: true}
	store.put(updated)

	if err := r.Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("second job: %v", err)
	}
	final := store.get(lead.ID)
	if final.Scoring.Score <= scored.Scoring.Score {
		t.Fatalf("expected score to rise, got %d -> %d", scored.Scoring.Score, final.Scoring.Score)
	}
	if final.Scoring.Grade != domain.GradeForScore(final.Scoring.Score) {
		t.Fatalf("grade %s does not match score %d", final.Scoring.Grade, final.Scoring.Score)
	}
	if final.Scoring.Priority.Rank() <= scored.Scoring.Priority.Rank() {
		t.Fatalf("expected priority to rise a tier, got %s -> %s", scored.Scoring.Priority, final.Scoring.Priority)
	}
}

func TestProcessKeepsHumanFollowUp(t *testing.T) {
	store := newMemoryStore()
	lead := seedLead(store)
	due := testNow.Add(72 * time.Hour)
	withFollowUp := store.get(lead.ID)
	withFollowUp.FollowUp = domain.FollowUpSchedule{NextFollowUpDate: &due, FollowUpType: "demo", Notes: "book demo"}
	store.put(withFollowUp)

	if err := newTestRecalculator(store, nil).Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.get(lead.ID).FollowUp; got.FollowUpType != "demo" || !got.NextFollowUpDate.Equal(due) {
		t.Fatalf("human follow-up overwritten: %+v", got)
	}
}

func TestProcessPublishesEscalation(t *testing.T) {
	store := newMemoryStore()
	lead := seedLead(store)
	amount := 1_500_000.0
	hot := store.get(lead.ID)
	hot.Status = domain.StatusNegotiation
	hot.QualificationStatus = domain.QualificationQualified
	hot.Budget = domain.Budget{Amount: &amount, IsValidated: true}
	store.put(hot)

	bus := events.NewInMemoryBus(logger.New("test"))
	var mu sync.Mutex
	var escalated []string
	bus.Subscribe("scoring.lead.priority_escalated", events.HandlerFunc(func(_ context.Context, event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		escalated = append(escalated, event.EventName())
		return nil
	}))
	syncBus := &syncPublisher{InMemoryBus: bus}

	if err := newTestRecalculator(store, syncBus).Process(context.Background(), jobFor(lead)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(escalated) != 1 {
		t.Fatalf("expected one escalation event, got %d (priority %s)", len(escalated), store.get(lead.ID).Scoring.Priority)
	}
}

// syncPublisher delivers synchronously so tests can assert without waiting.
type syncPublisher struct {
	*events.InMemoryBus
}

func (s *syncPublisher) Publish(ctx context.Context, event events.Event) {
	_ = s.InMemoryBus.PublishSync(ctx, event)
}

func followupEqual(a, b domain.FollowUpSchedule) bool {
	if a.FollowUpType != b.FollowUpType || a.Notes != b.Notes {
		return false
	}
	if a.NextFollowUpDate == nil || b.NextFollowUpDate == nil {
		return a.NextFollowUpDate == nil && b.NextFollowUpDate == nil
	}
	return a.NextFollowUpDate.Equal(*b.NextFollowUpDate)
}
