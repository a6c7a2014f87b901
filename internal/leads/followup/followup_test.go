package followup

import (
	"testing"
	"time"

	"sales_crm_backend/internal/leads/domain"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestViewOverdueByOneDayIsMedium(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	status := View(domain.FollowUpSchedule{NextFollowUpDate: ptrTime(now.Add(-24 * time.Hour))}, now)

	if !status.IsOverdue {
		t.Fatalf("expected overdue")
	}
	if status.Urgency != domain.UrgencyMedium {
		t.Fatalf("expected Medium urgency, got %q", status.Urgency)
	}
}

func TestViewOverdueByTenDaysIsCritical(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	status := View(domain.FollowUpSchedule{NextFollowUpDate: ptrTime(now.Add(-10 * 24 * time.Hour))}, now)

	if !status.IsOverdue || status.OverdueDays != 10 {
		t.Fatalf("expected 10 days overdue, got %+v", status)
	}
	if status.Urgency != domain.UrgencyCritical {
		t.Fatalf("expected Critical urgency, got %q", status.Urgency)
	}
}

func TestViewUrgencyTiers(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		days int
		want domain.Urgency
	}{
		{0, domain.UrgencyMedium},
		{3, domain.UrgencyMedium},
		{4, domain.UrgencyHigh},
		{7, domain.UrgencyHigh},
		{8, domain.UrgencyCritical},
	}
	for _, tc := range cases {
		due := now.Add(-time.Duration(tc.days)*24*time.Hour - time.Minute)
		if got := View(domain.FollowUpSchedule{NextFollowUpDate: &due}, now).Urgency; got != tc.want {
			t.Fatalf("%d days overdue: expected %q, got %q", tc.days, tc.want, got)
		}
	}
}

func TestViewNotOverdueHasNoUrgency(t *testing.T) {
	now := time.Now()
	future := View(domain.FollowUpSchedule{NextFollowUpDate: ptrTime(now.Add(time.Hour))}, now)
	if future.IsOverdue || future.Urgency != domain.UrgencyNone {
		t.Fatalf("expected future follow-up not overdue, got %+v", future)
	}
	if empty := View(domain.FollowUpSchedule{}, now); empty.IsOverdue {
		t.Fatalf("expected empty schedule not overdue")
	}
}

func TestFromInteractionRequiresActionAndDate(t *testing.T) {
	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	if FromInteraction(domain.Interaction{NextAction: "call back"}) != nil {
		t.Fatalf("expected nil without scheduledAt")
	}
	if FromInteraction(domain.Interaction{ScheduledAt: &at}) != nil {
		t.Fatalf("expected nil without nextAction")
	}

	schedule := FromInteraction(domain.Interaction{NextAction: "send proposal", ScheduledAt: &at, Content: "asked for pricing"})
	if schedule == nil || !schedule.NextFollowUpDate.Equal(at) {
		t.Fatalf("unexpected schedule %+v", schedule)
	}
	if schedule.FollowUpType != "send proposal" || schedule.Notes != "asked for pricing" {
		t.Fatalf("unexpected schedule fields %+v", schedule)
	}
}

func TestAutoScheduleLeavesHumanFollowUpAlone(t *testing.T) {
	human := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	lead := domain.Lead{
		Status:   domain.StatusContacted,
		FollowUp: domain.FollowUpSchedule{NextFollowUpDate: &human, FollowUpType: "call"},
	}
	if _, ok := AutoSchedule(lead, domain.PriorityHigh); ok {
		t.Fatalf("expected human follow-up to be kept")
	}
}

func TestAutoScheduleIsDeterministic(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	lead := domain.Lead{Status: domain.StatusNew, CreatedAt: created}

	first, ok := AutoSchedule(lead, domain.PriorityMedium)
	if !ok || first == nil {
		t.Fatalf("expected an auto follow-up")
	}
	second, _ := AutoSchedule(lead, domain.PriorityMedium)
	if !SameSchedule(first, second) {
		t.Fatalf("expected identical schedules, got %+v and %+v", first, second)
	}
	if want := created.Add(4 * 24 * time.Hour); !first.NextFollowUpDate.Equal(want) {
		t.Fatalf("expected %s, got %s", want, first.NextFollowUpDate)
	}
}

func TestAutoScheduleClearsAutoFollowUpForTerminalLead(t *testing.T) {
	due := time.Now()
	lead := domain.Lead{
		Status:   domain.StatusBooked,
		FollowUp: domain.FollowUpSchedule{NextFollowUpDate: &due, FollowUpType: domain.FollowUpTypeAuto},
	}
	schedule, ok := AutoSchedule(lead, domain.PriorityHigh)
	if !ok || schedule != nil {
		t.Fatalf("expected auto follow-up to be cleared, got %+v ok=%v", schedule, ok)
	}
}
