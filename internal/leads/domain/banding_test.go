package domain

import "testing"

func TestGradeMatchesScoreBand(t *testing.T) {
	for score := 0; score <= 100; score++ {
		grade := GradeForScore(score)
		var want Grade
		switch {
		case score >= 85:
			want = GradeA
		case score >= 65:
			want = GradeB
		case score >= 40:
			want = GradeC
		default:
			want = GradeD
		}
		if grade != want {
			t.Fatalf("score %d: expected grade %s, got %s", score, want, grade)
		}
	}

	if GradeForScore(90) != GradeA {
		t.Fatalf("expected 90 to be grade A")
	}
	if GradeForScore(50) != GradeC {
		t.Fatalf("expected 50 to be grade C")
	}
}

func TestPriorityEscalationCapsAtCritical(t *testing.T) {
	cases := []struct {
		in   Priority
		want Priority
	}{
		{PriorityVeryLow, PriorityLow},
		{PriorityLow, PriorityMedium},
		{PriorityMedium, PriorityHigh},
		{PriorityHigh, PriorityCritical},
		{PriorityCritical, PriorityCritical},
		{Priority("bogus"), Priority("bogus")},
	}
	for _, tc := range cases {
		if got := tc.in.Escalate(); got != tc.want {
			t.Fatalf("Escalate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPriorityAtLeastListsHigherTiers(t *testing.T) {
	tiers := PriorityHigh.AtLeast()
	if len(tiers) != 2 || tiers[0] != PriorityCritical || tiers[1] != PriorityHigh {
		t.Fatalf("unexpected tiers %v", tiers)
	}
	if _, ok := ParsePriority("Very Low"); !ok {
		t.Fatalf("expected Very Low to parse")
	}
	if _, ok := ParsePriority("urgent"); ok {
		t.Fatalf("expected unknown tier to be rejected")
	}
}

func TestPriorityForScoreTiers(t *testing.T) {
	cases := map[int]Priority{
		0:   PriorityVeryLow,
		19:  PriorityVeryLow,
		20:  PriorityLow,
		40:  PriorityMedium,
		60:  PriorityHigh,
		80:  PriorityCritical,
		100: PriorityCritical,
	}
	for score, want := range cases {
		if got := PriorityForScore(score); got != want {
			t.Fatalf("PriorityForScore(%d) = %q, want %q", score, got, want)
		}
	}
}
