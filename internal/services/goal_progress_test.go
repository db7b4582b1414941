package services

import (
	"testing"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

func goalDue(today core.Date, days int, target, current int64) core.FinancialGoal {
	deadline := today.AddDays(days)
	return core.FinancialGoal{
		ID:            "g",
		Name:          "Reserva",
		TargetAmount:  core.Money{Cents: target},
		CurrentAmount: core.Money{Cents: current},
		Deadline:      &deadline,
	}
}

func TestEvaluateGoalTiers(t *testing.T) {
	today := core.NewDate(2025, 6, 1)
	tests := []struct {
		name    string
		days    int
		current int64
		want    Tier
	}{
		{"overdue", -3, 0, TierOverdue},
		{"due today", 0, 99000, TierDueToday},
		{"due soon lower bound", 1, 0, TierDueSoon},
		{"due soon upper bound", 7, 100000, TierDueSoon},
		{"at risk", 15, 10000, TierAtRisk},
		{"at risk bound", 30, 49999, TierAtRisk},
		{"half way is on track", 15, 50000, TierOnTrack},
		{"far away", 31, 0, TierOnTrack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := EvaluateGoal(goalDue(today, tt.days, 100000, tt.current), today)
			if p.Tier != tt.want {
				t.Errorf("tier = %q, want %q", p.Tier, tt.want)
			}
			if p.DaysRemaining == nil || *p.DaysRemaining != tt.days {
				t.Errorf("daysRemaining = %v, want %d", p.DaysRemaining, tt.days)
			}
		})
	}
}

func TestEvaluateGoalAtRiskScenario(t *testing.T) {
	today := core.NewDate(2025, 6, 1)
	p := EvaluateGoal(goalDue(today, 15, 100000, 10000), today)
	if p.Tier != TierAtRisk || p.ProgressPercent != 10 {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if p.Remaining.Cents != 90000 {
		t.Fatalf("remaining = %d, want 90000", p.Remaining.Cents)
	}
}

func TestEvaluateGoalOverdueDays(t *testing.T) {
	today := core.NewDate(2025, 6, 1)
	p := EvaluateGoal(goalDue(today, -4, 1000, 0), today)
	if p.OverdueDays != 4 {
		t.Fatalf("overdueDays = %d, want 4", p.OverdueDays)
	}
}

func TestEvaluateGoalWithoutDeadlineOrCompleted(t *testing.T) {
	today := core.NewDate(2025, 6, 1)
	g := core.FinancialGoal{TargetAmount: core.Money{Cents: 1000}}
	p := EvaluateGoal(g, today)
	if p.DaysRemaining != nil || p.Tier != TierOnTrack {
		t.Fatalf("no deadline: %+v", p)
	}

	done := goalDue(today, -10, 1000, 0)
	done.IsCompleted = true
	if p := EvaluateGoal(done, today); p.Tier != TierNone || p.Tier.Urgent() {
		t.Fatalf("completed goal must not be classified: %+v", p)
	}
}

func TestProgressPercentBounds(t *testing.T) {
	cases := []struct {
		target, current int64
		want            float64
	}{
		{1000, 0, 0},
		{1000, 250, 25},
		{1000, 1000, 100},
		{1000, 5_000_000, 100},
		{0, 100, 0},
		{300, 100, 33.333333333333336},
	}
	for _, c := range cases {
		g := core.FinancialGoal{TargetAmount: core.Money{Cents: c.target}, CurrentAmount: core.Money{Cents: c.current}}
		got := ProgressPercent(g)
		if got < 0 || got > 100 {
			t.Fatalf("progress %v out of range", got)
		}
		if diff := got - c.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("ProgressPercent(%d/%d) = %v, want %v", c.current, c.target, got, c.want)
		}
	}
	over := EvaluateGoal(core.FinancialGoal{TargetAmount: core.Money{Cents: 100}, CurrentAmount: core.Money{Cents: 900}}, core.NewDate(2025, 1, 1))
	if !over.Remaining.IsZero() {
		t.Fatalf("remaining must clamp at zero, got %v", over.Remaining)
	}
}

func TestClampContribution(t *testing.T) {
	cases := []struct {
		current, delta, want int64
	}{
		{1000, 500, 500},
		{1000, -300, -300},
		{1000, -1000, -1000},
		{1000, -5000, -1000},
		{0, -1, 0},
	}
	for _, c := range cases {
		got := ClampContribution(core.Money{Cents: c.current}, core.Money{Cents: c.delta})
		if got.Cents != c.want {
			t.Errorf("ClampContribution(%d, %d) = %d, want %d", c.current, c.delta, got.Cents, c.want)
		}
		if c.current+got.Cents < 0 {
			t.Errorf("goal would go negative: %d", c.current+got.Cents)
		}
	}
}
