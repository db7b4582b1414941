package services

import (
	"github.com/shopspring/decimal"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

// Tier classifies how close a goal is to missing its deadline.
type Tier string

const (
	TierNone     Tier = ""
	TierOverdue  Tier = "overdue"
	TierDueToday Tier = "due_today"
	TierDueSoon  Tier = "due_soon"
	TierAtRisk   Tier = "at_risk"
	TierOnTrack  Tier = "on_track"
)

const (
	dueSoonDays     = 7
	atRiskDays      = 30
	atRiskThreshold = 50
)

// Urgent reports whether the tier warrants a notification.
func (t Tier) Urgent() bool {
	switch t {
	case TierOverdue, TierDueToday, TierDueSoon, TierAtRisk:
		return true
	default:
		return false
	}
}

// GoalProgress is the evaluated state of one goal on a given day.
type GoalProgress struct {
	Goal            core.FinancialGoal `json:"goal"`
	ProgressPercent float64            `json:"progressPercent"`
	Remaining       core.Money         `json:"remaining"`
	// DaysRemaining is nil when the goal has no deadline.
	DaysRemaining *int `json:"daysRemaining,omitempty"`
	// Tier is TierNone for completed goals.
	Tier        Tier `json:"tier,omitempty"`
	OverdueDays int  `json:"overdueDays,omitempty"`
}

// ProgressPercent returns min(100, 100*current/target), or 0 for a zero target.
func ProgressPercent(g core.FinancialGoal) float64 {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(g.CurrentAmount.Cents).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(g.TargetAmount.Cents))
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return 100
	}
	if pct.IsNegative() {
		return 0
	}
	f, _ := pct.Float64()
	return f
}

// EvaluateGoal computes progress and the urgency tier of g as of today.
func EvaluateGoal(g core.FinancialGoal, today core.Date) GoalProgress {
	p := GoalProgress{
		Goal:            g,
		ProgressPercent: ProgressPercent(g),
		Remaining:       g.TargetAmount.Sub(g.CurrentAmount),
	}
	if p.Remaining.Cents < 0 {
		p.Remaining = core.Money{}
	}
	if g.Deadline != nil {
		days := today.DaysUntil(*g.Deadline)
		p.DaysRemaining = &days
	}
	if g.IsCompleted {
		return p
	}

	p.Tier = classify(p.DaysRemaining, p.ProgressPercent)
	if p.Tier == TierOverdue {
		p.OverdueDays = -*p.DaysRemaining
	}
	return p
}

// classify applies the tiers in priority order; first match wins.
func classify(daysRemaining *int, progress float64) Tier {
	if daysRemaining == nil {
		return TierOnTrack
	}
	days := *daysRemaining
	switch {
	case days < 0:
		return TierOverdue
	case days == 0:
		return TierDueToday
	case days <= dueSoonDays:
		return TierDueSoon
	case days <= atRiskDays && progress < atRiskThreshold:
		return TierAtRisk
	default:
		return TierOnTrack
	}
}

// ClampContribution returns the delta that can actually be applied to a goal
// holding current so that the result never drops below zero.
func ClampContribution(current, delta core.Money) core.Money {
	next := current.Add(delta)
	if next.Cents < 0 {
		return current.Neg()
	}
	return delta
}
