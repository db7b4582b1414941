// Package services provides the finance business logic and orchestration.
//
// This file implements the Strategy Pattern for income frequency normalization.
// Each frequency has its own normalizer that converts an amount received at
// that cadence into its monthly equivalent.

package services

import (
	"github.com/shopspring/decimal"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

// MonthlyNormalizer is the strategy interface for converting an income amount
// into a monthly-equivalent figure.
type MonthlyNormalizer interface {
	Monthly(amount decimal.Decimal) decimal.Decimal
}

// multiplierNormalizer scales the amount by a fixed number of occurrences per month.
type multiplierNormalizer struct {
	perMonth decimal.Decimal
}

func (n multiplierNormalizer) Monthly(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(n.perMonth)
}

// YearlyNormalizer spreads a yearly amount over twelve months.
type YearlyNormalizer struct{}

func (YearlyNormalizer) Monthly(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(12))
}

// OneTimeNormalizer excludes one-off income from the recurring total.
type OneTimeNormalizer struct{}

func (OneTimeNormalizer) Monthly(decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

var monthlyFallback MonthlyNormalizer = multiplierNormalizer{perMonth: decimal.NewFromInt(1)}

// normalizers maps income frequencies to their strategies.
var normalizers = map[core.Frequency]MonthlyNormalizer{
	core.Weekly:   multiplierNormalizer{perMonth: decimal.NewFromInt(4)},
	core.Biweekly: multiplierNormalizer{perMonth: decimal.NewFromInt(2)},
	core.Monthly:  monthlyFallback,
	core.Yearly:   YearlyNormalizer{},
	core.OneTime:  OneTimeNormalizer{},
}

// GetNormalizer returns the normalizer for f. Unknown frequencies are treated
// as monthly.
func GetNormalizer(f core.Frequency) MonthlyNormalizer {
	if n, ok := normalizers[f]; ok {
		return n
	}
	return monthlyFallback
}

// MonthlyEquivalent returns the exact monthly contribution of one source.
// Inactive sources contribute zero.
func MonthlyEquivalent(src core.IncomeSource) decimal.Decimal {
	if !src.IsActive {
		return decimal.Zero
	}
	return GetNormalizer(src.Frequency).Monthly(src.Amount.Decimal())
}

// MonthlyIncome sums the monthly equivalents of all sources and rounds the
// total once, half-up to the cent.
func MonthlyIncome(sources []core.IncomeSource) core.Money {
	total := decimal.Zero
	for _, src := range sources {
		total = total.Add(MonthlyEquivalent(src))
	}
	return core.Money{Cents: total.Shift(2).Round(0).IntPart()}
}
