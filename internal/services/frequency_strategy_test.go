package services

import (
	"testing"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

func income(cents int64, f core.Frequency, active bool) core.IncomeSource {
	return core.IncomeSource{Amount: core.Money{Cents: cents}, Frequency: f, IsActive: active}
}

func TestMonthlyIncome(t *testing.T) {
	tests := []struct {
		name    string
		sources []core.IncomeSource
		want    int64
	}{
		{
			name:    "weekly and yearly",
			sources: []core.IncomeSource{income(10000, core.Weekly, true), income(120000, core.Yearly, true)},
			want:    50000,
		},
		{
			name:    "biweekly doubles",
			sources: []core.IncomeSource{income(150000, core.Biweekly, true)},
			want:    300000,
		},
		{
			name:    "one-time excluded",
			sources: []core.IncomeSource{income(500000, core.OneTime, true), income(300000, core.Monthly, true)},
			want:    300000,
		},
		{
			name:    "inactive contributes nothing",
			sources: []core.IncomeSource{income(10000, core.Weekly, false)},
			want:    0,
		},
		{
			name:    "unknown frequency treated as monthly",
			sources: []core.IncomeSource{income(7777, core.Frequency("quarterly"), true)},
			want:    7777,
		},
		{
			name:    "yearly rounds half-up once",
			sources: []core.IncomeSource{income(100000, core.Yearly, true), income(100000, core.Yearly, true)},
			want:    16667, // 2000/12 = 166.666..
		},
		{
			name: "empty",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthlyIncome(tt.sources); got.Cents != tt.want {
				t.Errorf("MonthlyIncome() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestGetNormalizer(t *testing.T) {
	for _, f := range []core.Frequency{core.Weekly, core.Biweekly, core.Monthly, core.Yearly, core.OneTime} {
		if _, ok := normalizers[f]; !ok {
			t.Errorf("no normalizer registered for %s", f)
		}
	}
	if GetNormalizer("daily") != monthlyFallback {
		t.Error("unknown frequency should use the monthly fallback")
	}
}
