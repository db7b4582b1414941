package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDaysUntil(t *testing.T) {
	today := NewDate(2025, 3, 1)
	if got := today.DaysUntil(NewDate(2025, 3, 16)); got != 15 {
		t.Fatalf("expected 15, got %d", got)
	}
	if got := today.DaysUntil(NewDate(2025, 2, 27)); got != -2 {
		t.Fatalf("expected -2, got %d", got)
	}
	if got := today.DaysUntil(today); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := NewDate(2000, 1, 1).DaysUntil(NewDate(2101, 1, 1)); got != 36890 {
		t.Fatalf("expected 36890, got %d", got)
	}
}

func TestStatusToggled(t *testing.T) {
	if Pending.Toggled() != Paid || Paid.Toggled() != Pending {
		t.Fatal("toggle must swap pending and paid")
	}
}

func validTransaction() Transaction {
	return Transaction{
		Description: "Aluguel",
		Amount:      Money{Cents: 150000},
		DueDate:     NewDate(2025, 5, 10),
		Type:        Payable,
		Status:      Pending,
		Category:    "Moradia",
	}
}

func TestTransactionValidate(t *testing.T) {
	today := NewDate(2025, 5, 1)
	if err := validTransaction().Validate(today); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		field  string
	}{
		{"empty description", func(tx *Transaction) { tx.Description = "  " }, "description"},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("a", 201) }, "description"},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, "amount"},
		{"too large", func(tx *Transaction) { tx.Amount = Money{Cents: MaxAmount.Cents + 1} }, "amount"},
		{"before 2000", func(tx *Transaction) { tx.DueDate = NewDate(1999, 12, 31) }, "dueDate"},
		{"too far ahead", func(tx *Transaction) { tx.DueDate = NewDate(2030, 5, 2) }, "dueDate"},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, "type"},
		{"bad status", func(tx *Transaction) { tx.Status = "late" }, "status"},
		{"bad category", func(tx *Transaction) { tx.Category = "Viagem" }, "category"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)
			err := tx.Validate(today)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, ve.Field)
			}
		})
	}
}

func TestAccountValidate(t *testing.T) {
	a := Account{Name: "Nubank", AccountType: PrimaryAccount, Balance: Money{Cents: -5000}}.WithDefaults()
	if a.Color != DefaultAccountColor || a.Icon != DefaultAccountIcon {
		t.Fatalf("defaults not applied: %+v", a)
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("negative balance should be allowed, got %v", err)
	}

	a.AccountType = "checking"
	if !IsValidation(a.Validate()) {
		t.Fatal("expected validation error for account type")
	}
}

func TestGoalValidate(t *testing.T) {
	g := FinancialGoal{Name: "Viagem", TargetAmount: Money{Cents: 100000}}.WithDefaults()
	if err := g.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	g.CurrentAmount = Money{Cents: -1}
	if !IsValidation(g.Validate()) {
		t.Fatal("expected validation error for negative current amount")
	}
	g.CurrentAmount = Money{}
	g.TargetAmount = Money{}
	if !IsValidation(g.Validate()) {
		t.Fatal("expected validation error for zero target")
	}
}

func TestGoalDeadlineBounds(t *testing.T) {
	cases := []struct {
		deadline Date
		ok       bool
	}{
		{NewDate(2000, 1, 1), true},
		{NewDate(2030, 6, 30), true},
		{NewDate(2100, 12, 31), true},
		{NewDate(1999, 12, 31), false},
		{NewDate(2101, 1, 1), false},
		{NewDate(9999, 12, 31), false},
	}
	for _, tc := range cases {
		t.Run(tc.deadline.String(), func(t *testing.T) {
			d := tc.deadline
			g := FinancialGoal{Name: "Casa", TargetAmount: Money{Cents: 100000}, Deadline: &d}.WithDefaults()
			err := g.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrDeadlineOutOfRange) {
				t.Fatalf("expected ErrDeadlineOutOfRange, got %v", err)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	nf := NotFound("goal", "g1")
	if !IsNotFound(nf) || IsStore(nf) {
		t.Fatalf("not found misclassified: %v", nf)
	}
	wrapped := WrapStore("update goal", nf)
	if wrapped != nf {
		t.Fatal("WrapStore must keep not-found errors as they are")
	}
	se := WrapStore("insert", errors.New("disk full"))
	if !IsStore(se) {
		t.Fatalf("expected store error, got %v", se)
	}
	if WrapStore("noop", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
