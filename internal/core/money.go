// Package core holds the finance domain model and its money handling.
//
// Money is stored as integer cents so that balance adjustments are exact and
// reversible. Decimal parsing and formatting go through shopspring/decimal.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

var (
	// MaxAmount bounds transaction, income and goal amounts (999.999.999,99).
	MaxAmount = Money{Cents: 99_999_999_999}
	// MaxBalance bounds the absolute value of an account balance.
	MaxBalance = Money{Cents: 99_999_999_999_999}
)

// maxIntegerDigits is the widest integer part MaxBalance can hold.
const maxIntegerDigits = 15

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrAmountTooLarge  = errors.New("amount too large")
	ErrTooManyDecimals = errors.New("amount has more than 2 decimal places")
)

// MoneyFromDecimal converts d to cents. Values with more than two fractional
// digits are rejected rather than rounded.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return Money{}, nil
	}
	// Bound the exponent before Round or Shift scale by it.
	exp, digits := int(d.Exponent()), d.NumDigits()
	if exp+digits > maxIntegerDigits {
		return Money{}, ErrAmountTooLarge
	}
	if exp < -2 && -exp-2 > digits {
		return Money{}, ErrTooManyDecimals
	}
	if !d.Equal(d.Round(2)) {
		return Money{}, ErrTooManyDecimals
	}
	shifted := d.Shift(2)
	if shifted.Abs().GreaterThan(decimal.New(MaxBalance.Cents, 0)) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: shifted.IntPart()}, nil
}

// ParseAmount parses a user supplied amount. Both "12.34" and "12,34" are
// accepted; thousands separators are not.
//
//	ParseAmount("12,34")  -> 1234 cents
//	ParseAmount("-5")     -> -500 cents
//	ParseAmount("1.005")  -> ErrTooManyDecimals
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

// String renders m with exactly two fractional digits, e.g. "-50.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// ValidateAmount checks a strictly positive amount within MaxAmount.
func (m Money) ValidateAmount() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmount.Cents {
		return ErrAmountTooLarge
	}
	return nil
}

// ValidateBalance checks a signed balance within MaxBalance.
func (m Money) ValidateBalance() error {
	if m.Cents > MaxBalance.Cents || m.Cents < -MaxBalance.Cents {
		return ErrAmountTooLarge
	}
	return nil
}

// MarshalJSON encodes m as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ErrInvalidAmount
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// FormatBRL renders m the way the dashboard shows it: "R$ 1.234,56".
func FormatBRL(m Money) string {
	neg := m.Cents < 0
	abs := m.Decimal().Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(abs, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
