package core

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. Arithmetic keeps full precision; Round
// applies the two-place rule (ties away from zero) and is called wherever a
// value is stored or returned.
type Money struct {
	d decimal.Decimal
}

// ZeroMoney is 0.00.
var ZeroMoney = Money{}

// NewMoney parses a decimal literal such as "4995.00".
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustMoney is NewMoney for literals known to be valid.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromDecimal wraps d without rounding.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// MoneyFromCents builds an amount from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// MulQty multiplies by an integer quantity.
func (m Money) MulQty(qty int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(qty)))}
}

// MulRate multiplies by a fractional rate (e.g. 0.0825). The result is not rounded.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{d: m.d.Mul(rate)}
}

// Round returns m rounded to two places.
func (m Money) Round() Money {
	return Money{d: m.d.Round(2)}
}

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) IsZero() bool { return m.d.IsZero() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) Decimal() decimal.Decimal { return m.d }
func (m Money) InexactFloat64() float64 { return m.d.InexactFloat64() }

// MinMoney returns the smaller of a and b.
func MinMoney(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MaxMoney returns the larger of a and b.
func MaxMoney(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// RequireNonNegative returns a ValidationError naming field when m < 0.
func (m Money) RequireNonNegative(field string) error {
	if m.IsNegative() {
		return Validationf(CodeValidationFailed, "%s cannot be negative, got %s", field, m).
			WithDetails(Detail{Field: field, Reason: "must be >= 0"})
	}
	return nil
}

// RequirePositive returns a ValidationError naming field when m <= 0.
func (m Money) RequirePositive(field string) error {
	if !m.IsPositive() {
		return Validationf(CodeValidationFailed, "%s must be greater than zero, got %s", field, m).
			WithDetails(Detail{Field: field, Reason: "must be > 0"})
	}
	return nil
}

// String formats the rounded amount with exactly two fraction digits.
func (m Money) String() string {
	return m.d.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare JSON numbers. Numbers are
// parsed from their text, never through float64.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.d = d
	return nil
}

func (m *Money) Scan(value any) error {
	return m.d.Scan(value)
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
