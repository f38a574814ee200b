// Package core provides money parsing and handling utilities.
//
// This file contains the decimal-backed Money type, amount parsing and
// currency-aware formatting.
package core

import (
	"strings"
	"unicode"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is an exact signed decimal amount. Its currency lives on the owning account.
type Money struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney builds a Money from any integer or float value.
func NewMoney[T float64 | int | int64](v T) Money {
	switch x := any(v).(type) {
	case float64:
		return Money{value: decimal.NewFromFloat(x)}
	case int:
		return Money{value: decimal.NewFromInt(int64(x))}
	default:
		return Money{value: decimal.NewFromInt(x.(int64))}
	}
}

// FromDecimal wraps a decimal value.
func FromDecimal(d decimal.Decimal) Money { return Money{value: d} }

// MustMoney parses s and panics on failure. Intended for literals and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an optional
// leading sign. Thousands separators are not supported.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,34")  -> 12.34
//	ParseMoney("-25.99") -> -25.99
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" || strings.Count(digits, ".") > 1 {
		return Zero, ErrInvalidAmount
	}
	for _, r := range digits {
		if r != '.' && !unicode.IsDigit(r) {
			return Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return Money{value: d}, nil
}

func (m Money) Decimal() decimal.Decimal { return m.value }
func (m Money) String() string           { return m.value.StringFixed(2) }
func (m Money) IsZero() bool             { return m.value.IsZero() }
func (m Money) IsPositive() bool         { return m.value.IsPositive() }
func (m Money) IsNegative() bool         { return m.value.IsNegative() }
func (m Money) Equal(n Money) bool       { return m.value.Equal(n.value) }
func (m Money) Cmp(n Money) int          { return m.value.Cmp(n.value) }
func (m Money) Add(n Money) Money        { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money        { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money               { return Money{value: m.value.Neg()} }
func (m Money) Abs() Money               { return Money{value: m.value.Abs()} }

// Ratio returns m/n as a float, or 0 when n is zero.
func (m Money) Ratio(n Money) float64 {
	if n.value.IsZero() {
		return 0
	}
	return m.value.Div(n.value).InexactFloat64()
}

// Format renders the amount with the symbol and fraction digits of currency.
func (m Money) Format(currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return m.String() + " " + currency
	}
	minor := m.value.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// Validate reports an error unless the amount is strictly positive.
func (m Money) Validate() error {
	if !m.value.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateNonNegative reports an error when the amount is below zero.
func (m Money) ValidateNonNegative() error {
	if m.value.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) { return m.value.MarshalJSON() }

func (m *Money) UnmarshalJSON(b []byte) error { return m.value.UnmarshalJSON(b) }

// Sum folds amounts.
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.value)
	}
	return Money{value: total}
}

// ValidCurrency reports whether code is a known ISO 4217 currency.
func ValidCurrency(code string) bool {
	return code != "" && code == strings.ToUpper(code) && money.GetCurrency(code) != nil
}
