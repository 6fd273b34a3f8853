// Package model defines the immutable value types of the factory economy:
// money, inventory, factories, loans, and aggregated per-company state.
package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when arithmetic mixes two currencies.
var ErrCurrencyMismatch = errors.New("model: currency mismatch")

// Money is a fixed-point monetary value. The amount is always quantized to
// two decimal places (half-up) on construction, so equality checks are safe.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney builds a Money value, rounding the amount to cents and
// upper-casing the currency code.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   quantize(amount),
		Currency: strings.ToUpper(currency),
	}
}

// ZeroMoney returns a zero value in the given currency.
func ZeroMoney(currency string) Money {
	return NewMoney(decimal.Zero, currency)
}

func quantize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Add returns the sum of two Money values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.Amount.Add(other.Amount), m.Currency), nil
}

// Subtract returns the difference of two Money values of the same currency.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.Amount.Sub(other.Amount), m.Currency), nil
}

// Multiply scales the amount by factor, preserving cent rounding.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return NewMoney(m.Amount.Mul(factor), m.Currency)
}

// MultiplyInt scales the amount by an integer factor.
func (m Money) MultiplyInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// LessThan reports whether m is strictly smaller than other. Currencies are
// not compared; callers are expected to have validated them already.
func (m Money) LessThan(other Money) bool {
	return m.Amount.LessThan(other.Amount)
}

func (m Money) assertSameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
