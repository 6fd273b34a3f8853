package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// d is a shorthand for decimal literals in tests.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestNewMoney_QuantizesToCents(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{10.005, "10.01"},
		{10.004, "10"},
		{-3.335, "-3.34"},
		{0, "0"},
	}
	for _, tc := range cases {
		got := NewMoney(d(tc.in), "usd")
		if got.Amount.String() != tc.want {
			t.Errorf("NewMoney(%v) amount = %s, want %s", tc.in, got.Amount, tc.want)
		}
		if got.Currency != "USD" {
			t.Errorf("NewMoney(%v) currency = %s, want USD", tc.in, got.Currency)
		}
	}
}

func TestMoney_AddSubtract(t *testing.T) {
	a := NewMoney(d(100.50), "USD")
	b := NewMoney(d(0.25), "USD")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Amount.String() != "100.75" {
		t.Errorf("Add = %s, want 100.75", sum.Amount)
	}

	diff, err := a.Subtract(b)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if diff.Amount.String() != "100.25" {
		t.Errorf("Subtract = %s, want 100.25", diff.Amount)
	}
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	usd := NewMoney(d(1), "USD")
	eur := NewMoney(d(1), "EUR")

	if _, err := usd.Add(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Add mismatch err = %v, want ErrCurrencyMismatch", err)
	}
	if _, err := usd.Subtract(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Subtract mismatch err = %v, want ErrCurrencyMismatch", err)
	}
}

func TestMoney_MultiplyRounds(t *testing.T) {
	m := NewMoney(d(10.01), "USD").Multiply(d(0.333))
	if m.Amount.String() != "3.33" {
		t.Errorf("Multiply = %s, want 3.33", m.Amount)
	}
}

func TestInventoryLedger_ApplyMany(t *testing.T) {
	ledger := NewInventoryLedger()

	updated, err := ledger.ApplyMany(map[ResourceType]int{
		ResourceRawMaterial:  10,
		ResourceFinishedGood: 3,
	})
	if err != nil {
		t.Fatalf("ApplyMany: %v", err)
	}
	if got := updated.Quantity(ResourceRawMaterial); got != 10 {
		t.Errorf("raw material = %d, want 10", got)
	}
	if got := updated.Quantity(ResourceFinishedGood); got != 3 {
		t.Errorf("finished goods = %d, want 3", got)
	}
	// Original ledger untouched.
	if got := ledger.Quantity(ResourceRawMaterial); got != 0 {
		t.Errorf("original ledger mutated: %d", got)
	}
}

func TestInventoryLedger_RejectsNegative(t *testing.T) {
	ledger := NewInventoryLedger()
	pre, err := ledger.ApplyDelta(ResourceRawMaterial, 5)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}

	_, err = pre.ApplyMany(map[ResourceType]int{
		ResourceRawMaterial:  -6,
		ResourceFinishedGood: 2,
	})
	if !errors.Is(err, ErrNegativeQuantity) {
		t.Fatalf("err = %v, want ErrNegativeQuantity", err)
	}
	// Rejected delta leaves the source unchanged.
	if got := pre.Quantity(ResourceRawMaterial); got != 5 {
		t.Errorf("raw material after rejection = %d, want 5", got)
	}
}

func TestInventoryLedger_ZeroDeltaNoop(t *testing.T) {
	ledger := NewInventoryLedger()
	updated, err := ledger.ApplyDelta(ResourceFinishedGood, 0)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if got := updated.Quantity(ResourceFinishedGood); got != 0 {
		t.Errorf("quantity = %d, want 0", got)
	}
}
