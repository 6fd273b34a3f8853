package model

import (
	"github.com/shopspring/decimal"
)

// LoanAccount tracks the terms and remaining balance of a company loan.
// Interest accrues monthly onto the principal; the scheduled payment spreads
// the accrued principal evenly over the remaining term.
type LoanAccount struct {
	ID              string          `json:"id"`
	Principal       Money           `json:"principal"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	TermMonths      int             `json:"term_months"`
	MonthsRemaining int             `json:"months_remaining"`
}

// AccrueInterest returns the loan with one month of interest added to the
// principal.
func (l LoanAccount) AccrueInterest() LoanAccount {
	growth := l.Principal.Multiply(l.InterestRate)
	accrued, _ := l.Principal.Add(growth)
	l.Principal = accrued
	return l
}

// ScheduledPayment returns the payment due this month: the principal divided
// by the remaining months, rounded half-up to cents.
func (l LoanAccount) ScheduledPayment() Money {
	divisor := decimal.NewFromInt(int64(l.MonthsRemaining))
	return NewMoney(l.Principal.Amount.Div(divisor), l.Principal.Currency)
}

// ApplyPayment applies payment towards the principal and advances the
// schedule. It returns nil when the loan is fully amortized: either the
// remaining principal would drop to zero or this was the final month.
func (l LoanAccount) ApplyPayment(payment Money) (*LoanAccount, error) {
	remaining, err := l.Principal.Subtract(payment)
	if err != nil {
		return nil, err
	}
	if !remaining.Amount.IsPositive() || l.MonthsRemaining == 1 {
		return nil, nil
	}
	next := l
	next.Principal = remaining
	next.MonthsRemaining--
	return &next, nil
}
