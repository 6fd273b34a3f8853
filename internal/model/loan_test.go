package model

import (
	"testing"
)

func TestLoanAccount_AccrueInterest(t *testing.T) {
	loan := LoanAccount{
		ID:              "loan-1",
		Principal:       NewMoney(d(5000), "USD"),
		InterestRate:    d(0.10),
		TermMonths:      5,
		MonthsRemaining: 5,
	}

	accrued := loan.AccrueInterest()
	if !accrued.Principal.Amount.Equal(d(5500)) {
		t.Errorf("principal after accrual = %s, want 5500", accrued.Principal.Amount)
	}
	if accrued.MonthsRemaining != 5 {
		t.Errorf("months remaining changed on accrual: %d", accrued.MonthsRemaining)
	}
}

func TestLoanAccount_ScheduledPayment(t *testing.T) {
	loan := LoanAccount{
		ID:              "loan-1",
		Principal:       NewMoney(d(5000), "USD"),
		InterestRate:    d(0.10),
		TermMonths:      5,
		MonthsRemaining: 5,
	}

	// One month of interest, then principal split over remaining months.
	payment := loan.AccrueInterest().ScheduledPayment()
	if !payment.Amount.Equal(d(1100)) {
		t.Errorf("scheduled payment = %s, want 1100", payment.Amount)
	}
}

func TestLoanAccount_ScheduledPayment_RoundsHalfUp(t *testing.T) {
	loan := LoanAccount{
		ID:              "loan-2",
		Principal:       NewMoney(d(100), "USD"),
		InterestRate:    d(0),
		TermMonths:      3,
		MonthsRemaining: 3,
	}
	// 100 / 3 = 33.333... -> 33.33
	if got := loan.ScheduledPayment(); !got.Amount.Equal(d(33.33)) {
		t.Errorf("payment = %s, want 33.33", got.Amount)
	}
}

func TestLoanAccount_ApplyPayment(t *testing.T) {
	loan := LoanAccount{
		ID:              "loan-1",
		Principal:       NewMoney(d(1000), "USD"),
		InterestRate:    d(0),
		TermMonths:      4,
		MonthsRemaining: 4,
	}

	next, err := loan.ApplyPayment(NewMoney(d(250), "USD"))
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if next == nil {
		t.Fatal("loan closed early")
	}
	if !next.Principal.Amount.Equal(d(750)) {
		t.Errorf("principal = %s, want 750", next.Principal.Amount)
	}
	if next.MonthsRemaining != 3 {
		t.Errorf("months remaining = %d, want 3", next.MonthsRemaining)
	}
}

func TestLoanAccount_ApplyPayment_ClosesLoan(t *testing.T) {
	final := LoanAccount{
		ID:              "loan-1",
		Principal:       NewMoney(d(200), "USD"),
		InterestRate:    d(0),
		TermMonths:      4,
		MonthsRemaining: 1,
	}
	next, err := final.ApplyPayment(NewMoney(d(200), "USD"))
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if next != nil {
		t.Errorf("final-month payment should close the loan, got %+v", next)
	}

	overpaid := LoanAccount{
		ID:              "loan-2",
		Principal:       NewMoney(d(100), "USD"),
		InterestRate:    d(0),
		TermMonths:      4,
		MonthsRemaining: 3,
	}
	next, err = overpaid.ApplyPayment(NewMoney(d(100), "USD"))
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if next != nil {
		t.Errorf("zeroed principal should close the loan, got %+v", next)
	}
}
