package phase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// LoanManagement accrues interest on every active loan, collects scheduled
// payments, and evaluates new loan requests against the debt ratio ceiling.
// A company that cannot cover a payment defaults: the loan stays open with
// the interest accrued, and the shortfall is logged. Companies are processed
// in seniority order.
func LoanManagement(in Input) (Result, error) {
	cfg := in.Config

	requests := make(map[string][]model.LoanRequest)
	for _, decision := range in.Decisions {
		requests[decision.CompanyID] = append(requests[decision.CompanyID], decision.Payload.Requests...)
	}

	updated := cloneCompanies(in.Companies)
	var events []model.LoggedEvent
	defaults := 0

	debtLimit := cfg.StartingCash.Amount.Mul(cfg.LoanDebtRatioLimit)

	for _, companyID := range orderedCompanyIDs(in.Companies, in.Seniority) {
		state := updated[companyID]
		cash := state.Cash
		var loans []model.LoanAccount

		for _, loan := range state.Loans {
			accrued := loan.AccrueInterest()
			due := accrued.ScheduledPayment()

			if cash.LessThan(due) {
				defaults++
				event := model.NewEvent(in.MonthIndex, model.PhaseLoanManagement, "loan_default", companyID, map[string]any{
					"loan_id":        loan.ID,
					"payment_due":    due.Amount.String(),
					"cash_available": cash.Amount.String(),
				})
				event.Message = "Company could not meet scheduled loan repayment."
				events = append(events, event)
				loans = append(loans, accrued)
				continue
			}

			next, err := cash.Subtract(due)
			if err != nil {
				return Result{}, err
			}
			cash = next

			remaining, err := accrued.ApplyPayment(due)
			if err != nil {
				return Result{}, err
			}
			if remaining != nil {
				loans = append(loans, *remaining)
				continue
			}
			events = append(events, model.NewEvent(in.MonthIndex, model.PhaseLoanManagement, "loan_closed", companyID, map[string]any{
				"loan_id": loan.ID,
			}))
		}

		currentDebt := decimal.Zero
		for _, loan := range loans {
			currentDebt = currentDebt.Add(loan.Principal.Amount)
		}

		for _, request := range requests[companyID] {
			if !request.Amount.IsPositive() {
				continue
			}
			term := request.TermMonths
			if term <= 0 {
				term = 12
			}
			rate := request.InterestRate
			if rate.IsZero() {
				rate = cfg.BaseLoanInterestRate
			}
			id := request.ID
			if id == "" {
				id = fmt.Sprintf("%s-loan-%d", companyID, len(loans)+1)
			}

			if currentDebt.Add(request.Amount).GreaterThan(debtLimit) {
				event := model.NewEvent(in.MonthIndex, model.PhaseLoanManagement, "loan_request_rejected", companyID, map[string]any{
					"identifier":       id,
					"requested_amount": request.Amount.String(),
					"debt_limit":       debtLimit.String(),
				})
				event.Message = "Loan request exceeds debt limit."
				events = append(events, event)
				continue
			}

			principal := model.NewMoney(request.Amount, cash.Currency)
			loans = append(loans, model.LoanAccount{
				ID:              id,
				Principal:       principal,
				InterestRate:    rate,
				TermMonths:      term,
				MonthsRemaining: term,
			})
			currentDebt = currentDebt.Add(request.Amount)
			next, err := cash.Add(principal)
			if err != nil {
				return Result{}, err
			}
			cash = next

			events = append(events, model.NewEvent(in.MonthIndex, model.PhaseLoanManagement, "loan_issued", companyID, map[string]any{
				"identifier":    id,
				"amount":        principal.Amount.String(),
				"interest_rate": rate.String(),
				"term_months":   term,
			}))
		}

		state.Cash = cash
		updated[companyID] = state.WithLoans(loans)
	}

	log, err := buildLog(model.PhaseLoanManagement, in.MonthIndex, in.Decisions, events)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Phase:      model.PhaseLoanManagement,
		MonthIndex: in.MonthIndex,
		Companies:  updated,
		Log:        log,
		Summary:    fmt.Sprintf("Processed loan portfolios; %d defaults recorded and %d loan events logged.", defaults, len(events)),
		Metrics: map[string]decimal.Decimal{
			"loan_defaults": decimal.NewFromInt(int64(defaults)),
		},
	}, nil
}
