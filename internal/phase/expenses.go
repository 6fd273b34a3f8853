package phase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// Expenses charges every company its base operating cost, per-factory
// maintenance, and storage-overage penalties. Companies whose cash goes
// negative are flagged bankrupt via an event; removal happens at end of
// month.
func Expenses(in Input) (Result, error) {
	cfg := in.Config
	updated := cloneCompanies(in.Companies)
	var events []model.LoggedEvent
	bankrupt := 0
	aggregate := decimal.Zero

	for _, companyID := range orderedCompanyIDs(in.Companies, in.Seniority) {
		state := in.Companies[companyID]

		total := cfg.BaseOperatingCost
		maintenance := cfg.FactoryMaintenanceCost.MultiplyInt(int64(state.Factories.ActiveCount()))
		total, err := total.Add(maintenance)
		if err != nil {
			return Result{}, err
		}

		rmOverage := state.Inventory.Quantity(model.ResourceRawMaterial) - cfg.RawMaterialStorage
		rmPenalty := model.ZeroMoney(total.Currency)
		if rmOverage > 0 {
			rmPenalty = cfg.StorageOveragePenalty.MultiplyInt(int64(rmOverage))
			if total, err = total.Add(rmPenalty); err != nil {
				return Result{}, err
			}
		}

		fgOverage := state.Inventory.Quantity(model.ResourceFinishedGood) - cfg.FinishedGoodsStorage
		fgPenalty := model.ZeroMoney(total.Currency)
		if fgOverage > 0 {
			fgPenalty = cfg.StorageOveragePenalty.MultiplyInt(int64(fgOverage))
			if total, err = total.Add(fgPenalty); err != nil {
				return Result{}, err
			}
		}

		next, err := state.DebitCash(total)
		if err != nil {
			return Result{}, err
		}
		updated[companyID] = next
		aggregate = aggregate.Add(total.Amount)

		events = append(events, model.NewEvent(in.MonthIndex, model.PhaseExpenses, "expenses_applied", companyID, map[string]any{
			"base":                   cfg.BaseOperatingCost.Amount.String(),
			"maintenance":            maintenance.Amount.String(),
			"raw_material_overage":   rmPenalty.Amount.String(),
			"finished_goods_overage": fgPenalty.Amount.String(),
			"total_expense":          total.Amount.String(),
		}))

		if next.Cash.IsNegative() {
			bankrupt++
			event := model.NewEvent(in.MonthIndex, model.PhaseExpenses, "bankruptcy_flag", companyID, map[string]any{
				"deficit": next.Cash.Amount.String(),
			})
			event.Message = "Company cash balance dropped below zero after expenses."
			events = append(events, event)
		}
	}

	log, err := buildLog(model.PhaseExpenses, in.MonthIndex, in.Decisions, events)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Phase:      model.PhaseExpenses,
		MonthIndex: in.MonthIndex,
		Companies:  updated,
		Log:        log,
		Summary:    fmt.Sprintf("Processed expenses for %d companies; aggregate debit %s.", len(updated), aggregate),
		Metrics: map[string]decimal.Decimal{
			"bankrupt_company_count": decimal.NewFromInt(int64(bankrupt)),
			"aggregate_expense":      aggregate,
		},
	}, nil
}
