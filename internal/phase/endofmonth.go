package phase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// EndOfMonth removes every company flagged bankrupt this month, recomputes
// each survivor's capital (cash plus inventory valued at floor prices), and
// rotates the seniority order by one position. The rotated order excludes
// removed companies and is published as a "seniority_rotated" event for the
// orchestrator to pick up.
func EndOfMonth(in Input) (Result, error) {
	cfg := in.Config
	market, _ := findResult(in.PreviousResults, model.PhaseMarketAnnouncement)
	rawFloor := metricDecimal(market.Metrics, metricRawFloor, cfg.RawMaterialPriceFloor)
	fgFloor := metricDecimal(market.Metrics, metricFGFloor, cfg.FinishedGoodsPriceFloor)

	bankrupt := make(map[string]struct{})
	for _, event := range in.PreviousEvents {
		if event.Phase == model.PhaseExpenses && event.EventType == "bankruptcy_flag" && event.CompanyID != "" {
			bankrupt[event.CompanyID] = struct{}{}
		}
	}

	remaining := make(map[string]model.CompanyState, len(in.Companies))
	for id, state := range in.Companies {
		if _, gone := bankrupt[id]; !gone {
			remaining[id] = state
		}
	}

	var events []model.LoggedEvent
	for _, companyID := range orderedCompanyIDs(in.Companies, in.Seniority) {
		if _, gone := bankrupt[companyID]; !gone {
			continue
		}
		event := model.NewEvent(in.MonthIndex, model.PhaseEndOfMonth, "company_removed", companyID, nil)
		event.Message = "Company removed from the session due to bankruptcy."
		events = append(events, event)
	}

	totalCapital := decimal.Zero
	for _, companyID := range orderedCompanyIDs(remaining, in.Seniority) {
		state := remaining[companyID]
		raw := decimal.NewFromInt(int64(state.Inventory.Quantity(model.ResourceRawMaterial)))
		finished := decimal.NewFromInt(int64(state.Inventory.Quantity(model.ResourceFinishedGood)))
		capital := state.Cash.Amount.Add(rawFloor.Mul(raw)).Add(fgFloor.Mul(finished))
		totalCapital = totalCapital.Add(capital)
		events = append(events, model.NewEvent(in.MonthIndex, model.PhaseEndOfMonth, "capital_recomputed", companyID, map[string]any{
			"capital": capital.String(),
		}))
	}

	rotated := in.Seniority.Without(bankrupt).Rotate(1)
	events = append(events, model.NewEvent(in.MonthIndex, model.PhaseEndOfMonth, "seniority_rotated", "", map[string]any{
		"new_order": rotated.Ranking,
	}))

	log, err := buildLog(model.PhaseEndOfMonth, in.MonthIndex, in.Decisions, events)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Phase:      model.PhaseEndOfMonth,
		MonthIndex: in.MonthIndex,
		Companies:  remaining,
		Log:        log,
		Summary:    fmt.Sprintf("Removed %d bankrupt companies and rotated seniority order.", len(bankrupt)),
		Metrics: map[string]decimal.Decimal{
			"active_company_count":    decimal.NewFromInt(int64(len(remaining))),
			"bankruptcies_resolved":   decimal.NewFromInt(int64(len(bankrupt))),
			"total_remaining_capital": totalCapital,
		},
	}, nil
}
