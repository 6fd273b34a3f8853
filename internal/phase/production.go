package phase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// Production converts raw materials into finished goods. Output is capped by
// requested quantity, active factory capacity, and raw materials on hand;
// each factory actually used charges a launch cost.
func Production(in Input) (Result, error) {
	cfg := in.Config

	requested := make(map[string]int)
	for _, decision := range in.Decisions {
		for _, order := range decision.Payload.Orders {
			if order.Quantity > 0 {
				requested[decision.CompanyID] += order.Quantity
			}
		}
	}

	updated := cloneCompanies(in.Companies)
	var events []model.LoggedEvent
	totalProduced := 0

	for _, companyID := range orderedCompanyIDs(in.Companies, in.Seniority) {
		state := updated[companyID]
		want := requested[companyID]

		activeFactories := state.Factories.ActiveCount()
		maxCapacity := activeFactories * cfg.FactoryCapacityPerMonth
		rawOnHand := state.Inventory.Quantity(model.ResourceRawMaterial)
		maxFromRaw := 0
		if cfg.RawMaterialsPerFinishedGood > 0 {
			maxFromRaw = rawOnHand / cfg.RawMaterialsPerFinishedGood
		}

		producible := min(want, maxCapacity, maxFromRaw)
		if producible <= 0 {
			if want > 0 {
				event := model.NewEvent(in.MonthIndex, model.PhaseProduction, "production_unfulfilled", companyID, map[string]any{
					"requested_quantity":      want,
					"available_raw_materials": rawOnHand,
				})
				event.Message = "Insufficient capacity or raw materials to fulfill orders."
				events = append(events, event)
			}
			continue
		}

		factoriesUsed := 0
		if activeFactories > 0 {
			perFactory := max(cfg.FactoryCapacityPerMonth, 1)
			factoriesUsed = min(activeFactories, (producible+perFactory-1)/perFactory)
		}
		launchCost := cfg.FactoryLaunchCost.MultiplyInt(int64(factoriesUsed))
		consumed := producible * cfg.RawMaterialsPerFinishedGood

		next, err := state.AdjustInventory(map[model.ResourceType]int{
			model.ResourceRawMaterial:  -consumed,
			model.ResourceFinishedGood: producible,
		})
		if err != nil {
			return Result{}, err
		}
		if launchCost.Amount.IsPositive() {
			if next, err = next.DebitCash(launchCost); err != nil {
				return Result{}, err
			}
		}
		updated[companyID] = next
		totalProduced += producible

		events = append(events, model.NewEvent(in.MonthIndex, model.PhaseProduction, "production_completed", companyID, map[string]any{
			"produced_quantity":      producible,
			"factories_used":         factoriesUsed,
			"launch_cost":            launchCost.Amount.String(),
			"raw_materials_consumed": consumed,
		}))

		if producible < want {
			events = append(events, model.NewEvent(in.MonthIndex, model.PhaseProduction, "production_shortfall", companyID, map[string]any{
				"requested_quantity": want,
				"fulfilled_quantity": producible,
			}))
		}
	}

	log, err := buildLog(model.PhaseProduction, in.MonthIndex, in.Decisions, events)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Phase:      model.PhaseProduction,
		MonthIndex: in.MonthIndex,
		Companies:  updated,
		Log:        log,
		Summary:    fmt.Sprintf("Produced %d finished goods across all companies.", totalProduced),
		Metrics: map[string]decimal.Decimal{
			"total_finished_goods_produced": decimal.NewFromInt(int64(totalProduced)),
		},
	}, nil
}
