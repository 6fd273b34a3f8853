package phase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// RawMaterialPurchase resolves hidden raw-material bids against this month's
// announced supply. Higher prices win, seniority breaks ties, and every
// allocation is capped by remaining supply, free storage, and affordable
// quantity.
func RawMaterialPurchase(in Input) (Result, error) {
	cfg := in.Config
	market, _ := findResult(in.PreviousResults, model.PhaseMarketAnnouncement)

	remainingSupply := metricInt(market.Metrics, metricRawSupply, cfg.RawMaterialBaseSupply)
	floor := metricDecimal(market.Metrics, metricRawFloor, cfg.RawMaterialPriceFloor)
	ceiling := metricDecimal(market.Metrics, metricRawCeiling, cfg.RawMaterialPriceCeiling)

	bids := collectEntries(in.Decisions, func(p model.DecisionPayload) []model.BidEntry {
		return p.Bids
	}, floor, ceiling)
	sortEntries(bids, in.Seniority, true)

	updated := cloneCompanies(in.Companies)
	var events []model.LoggedEvent
	totalAllocated := 0

	for _, bid := range bids {
		if remainingSupply <= 0 {
			break
		}
		state, ok := updated[bid.companyID]
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownCompany, bid.companyID)
		}

		freeSpace := cfg.RawMaterialStorage - state.Inventory.Quantity(model.ResourceRawMaterial)
		if freeSpace <= 0 {
			event := model.NewEvent(in.MonthIndex, model.PhaseRawMaterialBuy, "raw_material_bid_skipped", bid.companyID, map[string]any{
				"requested_quantity": bid.quantity,
			})
			event.Message = "No storage capacity available for raw materials."
			events = append(events, event)
			continue
		}

		allocation := min(bid.quantity, remainingSupply, freeSpace)
		if allocation <= 0 {
			continue
		}

		// Affordable quantity: cash divided by unit price, floored.
		affordable := int(state.Cash.Amount.Div(bid.price).IntPart())
		if allocation > affordable {
			allocation = affordable
		}
		if allocation <= 0 {
			event := model.NewEvent(in.MonthIndex, model.PhaseRawMaterialBuy, "raw_material_bid_insufficient_cash", bid.companyID, map[string]any{
				"requested_quantity": bid.quantity,
				"price":              bid.price.String(),
			})
			event.Message = "Company lacks cash to cover requested raw materials."
			events = append(events, event)
			continue
		}

		cost := model.NewMoney(bid.price.Mul(decimal.NewFromInt(int64(allocation))), state.Cash.Currency)
		next, err := state.DebitCash(cost)
		if err != nil {
			return Result{}, err
		}
		next, err = next.AdjustInventory(map[model.ResourceType]int{
			model.ResourceRawMaterial: allocation,
		})
		if err != nil {
			return Result{}, err
		}
		updated[bid.companyID] = next
		remainingSupply -= allocation
		totalAllocated += allocation

		events = append(events, model.NewEvent(in.MonthIndex, model.PhaseRawMaterialBuy, "raw_material_allocation", bid.companyID, map[string]any{
			"allocated_quantity": allocation,
			"unit_price":         bid.price.String(),
			"total_cost":         cost.Amount.String(),
			"remaining_supply":   remainingSupply,
		}))

		if allocation < bid.quantity {
			event := model.NewEvent(in.MonthIndex, model.PhaseRawMaterialBuy, "raw_material_shortfall", bid.companyID, map[string]any{
				"requested_quantity": bid.quantity,
				"fulfilled_quantity": allocation,
			})
			event.Message = "Requested quantity exceeded available supply or capacity."
			events = append(events, event)
		}
	}

	log, err := buildLog(model.PhaseRawMaterialBuy, in.MonthIndex, in.Decisions, events)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Phase:      model.PhaseRawMaterialBuy,
		MonthIndex: in.MonthIndex,
		Companies:  updated,
		Log:        log,
		Summary:    fmt.Sprintf("Allocated %d raw material units; remaining supply %d.", totalAllocated, remainingSupply),
		Metrics: map[string]decimal.Decimal{
			"total_raw_material_allocated":  decimal.NewFromInt(int64(totalAllocated)),
			"remaining_raw_material_supply": decimal.NewFromInt(int64(remainingSupply)),
		},
	}, nil
}
