package phase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// FinishedGoodsSale clears player sell offers against this month's announced
// demand. Cheaper offers clear first, seniority breaks ties, and every fill
// is capped by remaining demand and goods on hand.
func FinishedGoodsSale(in Input) (Result, error) {
	cfg := in.Config
	market, _ := findResult(in.PreviousResults, model.PhaseMarketAnnouncement)

	remainingDemand := metricInt(market.Metrics, metricFGDemand, cfg.FinishedGoodsBaseDemand)
	floor := metricDecimal(market.Metrics, metricFGFloor, cfg.FinishedGoodsPriceFloor)
	ceiling := metricDecimal(market.Metrics, metricFGCeiling, cfg.FinishedGoodsPriceCeiling)

	offers := collectEntries(in.Decisions, func(p model.DecisionPayload) []model.BidEntry {
		return p.Offers
	}, floor, ceiling)
	sortEntries(offers, in.Seniority, false)

	updated := cloneCompanies(in.Companies)
	var events []model.LoggedEvent
	totalSold := 0

	for _, offer := range offers {
		if remainingDemand <= 0 {
			break
		}
		state, ok := updated[offer.companyID]
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownCompany, offer.companyID)
		}

		onHand := state.Inventory.Quantity(model.ResourceFinishedGood)
		allocation := min(offer.quantity, remainingDemand, onHand)
		if allocation <= 0 {
			event := model.NewEvent(in.MonthIndex, model.PhaseFinishedGoodsSale, "sale_offer_unfulfilled", offer.companyID, map[string]any{
				"requested_quantity": offer.quantity,
			})
			event.Message = "No finished goods available to satisfy offer."
			events = append(events, event)
			continue
		}

		revenue := model.NewMoney(offer.price.Mul(decimal.NewFromInt(int64(allocation))), state.Cash.Currency)
		next, err := state.AdjustInventory(map[model.ResourceType]int{
			model.ResourceFinishedGood: -allocation,
		})
		if err != nil {
			return Result{}, err
		}
		if next, err = next.CreditCash(revenue); err != nil {
			return Result{}, err
		}
		updated[offer.companyID] = next
		remainingDemand -= allocation
		totalSold += allocation

		events = append(events, model.NewEvent(in.MonthIndex, model.PhaseFinishedGoodsSale, "finished_goods_sale", offer.companyID, map[string]any{
			"quantity_sold":    allocation,
			"unit_price":       offer.price.String(),
			"revenue":          revenue.Amount.String(),
			"remaining_demand": remainingDemand,
		}))

		if allocation < offer.quantity {
			events = append(events, model.NewEvent(in.MonthIndex, model.PhaseFinishedGoodsSale, "sale_shortfall", offer.companyID, map[string]any{
				"requested_quantity": offer.quantity,
				"fulfilled_quantity": allocation,
			}))
		}
	}

	log, err := buildLog(model.PhaseFinishedGoodsSale, in.MonthIndex, in.Decisions, events)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Phase:      model.PhaseFinishedGoodsSale,
		MonthIndex: in.MonthIndex,
		Companies:  updated,
		Log:        log,
		Summary:    fmt.Sprintf("Cleared %d finished goods units from player offers.", totalSold),
		Metrics: map[string]decimal.Decimal{
			"finished_goods_sold":     decimal.NewFromInt(int64(totalSold)),
			"remaining_market_demand": decimal.NewFromInt(int64(remainingDemand)),
		},
	}, nil
}
