package phase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// Metric keys published by the market announcement and consumed by the
// auction phases later in the month.
const (
	metricRawSupply  = "raw_material_supply"
	metricRawFloor   = "raw_material_price_floor"
	metricRawCeiling = "raw_material_price_ceiling"
	metricFGDemand   = "finished_goods_demand"
	metricFGFloor    = "finished_goods_price_floor"
	metricFGCeiling  = "finished_goods_price_ceiling"
)

// MarketAnnouncement publishes this month's raw-material supply and
// finished-goods demand, scaled by the session's active factory count. It
// never mutates company state.
func MarketAnnouncement(in Input) (Result, error) {
	cfg := in.Config
	totalActive := 0
	for _, state := range in.Companies {
		totalActive += state.Factories.ActiveCount()
	}

	supply := cfg.RawMaterialBaseSupply + totalActive*cfg.FactoryCapacityPerMonth
	demand := cfg.FinishedGoodsBaseDemand + totalActive*cfg.FactoryCapacityPerMonth

	events := []model.LoggedEvent{
		model.NewEvent(in.MonthIndex, model.PhaseMarketAnnouncement, "market_corridor_announced", "", map[string]any{
			"raw_material_supply":          supply,
			"raw_material_price_floor":     cfg.RawMaterialPriceFloor.String(),
			"raw_material_price_ceiling":   cfg.RawMaterialPriceCeiling.String(),
			"finished_goods_demand":        demand,
			"finished_goods_price_floor":   cfg.FinishedGoodsPriceFloor.String(),
			"finished_goods_price_ceiling": cfg.FinishedGoodsPriceCeiling.String(),
		}),
	}

	log, err := buildLog(model.PhaseMarketAnnouncement, in.MonthIndex, in.Decisions, events)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Phase:      model.PhaseMarketAnnouncement,
		MonthIndex: in.MonthIndex,
		Companies:  cloneCompanies(in.Companies),
		Log:        log,
		Summary:    fmt.Sprintf("Announced market corridors based on %d active factories.", totalActive),
		Metrics: map[string]decimal.Decimal{
			metricRawSupply:  decimal.NewFromInt(int64(supply)),
			metricRawFloor:   cfg.RawMaterialPriceFloor,
			metricRawCeiling: cfg.RawMaterialPriceCeiling,
			metricFGDemand:   decimal.NewFromInt(int64(demand)),
			metricFGFloor:    cfg.FinishedGoodsPriceFloor,
			metricFGCeiling:  cfg.FinishedGoodsPriceCeiling,
		},
	}, nil
}
