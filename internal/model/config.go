package model

import (
	"github.com/shopspring/decimal"
)

// EconomyConfiguration is the immutable set of economic tunables for one
// session. A snapshot carries its configuration so a session replays under
// the rules it was created with.
type EconomyConfiguration struct {
	StartingCash Money `json:"starting_cash"`

	RawMaterialStorage   int `json:"raw_material_storage"`
	FinishedGoodsStorage int `json:"finished_goods_storage"`
	MaxActiveFactories   int `json:"max_active_factories"`

	BaseOperatingCost      Money `json:"base_operating_cost"`
	FactoryMaintenanceCost Money `json:"factory_maintenance_cost"`
	StorageOveragePenalty  Money `json:"storage_overage_penalty"`

	RawMaterialBaseSupply   int             `json:"raw_material_base_supply"`
	RawMaterialPriceFloor   decimal.Decimal `json:"raw_material_price_floor"`
	RawMaterialPriceCeiling decimal.Decimal `json:"raw_material_price_ceiling"`

	FinishedGoodsBaseDemand   int             `json:"finished_goods_base_demand"`
	FinishedGoodsPriceFloor   decimal.Decimal `json:"finished_goods_price_floor"`
	FinishedGoodsPriceCeiling decimal.Decimal `json:"finished_goods_price_ceiling"`

	FactoryCapacityPerMonth     int   `json:"factory_capacity_per_month"`
	FactoryLaunchCost           Money `json:"factory_launch_cost"`
	RawMaterialsPerFinishedGood int   `json:"raw_materials_per_finished_good"`

	BaseLoanInterestRate decimal.Decimal `json:"base_loan_interest_rate"`
	LoanDebtRatioLimit   decimal.Decimal `json:"loan_debt_ratio_limit"`

	StartFactoryCount int `json:"start_factory_count"`
	MaxMonths         int `json:"max_months"`

	// SenioritySeed fixes the dice stream used to seed the initial
	// seniority order. Zero means derive a seed from the session code.
	SenioritySeed int64 `json:"seniority_seed,omitempty"`

	PhaseSequence []Phase `json:"phase_sequence"`
}

// DefaultEconomyConfiguration returns the stock rule set.
func DefaultEconomyConfiguration() EconomyConfiguration {
	usd := func(v int64) Money { return NewMoney(decimal.NewFromInt(v), "USD") }
	return EconomyConfiguration{
		StartingCash:                usd(1_500_000),
		RawMaterialStorage:          120,
		FinishedGoodsStorage:        120,
		MaxActiveFactories:          6,
		BaseOperatingCost:           usd(10_000),
		FactoryMaintenanceCost:      usd(2_500),
		StorageOveragePenalty:       usd(50),
		RawMaterialBaseSupply:       60,
		RawMaterialPriceFloor:       decimal.NewFromInt(100),
		RawMaterialPriceCeiling:     decimal.NewFromInt(200),
		FinishedGoodsBaseDemand:     48,
		FinishedGoodsPriceFloor:     decimal.NewFromInt(200),
		FinishedGoodsPriceCeiling:   decimal.NewFromInt(400),
		FactoryCapacityPerMonth:     5,
		FactoryLaunchCost:           usd(100),
		RawMaterialsPerFinishedGood: 2,
		BaseLoanInterestRate:        decimal.NewFromFloat(0.08),
		LoanDebtRatioLimit:          decimal.NewFromInt(2),
		StartFactoryCount:           2,
		MaxMonths:                   24,
		PhaseSequence:               DefaultPhaseSequence(),
	}
}

// LobbyOverrides are optional per-lobby adjustments to the default economy.
// Nil fields keep the default.
type LobbyOverrides struct {
	StartingCash         *Money           `json:"starting_cash,omitempty"`
	RawMaterialStorage   *int             `json:"raw_material_storage,omitempty"`
	FinishedGoodsStorage *int             `json:"finished_goods_storage,omitempty"`
	MaxActiveFactories   *int             `json:"max_active_factories,omitempty"`
	BaseLoanInterestRate *decimal.Decimal `json:"base_loan_interest_rate,omitempty"`
	MaxMonths            *int             `json:"max_months,omitempty"`
	SenioritySeed        *int64           `json:"seniority_seed,omitempty"`
}

// Apply returns config with the overrides applied.
func (o LobbyOverrides) Apply(config EconomyConfiguration) EconomyConfiguration {
	if o.StartingCash != nil {
		config.StartingCash = *o.StartingCash
	}
	if o.RawMaterialStorage != nil {
		config.RawMaterialStorage = *o.RawMaterialStorage
	}
	if o.FinishedGoodsStorage != nil {
		config.FinishedGoodsStorage = *o.FinishedGoodsStorage
	}
	if o.MaxActiveFactories != nil {
		config.MaxActiveFactories = *o.MaxActiveFactories
	}
	if o.BaseLoanInterestRate != nil {
		config.BaseLoanInterestRate = *o.BaseLoanInterestRate
	}
	if o.MaxMonths != nil {
		config.MaxMonths = *o.MaxMonths
	}
	if o.SenioritySeed != nil {
		config.SenioritySeed = *o.SenioritySeed
	}
	return config
}
