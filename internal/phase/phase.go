// Package phase implements the eight monthly phase handlers and the engine
// that runs them in order. Handlers are pure: they consume the current
// company-state map plus the phase's decisions and return an updated map, a
// phase log, and metrics. Economically invalid submissions produce logged
// events; only structurally invalid input is an error.
package phase

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// Sentinel errors for structural failures that abort a month.
var (
	ErrMissingHandler = errors.New("phase: no handler registered for phase")
	ErrPhaseMismatch  = errors.New("phase: handler returned result for a different phase")
	ErrUnknownCompany = errors.New("phase: decision references unknown company")
)

// Input is the payload every handler receives.
type Input struct {
	MonthIndex      int
	Config          model.EconomyConfiguration
	Companies       map[string]model.CompanyState
	Seniority       model.SeniorityOrder
	Decisions       []model.DecisionRecord
	PreviousResults []Result
	PreviousEvents  []model.LoggedEvent
}

// Result is the structured outcome of one handler invocation.
type Result struct {
	Phase      model.Phase
	MonthIndex int
	Companies  map[string]model.CompanyState
	Log        model.PhaseLog
	Summary    string
	Metrics    map[string]decimal.Decimal
}

// Handler executes one phase.
type Handler func(Input) (Result, error)

// DefaultHandlers returns the full handler set keyed by phase.
func DefaultHandlers() map[model.Phase]Handler {
	return map[model.Phase]Handler{
		model.PhaseExpenses:           Expenses,
		model.PhaseMarketAnnouncement: MarketAnnouncement,
		model.PhaseRawMaterialBuy:     RawMaterialPurchase,
		model.PhaseProduction:         Production,
		model.PhaseFinishedGoodsSale:  FinishedGoodsSale,
		model.PhaseLoanManagement:     LoanManagement,
		model.PhaseConstruction:       Construction,
		model.PhaseEndOfMonth:         EndOfMonth,
	}
}

// orderedCompanyIDs yields company ids in seniority order, then any company
// absent from the ranking in lexical order. Handlers iterate with this so
// event ordering is deterministic.
func orderedCompanyIDs(companies map[string]model.CompanyState, order model.SeniorityOrder) []string {
	ids := make([]string, 0, len(companies))
	for _, id := range order.Ranking {
		if _, ok := companies[id]; ok {
			ids = append(ids, id)
		}
	}
	var rest []string
	for id := range companies {
		if order.RankOf(id) < 0 {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

func cloneCompanies(companies map[string]model.CompanyState) map[string]model.CompanyState {
	next := make(map[string]model.CompanyState, len(companies))
	for id, state := range companies {
		next[id] = state
	}
	return next
}

// findResult returns the earlier result for a phase this month, if any.
func findResult(results []Result, phase model.Phase) (Result, bool) {
	for _, r := range results {
		if r.Phase == phase {
			return r, true
		}
	}
	return Result{}, false
}

func metricInt(metrics map[string]decimal.Decimal, key string, fallback int) int {
	if v, ok := metrics[key]; ok {
		return int(v.IntPart())
	}
	return fallback
}

func metricDecimal(metrics map[string]decimal.Decimal, key string, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := metrics[key]; ok {
		return v
	}
	return fallback
}

func buildLog(phase model.Phase, monthIndex int, decisions []model.DecisionRecord, events []model.LoggedEvent) (model.PhaseLog, error) {
	return model.NewPhaseLog(phase, monthIndex, decisions, events)
}
