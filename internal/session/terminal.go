package session

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// TerminalReason explains why a session stopped accepting new months.
type TerminalReason string

const (
	TerminalNone        TerminalReason = ""
	TerminalLastCompany TerminalReason = "last_company_standing"
	TerminalMaxMonths   TerminalReason = "max_months_reached"
	TerminalAllRemoved  TerminalReason = "all_companies_removed"
)

// Terminal reports whether a snapshot is in a terminal state. Sessions that
// started with a single player only end on the month limit; multiplayer
// sessions also end when at most one company survives.
func Terminal(snapshot model.GameSnapshot) TerminalReason {
	if len(snapshot.Companies) == 0 {
		return TerminalAllRemoved
	}
	if snapshot.Configuration.MaxMonths > 0 && snapshot.MonthIndex >= snapshot.Configuration.MaxMonths {
		return TerminalMaxMonths
	}
	if snapshot.PlayerCount > 1 && len(snapshot.Companies) <= 1 {
		return TerminalLastCompany
	}
	return TerminalNone
}

// Standing is one row of the final ranking.
type Standing struct {
	CompanyID string          `json:"company_id"`
	Capital   decimal.Decimal `json:"capital"`
}

// Standings ranks the surviving companies by capital, highest first.
// Capital values inventory at the configured floor prices, matching the
// end-of-month recomputation. Ties break on seniority rank, then id.
func Standings(snapshot model.GameSnapshot) []Standing {
	cfg := snapshot.Configuration
	standings := make([]Standing, 0, len(snapshot.Companies))
	for id, state := range snapshot.Companies {
		raw := decimal.NewFromInt(int64(state.Inventory.Quantity(model.ResourceRawMaterial)))
		finished := decimal.NewFromInt(int64(state.Inventory.Quantity(model.ResourceFinishedGood)))
		capital := state.Cash.Amount.
			Add(cfg.RawMaterialPriceFloor.Mul(raw)).
			Add(cfg.FinishedGoodsPriceFloor.Mul(finished))
		standings = append(standings, Standing{CompanyID: id, Capital: capital})
	}
	rank := func(id string) int {
		if r := snapshot.Seniority.RankOf(id); r >= 0 {
			return r
		}
		return len(snapshot.Seniority.Ranking)
	}
	sort.Slice(standings, func(i, j int) bool {
		cmp := standings[i].Capital.Cmp(standings[j].Capital)
		if cmp != 0 {
			return cmp > 0
		}
		if ri, rj := rank(standings[i].CompanyID), rank(standings[j].CompanyID); ri != rj {
			return ri < rj
		}
		return standings[i].CompanyID < standings[j].CompanyID
	})
	return standings
}

// Winner returns the top-ranked surviving company, if any.
func Winner(snapshot model.GameSnapshot) (Standing, bool) {
	standings := Standings(snapshot)
	if len(standings) == 0 {
		return Standing{}, false
	}
	return standings[0], true
}
