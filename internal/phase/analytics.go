package phase

import (
	"github.com/factoria/game-engine/internal/model"
)

// CompanyAnalytics is the per-company slice of an analytics snapshot.
type CompanyAnalytics struct {
	CompanyID     string      `json:"company_id"`
	Cash          model.Money `json:"cash"`
	RawMaterials  int         `json:"raw_materials"`
	FinishedGoods int         `json:"finished_goods"`
	Factories     int         `json:"factories"`
	ActiveLoans   int         `json:"active_loans"`
	Bankrupt      bool        `json:"bankrupt"`
}

// Analytics summarizes the roster after a phase, broadcast with every phase
// report so clients can render standings without replaying the journal.
type Analytics struct {
	Companies []CompanyAnalytics `json:"companies"`
	Bankrupt  []string           `json:"bankrupt_companies"`
}

// Snapshot builds an analytics snapshot of the given roster, ordered by
// seniority.
func Snapshot(companies map[string]model.CompanyState, order model.SeniorityOrder) Analytics {
	analytics := Analytics{Bankrupt: []string{}}
	for _, companyID := range orderedCompanyIDs(companies, order) {
		state := companies[companyID]
		entry := CompanyAnalytics{
			CompanyID:     companyID,
			Cash:          state.Cash,
			RawMaterials:  state.Inventory.Quantity(model.ResourceRawMaterial),
			FinishedGoods: state.Inventory.Quantity(model.ResourceFinishedGood),
			Factories:     state.Factories.TotalCount(),
			ActiveLoans:   len(state.Loans),
			Bankrupt:      state.Cash.IsNegative(),
		}
		if entry.Bankrupt {
			analytics.Bankrupt = append(analytics.Bankrupt, companyID)
		}
		analytics.Companies = append(analytics.Companies, entry)
	}
	return analytics
}
