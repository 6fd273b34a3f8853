package phase

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// auctionEntry is one valid bid or offer queued for allocation.
type auctionEntry struct {
	companyID string
	quantity  int
	price     decimal.Decimal
}

// collectEntries extracts valid entries from the decisions: positive
// quantity and a price inside the announced band. Invalid entries are
// silently dropped, matching the hidden-bid rules.
func collectEntries(
	decisions []model.DecisionRecord,
	pick func(model.DecisionPayload) []model.BidEntry,
	floor, ceiling decimal.Decimal,
) []auctionEntry {
	var entries []auctionEntry
	for _, record := range decisions {
		for _, bid := range pick(record.Payload) {
			if bid.Quantity <= 0 {
				continue
			}
			if bid.Price.LessThan(floor) || bid.Price.GreaterThan(ceiling) {
				continue
			}
			entries = append(entries, auctionEntry{
				companyID: record.CompanyID,
				quantity:  bid.Quantity,
				price:     bid.Price,
			})
		}
	}
	return entries
}

// sortEntries orders entries by price (descending for buys, ascending for
// sells) with seniority rank as the tie-break. Companies absent from the
// ranking sort last. The sort is stable so equal entries keep submission
// order.
func sortEntries(entries []auctionEntry, order model.SeniorityOrder, priceDescending bool) {
	rank := func(id string) int {
		if r := order.RankOf(id); r >= 0 {
			return r
		}
		return len(order.Ranking)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		cmp := entries[i].price.Cmp(entries[j].price)
		if cmp != 0 {
			if priceDescending {
				return cmp > 0
			}
			return cmp < 0
		}
		return rank(entries[i].companyID) < rank(entries[j].companyID)
	})
}
