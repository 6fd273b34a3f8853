package model

import (
	"fmt"

	"github.com/google/uuid"
)

// GameSnapshot is the unit of persistence: the complete state of a session
// at a month boundary. It is replaced wholesale after every month advance.
type GameSnapshot struct {
	MonthIndex    int                     `json:"month_index"`
	Configuration EconomyConfiguration    `json:"configuration"`
	Companies     map[string]CompanyState `json:"companies"`
	Seniority     SeniorityOrder          `json:"seniority"`
	PlayerCount   int                     `json:"player_count"`
}

// NewSessionSnapshot builds the month-zero snapshot for the given companies:
// each receives the configured starting cash and complement of active
// factories. The seniority order follows the given ranking.
func NewSessionSnapshot(config EconomyConfiguration, ranking []string) (GameSnapshot, error) {
	order, err := NewSeniorityOrder(ranking)
	if err != nil {
		return GameSnapshot{}, err
	}
	companies := make(map[string]CompanyState, len(ranking))
	for _, id := range ranking {
		state := NewCompanyState(id, config.StartingCash)
		portfolio := FactoryPortfolio{}
		for i := 0; i < config.StartFactoryCount; i++ {
			portfolio = portfolio.Add(FactoryRecord{
				ID:          fmt.Sprintf("%s-factory-%s", id, uuid.NewString()[:8]),
				BlueprintID: "basic",
				Status:      FactoryActive,
			})
		}
		companies[id] = state.WithFactories(portfolio)
	}
	return GameSnapshot{
		MonthIndex:    0,
		Configuration: config,
		Companies:     companies,
		Seniority:     order,
		PlayerCount:   len(ranking),
	}, nil
}

// CompletedMonths returns the number of fully finished months.
func (s GameSnapshot) CompletedMonths() int {
	return s.MonthIndex
}
