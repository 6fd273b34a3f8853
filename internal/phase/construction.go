package phase

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

// Construction advances every in-flight build or upgrade by one month,
// completing records whose counter reaches one, then registers newly
// submitted projects. Project costs are charged up front; a rejected
// upgrade refunds its cost.
func Construction(in Input) (Result, error) {
	projects := make(map[string][]model.ConstructionProject)
	for _, decision := range in.Decisions {
		projects[decision.CompanyID] = append(projects[decision.CompanyID], decision.Payload.Projects...)
	}

	updated := cloneCompanies(in.Companies)
	var events []model.LoggedEvent
	completions := 0

	for _, companyID := range orderedCompanyIDs(in.Companies, in.Seniority) {
		state := updated[companyID]

		portfolio, advanceEvents := advancePipelines(state, in.MonthIndex)
		events = append(events, advanceEvents...)
		completions += len(advanceEvents)

		cash := state.Cash
		var projectEvents []model.LoggedEvent
		var err error
		cash, portfolio, projectEvents, err = applyProjects(in, companyID, projects[companyID], cash, portfolio)
		if err != nil {
			return Result{}, err
		}
		events = append(events, projectEvents...)

		state.Cash = cash
		updated[companyID] = state.WithFactories(portfolio)
	}

	log, err := buildLog(model.PhaseConstruction, in.MonthIndex, in.Decisions, events)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Phase:      model.PhaseConstruction,
		MonthIndex: in.MonthIndex,
		Companies:  updated,
		Log:        log,
		Summary:    "Processed construction pipelines and applied project submissions.",
		Metrics:    map[string]decimal.Decimal{},
	}, nil
}

// advancePipelines decrements the remaining-month counter of every in-flight
// record, moving finished ones into the active bucket.
func advancePipelines(state model.CompanyState, monthIndex int) (model.FactoryPortfolio, []model.LoggedEvent) {
	var events []model.LoggedEvent
	next := model.FactoryPortfolio{
		Active: append([]model.FactoryRecord(nil), state.Factories.Active...),
	}

	for _, record := range state.Factories.UnderConstruction {
		if record.MonthsRemaining == 1 {
			record.Status = model.FactoryActive
			record.MonthsRemaining = 0
			next.Active = append(next.Active, record)
			events = append(events, model.NewEvent(monthIndex, model.PhaseConstruction, "construction_completed", state.CompanyID, map[string]any{
				"factory_id": record.ID,
			}))
			continue
		}
		record.MonthsRemaining--
		next.UnderConstruction = append(next.UnderConstruction, record)
	}

	for _, record := range state.Factories.Upgrading {
		if record.MonthsRemaining == 1 {
			record.Status = model.FactoryActive
			record.MonthsRemaining = 0
			next.Active = append(next.Active, record)
			events = append(events, model.NewEvent(monthIndex, model.PhaseConstruction, "upgrade_completed", state.CompanyID, map[string]any{
				"factory_id": record.ID,
			}))
			continue
		}
		record.MonthsRemaining--
		next.Upgrading = append(next.Upgrading, record)
	}

	return next, events
}

// applyProjects charges and registers new build/upgrade submissions.
func applyProjects(
	in Input,
	companyID string,
	projects []model.ConstructionProject,
	cash model.Money,
	portfolio model.FactoryPortfolio,
) (model.Money, model.FactoryPortfolio, []model.LoggedEvent, error) {
	var events []model.LoggedEvent

	for _, project := range projects {
		if project.ID == "" || project.BlueprintID == "" || project.Months <= 0 || project.Cost.IsNegative() {
			continue
		}

		if portfolio.TotalCount() >= in.Config.MaxActiveFactories {
			events = append(events, model.NewEvent(in.MonthIndex, model.PhaseConstruction, "project_rejected_factory_limit", companyID, map[string]any{
				"identifier":  project.ID,
				"max_allowed": in.Config.MaxActiveFactories,
			}))
			continue
		}

		cost := model.NewMoney(project.Cost, cash.Currency)
		if cash.LessThan(cost) {
			events = append(events, model.NewEvent(in.MonthIndex, model.PhaseConstruction, "project_rejected_insufficient_cash", companyID, map[string]any{
				"identifier": project.ID,
				"cost":       cost.Amount.String(),
			}))
			continue
		}

		debited, err := cash.Subtract(cost)
		if err != nil {
			return cash, portfolio, nil, err
		}
		cash = debited

		kind := strings.ToLower(project.Kind)
		if kind == "upgrade" || kind == "upgrading" {
			targetID := project.TargetFactoryID
			if targetID == "" {
				targetID = project.ID
			}
			found := -1
			for i, record := range portfolio.Active {
				if record.ID == targetID {
					found = i
					break
				}
			}
			if found < 0 {
				events = append(events, model.NewEvent(in.MonthIndex, model.PhaseConstruction, "upgrade_target_missing", companyID, map[string]any{
					"target_factory_id": targetID,
				}))
				if cash, err = cash.Add(cost); err != nil {
					return cash, portfolio, nil, err
				}
				continue
			}

			target := portfolio.Active[found]
			portfolio.Active = append(append([]model.FactoryRecord(nil), portfolio.Active[:found]...), portfolio.Active[found+1:]...)
			target.Status = model.FactoryUpgrading
			target.MonthsRemaining = project.Months
			portfolio.Upgrading = append(portfolio.Upgrading, target)

			events = append(events, model.NewEvent(in.MonthIndex, model.PhaseConstruction, "upgrade_started", companyID, map[string]any{
				"factory_id": targetID,
				"months":     project.Months,
				"cost":       cost.Amount.String(),
			}))
			continue
		}

		portfolio.UnderConstruction = append(portfolio.UnderConstruction, model.FactoryRecord{
			ID:              project.ID,
			BlueprintID:     project.BlueprintID,
			Status:          model.FactoryUnderConstruction,
			MonthsRemaining: project.Months,
		})
		events = append(events, model.NewEvent(in.MonthIndex, model.PhaseConstruction, "construction_started", companyID, map[string]any{
			"factory_id": project.ID,
			"months":     project.Months,
			"cost":       cost.Amount.String(),
		}))
	}

	return cash, portfolio, events, nil
}
