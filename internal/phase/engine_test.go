package phase

import (
	"errors"
	"testing"

	"github.com/factoria/game-engine/internal/model"
)

func fullMonthContext(t *testing.T) MonthContext {
	t.Helper()
	return MonthContext{
		MonthIndex: 0,
		Config:     testConfig(),
		Companies: map[string]model.CompanyState{
			"alpha": company(t, "alpha", 100_000, 0, 0, 2),
			"beta":  company(t, "beta", 100_000, 0, 0, 2),
		},
		Seniority: order(t, "alpha", "beta"),
		Decisions: map[model.Phase][]model.DecisionRecord{
			model.PhaseRawMaterialBuy: {bidDecision(0, "alpha", 10, 150)},
			model.PhaseProduction: {{
				MonthIndex: 0,
				Phase:      model.PhaseProduction,
				CompanyID:  "alpha",
				Payload:    model.DecisionPayload{Orders: []model.ProductionOrder{{Quantity: 5}}},
			}},
			model.PhaseFinishedGoodsSale: {{
				MonthIndex: 0,
				Phase:      model.PhaseFinishedGoodsSale,
				CompanyID:  "alpha",
				Payload:    model.DecisionPayload{Offers: []model.BidEntry{{Quantity: 5, Price: d(300)}}},
			}},
		},
	}
}

func TestEngine_RunMonth(t *testing.T) {
	result, err := NewEngine().RunMonth(fullMonthContext(t))
	if err != nil {
		t.Fatalf("RunMonth: %v", err)
	}

	if len(result.PhaseResults) != len(model.DefaultPhaseSequence()) {
		t.Fatalf("phase results = %d, want %d", len(result.PhaseResults), len(model.DefaultPhaseSequence()))
	}
	for i, phase := range model.DefaultPhaseSequence() {
		if result.PhaseResults[i].Phase != phase {
			t.Errorf("result[%d].Phase = %s, want %s", i, result.PhaseResults[i].Phase, phase)
		}
	}
	if result.Log.MonthIndex != 0 || len(result.Log.Phases) != len(result.PhaseResults) {
		t.Errorf("month log = %+v, want 8 phase logs for month 0", result.Log.MonthIndex)
	}

	// alpha's month: -1500 expenses, -1500 materials (10*150), -100 launch
	// (one factory covers 5 units), +1500 sales (5*300).
	alpha := result.FinalCompanies["alpha"]
	if !alpha.Cash.Amount.Equal(d(98_400)) {
		t.Errorf("alpha cash = %s, want 98400", alpha.Cash.Amount)
	}
	if got := alpha.Inventory.Quantity(model.ResourceFinishedGood); got != 0 {
		t.Errorf("alpha finished goods = %d, want 0 after sale", got)
	}
	if _, ok := result.FinalCompanies["beta"]; !ok {
		t.Error("beta missing from final state")
	}
}

func TestEngine_MissingHandler(t *testing.T) {
	handlers := DefaultHandlers()
	delete(handlers, model.PhaseProduction)

	_, err := NewEngineWithHandlers(handlers).NewMonthRun(fullMonthContext(t))
	if !errors.Is(err, ErrMissingHandler) {
		t.Fatalf("err = %v, want ErrMissingHandler", err)
	}
}

func TestEngine_PhaseMismatchAbortsMonth(t *testing.T) {
	handlers := DefaultHandlers()
	handlers[model.PhaseExpenses] = func(in Input) (Result, error) {
		result, err := MarketAnnouncement(in)
		if err != nil {
			return Result{}, err
		}
		return result, nil
	}

	_, err := NewEngineWithHandlers(handlers).RunMonth(fullMonthContext(t))
	if !errors.Is(err, ErrPhaseMismatch) {
		t.Fatalf("err = %v, want ErrPhaseMismatch", err)
	}
}

func TestMonthRun_StepsThroughSequence(t *testing.T) {
	run, err := NewEngine().NewMonthRun(fullMonthContext(t))
	if err != nil {
		t.Fatalf("NewMonthRun: %v", err)
	}

	sequence := model.DefaultPhaseSequence()
	for i, phase := range sequence {
		if run.Done() {
			t.Fatalf("run done after %d steps, want %d", i, len(sequence))
		}
		if got := run.CurrentPhase(); got != phase {
			t.Fatalf("step %d phase = %s, want %s", i, got, phase)
		}
		result, err := run.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if result.Phase != phase {
			t.Fatalf("step %d result phase = %s, want %s", i, result.Phase, phase)
		}
	}

	if !run.Done() {
		t.Fatal("run not done after full sequence")
	}
	if _, err := run.Step(); err == nil {
		t.Fatal("stepping a finished run must fail")
	}
	if _, err := run.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}
}

func TestMonthRun_ResultBeforeDoneFails(t *testing.T) {
	run, err := NewEngine().NewMonthRun(fullMonthContext(t))
	if err != nil {
		t.Fatalf("NewMonthRun: %v", err)
	}
	if _, err := run.Result(); err == nil {
		t.Fatal("Result before completion must fail")
	}
}

func TestAnalytics_SnapshotOrdersBySeniority(t *testing.T) {
	companies := map[string]model.CompanyState{
		"alpha": company(t, "alpha", 5_000, 2, 1, 1),
		"beta":  company(t, "beta", -10, 0, 0, 0),
	}

	analytics := Snapshot(companies, order(t, "beta", "alpha"))
	if len(analytics.Companies) != 2 {
		t.Fatalf("companies = %d, want 2", len(analytics.Companies))
	}
	if analytics.Companies[0].CompanyID != "beta" || analytics.Companies[1].CompanyID != "alpha" {
		t.Errorf("order = [%s %s], want [beta alpha]",
			analytics.Companies[0].CompanyID, analytics.Companies[1].CompanyID)
	}
	if !analytics.Companies[0].Bankrupt {
		t.Error("beta with negative cash must be marked bankrupt")
	}
	if analytics.Companies[1].Factories != 1 || analytics.Companies[1].RawMaterials != 2 {
		t.Errorf("alpha analytics = %+v", analytics.Companies[1])
	}
}
