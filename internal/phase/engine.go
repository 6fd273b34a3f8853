package phase

import (
	"fmt"

	"github.com/factoria/game-engine/internal/model"
)

// MonthContext carries everything needed to run one month.
type MonthContext struct {
	MonthIndex int
	Config     model.EconomyConfiguration
	Companies  map[string]model.CompanyState
	Seniority  model.SeniorityOrder
	Decisions  map[model.Phase][]model.DecisionRecord
}

// MonthResult is the aggregate outcome of a full monthly pass.
type MonthResult struct {
	MonthIndex     int
	Config         model.EconomyConfiguration
	FinalCompanies map[string]model.CompanyState
	PhaseResults   []Result
	Log            model.MonthLog
}

// Engine executes the configured phase sequence exactly once per
// invocation, threading the evolving company-state map and accumulated
// events from handler to handler.
type Engine struct {
	handlers map[model.Phase]Handler
}

// NewEngine returns an engine with the default handler set.
func NewEngine() *Engine {
	return &Engine{handlers: DefaultHandlers()}
}

// NewEngineWithHandlers returns an engine using the given handlers. Mostly
// useful in tests that stub out individual phases.
func NewEngineWithHandlers(handlers map[model.Phase]Handler) *Engine {
	return &Engine{handlers: handlers}
}

// RunMonth executes every configured phase for ctx in order.
func (e *Engine) RunMonth(ctx MonthContext) (MonthResult, error) {
	run, err := e.NewMonthRun(ctx)
	if err != nil {
		return MonthResult{}, err
	}
	for !run.Done() {
		if _, err := run.Step(); err != nil {
			return MonthResult{}, err
		}
	}
	return run.Result()
}

// NewMonthRun prepares a stepwise execution of ctx's month: the live
// runtime calls Step once per phase countdown instead of running the whole
// month at once. Phase tag validation and state threading are identical to
// RunMonth.
func (e *Engine) NewMonthRun(ctx MonthContext) (*MonthRun, error) {
	sequence := ctx.Config.PhaseSequence
	if len(sequence) == 0 {
		sequence = model.DefaultPhaseSequence()
	}
	for _, phase := range sequence {
		if _, ok := e.handlers[phase]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingHandler, phase)
		}
	}
	return &MonthRun{
		engine:    e,
		ctx:       ctx,
		sequence:  sequence,
		companies: cloneCompanies(ctx.Companies),
		log:       model.MonthLog{MonthIndex: ctx.MonthIndex},
	}, nil
}

// MonthRun is one in-flight monthly pass, advanced one phase at a time.
type MonthRun struct {
	engine    *Engine
	ctx       MonthContext
	sequence  []model.Phase
	position  int
	companies map[string]model.CompanyState
	results   []Result
	events    []model.LoggedEvent
	log       model.MonthLog
}

// Done reports whether every configured phase has executed.
func (r *MonthRun) Done() bool {
	return r.position >= len(r.sequence)
}

// CurrentPhase returns the phase the next Step will execute.
func (r *MonthRun) CurrentPhase() model.Phase {
	if r.Done() {
		return r.sequence[len(r.sequence)-1]
	}
	return r.sequence[r.position]
}

// Companies returns the state map as of the last completed phase.
func (r *MonthRun) Companies() map[string]model.CompanyState {
	return cloneCompanies(r.companies)
}

// Seniority returns the order the month was started with.
func (r *MonthRun) Seniority() model.SeniorityOrder {
	return r.ctx.Seniority
}

// QueueDecisions adds records for a phase that has not executed yet. The
// live runtime queues decisions as they arrive during the countdown.
func (r *MonthRun) QueueDecisions(phase model.Phase, records ...model.DecisionRecord) {
	if len(records) == 0 {
		return
	}
	if r.ctx.Decisions == nil {
		r.ctx.Decisions = make(map[model.Phase][]model.DecisionRecord)
	}
	r.ctx.Decisions[phase] = append(r.ctx.Decisions[phase], records...)
}

// Step executes the next phase. A handler returning a result tagged with a
// different phase aborts the run; the caller must discard it and keep the
// prior snapshot.
func (r *MonthRun) Step() (Result, error) {
	if r.Done() {
		return Result{}, fmt.Errorf("phase: month %d already complete", r.ctx.MonthIndex)
	}
	phase := r.sequence[r.position]
	handler := r.engine.handlers[phase]

	result, err := handler(Input{
		MonthIndex:      r.ctx.MonthIndex,
		Config:          r.ctx.Config,
		Companies:       r.companies,
		Seniority:       r.ctx.Seniority,
		Decisions:       r.ctx.Decisions[phase],
		PreviousResults: append([]Result(nil), r.results...),
		PreviousEvents:  append([]model.LoggedEvent(nil), r.events...),
	})
	if err != nil {
		return Result{}, fmt.Errorf("phase %s: %w", phase, err)
	}
	if result.Phase != phase {
		return Result{}, fmt.Errorf("%w: ran %s, got %s", ErrPhaseMismatch, phase, result.Phase)
	}

	log, err := r.log.Append(result.Log)
	if err != nil {
		return Result{}, err
	}
	r.log = log
	r.results = append(r.results, result)
	r.events = append(r.events, result.Log.Events...)
	r.companies = result.Companies
	r.position++
	return result, nil
}

// Result assembles the MonthResult once every phase has run.
func (r *MonthRun) Result() (MonthResult, error) {
	if !r.Done() {
		return MonthResult{}, fmt.Errorf("phase: month %d still has %d phases to run",
			r.ctx.MonthIndex, len(r.sequence)-r.position)
	}
	return MonthResult{
		MonthIndex:     r.ctx.MonthIndex,
		Config:         r.ctx.Config,
		FinalCompanies: cloneCompanies(r.companies),
		PhaseResults:   append([]Result(nil), r.results...),
		Log:            r.log,
	}, nil
}
