// Package session coordinates game sessions: it owns the monthly engine,
// validates decision submissions, persists snapshots and journals through
// the store, and exposes the stepwise phase execution the live runtime
// drives.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/factoria/game-engine/internal/metrics"
	"github.com/factoria/game-engine/internal/model"
	"github.com/factoria/game-engine/internal/phase"
	"github.com/factoria/game-engine/internal/store"
)

var (
	ErrSessionExists   = errors.New("session: session already exists")
	ErrWrongMonth      = errors.New("session: decision targets a different month")
	ErrUnknownPhase    = errors.New("session: decision targets an unknown phase")
	ErrMonthInProgress = errors.New("session: month already in progress")
	ErrNoMonthRunning  = errors.New("session: no month in progress")
	ErrSessionOver     = errors.New("session: session has reached a terminal state")
)

// Orchestrator serializes all mutations of a session behind one mutex
// (single-instance). For horizontal scaling, replace with distributed
// locking or database-level optimistic concurrency.
type Orchestrator struct {
	engine *phase.Engine
	store  store.Store

	mu      sync.Mutex
	pending map[string]map[model.Phase][]model.DecisionRecord
	running map[string]*phase.MonthRun
}

// NewOrchestrator creates an orchestrator over the given store.
func NewOrchestrator(st store.Store) *Orchestrator {
	return &Orchestrator{
		engine:  phase.NewEngine(),
		store:   st,
		pending: make(map[string]map[model.Phase][]model.DecisionRecord),
		running: make(map[string]*phase.MonthRun),
	}
}

// StartSession creates and persists the month-zero snapshot for a new
// session. The ranking gives the initial seniority order.
func (o *Orchestrator) StartSession(ctx context.Context, sessionID string, config model.EconomyConfiguration, ranking []string) (model.GameSnapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := o.store.LoadSnapshot(ctx, sessionID); err == nil {
		return model.GameSnapshot{}, fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	} else if !errors.Is(err, store.ErrSessionNotFound) {
		return model.GameSnapshot{}, err
	}

	snapshot, err := model.NewSessionSnapshot(config, ranking)
	if err != nil {
		return model.GameSnapshot{}, err
	}
	if err := o.store.SaveSnapshot(ctx, sessionID, snapshot); err != nil {
		return model.GameSnapshot{}, err
	}

	slog.Info("session started",
		"session", sessionID,
		"companies", len(ranking),
		"max_months", config.MaxMonths,
	)
	return snapshot, nil
}

// SubmitDecisions stores a decision record for the session's current month.
// Records for a past or future month are rejected; later submissions for
// the same phase accumulate.
func (o *Orchestrator) SubmitDecisions(ctx context.Context, sessionID string, record model.DecisionRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot, err := o.store.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return err
	}
	if record.MonthIndex != snapshot.MonthIndex {
		return fmt.Errorf("%w: got %d, current %d", ErrWrongMonth, record.MonthIndex, snapshot.MonthIndex)
	}
	if _, err := model.ParsePhase(string(record.Phase)); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownPhase, record.Phase)
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}

	byPhase, ok := o.pending[sessionID]
	if !ok {
		byPhase = make(map[model.Phase][]model.DecisionRecord)
		o.pending[sessionID] = byPhase
	}
	byPhase[record.Phase] = append(byPhase[record.Phase], record)
	return nil
}

// AdvanceMonth runs every phase of the session's current month in one call,
// persists the result, and returns it. Pending decisions are consumed.
func (o *Orchestrator) AdvanceMonth(ctx context.Context, sessionID string) (phase.MonthResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.beginMonthLocked(ctx, sessionID)
	if err != nil {
		return phase.MonthResult{}, err
	}
	for !run.Done() {
		o.drainPhaseLocked(sessionID, run)
		started := time.Now()
		result, err := run.Step()
		if err != nil {
			delete(o.running, sessionID)
			return phase.MonthResult{}, err
		}
		recordPhaseMetrics(result, time.Since(started))
	}
	return o.finalizeMonthLocked(ctx, sessionID, run)
}

// BeginMonth starts a stepwise month run for the live runtime. Buffered
// decisions join the run phase by phase as each step executes, so
// submissions arriving during a countdown still make their phase.
func (o *Orchestrator) BeginMonth(ctx context.Context, sessionID string) (model.Phase, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.beginMonthLocked(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return run.CurrentPhase(), nil
}

// StepPhase executes the next phase of the in-flight month. When the last
// phase completes the month is persisted and the MonthResult returned;
// otherwise the returned result pointer is nil.
func (o *Orchestrator) StepPhase(ctx context.Context, sessionID string) (phase.Result, *phase.MonthResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, ok := o.running[sessionID]
	if !ok {
		return phase.Result{}, nil, fmt.Errorf("%w: %s", ErrNoMonthRunning, sessionID)
	}

	o.drainPhaseLocked(sessionID, run)
	started := time.Now()
	result, err := run.Step()
	if err != nil {
		delete(o.running, sessionID)
		return phase.Result{}, nil, err
	}
	recordPhaseMetrics(result, time.Since(started))
	if !run.Done() {
		return result, nil, nil
	}

	month, err := o.finalizeMonthLocked(ctx, sessionID, run)
	if err != nil {
		return phase.Result{}, nil, err
	}
	return result, &month, nil
}

// AbortMonth discards a session's in-flight month run and buffered
// decisions without persisting anything. The last saved snapshot stays
// authoritative, so a later BeginMonth replays the same month.
func (o *Orchestrator) AbortMonth(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.running[sessionID]; ok {
		slog.Info("month aborted", "session", sessionID)
	}
	delete(o.running, sessionID)
	delete(o.pending, sessionID)
}

// CurrentPhase reports the next phase an in-flight month will execute.
func (o *Orchestrator) CurrentPhase(sessionID string) (model.Phase, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, ok := o.running[sessionID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoMonthRunning, sessionID)
	}
	return run.CurrentPhase(), nil
}

// Snapshot returns the session's persisted state.
func (o *Orchestrator) Snapshot(ctx context.Context, sessionID string) (model.GameSnapshot, error) {
	return o.store.LoadSnapshot(ctx, sessionID)
}

// Logs returns the session's month journal.
func (o *Orchestrator) Logs(ctx context.Context, sessionID string) ([]model.MonthLog, error) {
	return o.store.MonthLogs(ctx, sessionID)
}

// EndSession drops in-flight state and deletes the session from the store.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.pending, sessionID)
	delete(o.running, sessionID)
	return o.store.DeleteSession(ctx, sessionID)
}

func (o *Orchestrator) beginMonthLocked(ctx context.Context, sessionID string) (*phase.MonthRun, error) {
	if _, ok := o.running[sessionID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrMonthInProgress, sessionID)
	}

	snapshot, err := o.store.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if Terminal(snapshot) != TerminalNone {
		return nil, fmt.Errorf("%w: %s", ErrSessionOver, sessionID)
	}

	run, err := o.engine.NewMonthRun(phase.MonthContext{
		MonthIndex: snapshot.MonthIndex,
		Config:     snapshot.Configuration,
		Companies:  snapshot.Companies,
		Seniority:  snapshot.Seniority,
		Decisions:  make(map[model.Phase][]model.DecisionRecord),
	})
	if err != nil {
		return nil, err
	}
	o.running[sessionID] = run
	return run, nil
}

// drainPhaseLocked moves buffered decisions for the run's next phase into
// the run. Submissions are validated against the current month, and the
// buffer is cleared when the month finalizes, so everything here belongs
// to the in-flight month.
func (o *Orchestrator) drainPhaseLocked(sessionID string, run *phase.MonthRun) {
	byPhase := o.pending[sessionID]
	if byPhase == nil || run.Done() {
		return
	}
	current := run.CurrentPhase()
	records := byPhase[current]
	if len(records) == 0 {
		return
	}
	delete(byPhase, current)
	run.QueueDecisions(current, records...)
}

func (o *Orchestrator) finalizeMonthLocked(ctx context.Context, sessionID string, run *phase.MonthRun) (phase.MonthResult, error) {
	delete(o.running, sessionID)
	delete(o.pending, sessionID)

	result, err := run.Result()
	if err != nil {
		return phase.MonthResult{}, err
	}

	// Player count is fixed at session start and rides along on every
	// snapshot.
	prior, err := o.store.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return phase.MonthResult{}, err
	}

	snapshot := model.GameSnapshot{
		MonthIndex:    result.MonthIndex + 1,
		PlayerCount:   prior.PlayerCount,
		Configuration: result.Config,
		Companies:     result.FinalCompanies,
		Seniority:     nextSeniority(result, run.Seniority()),
	}
	if err := o.store.SaveSnapshot(ctx, sessionID, snapshot); err != nil {
		return phase.MonthResult{}, err
	}
	if err := o.store.AppendMonthLog(ctx, sessionID, result.Log); err != nil {
		return phase.MonthResult{}, err
	}

	metrics.MonthsCompleted.Inc()
	slog.Info("month completed",
		"session", sessionID,
		"month", result.MonthIndex,
		"companies", len(result.FinalCompanies),
	)
	return result, nil
}

func recordPhaseMetrics(result phase.Result, elapsed time.Duration) {
	metrics.PhasesExecuted.WithLabelValues(string(result.Phase)).Inc()
	metrics.PhaseDuration.WithLabelValues(string(result.Phase)).Observe(elapsed.Seconds())
	if v, ok := result.Metrics["total_raw_material_allocated"]; ok {
		metrics.AuctionVolume.WithLabelValues("buy").Add(float64(v.IntPart()))
	}
	if v, ok := result.Metrics["finished_goods_sold"]; ok {
		metrics.AuctionVolume.WithLabelValues("sell").Add(float64(v.IntPart()))
	}
	if v, ok := result.Metrics["bankruptcies_resolved"]; ok {
		metrics.CompaniesRemoved.Add(float64(v.IntPart()))
	}
}

// nextSeniority reads the rotated order published by the end-of-month
// phase. If the event is missing or malformed it falls back to the prior
// ranking with removed companies dropped, unrotated.
func nextSeniority(result phase.MonthResult, prior model.SeniorityOrder) model.SeniorityOrder {
	for i := len(result.PhaseResults) - 1; i >= 0; i-- {
		if result.PhaseResults[i].Phase != model.PhaseEndOfMonth {
			continue
		}
		for _, event := range result.PhaseResults[i].Log.Events {
			if event.EventType != "seniority_rotated" {
				continue
			}
			if ranking := stringSlice(event.Payload["new_order"]); ranking != nil {
				if order, err := model.NewSeniorityOrder(ranking); err == nil {
					return order
				}
			}
		}
	}

	removed := make(map[string]struct{})
	for _, id := range prior.Ranking {
		if _, ok := result.FinalCompanies[id]; !ok {
			removed[id] = struct{}{}
		}
	}
	return prior.Without(removed)
}

// stringSlice coerces an event payload value into []string. Payloads hold
// []string in memory but decode from JSON as []any.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}
