package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/factoria/game-engine/internal/model"
	"github.com/factoria/game-engine/internal/phase"
	"github.com/factoria/game-engine/internal/session"
	"github.com/factoria/game-engine/internal/store"
)

var (
	ErrSessionFull     = errors.New("live: session is full")
	ErrSessionFinished = errors.New("live: session is finished")
	ErrSessionRunning  = errors.New("live: session already running")
	ErrNotSeated       = errors.New("live: caller holds no seat")
)

// RuntimeConfig tunes one session's real-time behavior. A session starts
// when MinPlayers distinct players are connected, or once IdleStartTimeout
// passes with at least one seated player (zero disables the timeout).
type RuntimeConfig struct {
	PhaseSeconds     int
	TickInterval     time.Duration
	MinPlayers       int
	MaxPlayers       int
	IdleStartTimeout time.Duration
	Economy          model.EconomyConfiguration
}

// DefaultRuntimeConfig returns the stock runtime tuning.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		PhaseSeconds:     30,
		TickInterval:     time.Second,
		MinPlayers:       2,
		MaxPlayers:       6,
		IdleStartTimeout: time.Minute,
		Economy:          model.DefaultEconomyConfiguration(),
	}
}

// Runtime drives one live session: seats and connection counts, the d6
// seniority seeding at start, and the background countdown loop that steps
// the orchestrator through each phase and broadcasts the results.
type Runtime struct {
	code string
	orch *session.Orchestrator
	hub  *Hub
	cfg  RuntimeConfig

	mu        sync.Mutex
	seats     map[string]string // userID -> companyID
	conns     map[string]int    // userID -> open connections
	started   bool
	finished  bool
	rolls     []SeniorityRoll
	seniority model.SeniorityOrder
	cancel    context.CancelFunc
	loopDone  chan struct{}
	skip      chan struct{}
	idleTimer *time.Timer
}

// NewRuntime creates a runtime for the given session code.
func NewRuntime(code string, orch *session.Orchestrator, cfg RuntimeConfig) *Runtime {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Runtime{
		code:  code,
		orch:  orch,
		hub:   NewHub(),
		cfg:   cfg,
		seats: make(map[string]string),
		conns: make(map[string]int),
		skip:  make(chan struct{}, 1),
	}
}

// Code returns the session's shareable code.
func (r *Runtime) Code() string {
	return r.code
}

// Attach seats the user (first come) and registers a new client. Joining a
// running session requires an existing seat; joining a finished session
// always fails.
func (r *Runtime) Attach(userID string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return nil, ErrSessionFinished
	}
	companyID, seated := r.seats[userID]
	if !seated {
		if r.started {
			return nil, ErrNotSeated
		}
		if len(r.seats) >= r.cfg.MaxPlayers {
			return nil, ErrSessionFull
		}
		companyID = userID
		r.seats[userID] = companyID
	}

	r.conns[userID]++
	client := NewClient(userID, companyID)
	r.hub.Add(client)
	return client, nil
}

// Detach drops a client. A user whose last connection closes before the
// session starts loses their seat. Returns the number of connections left.
func (r *Runtime) Detach(client *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hub.Remove(client)
	if n := r.conns[client.UserID] - 1; n > 0 {
		r.conns[client.UserID] = n
	} else {
		delete(r.conns, client.UserID)
		if !r.started {
			delete(r.seats, client.UserID)
		}
	}
	return r.hub.Len()
}

// PlayerCount reports the number of distinct connected players.
func (r *Runtime) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Started reports whether the session has started.
func (r *Runtime) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Start seeds seniority, creates the persisted session, and launches the
// phase loop. Starting is idempotent: only the first call has any effect,
// and exactly one session_started broadcast is emitted.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started || r.finished {
		r.mu.Unlock()
		return nil
	}
	if len(r.seats) == 0 {
		r.mu.Unlock()
		return fmt.Errorf("live: no seated players in session %s", r.code)
	}

	players := make([]string, 0, len(r.seats))
	for _, companyID := range r.seats {
		players = append(players, companyID)
	}
	ranking, rolls := SeedSeniority(r.seniorityRNG(), sortedCopy(players))
	r.rolls = rolls

	snapshot, err := r.orch.StartSession(ctx, r.code, r.cfg.Economy, ranking)
	if err != nil && !errors.Is(err, session.ErrSessionExists) {
		r.mu.Unlock()
		return err
	}
	if err == nil {
		r.seniority = snapshot.Seniority
	}

	r.started = true
	if r.idleTimer != nil {
		r.idleTimer.Stop()
		r.idleTimer = nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.loopDone = make(chan struct{})
	r.mu.Unlock()

	r.hub.Broadcast(StartedMessage{
		Type:      MsgSessionStarted,
		Month:     0,
		Players:   ranking,
		Seniority: ranking,
	})
	slog.Info("session started", "code", r.code, "players", len(ranking))

	go r.loop(loopCtx)
	return nil
}

// SkipPhase cancels the active countdown so the phase resolves now.
func (r *Runtime) SkipPhase() {
	select {
	case r.skip <- struct{}{}:
	default:
	}
}

// ArmIdleStart resets the inactivity timer. When it fires with at least
// one seated player and the session still in the lobby, the session
// starts without waiting for the full quorum.
func (r *Runtime) ArmIdleStart() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || r.finished || r.cfg.IdleStartTimeout <= 0 {
		return
	}
	if r.idleTimer != nil {
		r.idleTimer.Stop()
	}
	r.idleTimer = time.AfterFunc(r.cfg.IdleStartTimeout, func() {
		if r.PlayerCount() == 0 {
			return
		}
		if err := r.Start(context.Background()); err != nil {
			slog.Error("idle start failed", "code", r.code, "err", err)
		}
	})
}

// Stop tears the phase loop down, waits for it to exit, and releases any
// in-flight month so the session id is reusable.
func (r *Runtime) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.loopDone
	r.cancel = nil
	if r.idleTimer != nil {
		r.idleTimer.Stop()
		r.idleTimer = nil
	}
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	r.orch.AbortMonth(r.code)
}

func (r *Runtime) loop(ctx context.Context) {
	defer close(r.loopDone)

	for {
		first, err := r.orch.BeginMonth(ctx, r.code)
		if err != nil {
			if errors.Is(err, session.ErrSessionOver) {
				r.finish(ctx)
				return
			}
			slog.Error("begin month failed", "code", r.code, "err", err)
			return
		}

		snapshot, err := r.orch.Snapshot(ctx, r.code)
		if err == nil {
			r.mu.Lock()
			r.seniority = snapshot.Seniority
			r.mu.Unlock()
		}

		for phaseName := first; ; {
			if err := r.countdown(ctx, phaseName); err != nil {
				return
			}

			result, month, err := r.orch.StepPhase(ctx, r.code)
			if err != nil {
				slog.Error("phase step failed", "code", r.code, "phase", phaseName, "err", err)
				return
			}
			r.broadcastReport(result)

			if month == nil {
				next, err := r.orch.CurrentPhase(r.code)
				if err != nil {
					return
				}
				phaseName = next
				continue
			}

			r.broadcastMonthResult(ctx, month)
			break
		}

		done, err := r.checkTerminal(ctx)
		if err != nil || done {
			return
		}
	}
}

func (r *Runtime) countdown(ctx context.Context, phaseName model.Phase) error {
	total := r.cfg.PhaseSeconds
	startedAt := time.Now().UTC()

	// A skip buffered between phases belongs to the previous countdown.
	select {
	case <-r.skip:
	default:
	}

	tick := func(remaining int) {
		r.hub.Broadcast(TickMessage{Type: MsgPhaseTick, Tick: Tick{
			Phase:            phaseName,
			RemainingSeconds: remaining,
			TotalSeconds:     total,
			StartedAt:        startedAt,
		}})
	}

	for remaining := total; remaining > 0; remaining-- {
		tick(remaining)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.skip:
			remaining = 1
		case <-time.After(r.cfg.TickInterval):
		}
	}
	tick(0)
	return nil
}

func (r *Runtime) broadcastReport(result phase.Result) {
	r.mu.Lock()
	order := r.seniority
	r.mu.Unlock()

	r.hub.Broadcast(ReportMessage{Type: MsgPhaseReport, Report: Report{
		Phase:     result.Phase,
		Month:     result.MonthIndex,
		Summary:   result.Summary,
		Journal:   result.Log,
		Analytics: phase.Snapshot(result.Companies, order),
	}})
}

func (r *Runtime) broadcastMonthResult(ctx context.Context, month *phase.MonthResult) {
	snapshot, err := r.orch.Snapshot(ctx, r.code)
	if err != nil {
		slog.Error("load snapshot after month", "code", r.code, "err", err)
		return
	}
	r.hub.Broadcast(MonthResultMessage{
		Type:     MsgMonthResult,
		Month:    month.MonthIndex,
		Snapshot: snapshot,
		Log:      month.Log,
	})
}

// checkTerminal stops the loop and announces the outcome once the session
// reaches a terminal state.
func (r *Runtime) checkTerminal(ctx context.Context) (bool, error) {
	snapshot, err := r.orch.Snapshot(ctx, r.code)
	if err != nil {
		return false, err
	}
	reason := session.Terminal(snapshot)
	if reason == session.TerminalNone {
		return false, nil
	}
	r.finishWith(snapshot, reason)
	return true, nil
}

func (r *Runtime) finish(ctx context.Context) {
	snapshot, err := r.orch.Snapshot(ctx, r.code)
	if err != nil {
		return
	}
	r.finishWith(snapshot, session.Terminal(snapshot))
}

func (r *Runtime) finishWith(snapshot model.GameSnapshot, reason session.TerminalReason) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.mu.Unlock()

	msg := FinishedMessage{
		Type:      MsgSessionFinished,
		Reason:    string(reason),
		Standings: session.Standings(snapshot),
	}
	if winner, ok := session.Winner(snapshot); ok {
		msg.WinnerID = winner.CompanyID
	}
	r.hub.Broadcast(msg)
	slog.Info("session finished", "code", r.code, "reason", string(reason), "winner", msg.WinnerID)
}

// seniorityRNG builds the dice stream: the configured seed when set,
// otherwise one derived from the session code.
func (r *Runtime) seniorityRNG() *rand.Rand {
	seed := r.cfg.Economy.SenioritySeed
	if seed == 0 {
		for _, c := range r.code {
			seed = seed*31 + int64(c)
		}
	}
	return rand.New(rand.NewSource(seed))
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

// HandleMessage dispatches one inbound client message. Replies go to the
// submitting client; broadcasts reach the whole session.
func (r *Runtime) HandleMessage(ctx context.Context, client *Client, msg InboundMessage) {
	switch msg.Type {
	case MsgHeartbeat:
		client.Send(HeartbeatMessage{Type: MsgHeartbeat, Nonce: msg.Nonce})

	case MsgStatus, MsgJoin:
		r.sendState(ctx, client)

	case MsgStart:
		if err := r.Start(ctx); err != nil {
			client.Send(errorMessage("Unable to start session", err))
		}

	case MsgSkipPhase:
		if !r.Started() {
			client.Send(errorMessage("Session has not started", nil))
			return
		}
		r.SkipPhase()

	case MsgPhaseAction:
		r.handlePhaseAction(ctx, client, msg)

	case MsgSubmitDecisions:
		r.handleSubmitDecisions(ctx, client, msg)

	case MsgAdvanceMonth:
		if r.Started() {
			client.Send(errorMessage("Session is live; months advance automatically", nil))
			return
		}
		month, err := r.orch.AdvanceMonth(ctx, r.code)
		if err != nil {
			client.Send(errorMessage("Unable to advance month", err))
			return
		}
		r.broadcastMonthResult(ctx, &month)
		if _, err := r.checkTerminal(ctx); err != nil {
			slog.Error("terminal check failed", "code", r.code, "err", err)
		}

	default:
		client.Send(errorMessage(fmt.Sprintf("Unknown message type %q", msg.Type), nil))
	}
}

func (r *Runtime) handlePhaseAction(ctx context.Context, client *Client, msg InboundMessage) {
	declared, err := model.ParsePhase(msg.Phase)
	if err != nil {
		client.Send(errorMessage("Unknown phase", err))
		return
	}
	action, err := DecodeAction(msg.Payload)
	if err != nil {
		client.Send(errorMessage("Invalid action payload", err))
		return
	}

	target, payload, err := action.ToDecision(fmt.Sprintf("%s-%s", client.CompanyID, uuid.NewString()[:8]))
	if err != nil {
		client.Send(errorMessage("Invalid action payload", err))
		return
	}
	if target != declared {
		client.Send(errorMessage(fmt.Sprintf("Action %q does not apply to phase %q", action.Kind, declared), nil))
		return
	}

	if !payload.Empty() {
		snapshot, err := r.orch.Snapshot(ctx, r.code)
		if err != nil {
			client.Send(errorMessage("Session not initialized", err))
			return
		}
		record := model.DecisionRecord{
			MonthIndex: snapshot.MonthIndex,
			Phase:      target,
			CompanyID:  client.CompanyID,
			Payload:    payload,
		}
		if err := r.orch.SubmitDecisions(ctx, r.code, record); err != nil {
			client.Send(errorMessage("Invalid decision payload", err))
			return
		}
	}

	client.Send(AckMessage{Type: MsgActionAck, Phase: declared, Action: action.Kind, Detail: action.Describe()})
}

func (r *Runtime) handleSubmitDecisions(ctx context.Context, client *Client, msg InboundMessage) {
	declared, err := model.ParsePhase(msg.Phase)
	if err != nil {
		client.Send(errorMessage("Unknown phase", err))
		return
	}
	snapshot, err := r.orch.Snapshot(ctx, r.code)
	if err != nil {
		client.Send(errorMessage("Session not initialized", err))
		return
	}

	stored := make([]model.DecisionRecord, 0, len(msg.Decisions))
	for _, decision := range msg.Decisions {
		companyID := decision.CompanyID
		if companyID == "" {
			companyID = client.CompanyID
		}
		record := model.DecisionRecord{
			MonthIndex: snapshot.MonthIndex,
			Phase:      declared,
			CompanyID:  companyID,
			Payload:    decision.Payload,
		}
		if err := r.orch.SubmitDecisions(ctx, r.code, record); err != nil {
			client.Send(errorMessage("Invalid decision payload", err))
			return
		}
		stored = append(stored, record)
	}

	client.Send(DecisionsStoredMessage{Type: MsgDecisionsStored, Phase: declared, Decisions: stored})
}

func (r *Runtime) sendState(ctx context.Context, client *Client) {
	snapshot, err := r.orch.Snapshot(ctx, r.code)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			client.Send(errorMessage("Session not started yet", nil))
			return
		}
		client.Send(errorMessage("Unable to load session state", err))
		return
	}
	logs, err := r.orch.Logs(ctx, r.code)
	if err != nil {
		client.Send(errorMessage("Unable to load session logs", err))
		return
	}
	client.Send(SessionStateMessage{Type: MsgSessionState, Snapshot: snapshot, Logs: logs})
}

// Welcome builds the greeting for a freshly attached client.
func (r *Runtime) Welcome(ctx context.Context, client *Client) WelcomeMessage {
	r.mu.Lock()
	started := r.started
	rolls := append([]SeniorityRoll(nil), r.rolls...)
	r.mu.Unlock()

	msg := WelcomeMessage{
		Type:             MsgWelcome,
		SessionCode:      r.code,
		CompanyID:        client.CompanyID,
		Phase:            model.PhaseExpenses,
		CountdownSeconds: r.cfg.PhaseSeconds,
		Started:          started,
		TieBreakLog:      rolls,
	}
	snapshot, err := r.orch.Snapshot(ctx, r.code)
	if err != nil {
		return msg
	}
	msg.Month = snapshot.MonthIndex
	msg.Seniority = snapshot.Seniority.Ranking
	msg.Analytics = phase.Snapshot(snapshot.Companies, snapshot.Seniority)
	if current, err := r.orch.CurrentPhase(r.code); err == nil {
		msg.Phase = current
	}
	return msg
}
