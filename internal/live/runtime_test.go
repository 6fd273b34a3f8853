package live

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/factoria/game-engine/internal/model"
	"github.com/factoria/game-engine/internal/session"
	"github.com/factoria/game-engine/internal/store"
)

func fastConfig(maxMonths int) RuntimeConfig {
	economy := model.DefaultEconomyConfiguration()
	economy.MaxMonths = maxMonths
	economy.SenioritySeed = 1
	return RuntimeConfig{
		PhaseSeconds: 1,
		TickInterval: time.Millisecond,
		MinPlayers:   2,
		MaxPlayers:   4,
		Economy:      economy,
	}
}

func slowConfig() RuntimeConfig {
	cfg := fastConfig(24)
	cfg.PhaseSeconds = 300
	cfg.TickInterval = time.Minute
	return cfg
}

func newTestRuntime(cfg RuntimeConfig) *Runtime {
	return NewRuntime("TEST42", session.NewOrchestrator(store.NewMemoryStore()), cfg)
}

// await reads the client's outbound stream until a message of the wanted
// type arrives, returning its raw bytes.
func await(t *testing.T, c *Client, msgType string) []byte {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case data, ok := <-c.Outbound():
			if !ok {
				t.Fatalf("outbound closed while waiting for %q", msgType)
			}
			var head struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(data, &head); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if head.Type == msgType {
				return data
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", msgType)
		}
	}
}

func TestRuntime_RunsMonthToCompletion(t *testing.T) {
	rt := newTestRuntime(fastConfig(1))
	defer rt.Stop()

	alice, err := rt.Attach("alice")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := rt.Attach("bob"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	await(t, alice, MsgSessionStarted)
	await(t, alice, MsgPhaseTick)
	await(t, alice, MsgPhaseReport)

	var result MonthResultMessage
	if err := json.Unmarshal(await(t, alice, MsgMonthResult), &result); err != nil {
		t.Fatalf("unmarshal month result: %v", err)
	}
	if result.Month != 0 {
		t.Errorf("month = %d, want 0", result.Month)
	}
	if result.Snapshot.MonthIndex != 1 {
		t.Errorf("snapshot month = %d, want 1", result.Snapshot.MonthIndex)
	}

	var finished FinishedMessage
	if err := json.Unmarshal(await(t, alice, MsgSessionFinished), &finished); err != nil {
		t.Fatalf("unmarshal finished: %v", err)
	}
	if finished.Reason != string(session.TerminalMaxMonths) {
		t.Errorf("reason = %q, want max_months_reached", finished.Reason)
	}
	if finished.WinnerID == "" {
		t.Error("finished message names no winner")
	}
}

func TestRuntime_StartIsIdempotent(t *testing.T) {
	rt := newTestRuntime(slowConfig())
	defer rt.Stop()

	alice, err := rt.Attach("alice")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	await(t, alice, MsgSessionStarted)
	started := 0
	for done := false; !done; {
		select {
		case data := <-alice.Outbound():
			var head struct {
				Type string `json:"type"`
			}
			json.Unmarshal(data, &head)
			if head.Type == MsgSessionStarted {
				started++
			}
		default:
			done = true
		}
	}
	if started != 0 {
		t.Errorf("got %d extra session_started broadcasts, want 0", started)
	}
}

func TestRuntime_AttachRules(t *testing.T) {
	cfg := slowConfig()
	cfg.MaxPlayers = 2
	rt := newTestRuntime(cfg)
	defer rt.Stop()

	if _, err := rt.Attach("alice"); err != nil {
		t.Fatalf("Attach alice: %v", err)
	}
	if _, err := rt.Attach("bob"); err != nil {
		t.Fatalf("Attach bob: %v", err)
	}
	if _, err := rt.Attach("carol"); !errors.Is(err, ErrSessionFull) {
		t.Errorf("err = %v, want ErrSessionFull", err)
	}

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := rt.Attach("carol"); !errors.Is(err, ErrNotSeated) {
		t.Errorf("err = %v, want ErrNotSeated", err)
	}
	// Reconnecting with an existing seat is always allowed.
	if _, err := rt.Attach("alice"); err != nil {
		t.Errorf("reconnect alice: %v", err)
	}

	rt.mu.Lock()
	rt.finished = true
	rt.mu.Unlock()
	if _, err := rt.Attach("alice"); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("err = %v, want ErrSessionFinished", err)
	}
}

func TestRuntime_DetachBeforeStartFreesSeat(t *testing.T) {
	rt := newTestRuntime(slowConfig())
	alice, err := rt.Attach("alice")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if rt.PlayerCount() != 1 {
		t.Fatalf("players = %d, want 1", rt.PlayerCount())
	}

	rt.Detach(alice)
	if rt.PlayerCount() != 0 {
		t.Errorf("players = %d, want 0", rt.PlayerCount())
	}
	if _, err := rt.Attach("alice"); err != nil {
		t.Errorf("re-attach after seat freed: %v", err)
	}
}

func TestRuntime_HandleMessages(t *testing.T) {
	rt := newTestRuntime(slowConfig())
	defer rt.Stop()

	alice, err := rt.Attach("alice")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := rt.Attach("bob"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.HandleMessage(ctx, alice, InboundMessage{Type: MsgHeartbeat, Nonce: "n42"})
	var beat HeartbeatMessage
	if err := json.Unmarshal(await(t, alice, MsgHeartbeat), &beat); err != nil {
		t.Fatalf("unmarshal heartbeat: %v", err)
	}
	if beat.Nonce != "n42" {
		t.Errorf("nonce = %q, want n42", beat.Nonce)
	}

	raw, _ := json.Marshal(PhaseAction{Kind: ActionBuyBid, Quantity: 2, Price: d(150)})
	rt.HandleMessage(ctx, alice, InboundMessage{
		Type:    MsgPhaseAction,
		Phase:   string(model.PhaseRawMaterialBuy),
		Payload: raw,
	})
	var ack AckMessage
	if err := json.Unmarshal(await(t, alice, MsgActionAck), &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Phase != model.PhaseRawMaterialBuy || ack.Action != ActionBuyBid {
		t.Errorf("ack = %+v", ack)
	}

	rt.HandleMessage(ctx, alice, InboundMessage{Type: MsgStatus})
	var state SessionStateMessage
	if err := json.Unmarshal(await(t, alice, MsgSessionState), &state); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if state.Snapshot.PlayerCount != 2 {
		t.Errorf("player count = %d, want 2", state.Snapshot.PlayerCount)
	}

	rt.HandleMessage(ctx, alice, InboundMessage{Type: "warp"})
	await(t, alice, MsgError)
}

func TestRuntime_IdleConstructionAckOnly(t *testing.T) {
	rt := newTestRuntime(slowConfig())
	defer rt.Stop()

	alice, err := rt.Attach("alice")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	raw, _ := json.Marshal(PhaseAction{Kind: ActionConstruction, Project: "idle"})
	rt.HandleMessage(ctx, alice, InboundMessage{
		Type:    MsgPhaseAction,
		Phase:   string(model.PhaseConstruction),
		Payload: raw,
	})
	var ack AckMessage
	if err := json.Unmarshal(await(t, alice, MsgActionAck), &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Action != ActionConstruction {
		t.Errorf("action = %q, want %q", ack.Action, ActionConstruction)
	}
}

func TestRuntime_StopReleasesInFlightMonth(t *testing.T) {
	rt := newTestRuntime(slowConfig())

	alice, err := rt.Attach("alice")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := rt.Attach("bob"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	await(t, alice, MsgPhaseTick)

	rt.Stop()

	// The aborted month must not wedge the session.
	if _, err := rt.orch.BeginMonth(ctx, rt.code); err != nil {
		t.Fatalf("BeginMonth after Stop: %v", err)
	}
}

func TestRuntime_SkipPhaseMessageCollapsesCountdown(t *testing.T) {
	rt := newTestRuntime(slowConfig())
	defer rt.Stop()

	alice, err := rt.Attach("alice")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := rt.Attach("bob"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The countdown runs for minutes unless skipped.
	await(t, alice, MsgPhaseTick)
	rt.HandleMessage(ctx, alice, InboundMessage{Type: MsgSkipPhase})

	var report ReportMessage
	if err := json.Unmarshal(await(t, alice, MsgPhaseReport), &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.Report.Phase != model.PhaseExpenses {
		t.Errorf("phase = %s, want expenses", report.Report.Phase)
	}
}

func TestRuntime_SkipPhaseBeforeStartRejected(t *testing.T) {
	rt := newTestRuntime(slowConfig())
	alice, err := rt.Attach("alice")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	rt.HandleMessage(context.Background(), alice, InboundMessage{Type: MsgSkipPhase})
	await(t, alice, MsgError)
}

func TestRuntime_AckCarriesDetail(t *testing.T) {
	rt := newTestRuntime(slowConfig())
	defer rt.Stop()

	alice, err := rt.Attach("alice")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	raw, _ := json.Marshal(PhaseAction{Kind: ActionBuyBid, Quantity: 3, Price: d(175)})
	rt.HandleMessage(ctx, alice, InboundMessage{
		Type:    MsgPhaseAction,
		Phase:   string(model.PhaseRawMaterialBuy),
		Payload: raw,
	})
	var ack AckMessage
	if err := json.Unmarshal(await(t, alice, MsgActionAck), &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Detail != "3 units at 175" {
		t.Errorf("detail = %q, want %q", ack.Detail, "3 units at 175")
	}
}
