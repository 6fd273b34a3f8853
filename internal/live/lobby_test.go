package live

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/factoria/game-engine/internal/session"
	"github.com/factoria/game-engine/internal/store"
)

func newTestLobby() *Lobby {
	return NewLobby(session.NewOrchestrator(store.NewMemoryStore()), slowConfig())
}

func TestLobby_CreateMintsUniqueCodes(t *testing.T) {
	lobby := newTestLobby()

	first, err := lobby.Create("", SessionOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := lobby.Create("", SessionOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Code() == second.Code() {
		t.Errorf("codes collide: %s", first.Code())
	}
	if len(first.Code()) != 6 {
		t.Errorf("code %q, want 6 characters", first.Code())
	}

	if _, err := lobby.Create(first.Code(), SessionOptions{}); !errors.Is(err, session.ErrSessionExists) {
		t.Errorf("err = %v, want ErrSessionExists", err)
	}
}

func TestLobby_SessionOptionsOverrideDefaults(t *testing.T) {
	lobby := newTestLobby()

	phaseSeconds, minPlayers := 5, 3
	rt, err := lobby.Create("ROOM01", SessionOptions{
		PhaseSeconds: &phaseSeconds,
		MinPlayers:   &minPlayers,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rt.cfg.PhaseSeconds != 5 || rt.cfg.MinPlayers != 3 {
		t.Errorf("cfg = %+v, want phase 5s min 3", rt.cfg)
	}
}

func TestLobby_LookupUnknownCode(t *testing.T) {
	lobby := newTestLobby()
	if _, err := lobby.Lookup("NOPE99"); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("err = %v, want ErrUnknownSession", err)
	}
}

func TestLobby_AutoStartsAtQuorum(t *testing.T) {
	lobby := newTestLobby()
	ctx := context.Background()

	rt, alice, err := lobby.Join(ctx, "", "alice")
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	defer lobby.Leave(rt, alice)
	if rt.Started() {
		t.Fatal("session started below quorum")
	}

	_, bob, err := lobby.Join(ctx, rt.Code(), "bob")
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	defer lobby.Leave(rt, bob)
	if !rt.Started() {
		t.Fatal("session did not start at quorum")
	}

	// Exactly one start broadcast reaches every player.
	for _, client := range []*Client{alice, bob} {
		await(t, client, MsgSessionStarted)
		extra := 0
		for done := false; !done; {
			select {
			case data := <-client.Outbound():
				var head struct {
					Type string `json:"type"`
				}
				json.Unmarshal(data, &head)
				if head.Type == MsgSessionStarted {
					extra++
				}
			default:
				done = true
			}
		}
		if extra != 0 {
			t.Errorf("%s saw %d extra session_started broadcasts", client.UserID, extra)
		}
	}
}

func TestLobby_RetiresSessionWhenEmpty(t *testing.T) {
	lobby := newTestLobby()
	ctx := context.Background()

	rt, alice, err := lobby.Join(ctx, "", "alice")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	code := rt.Code()
	lobby.Leave(rt, alice)

	if _, err := lobby.Lookup(code); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("session %s still registered after last leave", code)
	}
	if len(lobby.Sessions()) != 0 {
		t.Errorf("sessions = %v, want none", lobby.Sessions())
	}
}

func TestLobby_JoinRunningSessionWithoutSeat(t *testing.T) {
	lobby := newTestLobby()
	ctx := context.Background()

	rt, alice, err := lobby.Join(ctx, "", "alice")
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	defer lobby.Leave(rt, alice)
	if _, bob, err := lobby.Join(ctx, rt.Code(), "bob"); err != nil {
		t.Fatalf("Join bob: %v", err)
	} else {
		defer lobby.Leave(rt, bob)
	}

	if _, _, err := lobby.Join(ctx, rt.Code(), "carol"); !errors.Is(err, ErrNotSeated) {
		t.Errorf("err = %v, want ErrNotSeated", err)
	}
}

func TestLobby_IdleTimeoutStartsBelowQuorum(t *testing.T) {
	cfg := slowConfig()
	cfg.IdleStartTimeout = 20 * time.Millisecond
	lobby := NewLobby(session.NewOrchestrator(store.NewMemoryStore()), cfg)
	ctx := context.Background()

	rt, alice, err := lobby.Join(ctx, "", "alice")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	defer lobby.Leave(rt, alice)
	if rt.Started() {
		t.Fatal("session started before the idle timeout")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !rt.Started() {
		if time.Now().After(deadline) {
			t.Fatal("session never started after idle timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
	await(t, alice, MsgSessionStarted)
}

func TestLobby_IdleTimeoutDisabledKeepsWaiting(t *testing.T) {
	cfg := slowConfig()
	cfg.IdleStartTimeout = 0
	lobby := NewLobby(session.NewOrchestrator(store.NewMemoryStore()), cfg)
	ctx := context.Background()

	rt, alice, err := lobby.Join(ctx, "", "alice")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	defer lobby.Leave(rt, alice)

	time.Sleep(50 * time.Millisecond)
	if rt.Started() {
		t.Fatal("session started with the idle timeout disabled")
	}
}
