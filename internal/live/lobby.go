package live

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"sync"

	"github.com/factoria/game-engine/internal/metrics"
	"github.com/factoria/game-engine/internal/model"
	"github.com/factoria/game-engine/internal/session"
)

var ErrUnknownSession = errors.New("live: unknown session code")

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// SessionOptions tune a single session at create time.
type SessionOptions struct {
	PhaseSeconds *int                  `json:"phase_seconds,omitempty"`
	MinPlayers   *int                  `json:"min_players,omitempty"`
	MaxPlayers   *int                  `json:"max_players,omitempty"`
	Economy      *model.LobbyOverrides `json:"economy,omitempty"`
}

// Lobby hands out session codes and routes players to their runtimes. A
// session auto-starts once the configured player quorum is connected.
type Lobby struct {
	orch     *session.Orchestrator
	defaults RuntimeConfig

	mu       sync.Mutex
	runtimes map[string]*Runtime
}

// NewLobby creates a lobby using defaults for every new session.
func NewLobby(orch *session.Orchestrator, defaults RuntimeConfig) *Lobby {
	return &Lobby{
		orch:     orch,
		defaults: defaults,
		runtimes: make(map[string]*Runtime),
	}
}

// Create registers a new session and returns its runtime. An empty code
// asks the lobby to mint one.
func (l *Lobby) Create(code string, opts SessionOptions) (*Runtime, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if code == "" {
		code = l.mintCodeLocked()
	} else if _, exists := l.runtimes[code]; exists {
		return nil, session.ErrSessionExists
	}

	cfg := l.defaults
	if opts.PhaseSeconds != nil {
		cfg.PhaseSeconds = *opts.PhaseSeconds
	}
	if opts.MinPlayers != nil {
		cfg.MinPlayers = *opts.MinPlayers
	}
	if opts.MaxPlayers != nil {
		cfg.MaxPlayers = *opts.MaxPlayers
	}
	if opts.Economy != nil {
		cfg.Economy = opts.Economy.Apply(cfg.Economy)
	}

	rt := NewRuntime(code, l.orch, cfg)
	l.runtimes[code] = rt
	metrics.ActiveSessions.Inc()
	slog.Info("session created", "code", code, "min_players", cfg.MinPlayers, "max_players", cfg.MaxPlayers)
	return rt, nil
}

// Lookup returns the runtime for code.
func (l *Lobby) Lookup(code string) (*Runtime, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rt, ok := l.runtimes[code]
	if !ok {
		return nil, ErrUnknownSession
	}
	return rt, nil
}

// Join attaches userID to a session. An empty code creates a fresh one.
// Once the runtime reaches its player quorum the session starts; Start is
// idempotent so concurrent joins race harmlessly.
func (l *Lobby) Join(ctx context.Context, code, userID string) (*Runtime, *Client, error) {
	var (
		rt  *Runtime
		err error
	)
	if code == "" {
		rt, err = l.Create("", SessionOptions{})
	} else {
		rt, err = l.Lookup(code)
	}
	if err != nil {
		return nil, nil, err
	}

	client, err := rt.Attach(userID)
	if err != nil {
		return nil, nil, err
	}

	if !rt.Started() {
		if rt.PlayerCount() >= rt.cfg.MinPlayers {
			if err := rt.Start(ctx); err != nil {
				slog.Error("auto start failed", "code", rt.Code(), "err", err)
			}
		} else {
			rt.ArmIdleStart()
		}
	}
	return rt, client, nil
}

// Leave detaches a client and retires the session once its last connection
// closes.
func (l *Lobby) Leave(rt *Runtime, client *Client) {
	if rt.Detach(client) > 0 {
		return
	}

	l.mu.Lock()
	delete(l.runtimes, rt.Code())
	l.mu.Unlock()

	metrics.ActiveSessions.Dec()
	rt.Stop()
	slog.Info("session retired", "code", rt.Code())
}

// Sessions lists the codes of every active session.
func (l *Lobby) Sessions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	codes := make([]string, 0, len(l.runtimes))
	for code := range l.runtimes {
		codes = append(codes, code)
	}
	return codes
}

func (l *Lobby) mintCodeLocked() string {
	for {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}
		for i, b := range buf {
			buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
		}
		code := string(buf)
		if _, taken := l.runtimes[code]; !taken {
			return code
		}
	}
}
