// Package store defines the persistence interface for game sessions.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/factoria/game-engine/internal/model"
)

// ErrSessionNotFound is returned when no snapshot exists for a session.
var ErrSessionNotFound = errors.New("store: session not found")

// Store is the persistence interface. The snapshot is the authoritative
// session state; month logs are an append-only journal alongside it.
type Store interface {
	// --- Session snapshots ---

	// SaveSnapshot persists the authoritative state for a session,
	// replacing any previous snapshot.
	SaveSnapshot(ctx context.Context, sessionID string, snapshot model.GameSnapshot) error

	// LoadSnapshot retrieves the current snapshot for a session.
	LoadSnapshot(ctx context.Context, sessionID string) (model.GameSnapshot, error)

	// DeleteSession removes a session's snapshot and journal.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListSessions returns the ids of every stored session.
	ListSessions(ctx context.Context) ([]string, error)

	// --- Immutable journal ---

	// AppendMonthLog appends one completed month's journal entry.
	AppendMonthLog(ctx context.Context, sessionID string, log model.MonthLog) error

	// MonthLogs returns a session's journal in month order.
	MonthLogs(ctx context.Context, sessionID string) ([]model.MonthLog, error)
}
