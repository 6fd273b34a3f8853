package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/factoria/game-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for snapshots. Writes go to the primary store and refresh or
// invalidate the cache; reads check Redis first then fall back.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, refresh cache) ---

func (s *CachedStore) SaveSnapshot(ctx context.Context, sessionID string, snapshot model.GameSnapshot) error {
	if err := s.primary.SaveSnapshot(ctx, sessionID, snapshot); err != nil {
		return err
	}
	s.cacheSnapshot(ctx, sessionID, snapshot)
	return nil
}

func (s *CachedStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.primary.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.rdb.Del(ctx, snapshotKey(sessionID), journalKey(sessionID))
	return nil
}

func (s *CachedStore) AppendMonthLog(ctx context.Context, sessionID string, log model.MonthLog) error {
	if err := s.primary.AppendMonthLog(ctx, sessionID, log); err != nil {
		return err
	}
	// Invalidate; next read re-populates the full journal.
	s.rdb.Del(ctx, journalKey(sessionID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) LoadSnapshot(ctx context.Context, sessionID string) (model.GameSnapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err == nil {
		var snapshot model.GameSnapshot
		if json.Unmarshal(data, &snapshot) == nil {
			return snapshot, nil
		}
	}

	// Cache miss: read from primary.
	snapshot, err := s.primary.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return model.GameSnapshot{}, err
	}

	s.cacheSnapshot(ctx, sessionID, snapshot)
	return snapshot, nil
}

func (s *CachedStore) MonthLogs(ctx context.Context, sessionID string) ([]model.MonthLog, error) {
	data, err := s.rdb.Get(ctx, journalKey(sessionID)).Bytes()
	if err == nil {
		var logs []model.MonthLog
		if json.Unmarshal(data, &logs) == nil {
			return logs, nil
		}
	}

	logs, err := s.primary.MonthLogs(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(logs); err == nil {
		s.rdb.Set(ctx, journalKey(sessionID), data, s.ttl)
	}
	return logs, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListSessions(ctx context.Context) ([]string, error) {
	return s.primary.ListSessions(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheSnapshot(ctx context.Context, sessionID string, snapshot model.GameSnapshot) {
	if data, err := json.Marshal(snapshot); err == nil {
		s.rdb.Set(ctx, snapshotKey(sessionID), data, s.ttl)
	}
}

func snapshotKey(id string) string { return fmt.Sprintf("session:%s:snapshot", id) }
func journalKey(id string) string  { return fmt.Sprintf("session:%s:journal", id) }
