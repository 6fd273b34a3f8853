package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/factoria/game-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]model.GameSnapshot
	journals  map[string][]model.MonthLog
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]model.GameSnapshot),
		journals:  make(map[string][]model.MonthLog),
	}
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, sessionID string, snapshot model.GameSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[sessionID] = cloneSnapshot(snapshot)
	return nil
}

func (s *MemoryStore) LoadSnapshot(_ context.Context, sessionID string) (model.GameSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[sessionID]
	if !ok {
		return model.GameSnapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return cloneSnapshot(snapshot), nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, sessionID)
	delete(s.journals, sessionID)
	return nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) AppendMonthLog(_ context.Context, sessionID string, log model.MonthLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	journal := s.journals[sessionID]
	if len(journal) > 0 && journal[len(journal)-1].MonthIndex >= log.MonthIndex {
		return fmt.Errorf("store: month %d already journaled for session %s", log.MonthIndex, sessionID)
	}
	s.journals[sessionID] = append(journal, log)
	return nil
}

func (s *MemoryStore) MonthLogs(_ context.Context, sessionID string) ([]model.MonthLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.MonthLog(nil), s.journals[sessionID]...), nil
}

// cloneSnapshot copies the mutable company map so callers cannot alias the
// stored state.
func cloneSnapshot(snapshot model.GameSnapshot) model.GameSnapshot {
	companies := make(map[string]model.CompanyState, len(snapshot.Companies))
	for id, state := range snapshot.Companies {
		companies[id] = state
	}
	snapshot.Companies = companies
	return snapshot
}
