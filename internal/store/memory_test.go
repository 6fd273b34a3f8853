package store

import (
	"context"
	"errors"
	"testing"

	"github.com/factoria/game-engine/internal/model"
)

func testSnapshot(t *testing.T, month int) model.GameSnapshot {
	t.Helper()
	config := model.DefaultEconomyConfiguration()
	snapshot, err := model.NewSessionSnapshot(config, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("NewSessionSnapshot: %v", err)
	}
	snapshot.MonthIndex = month
	return snapshot
}

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SaveSnapshot(ctx, "s1", testSnapshot(t, 3)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := s.LoadSnapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.MonthIndex != 3 {
		t.Errorf("month index = %d, want 3", loaded.MonthIndex)
	}
	if len(loaded.Companies) != 2 {
		t.Errorf("companies = %d, want 2", len(loaded.Companies))
	}
}

func TestMemoryStore_LoadMissingSession(t *testing.T) {
	_, err := NewMemoryStore().LoadSnapshot(context.Background(), "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.SaveSnapshot(ctx, "s1", testSnapshot(t, 0)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	first, err := s.LoadSnapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	delete(first.Companies, "alpha")

	second, err := s.LoadSnapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if _, ok := second.Companies["alpha"]; !ok {
		t.Error("mutating a loaded snapshot leaked into the store")
	}
}

func TestMemoryStore_JournalAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.AppendMonthLog(ctx, "s1", model.MonthLog{MonthIndex: 0}); err != nil {
		t.Fatalf("append month 0: %v", err)
	}
	if err := s.AppendMonthLog(ctx, "s1", model.MonthLog{MonthIndex: 1}); err != nil {
		t.Fatalf("append month 1: %v", err)
	}
	if err := s.AppendMonthLog(ctx, "s1", model.MonthLog{MonthIndex: 1}); err == nil {
		t.Fatal("re-appending month 1 must fail")
	}

	logs, err := s.MonthLogs(ctx, "s1")
	if err != nil {
		t.Fatalf("MonthLogs: %v", err)
	}
	if len(logs) != 2 || logs[0].MonthIndex != 0 || logs[1].MonthIndex != 1 {
		t.Errorf("journal = %+v, want months [0 1]", logs)
	}
}

func TestMemoryStore_DeleteSession(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.SaveSnapshot(ctx, "s1", testSnapshot(t, 0)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := s.AppendMonthLog(ctx, "s1", model.MonthLog{MonthIndex: 0}); err != nil {
		t.Fatalf("AppendMonthLog: %v", err)
	}

	if err := s.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.LoadSnapshot(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound after delete", err)
	}
	logs, err := s.MonthLogs(ctx, "s1")
	if err != nil {
		t.Fatalf("MonthLogs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("journal = %d entries, want 0 after delete", len(logs))
	}

	ids, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("sessions = %v, want none", ids)
	}
}
