package model

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewSeniorityOrder_RejectsDuplicates(t *testing.T) {
	if _, err := NewSeniorityOrder([]string{"a", "b", "a"}); !errors.Is(err, ErrDuplicateRanking) {
		t.Errorf("err = %v, want ErrDuplicateRanking", err)
	}
}

func TestSeniorityOrder_Rotate(t *testing.T) {
	order, _ := NewSeniorityOrder([]string{"a", "b", "c"})

	rotated := order.Rotate(1)
	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(rotated.Ranking, want) {
		t.Errorf("Rotate(1) = %v, want %v", rotated.Ranking, want)
	}

	full := order.Rotate(3)
	if !reflect.DeepEqual(full.Ranking, order.Ranking) {
		t.Errorf("Rotate(len) = %v, want original order", full.Ranking)
	}

	empty := SeniorityOrder{}.Rotate(1)
	if len(empty.Ranking) != 0 {
		t.Errorf("Rotate on empty = %v", empty.Ranking)
	}
}

func TestSeniorityOrder_Promote(t *testing.T) {
	order, _ := NewSeniorityOrder([]string{"a", "b", "c"})

	promoted, err := order.Promote("c")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if want := []string{"c", "a", "b"}; !reflect.DeepEqual(promoted.Ranking, want) {
		t.Errorf("Promote = %v, want %v", promoted.Ranking, want)
	}

	if _, err := order.Promote("z"); !errors.Is(err, ErrUnknownCompany) {
		t.Errorf("Promote unknown err = %v, want ErrUnknownCompany", err)
	}
}

func TestMonthLog_AppendKeepsOrder(t *testing.T) {
	log := MonthLog{MonthIndex: 3}
	phases := []Phase{PhaseExpenses, PhaseMarketAnnouncement, PhaseEndOfMonth}

	for _, phase := range phases {
		entry, err := NewPhaseLog(phase, 3, nil, nil)
		if err != nil {
			t.Fatalf("NewPhaseLog(%s): %v", phase, err)
		}
		log, err = log.Append(entry)
		if err != nil {
			t.Fatalf("Append(%s): %v", phase, err)
		}
	}

	if len(log.Phases) != len(phases) {
		t.Fatalf("phases = %d, want %d", len(log.Phases), len(phases))
	}
	for i, phase := range phases {
		if log.Phases[i].Phase != phase {
			t.Errorf("phase %d = %s, want %s", i, log.Phases[i].Phase, phase)
		}
		if log.Phases[i].MonthIndex != 3 {
			t.Errorf("phase %d month = %d, want 3", i, log.Phases[i].MonthIndex)
		}
	}
}

func TestMonthLog_RejectsMismatchedMonth(t *testing.T) {
	log := MonthLog{MonthIndex: 3}
	entry, err := NewPhaseLog(PhaseExpenses, 4, nil, nil)
	if err != nil {
		t.Fatalf("NewPhaseLog: %v", err)
	}
	if _, err := log.Append(entry); !errors.Is(err, ErrLogMismatch) {
		t.Errorf("err = %v, want ErrLogMismatch", err)
	}
}

func TestNewPhaseLog_RejectsForeignEvents(t *testing.T) {
	event := NewEvent(2, PhaseProduction, "production_completed", "a", nil)
	if _, err := NewPhaseLog(PhaseExpenses, 2, nil, []LoggedEvent{event}); !errors.Is(err, ErrLogMismatch) {
		t.Errorf("err = %v, want ErrLogMismatch", err)
	}
}
