package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrLogMismatch is returned when a log entry is appended to a container
// tagged with a different month or phase.
var ErrLogMismatch = errors.New("model: log metadata mismatch")

// LoggedEvent is a single immutable audit entry produced during phase
// execution. CompanyID is empty for session-wide events.
type LoggedEvent struct {
	MonthIndex int            `json:"month_index"`
	Phase      Phase          `json:"phase"`
	EventType  string         `json:"event_type"`
	Message    string         `json:"message,omitempty"`
	CompanyID  string         `json:"company_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent builds a LoggedEvent stamped with the current time.
func NewEvent(monthIndex int, phase Phase, eventType, companyID string, payload map[string]any) LoggedEvent {
	return LoggedEvent{
		MonthIndex: monthIndex,
		Phase:      phase,
		EventType:  eventType,
		CompanyID:  companyID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// BidEntry is a single buy bid or sell offer: a quantity at a unit price.
type BidEntry struct {
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ProductionOrder requests a quantity of finished goods for the month.
type ProductionOrder struct {
	Quantity int `json:"quantity"`
}

// LoanRequest asks the bank for a new loan.
type LoanRequest struct {
	ID           string          `json:"id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	TermMonths   int             `json:"term_months"`
	InterestRate decimal.Decimal `json:"interest_rate"`
}

// ConstructionProject requests a new factory build or an upgrade of an
// existing one. Kind is "construction" or "upgrade".
type ConstructionProject struct {
	Kind            string          `json:"kind"`
	ID              string          `json:"id"`
	BlueprintID     string          `json:"blueprint_id"`
	TargetFactoryID string          `json:"target_factory_id,omitempty"`
	Months          int             `json:"months"`
	Cost            decimal.Decimal `json:"cost"`
}

// DecisionPayload carries the typed content of a decision. Only the slice
// relevant to the decision's phase is consulted by the handlers.
type DecisionPayload struct {
	Bids     []BidEntry            `json:"bids,omitempty"`
	Offers   []BidEntry            `json:"offers,omitempty"`
	Orders   []ProductionOrder     `json:"orders,omitempty"`
	Requests []LoanRequest         `json:"requests,omitempty"`
	Projects []ConstructionProject `json:"projects,omitempty"`
}

// Empty reports whether the payload carries no decision content. An idle
// construction choice, for example, arrives as an empty payload.
func (p DecisionPayload) Empty() bool {
	return len(p.Bids) == 0 && len(p.Offers) == 0 && len(p.Orders) == 0 &&
		len(p.Requests) == 0 && len(p.Projects) == 0
}

// DecisionRecord captures a company's submitted input for one phase of one
// month.
type DecisionRecord struct {
	MonthIndex  int             `json:"month_index"`
	Phase       Phase           `json:"phase"`
	CompanyID   string          `json:"company_id"`
	Payload     DecisionPayload `json:"payload"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// PhaseLog bundles the decisions consumed and events emitted by one phase.
type PhaseLog struct {
	Phase      Phase            `json:"phase"`
	MonthIndex int              `json:"month_index"`
	Decisions  []DecisionRecord `json:"decisions"`
	Events     []LoggedEvent    `json:"events"`
}

// NewPhaseLog builds a PhaseLog, verifying that every decision and event is
// tagged with the owning month and phase.
func NewPhaseLog(phase Phase, monthIndex int, decisions []DecisionRecord, events []LoggedEvent) (PhaseLog, error) {
	for _, d := range decisions {
		if d.Phase != phase || d.MonthIndex != monthIndex {
			return PhaseLog{}, fmt.Errorf("%w: decision %s/%d in %s/%d log",
				ErrLogMismatch, d.Phase, d.MonthIndex, phase, monthIndex)
		}
	}
	for _, e := range events {
		if e.Phase != phase || e.MonthIndex != monthIndex {
			return PhaseLog{}, fmt.Errorf("%w: event %s/%d in %s/%d log",
				ErrLogMismatch, e.Phase, e.MonthIndex, phase, monthIndex)
		}
	}
	return PhaseLog{
		Phase:      phase,
		MonthIndex: monthIndex,
		Decisions:  append([]DecisionRecord(nil), decisions...),
		Events:     append([]LoggedEvent(nil), events...),
	}, nil
}

// MonthLog is the append-only log of one month, one PhaseLog per executed
// phase in execution order.
type MonthLog struct {
	MonthIndex int        `json:"month_index"`
	Phases     []PhaseLog `json:"phases"`
}

// Append returns a new MonthLog with log added, rejecting a log tagged with
// a different month.
func (m MonthLog) Append(log PhaseLog) (MonthLog, error) {
	if log.MonthIndex != m.MonthIndex {
		return MonthLog{}, fmt.Errorf("%w: phase log month %d, month log %d",
			ErrLogMismatch, log.MonthIndex, m.MonthIndex)
	}
	return MonthLog{
		MonthIndex: m.MonthIndex,
		Phases:     append(append([]PhaseLog(nil), m.Phases...), log),
	}, nil
}
