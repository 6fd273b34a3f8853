// Package live drives game sessions in real time: a lobby maps shareable
// session codes to runtimes, each runtime runs a per-phase countdown and
// fans out ticks, reports, and results to every connected client.
package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factoria/game-engine/internal/model"
)

var ErrUnknownAction = errors.New("live: unknown phase action kind")

// InboundMessage is the envelope every client message arrives in. Fields
// beyond Type are populated depending on the message kind.
type InboundMessage struct {
	Type        string            `json:"type"`
	SessionCode string            `json:"session_code,omitempty"`
	Nonce       string            `json:"nonce,omitempty"`
	Phase       string            `json:"phase,omitempty"`
	Payload     json.RawMessage   `json:"payload,omitempty"`
	Decisions   []InboundDecision `json:"decisions,omitempty"`
}

// InboundDecision is one decision inside a submit_decisions batch.
type InboundDecision struct {
	CompanyID string                `json:"company_id,omitempty"`
	Payload   model.DecisionPayload `json:"payload"`
}

// Inbound message types.
const (
	MsgJoin            = "join"
	MsgStatus          = "status"
	MsgHeartbeat       = "heartbeat"
	MsgPhaseAction     = "phase_action"
	MsgSubmitDecisions = "submit_decisions"
	MsgAdvanceMonth    = "advance_month"
	MsgStart           = "start"
	MsgSkipPhase       = "skip_phase"
)

// PhaseAction is one decoded phase_action payload, a closed union over the
// supported kinds.
type PhaseAction struct {
	Kind            string          `json:"kind"`
	Quantity        int             `json:"quantity,omitempty"`
	Price           decimal.Decimal `json:"price,omitempty"`
	Amount          decimal.Decimal `json:"amount,omitempty"`
	TermMonths      int             `json:"term_months,omitempty"`
	InterestRate    decimal.Decimal `json:"interest_rate,omitempty"`
	Project         string          `json:"project,omitempty"`
	BlueprintID     string          `json:"blueprint_id,omitempty"`
	TargetFactoryID string          `json:"target_factory_id,omitempty"`
	Months          int             `json:"months,omitempty"`
	Cost            decimal.Decimal `json:"cost,omitempty"`
}

// Supported phase action kinds.
const (
	ActionBuyBid       = "submit_buy_bid"
	ActionSellBid      = "submit_sell_bid"
	ActionProduction   = "production_plan"
	ActionLoanRequest  = "loan_request"
	ActionConstruction = "construction_request"
)

// DecodeAction parses a phase_action payload.
func DecodeAction(raw json.RawMessage) (PhaseAction, error) {
	var action PhaseAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return PhaseAction{}, fmt.Errorf("live: malformed action payload: %w", err)
	}
	switch action.Kind {
	case ActionBuyBid, ActionSellBid, ActionProduction, ActionLoanRequest, ActionConstruction:
		return action, nil
	default:
		return PhaseAction{}, fmt.Errorf("%w: %q", ErrUnknownAction, action.Kind)
	}
}

// ToDecision translates an action into the decision payload and phase it
// applies to.
func (a PhaseAction) ToDecision(projectID string) (model.Phase, model.DecisionPayload, error) {
	switch a.Kind {
	case ActionBuyBid:
		return model.PhaseRawMaterialBuy, model.DecisionPayload{
			Bids: []model.BidEntry{{Quantity: a.Quantity, Price: a.Price}},
		}, nil
	case ActionSellBid:
		return model.PhaseFinishedGoodsSale, model.DecisionPayload{
			Offers: []model.BidEntry{{Quantity: a.Quantity, Price: a.Price}},
		}, nil
	case ActionProduction:
		return model.PhaseProduction, model.DecisionPayload{
			Orders: []model.ProductionOrder{{Quantity: a.Quantity}},
		}, nil
	case ActionLoanRequest:
		return model.PhaseLoanManagement, model.DecisionPayload{
			Requests: []model.LoanRequest{{
				Amount:       a.Amount,
				TermMonths:   a.TermMonths,
				InterestRate: a.InterestRate,
			}},
		}, nil
	case ActionConstruction:
		if a.Project == "idle" {
			return model.PhaseConstruction, model.DecisionPayload{}, nil
		}
		return model.PhaseConstruction, model.DecisionPayload{
			Projects: []model.ConstructionProject{{
				Kind:            a.Project,
				ID:              projectID,
				BlueprintID:     a.BlueprintID,
				TargetFactoryID: a.TargetFactoryID,
				Months:          a.Months,
				Cost:            a.Cost,
			}},
		}, nil
	default:
		return "", model.DecisionPayload{}, fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}

// Describe returns a short acknowledgement detail for the action.
func (a PhaseAction) Describe() string {
	switch a.Kind {
	case ActionBuyBid, ActionSellBid:
		return fmt.Sprintf("%d units at %s", a.Quantity, a.Price)
	case ActionProduction:
		return fmt.Sprintf("%d units planned", a.Quantity)
	case ActionLoanRequest:
		return fmt.Sprintf("%s over %d months", a.Amount, a.TermMonths)
	case ActionConstruction:
		if a.Project == "idle" {
			return "no project this month"
		}
		return a.Project
	}
	return ""
}

// --- Outbound messages ---

// SeniorityRoll is one logged tie-break dice roll.
type SeniorityRoll struct {
	Attempt  int    `json:"attempt"`
	PlayerID string `json:"player_id"`
	Value    int    `json:"value"`
}

// WelcomeMessage greets a newly attached client with the session's state.
type WelcomeMessage struct {
	Type             string          `json:"type"`
	SessionCode      string          `json:"session_code"`
	CompanyID        string          `json:"company_id"`
	Month            int             `json:"month"`
	Phase            model.Phase     `json:"phase"`
	CountdownSeconds int             `json:"countdown_seconds"`
	Started          bool            `json:"started"`
	Analytics        any             `json:"analytics,omitempty"`
	Seniority        []string        `json:"seniority,omitempty"`
	TieBreakLog      []SeniorityRoll `json:"tie_break_log,omitempty"`
}

// Tick is the countdown state for the current phase.
type Tick struct {
	Phase            model.Phase `json:"phase"`
	RemainingSeconds int         `json:"remaining_seconds"`
	TotalSeconds     int         `json:"total_seconds"`
	StartedAt        time.Time   `json:"started_at"`
}

// TickMessage wraps a Tick for broadcast.
type TickMessage struct {
	Type string `json:"type"`
	Tick Tick   `json:"tick"`
}

// Report is one executed phase's broadcastable outcome.
type Report struct {
	Phase     model.Phase    `json:"phase"`
	Month     int            `json:"month"`
	Summary   string         `json:"summary"`
	Journal   model.PhaseLog `json:"journal"`
	Analytics any            `json:"analytics"`
}

// ReportMessage wraps a Report for broadcast.
type ReportMessage struct {
	Type   string `json:"type"`
	Report Report `json:"report"`
}

// AckMessage confirms a phase_action was stored.
type AckMessage struct {
	Type   string      `json:"type"`
	Phase  model.Phase `json:"phase"`
	Action string      `json:"action"`
	Detail string      `json:"detail,omitempty"`
}

// DecisionsStoredMessage confirms a submit_decisions batch.
type DecisionsStoredMessage struct {
	Type      string                 `json:"type"`
	Phase     model.Phase            `json:"phase"`
	Decisions []model.DecisionRecord `json:"decisions"`
}

// MonthResultMessage broadcasts a completed month.
type MonthResultMessage struct {
	Type     string             `json:"type"`
	Month    int                `json:"month"`
	Snapshot model.GameSnapshot `json:"snapshot"`
	Log      model.MonthLog     `json:"log"`
}

// SessionStateMessage answers a status query.
type SessionStateMessage struct {
	Type     string             `json:"type"`
	Snapshot model.GameSnapshot `json:"snapshot"`
	Logs     []model.MonthLog   `json:"logs"`
}

// StartedMessage is broadcast exactly once when the session starts.
type StartedMessage struct {
	Type      string   `json:"type"`
	Month     int      `json:"month"`
	Players   []string `json:"players"`
	Seniority []string `json:"seniority"`
}

// FinishedMessage is broadcast when the session reaches a terminal state.
type FinishedMessage struct {
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	WinnerID  string `json:"winner_id,omitempty"`
	Standings any    `json:"standings,omitempty"`
}

// HeartbeatMessage answers a heartbeat with the client's nonce.
type HeartbeatMessage struct {
	Type  string `json:"type"`
	Nonce string `json:"nonce,omitempty"`
}

// ErrorMessage reports a rejected request to the submitting client only.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Outbound message types.
const (
	MsgWelcome         = "welcome"
	MsgPhaseTick       = "phase_tick"
	MsgPhaseReport     = "phase_report"
	MsgActionAck       = "action_ack"
	MsgDecisionsStored = "decisions_stored"
	MsgMonthResult     = "month_result"
	MsgSessionState    = "session_state"
	MsgSessionStarted  = "session_started"
	MsgSessionFinished = "session_finished"
	MsgError           = "error"
)

func errorMessage(message string, err error) ErrorMessage {
	out := ErrorMessage{Type: MsgError, Message: message}
	if err != nil {
		out.Detail = err.Error()
	}
	return out
}
