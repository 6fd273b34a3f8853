package model

import (
	"errors"
	"fmt"
)

// Phase identifies one of the eight stages of a monthly turn.
type Phase string

// The canonical monthly phases, in execution order.
const (
	PhaseExpenses           Phase = "expenses"
	PhaseMarketAnnouncement Phase = "market_announcement"
	PhaseRawMaterialBuy     Phase = "raw_material_purchase"
	PhaseProduction         Phase = "production"
	PhaseFinishedGoodsSale  Phase = "finished_goods_sale"
	PhaseLoanManagement     Phase = "loan_management"
	PhaseConstruction       Phase = "construction"
	PhaseEndOfMonth         Phase = "end_of_month"
)

// ErrUnknownPhase is returned when parsing an unrecognized phase name.
var ErrUnknownPhase = errors.New("model: unknown phase")

// DefaultPhaseSequence returns the canonical phase order for a month.
func DefaultPhaseSequence() []Phase {
	return []Phase{
		PhaseExpenses,
		PhaseMarketAnnouncement,
		PhaseRawMaterialBuy,
		PhaseProduction,
		PhaseFinishedGoodsSale,
		PhaseLoanManagement,
		PhaseConstruction,
		PhaseEndOfMonth,
	}
}

// ParsePhase converts a wire-level phase name into a Phase.
func ParsePhase(name string) (Phase, error) {
	switch Phase(name) {
	case PhaseExpenses, PhaseMarketAnnouncement, PhaseRawMaterialBuy,
		PhaseProduction, PhaseFinishedGoodsSale, PhaseLoanManagement,
		PhaseConstruction, PhaseEndOfMonth:
		return Phase(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, name)
}
