package model

import (
	"errors"
	"fmt"
)

// ResourceType identifies a tradeable resource category.
type ResourceType string

// Supported resource categories.
const (
	ResourceRawMaterial  ResourceType = "raw_material"
	ResourceFinishedGood ResourceType = "finished_good"
)

// ErrNegativeQuantity is returned when an inventory delta would drive a
// resource quantity below zero.
var ErrNegativeQuantity = errors.New("model: resource quantity would become negative")

// InventoryLedger tracks resource holdings for a company. The zero value is
// an empty ledger. All mutation helpers return a new ledger; the receiver is
// never modified.
type InventoryLedger struct {
	Holdings map[ResourceType]int `json:"holdings"`
}

// NewInventoryLedger returns an empty ledger with the canonical layout.
func NewInventoryLedger() InventoryLedger {
	return InventoryLedger{Holdings: map[ResourceType]int{
		ResourceRawMaterial:  0,
		ResourceFinishedGood: 0,
	}}
}

// Quantity returns the held amount for a resource, zero when absent.
func (l InventoryLedger) Quantity(resource ResourceType) int {
	return l.Holdings[resource]
}

// ApplyDelta returns a new ledger with delta applied to one resource.
func (l InventoryLedger) ApplyDelta(resource ResourceType, delta int) (InventoryLedger, error) {
	return l.ApplyMany(map[ResourceType]int{resource: delta})
}

// ApplyMany applies several deltas atomically: if any resulting quantity
// would be negative, no change is made and an error is returned.
func (l InventoryLedger) ApplyMany(changes map[ResourceType]int) (InventoryLedger, error) {
	next := make(map[ResourceType]int, len(l.Holdings)+len(changes))
	for resource, amount := range l.Holdings {
		next[resource] = amount
	}
	for resource, delta := range changes {
		updated := next[resource] + delta
		if updated < 0 {
			return InventoryLedger{}, fmt.Errorf("%w: %s (%d)", ErrNegativeQuantity, resource, updated)
		}
		next[resource] = updated
	}
	return InventoryLedger{Holdings: next}, nil
}
