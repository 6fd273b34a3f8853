package model

import (
	"errors"
	"fmt"
)

// FactoryStatus is the lifecycle stage of a factory slot.
type FactoryStatus string

// Factory lifecycle stages.
const (
	FactoryActive            FactoryStatus = "active"
	FactoryUnderConstruction FactoryStatus = "under_construction"
	FactoryUpgrading         FactoryStatus = "upgrading"
)

// ErrFactoryTiming is returned when a record's remaining-month counter does
// not match its status: active records carry no counter, in-flight records
// must declare one.
var ErrFactoryTiming = errors.New("model: factory timing does not match status")

// FactoryRecord is a single factory slot owned by a company.
// MonthsRemaining is zero for active records and positive otherwise.
type FactoryRecord struct {
	ID              string        `json:"id"`
	BlueprintID     string        `json:"blueprint_id"`
	Status          FactoryStatus `json:"status"`
	MonthsRemaining int           `json:"months_remaining,omitempty"`
}

// Validate checks the status/counter invariant.
func (r FactoryRecord) Validate() error {
	switch r.Status {
	case FactoryActive:
		if r.MonthsRemaining != 0 {
			return fmt.Errorf("%w: active factory %s has a counter", ErrFactoryTiming, r.ID)
		}
	case FactoryUnderConstruction, FactoryUpgrading:
		if r.MonthsRemaining <= 0 {
			return fmt.Errorf("%w: factory %s missing months_remaining", ErrFactoryTiming, r.ID)
		}
	default:
		return fmt.Errorf("model: unknown factory status %q", r.Status)
	}
	return nil
}

// FactoryPortfolio partitions a company's factory records by lifecycle
// stage. Every record's status must match its bucket.
type FactoryPortfolio struct {
	Active            []FactoryRecord `json:"active"`
	UnderConstruction []FactoryRecord `json:"under_construction"`
	Upgrading         []FactoryRecord `json:"upgrading"`
}

// Validate checks that every record resides in the matching bucket.
func (p FactoryPortfolio) Validate() error {
	check := func(records []FactoryRecord, want FactoryStatus) error {
		for _, r := range records {
			if r.Status != want {
				return fmt.Errorf("model: factory %s misclassified in %s bucket", r.ID, want)
			}
			if err := r.Validate(); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(p.Active, FactoryActive); err != nil {
		return err
	}
	if err := check(p.UnderConstruction, FactoryUnderConstruction); err != nil {
		return err
	}
	return check(p.Upgrading, FactoryUpgrading)
}

// Add returns a portfolio with record appended to the bucket matching its
// status.
func (p FactoryPortfolio) Add(record FactoryRecord) FactoryPortfolio {
	next := p.clone()
	switch record.Status {
	case FactoryUnderConstruction:
		next.UnderConstruction = append(next.UnderConstruction, record)
	case FactoryUpgrading:
		next.Upgrading = append(next.Upgrading, record)
	default:
		next.Active = append(next.Active, record)
	}
	return next
}

// ActiveCount returns the number of active factories.
func (p FactoryPortfolio) ActiveCount() int {
	return len(p.Active)
}

// TotalCount returns the number of records across all buckets.
func (p FactoryPortfolio) TotalCount() int {
	return len(p.Active) + len(p.UnderConstruction) + len(p.Upgrading)
}

func (p FactoryPortfolio) clone() FactoryPortfolio {
	return FactoryPortfolio{
		Active:            append([]FactoryRecord(nil), p.Active...),
		UnderConstruction: append([]FactoryRecord(nil), p.UnderConstruction...),
		Upgrading:         append([]FactoryRecord(nil), p.Upgrading...),
	}
}
