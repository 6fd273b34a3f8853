package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateRanking is returned when a seniority ranking repeats an id.
var ErrDuplicateRanking = errors.New("model: seniority ranking contains duplicates")

// ErrUnknownCompany is returned when an operation names a company that is
// not part of the ranking.
var ErrUnknownCompany = errors.New("model: unknown company in seniority order")

// SeniorityOrder ranks companies for auction tie-breaking and loan
// processing. Lower index means higher seniority.
type SeniorityOrder struct {
	Ranking []string `json:"ranking"`
}

// NewSeniorityOrder builds an order, rejecting duplicate identifiers.
func NewSeniorityOrder(ranking []string) (SeniorityOrder, error) {
	seen := make(map[string]struct{}, len(ranking))
	for _, id := range ranking {
		if _, ok := seen[id]; ok {
			return SeniorityOrder{}, fmt.Errorf("%w: %s", ErrDuplicateRanking, id)
		}
		seen[id] = struct{}{}
	}
	return SeniorityOrder{Ranking: append([]string(nil), ranking...)}, nil
}

// Rotate returns the order cyclically shifted forward by steps positions.
func (o SeniorityOrder) Rotate(steps int) SeniorityOrder {
	n := len(o.Ranking)
	if n == 0 {
		return o
	}
	steps = ((steps % n) + n) % n
	if steps == 0 {
		return SeniorityOrder{Ranking: append([]string(nil), o.Ranking...)}
	}
	rotated := make([]string, 0, n)
	rotated = append(rotated, o.Ranking[steps:]...)
	rotated = append(rotated, o.Ranking[:steps]...)
	return SeniorityOrder{Ranking: rotated}
}

// Promote moves companyID to the front, preserving the relative order of the
// others.
func (o SeniorityOrder) Promote(companyID string) (SeniorityOrder, error) {
	if o.RankOf(companyID) < 0 {
		return SeniorityOrder{}, fmt.Errorf("%w: %s", ErrUnknownCompany, companyID)
	}
	reordered := make([]string, 0, len(o.Ranking))
	reordered = append(reordered, companyID)
	for _, id := range o.Ranking {
		if id != companyID {
			reordered = append(reordered, id)
		}
	}
	return SeniorityOrder{Ranking: reordered}, nil
}

// RankOf returns the zero-based rank of companyID, or -1 when absent.
func (o SeniorityOrder) RankOf(companyID string) int {
	for i, id := range o.Ranking {
		if id == companyID {
			return i
		}
	}
	return -1
}

// Without returns the order with the given companies removed.
func (o SeniorityOrder) Without(companyIDs map[string]struct{}) SeniorityOrder {
	remaining := make([]string, 0, len(o.Ranking))
	for _, id := range o.Ranking {
		if _, gone := companyIDs[id]; !gone {
			remaining = append(remaining, id)
		}
	}
	return SeniorityOrder{Ranking: remaining}
}
