/*
Package availability computes how much of a staff member's time is free,
month by month.

PURPOSE:
  A research software engineer (RSE) is contracted between two dates,
  may have their contractual capacity changed for stretches of time
  (part-time, overtime, secondments), and is committed to projects by
  FTE-percentage assignments. This package turns those records into a
  year -> 12-month grid of free capacity.

KEY CONCEPTS:
  - Grid: year -> [12]cell, cell = percentage or null (not under contract)
  - Capacity resolution: contract bounds + overrides -> baseline grid
  - Assignment reduction: baseline minus assigned FTE -> available grid
  - NextAvailable: first month of a year with free capacity

INVARIANTS:
  1. Cells outside the contract are null, never zero
  2. Negative cells mean over-allocation and are never clamped
  3. Reduction never adds years to a grid

SEE ALSO:
  - capacity.go: baseline grid from contract and overrides
  - assignment.go: subtracting assignments
  - engine.go: composition and next-available lookup
*/
package availability

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORDS
// =============================================================================

// Staff is an RSE with contract bounds. ContractEnd nil = open-ended.
type Staff struct {
	ID            string
	Name          string
	Email         string
	ContractStart time.Time
	ContractEnd   *time.Time
}

// CapacityOverride replaces the contractual capacity for a span of months.
// Capacity may exceed 100 for overtime. End nil = open-ended.
type CapacityOverride struct {
	ID       string
	StaffID  string
	Capacity decimal.Decimal
	Start    time.Time
	End      *time.Time
}

// DefaultRate is the rate tier used when an assignment carries none.
const DefaultRate = "standard"

// Assignment commits FTE percent of a staff member to a project.
type Assignment struct {
	ID        string
	StaffID   string
	ProjectID string
	FTE       decimal.Decimal
	Start     *time.Time
	End       *time.Time
	Rate      string
}

// RateOrDefault returns the rate tier, "standard" when unset.
func (a Assignment) RateOrDefault() string {
	if a.Rate == "" {
		return DefaultRate
	}
	return a.Rate
}

// Validate reports whether the assignment can take part in a grid.
func (a Assignment) Validate() error {
	switch {
	case !a.FTE.IsPositive():
		return &ValidationError{Record: "assignment", ID: a.ID, Field: "fte", Reason: "must be greater than zero"}
	case a.Start == nil:
		return &ValidationError{Record: "assignment", ID: a.ID, Field: "start", Reason: "required"}
	case a.End == nil:
		return &ValidationError{Record: "assignment", ID: a.ID, Field: "end", Reason: "required"}
	case a.End.Before(*a.Start):
		return &ValidationError{Record: "assignment", ID: a.ID, Field: "end", Reason: "before start"}
	}
	return nil
}

// Validate reports whether the override can take part in a grid.
func (c CapacityOverride) Validate() error {
	switch {
	case c.Start.IsZero():
		return &ValidationError{Record: "capacity", ID: c.ID, Field: "start", Reason: "required"}
	case c.Capacity.IsNegative():
		return &ValidationError{Record: "capacity", ID: c.ID, Field: "capacity", Reason: "must not be negative"}
	case c.End != nil && c.End.Before(c.Start):
		return &ValidationError{Record: "capacity", ID: c.ID, Field: "end", Reason: "before start"}
	}
	return nil
}

// Validate checks the contract bounds.
func (s Staff) Validate() error {
	switch {
	case s.ContractStart.IsZero():
		return &ValidationError{Record: "rse", ID: s.ID, Field: "contractStart", Reason: "required"}
	case s.ContractEnd != nil && s.ContractEnd.Before(s.ContractStart):
		return &ValidationError{Record: "rse", ID: s.ID, Field: "contractEnd", Reason: "before contractStart"}
	}
	return nil
}

// NextAvailability is the first month with free capacity.
type NextAvailability struct {
	Date time.Time
	FTE  decimal.Decimal
}

// Result carries both the baseline capacity grid and the grid left after
// assignments. Assigned FTE for a month is Capacity - Available.
type Result struct {
	Capacity  Grid
	Available Grid
}
