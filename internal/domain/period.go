package domain

import (
	"fmt"
	"time"
)

// PeriodStatus controls whether a fiscal period accepts postings.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
	PeriodStatusLocked PeriodStatus = "LOCKED"
)

// FiscalPeriod is a date range of a tenant's books. EndDate is inclusive.
type FiscalPeriod struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenant_id"`
	Name      string       `json:"name"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Status    PeriodStatus `json:"status"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Validate checks the date range.
func (p *FiscalPeriod) Validate() error {
	if DateOnly(p.EndDate).Before(DateOnly(p.StartDate)) {
		return ErrInvalidPeriodRange
	}
	return nil
}

// Contains reports whether d falls inside the period.
func (p *FiscalPeriod) Contains(d time.Time) bool {
	day := DateOnly(d)
	return !day.Before(DateOnly(p.StartDate)) && !day.After(DateOnly(p.EndDate))
}

// Overlaps reports whether two periods share a day.
func (p *FiscalPeriod) Overlaps(o *FiscalPeriod) bool {
	return !DateOnly(p.EndDate).Before(DateOnly(o.StartDate)) &&
		!DateOnly(o.EndDate).Before(DateOnly(p.StartDate))
}

// CheckPostable fails with ClosedPeriodError unless the period is open.
func (p *FiscalPeriod) CheckPostable(d time.Time) error {
	if p.Status != PeriodStatusOpen {
		return &ClosedPeriodError{Date: DateOnly(d), PeriodID: p.ID, Status: p.Status}
	}
	return nil
}

// ValidatePeriodTransition checks a status change. Unlocking requires an
// explicit override.
func ValidatePeriodTransition(current, target PeriodStatus, hasOverride bool) error {
	if current == target {
		return nil
	}
	switch current {
	case PeriodStatusOpen:
		if target == PeriodStatusClosed || target == PeriodStatusLocked {
			return nil
		}
	case PeriodStatusClosed:
		if target == PeriodStatusOpen || target == PeriodStatusLocked {
			return nil
		}
	case PeriodStatusLocked:
		if target == PeriodStatusClosed && hasOverride {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidPeriodTransition, current, target)
}
