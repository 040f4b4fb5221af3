package domain

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
)

// PeriodStatus is the derived lifecycle state of a fiscal period.
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "OPEN"
	PeriodClosed PeriodStatus = "CLOSED"
	PeriodLocked PeriodStatus = "LOCKED"
)

// FiscalPeriod is a date range with a posting lifecycle open -> closed -> locked.
// Closed is a soft close that an administrator may reopen; locked is terminal.
type FiscalPeriod struct {
	PeriodID  string     `json:"periodID"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"startDate"`
	EndDate   time.Time  `json:"endDate"`
	IsClosed  bool       `json:"isClosed"`
	IsLocked  bool       `json:"isLocked"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	ClosedBy  *string    `json:"closedBy,omitempty"`
	LockedAt  *time.Time `json:"lockedAt,omitempty"`
	LockedBy  *string    `json:"lockedBy,omitempty"`
	AuditFields
}

// Contains reports whether the calendar date of t falls within the period, bounds inclusive.
func (p FiscalPeriod) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(DateOnly(p.StartDate)) && !d.After(DateOnly(p.EndDate))
}

// Overlaps reports whether [start, end] intersects the period.
func (p FiscalPeriod) Overlaps(start, end time.Time) bool {
	return !DateOnly(start).After(DateOnly(p.EndDate)) && !DateOnly(end).Before(DateOnly(p.StartDate))
}

// Status derives the lifecycle state. Locked takes precedence over closed.
func (p FiscalPeriod) Status() PeriodStatus {
	switch {
	case p.IsLocked:
		return PeriodLocked
	case p.IsClosed:
		return PeriodClosed
	}
	return PeriodOpen
}

// PostingError returns nil if entries may be posted into the period,
// ErrPeriodLocked or ErrPeriodClosed otherwise. Locked is checked first.
func (p FiscalPeriod) PostingError() error {
	switch p.Status() {
	case PeriodLocked:
		return apperrors.NewBusinessError(apperrors.ErrPeriodLocked, "fiscal period "+p.Name+" is locked")
	case PeriodClosed:
		return apperrors.NewBusinessError(apperrors.ErrPeriodClosed, "fiscal period "+p.Name+" is closed")
	}
	return nil
}

// ValidateTransition checks whether the period may move to target.
// Allowed: OPEN -> CLOSED, CLOSED -> LOCKED, CLOSED -> OPEN (reopen).
func (p FiscalPeriod) ValidateTransition(target PeriodStatus) error {
	current := p.Status()
	if current == PeriodLocked {
		return apperrors.NewBusinessError(apperrors.ErrPeriodLocked, "fiscal period "+p.Name+" is locked and cannot change state")
	}
	switch target {
	case PeriodClosed:
		if current == PeriodClosed {
			return apperrors.NewAppError(409, "fiscal period "+p.Name+" is already closed", apperrors.ErrConflict)
		}
	case PeriodOpen:
		if current == PeriodOpen {
			return apperrors.NewAppError(409, "fiscal period "+p.Name+" is already open", apperrors.ErrConflict)
		}
	case PeriodLocked:
		// the closing entry is only posted by a close, so an open period is closed first
		if current == PeriodOpen {
			return apperrors.NewBusinessError(apperrors.ErrBusinessLogic, "fiscal period "+p.Name+" must be closed before it is locked")
		}
	default:
		return apperrors.NewValidationError("unknown period status " + string(target))
	}
	return nil
}
