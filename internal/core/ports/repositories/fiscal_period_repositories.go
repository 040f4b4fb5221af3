package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// FiscalPeriodReader defines read operations for fiscal periods.
type FiscalPeriodReader interface {
	// FindPeriodForDate returns the period whose range contains date, or ErrNotFound.
	FindPeriodForDate(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error)

	// FindPeriodByID retrieves a period by id.
	FindPeriodByID(ctx context.Context, periodID string) (*domain.FiscalPeriod, error)

	// ListPeriods lists periods ordered by start date.
	ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error)

	// FindOverlappingPeriods returns the periods intersecting [start, end].
	FindOverlappingPeriods(ctx context.Context, start, end time.Time) ([]domain.FiscalPeriod, error)
}

// ClosingEntryBuilder builds the closing entry of a period from the revenue and expense
// activity posted into it. It runs while the period row is locked FOR UPDATE, so no
// posting can land between the computation and the close. A nil bundle posts nothing.
type ClosingEntryBuilder func(period domain.FiscalPeriod, activity []domain.AccountActivity) (*PostingBundle, error)

// FiscalPeriodWriter defines the period lifecycle writes. Each transition locks the
// period row FOR UPDATE and validates it against the locked state.
type FiscalPeriodWriter interface {
	// SavePeriod persists a new period. Overlaps are rejected with ErrConflict.
	SavePeriod(ctx context.Context, period domain.FiscalPeriod) error

	// ClosePeriod posts the optional closing entry and marks the period closed in one transaction.
	ClosePeriod(ctx context.Context, periodID string, actorID string, at time.Time, build ClosingEntryBuilder) (*domain.FiscalPeriod, *domain.JournalEntry, error)

	// LockPeriod hard-locks a period. Locking is terminal.
	LockPeriod(ctx context.Context, periodID string, actorID string, at time.Time) (*domain.FiscalPeriod, error)

	// ReopenPeriod reverts a soft close.
	ReopenPeriod(ctx context.Context, periodID string, actorID string, at time.Time) (*domain.FiscalPeriod, error)
}

// FiscalPeriodRepositoryFacade combines all fiscal period repository interfaces.
type FiscalPeriodRepositoryFacade interface {
	FiscalPeriodReader
	FiscalPeriodWriter
}
