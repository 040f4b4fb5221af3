package services

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

// FiscalPeriodGuardSvc decides whether a date accepts postings.
type FiscalPeriodGuardSvc interface {
	// PeriodFor returns the period containing date, or ErrNoPeriodDefined.
	PeriodFor(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error)

	// AssertOpen returns ErrPeriodLocked or ErrPeriodClosed for a period that rejects postings.
	AssertOpen(period domain.FiscalPeriod) error

	// AssertDateOpen combines PeriodFor and AssertOpen.
	AssertDateOpen(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error)
}

// FiscalPeriodAdminSvc manages the period lifecycle.
type FiscalPeriodAdminSvc interface {
	CreatePeriod(ctx context.Context, actor domain.Actor, req dto.CreateFiscalPeriodRequest) (*domain.FiscalPeriod, error)
	ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error)
	ClosePeriod(ctx context.Context, actor domain.Actor, periodID string) (*dto.ClosePeriodResponse, error)
	LockPeriod(ctx context.Context, actor domain.Actor, periodID string) (*domain.FiscalPeriod, error)
	ReopenPeriod(ctx context.Context, actor domain.Actor, periodID string) (*domain.FiscalPeriod, error)
}

// FiscalPeriodSvcFacade combines all fiscal period service interfaces.
type FiscalPeriodSvcFacade interface {
	FiscalPeriodGuardSvc
	FiscalPeriodAdminSvc
}
