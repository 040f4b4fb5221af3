package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

const (
	moduleFiscalPeriods = "fiscal_periods"

	// ReferenceTypePeriodClose marks the closing entry of a fiscal period.
	ReferenceTypePeriodClose = domain.ReferencePeriodClose
)

// fiscalPeriodService guards postings against closed and locked periods and
// administers the period lifecycle.
type fiscalPeriodService struct {
	BaseService
	periodRepo portsrepo.FiscalPeriodRepositoryFacade
	accounts   portssvc.AccountRegistrySvc
	currency   portssvc.CurrencyPolicyEngineSvc
	settings   config.SettingsProvider
}

// FiscalPeriodServiceOption is a functional option for the fiscal period service.
type FiscalPeriodServiceOption func(*fiscalPeriodService)

// WithFiscalPeriodPolicy sets the authorization policy.
func WithFiscalPeriodPolicy(policy *authz.Policy) FiscalPeriodServiceOption {
	return func(s *fiscalPeriodService) {
		s.Policy = policy
	}
}

// WithFiscalPeriodAudit adds the audit recorder dependency.
func WithFiscalPeriodAudit(recorder portssvc.AuditRecorderSvc) FiscalPeriodServiceOption {
	return func(s *fiscalPeriodService) {
		s.Audit = recorder
	}
}

// NewFiscalPeriodService creates a FiscalPeriodSvcFacade.
func NewFiscalPeriodService(
	periodRepo portsrepo.FiscalPeriodRepositoryFacade,
	accounts portssvc.AccountRegistrySvc,
	currency portssvc.CurrencyPolicyEngineSvc,
	settings config.SettingsProvider,
	options ...FiscalPeriodServiceOption,
) portssvc.FiscalPeriodSvcFacade {
	svc := &fiscalPeriodService{
		periodRepo: periodRepo,
		accounts:   accounts,
		currency:   currency,
		settings:   settings,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.FiscalPeriodSvcFacade = (*fiscalPeriodService)(nil)

func (s *fiscalPeriodService) PeriodFor(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error) {
	period, err := s.periodRepo.FindPeriodForDate(ctx, domain.DateOnly(date))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewBusinessError(apperrors.ErrNoPeriodDefined,
				fmt.Sprintf("no fiscal period is defined for %s", date.Format(time.DateOnly)))
		}
		s.LogError(ctx, err, "Failed to resolve fiscal period", slog.String("date", date.Format(time.DateOnly)))
		return nil, err
	}
	return period, nil
}

func (s *fiscalPeriodService) AssertOpen(period domain.FiscalPeriod) error {
	return period.PostingError()
}

func (s *fiscalPeriodService) AssertDateOpen(ctx context.Context, date time.Time) (*domain.FiscalPeriod, error) {
	period, err := s.PeriodFor(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := s.AssertOpen(*period); err != nil {
		return nil, err
	}
	return period, nil
}

func (s *fiscalPeriodService) CreatePeriod(ctx context.Context, actor domain.Actor, req dto.CreateFiscalPeriodRequest) (*domain.FiscalPeriod, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManagePeriods); err != nil {
		return nil, err
	}
	start, end := domain.DateOnly(req.StartDate), domain.DateOnly(req.EndDate)
	if end.Before(start) {
		return nil, apperrors.NewValidationError("end date must not be before start date")
	}

	overlapping, err := s.periodRepo.FindOverlappingPeriods(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		return nil, apperrors.NewAppError(409,
			fmt.Sprintf("fiscal period overlaps existing period %s", overlapping[0].Name), apperrors.ErrConflict)
	}

	now := s.Now()
	period := domain.FiscalPeriod{
		PeriodID:  uuid.NewString(),
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor.ID,
			LastUpdatedAt: now,
			LastUpdatedBy: actor.ID,
		},
	}
	if err := s.periodRepo.SavePeriod(ctx, period); err != nil {
		s.LogError(ctx, err, "Failed to save fiscal period", slog.String("name", period.Name))
		return nil, err
	}

	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "fiscal_period.created",
		Module:      moduleFiscalPeriods,
		Description: fmt.Sprintf("Created fiscal period %s", period.Name),
		Metadata: map[string]any{
			"start_date": start.Format(time.DateOnly),
			"end_date":   end.Format(time.DateOnly),
		},
	})
	return &period, nil
}

func (s *fiscalPeriodService) ListPeriods(ctx context.Context) ([]domain.FiscalPeriod, error) {
	return s.periodRepo.ListPeriods(ctx)
}

// ClosePeriod soft-closes a period. The revenue and expense balances of the period
// are moved to the retained earnings account in the same transaction.
func (s *fiscalPeriodService) ClosePeriod(ctx context.Context, actor domain.Actor, periodID string) (*dto.ClosePeriodResponse, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManagePeriods); err != nil {
		return nil, err
	}
	settings := s.settings.Accounting()
	retained, err := s.accounts.ResolveLeafAccount(ctx, settings.RetainedEarningsAccount)
	if err != nil {
		return nil, err
	}
	ledgerCurrency, err := s.currency.ReferenceCurrency(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	build := func(period domain.FiscalPeriod, activity []domain.AccountActivity) (*portsrepo.PostingBundle, error) {
		return buildClosingEntry(period, activity, *retained, ledgerCurrency, actor.ID, now, settings.VoucherPrefix)
	}

	period, entry, err := s.periodRepo.ClosePeriod(ctx, periodID, actor.ID, now, build)
	if err != nil {
		if !apperrors.IsBusinessState(err) && !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrConflict) {
			s.LogError(ctx, err, "Failed to close fiscal period", slog.String("period_id", periodID))
		}
		return nil, err
	}

	metadata := map[string]any{"period_id": period.PeriodID}
	if entry != nil {
		metadata["closing_voucher"] = entry.VoucherNumber
	}
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "fiscal_period.closed",
		Module:      moduleFiscalPeriods,
		Description: fmt.Sprintf("Closed fiscal period %s", period.Name),
		Metadata:    metadata,
	})
	s.LogInfo(ctx, "Fiscal period closed", slog.String("period_id", period.PeriodID))
	return &dto.ClosePeriodResponse{Period: *period, ClosingEntry: entry}, nil
}

// buildClosingEntry zeroes every revenue and expense account against retained earnings.
// Returns nil when nothing needs closing.
func buildClosingEntry(
	period domain.FiscalPeriod,
	activity []domain.AccountActivity,
	retained domain.Account,
	ledgerCurrency string,
	actorID string,
	now time.Time,
	voucherPrefix string,
) (*portsrepo.PostingBundle, error) {
	entryID := uuid.NewString()
	lines := make([]domain.JournalEntryLine, 0, len(activity)+1)
	net := decimal.Zero

	for _, a := range activity {
		if a.AccountType != domain.Revenue && a.AccountType != domain.Expense {
			continue
		}
		balance := a.Debits.Sub(a.Credits)
		if balance.IsZero() {
			continue
		}
		line := domain.JournalEntryLine{
			LineID:      uuid.NewString(),
			EntryID:     entryID,
			LineNumber:  len(lines) + 1,
			AccountID:   a.AccountID,
			AccountCode: a.AccountCode,
			Description: "Period close",
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
			CreatedAt:   now,
		}
		if balance.IsPositive() {
			line.Credit = balance
		} else {
			line.Debit = balance.Neg()
		}
		line.OriginalDebit, line.OriginalCredit = line.Debit, line.Credit
		lines = append(lines, line)
		net = net.Add(balance)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	// a net debit balance is a loss and reduces retained earnings
	reLine := domain.JournalEntryLine{
		LineID:      uuid.NewString(),
		EntryID:     entryID,
		LineNumber:  len(lines) + 1,
		AccountID:   retained.AccountID,
		AccountCode: retained.Code,
		Description: "Net result for " + period.Name,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
		CreatedAt:   now,
	}
	switch {
	case net.IsPositive():
		reLine.Debit = net
	case net.IsNegative():
		reLine.Credit = net.Neg()
	}
	if !net.IsZero() {
		reLine.OriginalDebit, reLine.OriginalCredit = reLine.Debit, reLine.Credit
		lines = append(lines, reLine)
	}
	if err := domain.CheckBalance(lines); err != nil {
		return nil, err
	}

	debits, _ := domain.SumLines(lines)
	entry := domain.JournalEntry{
		EntryID:             entryID,
		EntryDate:           domain.DateOnly(period.EndDate),
		Description:         "Closing entry for " + period.Name,
		PeriodID:            period.PeriodID,
		Status:              domain.Posted,
		ReferenceType:       ReferenceTypePeriodClose,
		ReferenceID:         period.PeriodID,
		TransactionCurrency: ledgerCurrency,
		LedgerCurrency:      ledgerCurrency,
		ConversionDecision:  domain.SameCurrency,
		TotalDebit:          debits,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}
	return &portsrepo.PostingBundle{Entry: entry, Lines: lines, VoucherPrefix: voucherPrefix}, nil
}

func (s *fiscalPeriodService) LockPeriod(ctx context.Context, actor domain.Actor, periodID string) (*domain.FiscalPeriod, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermLockPeriods); err != nil {
		return nil, err
	}
	current, err := s.periodRepo.FindPeriodByID(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if err := current.ValidateTransition(domain.PeriodLocked); err != nil {
		return nil, err
	}
	period, err := s.periodRepo.LockPeriod(ctx, periodID, actor.ID, s.Now())
	if err != nil {
		return nil, err
	}
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "fiscal_period.locked",
		Module:      moduleFiscalPeriods,
		Description: fmt.Sprintf("Locked fiscal period %s", period.Name),
		Metadata:    map[string]any{"period_id": period.PeriodID},
	})
	return period, nil
}

func (s *fiscalPeriodService) ReopenPeriod(ctx context.Context, actor domain.Actor, periodID string) (*domain.FiscalPeriod, error) {
	if err := s.RequirePermission(ctx, actor, authz.PermManagePeriods); err != nil {
		return nil, err
	}
	period, err := s.periodRepo.ReopenPeriod(ctx, periodID, actor.ID, s.Now())
	if err != nil {
		return nil, err
	}
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "fiscal_period.reopened",
		Module:      moduleFiscalPeriods,
		Description: fmt.Sprintf("Reopened fiscal period %s", period.Name),
		Metadata:    map[string]any{"period_id": period.PeriodID},
	})
	return period, nil
}
