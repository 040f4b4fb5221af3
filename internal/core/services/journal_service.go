package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

const moduleJournalEntries = "journal_entries"

// journalService is the posting engine. Every entry it writes is balanced, dated
// into an open fiscal period and persisted header and lines together.
type journalService struct {
	BaseService
	journalRepo portsrepo.JournalRepositoryFacade
	accounts    portssvc.AccountRegistrySvc
	periods     portssvc.FiscalPeriodGuardSvc
	currency    portssvc.CurrencyPolicyEngineSvc
	settings    config.SettingsProvider
}

// NewJournalService creates a new JournalSvcFacade.
func NewJournalService(
	journalRepo portsrepo.JournalRepositoryFacade,
	accounts portssvc.AccountRegistrySvc,
	periods portssvc.FiscalPeriodGuardSvc,
	currency portssvc.CurrencyPolicyEngineSvc,
	settings config.SettingsProvider,
	recorder portssvc.AuditRecorderSvc,
) portssvc.JournalSvcFacade {
	return &journalService{
		BaseService: BaseService{Audit: recorder},
		journalRepo: journalRepo,
		accounts:    accounts,
		periods:     periods,
		currency:    currency,
		settings:    settings,
	}
}

// Ensure journalService implements the portssvc.JournalSvcFacade interface
var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// Post validates a posting request and persists it atomically. Nothing is written
// unless every check passes.
func (s *journalService) Post(ctx context.Context, actor domain.Actor, req dto.PostJournalEntryRequest, hooks ...portsrepo.TxHook) (*domain.JournalEntry, error) {
	if len(req.Lines) < domain.MinEntryLines {
		return nil, apperrors.NewValidationError(fmt.Sprintf("a journal entry needs at least %d lines", domain.MinEntryLines))
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, apperrors.NewValidationError("description is required")
	}
	if domain.DocumentKind(req.ReferenceType).IsValid() && len(hooks) == 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("reference type %s is reserved for posted documents", req.ReferenceType))
	}

	period, err := s.periods.AssertDateOpen(ctx, req.EntryDate)
	if err != nil {
		return nil, err
	}

	codes := make([]string, len(req.Lines))
	for i, l := range req.Lines {
		codes[i] = l.AccountCode
	}
	accounts, err := s.accounts.ResolvePostingAccounts(ctx, codes)
	if err != nil {
		return nil, err
	}

	// the entered amounts must balance before any conversion touches them
	entryID := uuid.NewString()
	now := s.Now()
	original := make([]domain.JournalEntryLine, len(req.Lines))
	for i, l := range req.Lines {
		original[i] = domain.JournalEntryLine{
			LineID:      uuid.NewString(),
			EntryID:     entryID,
			LineNumber:  i + 1,
			AccountID:   accounts[l.AccountCode].AccountID,
			AccountCode: l.AccountCode,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			CreatedAt:   now,
		}
		if err := original[i].Validate(); err != nil {
			return nil, err
		}
	}
	if err := domain.CheckBalance(original); err != nil {
		return nil, err
	}

	conversion, err := s.currency.DecideConversion(ctx, domain.ConversionRequest{
		TransactionCurrency: req.CurrencyCode,
		Stage:               domain.TimingPosting,
		Date:                req.EntryDate,
		UserRequested:       req.ConvertToReference,
		Exempt:              req.ExemptFromConversion,
	})
	if err != nil {
		return nil, err
	}

	places := s.settings.Accounting().Currency.AmountPrecision
	lines := make([]domain.JournalEntryLine, len(original))
	for i, l := range original {
		lines[i] = l
		lines[i].OriginalDebit = l.Debit
		lines[i].OriginalCredit = l.Credit
		lines[i].Debit = conversion.Apply(l.Debit, places)
		lines[i].Credit = conversion.Apply(l.Credit, places)
	}
	if conversion.Decision.InvolvesConversion() {
		// lines are rounded one by one; the sums may drift apart by the rounding
		enteredDebit, enteredCredit := domain.SumLines(original)
		convertedDebit, convertedCredit := domain.SumLines(lines)
		residue := convertedDebit.Sub(convertedCredit).Sub(conversion.Apply(enteredDebit.Sub(enteredCredit), places))
		domain.AbsorbRoundingResidue(lines, residue, places)
	}
	if err := domain.CheckBalance(lines); err != nil {
		return nil, err
	}

	totalDebit, _ := domain.SumLines(lines)
	entry := domain.JournalEntry{
		EntryID:             entryID,
		VoucherNumber:       req.VoucherNumber,
		EntryDate:           domain.DateOnly(req.EntryDate),
		Description:         req.Description,
		PeriodID:            period.PeriodID,
		Status:              domain.Posted,
		ReferenceType:       req.ReferenceType,
		ReferenceID:         req.ReferenceID,
		TransactionCurrency: conversion.TransactionCurrency,
		LedgerCurrency:      conversion.TransactionCurrency,
		ConversionDecision:  conversion.Decision,
		TotalDebit:          totalDebit,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor.ID,
			LastUpdatedAt: now,
			LastUpdatedBy: actor.ID,
		},
	}
	if conversion.Decision.InvolvesConversion() {
		entry.LedgerCurrency = conversion.ReferenceCurrency
		entry.ExchangeRate = conversion.Rate
	}

	saved, err := s.journalRepo.SaveEntry(ctx, portsrepo.PostingBundle{
		Entry:         entry,
		Lines:         lines,
		Conversion:    conversion,
		VoucherPrefix: s.settings.Accounting().VoucherPrefix,
	}, hooks...)
	if err != nil {
		if !apperrors.IsBusinessState(err) {
			s.LogError(ctx, err, "Failed to save journal entry", slog.String("entry_id", entryID))
		}
		return nil, err
	}

	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "journal_entry.posted",
		Module:      moduleJournalEntries,
		Description: fmt.Sprintf("Posted %s: %s", saved.VoucherNumber, saved.Description),
		Metadata: map[string]any{
			"entry_id":            saved.EntryID,
			"voucher_number":      saved.VoucherNumber,
			"total_debit":         saved.TotalDebit.String(),
			"ledger_currency":     saved.LedgerCurrency,
			"conversion_decision": string(saved.ConversionDecision),
			"reference_type":      saved.ReferenceType,
			"reference_id":        saved.ReferenceID,
		},
	})
	s.LogInfo(ctx, "Journal entry posted",
		slog.String("entry_id", saved.EntryID),
		slog.String("voucher_number", saved.VoucherNumber),
		slog.String("period_id", saved.PeriodID))
	return saved, nil
}

// Reverse posts the mirror image of an entry. Both the original entry's period and the
// reversal date's period must accept postings.
func (s *journalService) Reverse(ctx context.Context, actor domain.Actor, entryID string, req dto.ReverseJournalEntryRequest, hooks ...portsrepo.TxHook) (*domain.JournalEntry, error) {
	original, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if original.Status == domain.Reversed {
		return nil, apperrors.NewBusinessError(apperrors.ErrBusinessLogic,
			fmt.Sprintf("journal entry %s is already reversed", original.VoucherNumber))
	}
	if original.IsReversal() {
		return nil, apperrors.NewBusinessError(apperrors.ErrBusinessLogic,
			fmt.Sprintf("journal entry %s is itself a reversal and cannot be reversed", original.VoucherNumber))
	}
	// a document's entry is only undone together with the document, so the
	// payment, ownership and state guards run and the status change commits with it
	if kind := domain.DocumentKind(original.ReferenceType); kind.IsValid() &&
		(req.DocumentID != original.ReferenceID || len(hooks) == 0) {
		return nil, apperrors.NewModificationForbidden(apperrors.ReasonDocumentLinked,
			fmt.Sprintf("journal entry %s belongs to %s %s; reverse or delete the document instead",
				original.VoucherNumber, strings.ToLower(string(kind)), original.ReferenceID))
	}

	if _, err := s.periods.AssertDateOpen(ctx, original.EntryDate); err != nil {
		return nil, err
	}
	reversalDate := original.EntryDate
	if req.ReversalDate != nil {
		reversalDate = domain.DateOnly(*req.ReversalDate)
	}
	period, err := s.periods.AssertDateOpen(ctx, reversalDate)
	if err != nil {
		return nil, err
	}

	originalLines, err := s.journalRepo.FindLinesByEntryID(ctx, original.EntryID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	reversalID := uuid.NewString()
	lines := make([]domain.JournalEntryLine, len(originalLines))
	for i, l := range originalLines {
		lines[i] = l.Swapped()
		lines[i].LineID = uuid.NewString()
		lines[i].EntryID = reversalID
		lines[i].CreatedAt = now
	}
	if err := domain.CheckBalance(lines); err != nil {
		return nil, err
	}

	description := "Reversal of " + original.VoucherNumber
	if req.Reason != "" {
		description += ": " + req.Reason
	}
	totalDebit, _ := domain.SumLines(lines)
	originalID := original.EntryID
	entry := domain.JournalEntry{
		EntryID:             reversalID,
		EntryDate:           reversalDate,
		Description:         description,
		PeriodID:            period.PeriodID,
		Status:              domain.Posted,
		ReferenceType:       original.ReferenceType,
		ReferenceID:         original.ReferenceID,
		TransactionCurrency: original.TransactionCurrency,
		LedgerCurrency:      original.LedgerCurrency,
		ExchangeRate:        original.ExchangeRate,
		ConversionDecision:  original.ConversionDecision,
		ReversalOfID:        &originalID,
		TotalDebit:          totalDebit,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor.ID,
			LastUpdatedAt: now,
			LastUpdatedBy: actor.ID,
		},
	}

	saved, err := s.journalRepo.SaveReversal(ctx, original.EntryID, portsrepo.PostingBundle{
		Entry:         entry,
		Lines:         lines,
		VoucherPrefix: s.settings.Accounting().VoucherPrefix,
	}, hooks...)
	if err != nil {
		if !apperrors.IsBusinessState(err) {
			s.LogError(ctx, err, "Failed to save reversal", slog.String("original_entry_id", original.EntryID))
		}
		return nil, err
	}

	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "journal_entry.reversed",
		Module:      moduleJournalEntries,
		Description: fmt.Sprintf("Reversed %s with %s", original.VoucherNumber, saved.VoucherNumber),
		Metadata: map[string]any{
			"original_entry_id": original.EntryID,
			"reversal_entry_id": saved.EntryID,
			"reason":            req.Reason,
		},
	})
	return saved, nil
}

func (s *journalService) GetEntry(ctx context.Context, entryID string) (*dto.JournalEntryResponse, error) {
	entry, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load journal lines", slog.String("entry_id", entryID))
		return nil, err
	}
	return &dto.JournalEntryResponse{JournalEntry: *entry, Lines: lines}, nil
}

func (s *journalService) ListEntries(ctx context.Context, params dto.ListJournalEntriesParams) (*dto.ListJournalEntriesResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	entries, next, err := s.journalRepo.ListEntries(ctx, portsrepo.ListEntriesParams{
		PageParams:    portsrepo.PageParams{Limit: limit, NextToken: params.NextToken},
		ReferenceType: params.ReferenceType,
		ReferenceID:   params.ReferenceID,
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.JournalEntry{}
	}
	return &dto.ListJournalEntriesResponse{Entries: entries, NextToken: next}, nil
}

func (s *journalService) VoucherNumberInUse(ctx context.Context, voucherNumber string) (bool, error) {
	if voucherNumber == "" {
		return false, nil
	}
	return s.journalRepo.ExistsByVoucherNumber(ctx, voucherNumber)
}
