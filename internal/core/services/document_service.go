package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/authz"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
)

// documentService drives invoices, purchases and journal vouchers through
// Draft -> Posted -> {Reversed | Deleted} and guards every reversal and deletion.
type documentService struct {
	BaseService
	docRepo  portsrepo.DocumentRepositoryFacade
	journal  portssvc.JournalSvcFacade
	periods  portssvc.FiscalPeriodGuardSvc
	settings config.SettingsProvider
}

// NewDocumentService creates a DocumentSvcFacade.
func NewDocumentService(
	docRepo portsrepo.DocumentRepositoryFacade,
	journal portssvc.JournalSvcFacade,
	periods portssvc.FiscalPeriodGuardSvc,
	settings config.SettingsProvider,
	policy *authz.Policy,
	recorder portssvc.AuditRecorderSvc,
) portssvc.DocumentSvcFacade {
	if policy == nil {
		policy = authz.NewPolicy(nil)
	}
	return &documentService{
		BaseService: BaseService{Policy: policy, Audit: recorder},
		docRepo:     docRepo,
		journal:     journal,
		periods:     periods,
		settings:    settings,
	}
}

var _ portssvc.DocumentSvcFacade = (*documentService)(nil)

func (s *documentService) moduleFor(kind domain.DocumentKind) (string, error) {
	module, ok := s.Policy.ModuleFor(kind)
	if !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown document kind %q", kind))
	}
	return module, nil
}

func (s *documentService) authorize(actor domain.Actor, doc domain.FinancialDocument, action domain.DocumentAction) error {
	module, err := s.moduleFor(doc.Kind)
	if err != nil {
		return err
	}
	return s.Policy.Authorize(actor, authz.Resource{Module: module, OwnerID: doc.CreatedBy}, action)
}

// CheckModification runs the business-state checks before authorization, so a
// privileged actor gets the same answer as the owner on a paid or closed document.
func (s *documentService) CheckModification(ctx context.Context, actor domain.Actor, doc domain.FinancialDocument, action domain.DocumentAction) error {
	if doc.Status.IsTerminal() {
		return apperrors.NewModificationForbidden(apperrors.ReasonInvalidState,
			fmt.Sprintf("cannot %s: document %s is already %s", action, doc.DocumentNumber, strings.ToLower(string(doc.Status))))
	}
	if action == domain.ActionReverse && doc.Status != domain.DocumentPosted {
		return apperrors.NewModificationForbidden(apperrors.ReasonInvalidState,
			fmt.Sprintf("cannot reverse: document %s has not been posted", doc.DocumentNumber))
	}
	if doc.HasPayments() {
		return apperrors.NewModificationForbidden(apperrors.ReasonPaymentsApplied,
			fmt.Sprintf("cannot %s: payments of %s already applied to %s", action, doc.AmountPaid.String(), doc.DocumentNumber))
	}

	period, err := s.periods.PeriodFor(ctx, doc.DocumentDate)
	switch {
	case err == nil:
		if perr := period.PostingError(); perr != nil {
			reason := apperrors.ReasonPeriodClosed
			if errors.Is(perr, apperrors.ErrPeriodLocked) {
				reason = apperrors.ReasonPeriodLocked
			}
			return apperrors.NewModificationForbidden(reason,
				fmt.Sprintf("cannot %s: period %s is %s", action, period.Name, strings.ToLower(string(period.Status()))))
		}
	case errors.Is(err, apperrors.ErrNoPeriodDefined):
		// a draft outside every period has nothing posted to protect
	default:
		return err
	}

	if doc.Kind == domain.JournalVoucher && action == domain.ActionDelete {
		posted, err := s.journal.VoucherNumberInUse(ctx, doc.DocumentNumber)
		if err != nil {
			return err
		}
		if posted {
			return apperrors.NewModificationForbidden(apperrors.ReasonPostedToLedger,
				fmt.Sprintf("cannot delete: voucher %s is posted to the general ledger; reverse it instead", doc.DocumentNumber))
		}
	}

	return s.authorize(actor, doc, action)
}

func (s *documentService) RegisterDocument(ctx context.Context, actor domain.Actor, req dto.CreateDocumentRequest) (*domain.FinancialDocument, error) {
	if !req.Kind.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown document kind %q", req.Kind))
	}
	module, err := s.moduleFor(req.Kind)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(actor, authz.Resource{Module: module, OwnerID: actor.ID}, domain.ActionPost); err != nil {
		return nil, err
	}
	if req.TotalAmount.IsNegative() {
		return nil, apperrors.NewValidationError("total amount must not be negative")
	}

	currency := strings.ToUpper(req.CurrencyCode)
	if currency == "" {
		currency = s.settings.Accounting().Currency.ReferenceCurrency
	}
	now := s.Now()
	doc := domain.FinancialDocument{
		DocumentID:     uuid.NewString(),
		Kind:           req.Kind,
		DocumentNumber: req.DocumentNumber,
		DocumentDate:   domain.DateOnly(documentDateOrNow(req.DocumentDate, now)),
		Status:         domain.DocumentDraft,
		CurrencyCode:   currency,
		TotalAmount:    req.TotalAmount,
		AmountPaid:     decimal.Zero,
		Description:    req.Description,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor.ID,
			LastUpdatedAt: now,
			LastUpdatedBy: actor.ID,
		},
	}
	if err := s.docRepo.SaveDocument(ctx, doc); err != nil {
		s.LogError(ctx, err, "Failed to save document", slog.String("document_number", doc.DocumentNumber))
		return nil, err
	}
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "document.registered",
		Module:      module,
		Description: fmt.Sprintf("Registered %s %s", strings.ToLower(string(doc.Kind)), doc.DocumentNumber),
		Metadata:    map[string]any{"document_id": doc.DocumentID, "total": doc.TotalAmount.String()},
	})
	return &doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, documentID string) (*domain.FinancialDocument, error) {
	return s.docRepo.FindDocumentByID(ctx, documentID)
}

// PostDocument posts a draft and flips it to POSTED in the posting transaction.
func (s *documentService) PostDocument(ctx context.Context, actor domain.Actor, documentID string, req dto.PostDocumentRequest) (*dto.DocumentPostingResponse, error) {
	doc, err := s.docRepo.FindDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentDraft {
		return nil, apperrors.NewBusinessError(apperrors.ErrBusinessLogic,
			fmt.Sprintf("document %s is %s; only drafts can be posted", doc.DocumentNumber, doc.Status))
	}
	if err := s.authorize(actor, *doc, domain.ActionPost); err != nil {
		return nil, err
	}

	lines, err := BuildDocumentLines(*doc, req, s.settings.Accounting())
	if err != nil {
		return nil, err
	}

	postReq := dto.PostJournalEntryRequest{
		EntryDate:     doc.DocumentDate,
		Description:   fmt.Sprintf("%s %s", documentLabel(doc.Kind), doc.DocumentNumber),
		CurrencyCode:  doc.CurrencyCode,
		ReferenceType: string(doc.Kind),
		ReferenceID:   doc.DocumentID,
		Lines:         lines,
	}
	if doc.Kind == domain.JournalVoucher {
		postReq.VoucherNumber = doc.DocumentNumber
	}
	if doc.Description != "" {
		postReq.Description += ": " + doc.Description
	}

	now := s.Now()
	markPosted := func(ctx context.Context, tx pgx.Tx, entry *domain.JournalEntry) error {
		return s.docRepo.MarkPostedInTx(ctx, tx, doc.DocumentID, entry.EntryID, actor.ID, now)
	}
	entry, err := s.journal.Post(ctx, actor, postReq, markPosted)
	if err != nil {
		return nil, err
	}

	doc.Status = domain.DocumentPosted
	doc.JournalEntryID = &entry.EntryID
	doc.LastUpdatedAt = now
	doc.LastUpdatedBy = actor.ID
	return &dto.DocumentPostingResponse{Document: *doc, Entry: entry}, nil
}

func (s *documentService) ApplyPayment(ctx context.Context, actor domain.Actor, documentID string, req dto.ApplyPaymentRequest) (*domain.FinancialDocument, error) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.NewValidationError("payment amount must be positive")
	}
	doc, err := s.docRepo.FindDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentPosted {
		return nil, apperrors.NewBusinessError(apperrors.ErrBusinessLogic,
			fmt.Sprintf("payments can only be applied to posted documents; %s is %s", doc.DocumentNumber, doc.Status))
	}
	if req.Amount.GreaterThan(doc.Outstanding()) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("payment %s exceeds the outstanding %s", req.Amount.String(), doc.Outstanding().String()))
	}
	if err := s.authorize(actor, *doc, domain.ActionPost); err != nil {
		return nil, err
	}

	updated, err := s.docRepo.ApplyPayment(ctx, documentID, req.Amount, actor.ID, s.Now())
	if err != nil {
		return nil, err
	}
	module, _ := s.moduleFor(doc.Kind)
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "document.payment_applied",
		Module:      module,
		Description: fmt.Sprintf("Applied payment of %s to %s", req.Amount.String(), doc.DocumentNumber),
		Metadata:    map[string]any{"document_id": doc.DocumentID, "amount_paid": updated.AmountPaid.String()},
	})
	return updated, nil
}

func (s *documentService) ReverseDocument(ctx context.Context, actor domain.Actor, documentID string, req dto.VoidDocumentRequest) (*dto.DocumentPostingResponse, error) {
	return s.void(ctx, actor, documentID, req, domain.ActionReverse)
}

func (s *documentService) DeleteDocument(ctx context.Context, actor domain.Actor, documentID string, req dto.VoidDocumentRequest) (*dto.DocumentPostingResponse, error) {
	return s.void(ctx, actor, documentID, req, domain.ActionDelete)
}

// void undoes a document. A posted document gets a compensating entry; the status
// change is committed with it and re-checks amount_paid under the row lock.
func (s *documentService) void(ctx context.Context, actor domain.Actor, documentID string, req dto.VoidDocumentRequest, action domain.DocumentAction) (*dto.DocumentPostingResponse, error) {
	doc, err := s.docRepo.FindDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.CheckModification(ctx, actor, *doc, action); err != nil {
		var modErr *apperrors.ModificationForbiddenError
		if errors.As(err, &modErr) {
			s.LogInfo(ctx, "Document modification refused",
				slog.String("document_id", doc.DocumentID),
				slog.String("action", string(action)),
				slog.String("reason", string(modErr.Reason)))
		}
		return nil, err
	}

	module, _ := s.moduleFor(doc.Kind)
	now := s.Now()
	target := domain.DocumentReversed
	if action == domain.ActionDelete {
		target = domain.DocumentDeleted
	}

	if doc.Status == domain.DocumentDraft {
		if err := s.docRepo.DeleteDraft(ctx, doc.DocumentID, actor.ID, now); err != nil {
			return nil, err
		}
		doc.Status = domain.DocumentDeleted
		s.recordVoid(ctx, actor, module, *doc, nil, req.Reason)
		return &dto.DocumentPostingResponse{Document: *doc}, nil
	}

	if doc.JournalEntryID == nil {
		return nil, apperrors.NewModificationForbidden(apperrors.ReasonInvalidState,
			fmt.Sprintf("cannot %s: document %s has no ledger entry", action, doc.DocumentNumber))
	}
	markVoided := func(ctx context.Context, tx pgx.Tx, entry *domain.JournalEntry) error {
		return s.docRepo.MarkVoidedInTx(ctx, tx, doc.DocumentID, entry.EntryID, target, actor.ID, now)
	}
	reversal, err := s.journal.Reverse(ctx, actor, *doc.JournalEntryID, dto.ReverseJournalEntryRequest{
		ReversalDate: req.ReversalDate,
		Reason:       req.Reason,
		DocumentID:   doc.DocumentID,
	}, markVoided)
	if err != nil {
		return nil, err
	}

	doc.Status = target
	doc.ReversalEntryID = &reversal.EntryID
	doc.LastUpdatedAt = now
	doc.LastUpdatedBy = actor.ID
	s.recordVoid(ctx, actor, module, *doc, reversal, req.Reason)
	return &dto.DocumentPostingResponse{Document: *doc, Entry: reversal}, nil
}

func (s *documentService) recordVoid(ctx context.Context, actor domain.Actor, module string, doc domain.FinancialDocument, reversal *domain.JournalEntry, reason string) {
	metadata := map[string]any{"document_id": doc.DocumentID, "reason": reason}
	if reversal != nil {
		metadata["reversal_entry_id"] = reversal.EntryID
		metadata["reversal_voucher"] = reversal.VoucherNumber
	}
	s.RecordAudit(ctx, &actor, portssvc.AuditEvent{
		Action:      "document." + strings.ToLower(string(doc.Status)),
		Module:      module,
		Description: fmt.Sprintf("%s %s %s", strings.ToLower(string(doc.Status)), strings.ToLower(string(doc.Kind)), doc.DocumentNumber),
		Metadata:    metadata,
	})
}

func documentLabel(kind domain.DocumentKind) string {
	switch kind {
	case domain.Invoice:
		return "Invoice"
	case domain.Purchase:
		return "Purchase"
	default:
		return "Journal voucher"
	}
}

// BuildDocumentLines turns a posting request into balanced journal lines.
//
// Journal vouchers carry their lines. An invoice debits the counter account
// (receivable or cash) with the gross amount and credits the net lines and the
// output tax. A purchase debits the net lines and the input tax and credits the
// counter account (payable or cash). Tax comes from the request's tax lines when
// the tax engine is enabled; otherwise one legacy VAT line is computed at vat_rate.
func BuildDocumentLines(doc domain.FinancialDocument, req dto.PostDocumentRequest, settings config.AccountingSettings) ([]dto.JournalLineRequest, error) {
	if doc.Kind == domain.JournalVoucher {
		if len(req.Lines) < domain.MinEntryLines {
			return nil, apperrors.NewValidationError("a journal voucher needs at least two lines")
		}
		return req.Lines, nil
	}

	if req.CounterAccountCode == "" {
		return nil, apperrors.NewValidationError("counterAccountCode is required")
	}
	if len(req.NetLines) == 0 {
		return nil, apperrors.NewValidationError("at least one net line is required")
	}

	taxAccount := settings.Tax.OutputVATAccount
	if doc.Kind == domain.Purchase {
		taxAccount = settings.Tax.InputVATAccount
	}

	net := decimal.Zero
	for _, l := range req.NetLines {
		net = net.Add(l.Amount)
	}

	type taxLine struct {
		account string
		amount  decimal.Decimal
		label   string
	}
	var taxes []taxLine
	if settings.Tax.UseTaxEngine {
		for _, t := range req.TaxLines {
			if t.Amount.IsZero() {
				continue
			}
			account := taxAccount
			if t.AccountCode != "" {
				account = t.AccountCode
			}
			label := "Tax"
			if t.TaxCode != "" {
				label = "Tax " + t.TaxCode
			}
			taxes = append(taxes, taxLine{account: account, amount: t.Amount, label: label})
		}
	} else {
		vat := net.Mul(settings.VATRate).Round(settings.Currency.AmountPrecision)
		if !vat.IsZero() {
			taxes = append(taxes, taxLine{account: taxAccount, amount: vat, label: "VAT " + settings.VATRate.Shift(2).String() + "%"})
		}
	}

	gross := net
	for _, t := range taxes {
		gross = gross.Add(t.amount)
	}
	if doc.TotalAmount.IsPositive() && gross.Sub(doc.TotalAmount).Abs().GreaterThan(domain.BalanceTolerance) {
		return nil, apperrors.NewBusinessError(apperrors.ErrUnbalancedEntry,
			fmt.Sprintf("net plus tax %s does not match the document total %s", gross.String(), doc.TotalAmount.String()))
	}

	isInvoice := doc.Kind == domain.Invoice
	side := func(code string, amount decimal.Decimal, debit bool, description string) dto.JournalLineRequest {
		l := dto.JournalLineRequest{AccountCode: code, Debit: decimal.Zero, Credit: decimal.Zero, Description: description}
		if debit {
			l.Debit = amount
		} else {
			l.Credit = amount
		}
		return l
	}

	lines := make([]dto.JournalLineRequest, 0, len(req.NetLines)+len(taxes)+1)
	if isInvoice {
		lines = append(lines, side(req.CounterAccountCode, gross, true, doc.DocumentNumber))
	}
	for _, l := range req.NetLines {
		lines = append(lines, side(l.AccountCode, l.Amount, !isInvoice, l.Description))
	}
	for _, t := range taxes {
		lines = append(lines, side(t.account, t.amount, !isInvoice, t.label))
	}
	if !isInvoice {
		lines = append(lines, side(req.CounterAccountCode, gross, false, doc.DocumentNumber))
	}
	return lines, nil
}

// documentDateOrNow defaults a missing document date to today.
func documentDateOrNow(t time.Time, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
