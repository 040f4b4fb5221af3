package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateDocumentRequest registers a draft document with the ledger.
type CreateDocumentRequest struct {
	Kind           domain.DocumentKind `json:"kind" binding:"required,oneof=INVOICE PURCHASE JOURNAL_VOUCHER"`
	DocumentNumber string              `json:"documentNumber" binding:"required,max=64"`
	DocumentDate   time.Time           `json:"documentDate" binding:"required"`
	CurrencyCode   string              `json:"currencyCode,omitempty" binding:"omitempty,iso4217"`
	TotalAmount    decimal.Decimal     `json:"totalAmount" binding:"dgte0"`
	Description    string              `json:"description,omitempty" binding:"omitempty,max=500"`
}

// DocumentNetLine is a revenue (invoice) or expense (purchase) line before tax.
type DocumentNetLine struct {
	AccountCode string          `json:"accountCode" binding:"required,max=32"`
	Amount      decimal.Decimal `json:"amount" binding:"required,dgt0"`
	Description string          `json:"description,omitempty"`
}

// DocumentTaxLine is a tax amount computed by the tax engine.
type DocumentTaxLine struct {
	TaxCode string          `json:"taxCode,omitempty"`
	Amount  decimal.Decimal `json:"amount" binding:"required,dgte0"`
	// AccountCode overrides the configured VAT account.
	AccountCode string `json:"accountCode,omitempty" binding:"omitempty,max=32"`
}

// PostDocumentRequest carries what the ledger needs to post a document.
// Journal vouchers provide explicit Lines. Invoices and purchases provide the
// counter account (receivable, cash or payable), net lines and, when the tax
// engine is enabled, tax lines.
type PostDocumentRequest struct {
	Lines              []JournalLineRequest `json:"lines,omitempty" binding:"omitempty,dive"`
	CounterAccountCode string               `json:"counterAccountCode,omitempty" binding:"omitempty,max=32"`
	NetLines           []DocumentNetLine    `json:"netLines,omitempty" binding:"omitempty,dive"`
	TaxLines           []DocumentTaxLine    `json:"taxLines,omitempty" binding:"omitempty,dive"`
}

// ApplyPaymentRequest records a payment against a posted document.
type ApplyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required,dgt0"`
}

// VoidDocumentRequest is the body of reverse and delete calls.
type VoidDocumentRequest struct {
	Reason       string     `json:"reason,omitempty" binding:"omitempty,max=500"`
	ReversalDate *time.Time `json:"reversalDate,omitempty"`
}

// DocumentPostingResponse is a posted document with its ledger entry.
type DocumentPostingResponse struct {
	Document domain.FinancialDocument `json:"document"`
	Entry    *domain.JournalEntry     `json:"entry,omitempty"`
}
