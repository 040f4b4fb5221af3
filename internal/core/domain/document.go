package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind is the kind of business document that produces ledger postings.
type DocumentKind string

const (
	Invoice        DocumentKind = "INVOICE"
	Purchase       DocumentKind = "PURCHASE"
	JournalVoucher DocumentKind = "JOURNAL_VOUCHER"
)

// IsValid reports whether k is a known document kind.
func (k DocumentKind) IsValid() bool {
	switch k {
	case Invoice, Purchase, JournalVoucher:
		return true
	}
	return false
}

// DocumentStatus is the lifecycle state Draft -> Posted -> {Reversed | Deleted}.
type DocumentStatus string

const (
	DocumentDraft    DocumentStatus = "DRAFT"
	DocumentPosted   DocumentStatus = "POSTED"
	DocumentReversed DocumentStatus = "REVERSED"
	DocumentDeleted  DocumentStatus = "DELETED"
)

// IsTerminal reports whether no further transition is possible.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentReversed || s == DocumentDeleted
}

// DocumentAction is an action the reversal/void workflow authorizes.
type DocumentAction string

const (
	ActionReverse DocumentAction = "reverse"
	ActionDelete  DocumentAction = "delete"
	ActionPost    DocumentAction = "post"
)

// FinancialDocument is the ledger-side view of an invoice, purchase or journal voucher.
type FinancialDocument struct {
	DocumentID      string          `json:"documentID"`
	Kind            DocumentKind    `json:"kind"`
	DocumentNumber  string          `json:"documentNumber"`
	DocumentDate    time.Time       `json:"documentDate"`
	Status          DocumentStatus  `json:"status"`
	CurrencyCode    string          `json:"currencyCode"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	AmountPaid      decimal.Decimal `json:"amountPaid"`
	JournalEntryID  *string         `json:"journalEntryID,omitempty"`
	ReversalEntryID *string         `json:"reversalEntryID,omitempty"`
	Description     string          `json:"description,omitempty"`
	AuditFields
}

// HasPayments reports whether any payment has been applied.
func (d FinancialDocument) HasPayments() bool {
	return d.AmountPaid.GreaterThan(decimal.Zero)
}

// Outstanding is the unpaid remainder.
func (d FinancialDocument) Outstanding() decimal.Decimal {
	return d.TotalAmount.Sub(d.AmountPaid)
}
