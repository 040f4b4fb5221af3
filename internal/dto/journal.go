package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// JournalLineRequest is one line of a posting request, in the transaction currency.
type JournalLineRequest struct {
	AccountCode string          `json:"accountCode" binding:"required,max=32"`
	Debit       decimal.Decimal `json:"debit" binding:"dgte0"`
	Credit      decimal.Decimal `json:"credit" binding:"dgte0"`
	Description string          `json:"description,omitempty"`
}

// PostJournalEntryRequest asks the posting engine to record a balanced entry.
type PostJournalEntryRequest struct {
	EntryDate   time.Time `json:"entryDate" binding:"required"`
	Description string    `json:"description" binding:"required,max=500"`
	// CurrencyCode is the transaction currency; empty means the reference currency.
	CurrencyCode string `json:"currencyCode,omitempty" binding:"omitempty,iso4217"`
	// ConvertToReference requests conversion even where the policy defers it.
	ConvertToReference bool `json:"convertToReference,omitempty"`
	// ExemptFromConversion keeps the amounts unconverted regardless of policy.
	ExemptFromConversion bool                 `json:"exemptFromConversion,omitempty"`
	// VoucherNumber overrides the generated number, as journal vouchers carry their own.
	VoucherNumber        string               `json:"voucherNumber,omitempty" binding:"omitempty,max=64"`
	ReferenceType        string               `json:"referenceType,omitempty" binding:"omitempty,max=64"`
	ReferenceID          string               `json:"referenceID,omitempty" binding:"omitempty,max=64"`
	Lines                []JournalLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// ReverseJournalEntryRequest asks for a compensating entry.
type ReverseJournalEntryRequest struct {
	// ReversalDate defaults to the original entry date.
	ReversalDate *time.Time `json:"reversalDate,omitempty"`
	Reason       string     `json:"reason,omitempty" binding:"omitempty,max=500"`
	// DocumentID is set by the document workflow when it voids the document that
	// owns the entry. It is never bound from a request body.
	DocumentID string `json:"-"`
}

// JournalEntryResponse is a journal entry with its lines.
type JournalEntryResponse struct {
	domain.JournalEntry
	Lines []domain.JournalEntryLine `json:"lines"`
}

// ListJournalEntriesParams are the query parameters of the listing endpoint.
type ListJournalEntriesParams struct {
	Limit         int     `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	NextToken     *string `form:"nextToken"`
	ReferenceType string  `form:"referenceType"`
	ReferenceID   string  `form:"referenceID"`
}

// ListJournalEntriesResponse is one page of journal entries.
type ListJournalEntriesResponse struct {
	Entries   []domain.JournalEntry `json:"entries"`
	NextToken *string               `json:"nextToken,omitempty"`
}
