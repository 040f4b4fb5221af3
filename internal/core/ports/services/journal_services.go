package services

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/erp_ledger/internal/dto"
)

// JournalPostingSvc is the journal posting engine.
type JournalPostingSvc interface {
	// Post validates and atomically persists a balanced entry. hooks run inside the
	// posting transaction, letting callers commit dependent state with the entry.
	Post(ctx context.Context, actor domain.Actor, req dto.PostJournalEntryRequest, hooks ...portsrepo.TxHook) (*domain.JournalEntry, error)

	// Reverse posts a compensating entry with debit and credit swapped and marks the original REVERSED.
	Reverse(ctx context.Context, actor domain.Actor, entryID string, req dto.ReverseJournalEntryRequest, hooks ...portsrepo.TxHook) (*domain.JournalEntry, error)
}

// JournalReaderSvc defines read operations for journal entries.
type JournalReaderSvc interface {
	GetEntry(ctx context.Context, entryID string) (*dto.JournalEntryResponse, error)
	ListEntries(ctx context.Context, params dto.ListJournalEntriesParams) (*dto.ListJournalEntriesResponse, error)
	VoucherNumberInUse(ctx context.Context, voucherNumber string) (bool, error)
}

// JournalSvcFacade combines all journal-related service interfaces.
type JournalSvcFacade interface {
	JournalPostingSvc
	JournalReaderSvc
}
