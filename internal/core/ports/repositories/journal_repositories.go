package repositories

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// PostingBundle is a validated journal entry with its lines, ready to persist.
type PostingBundle struct {
	Entry         domain.JournalEntry
	Lines         []domain.JournalEntryLine
	Conversion    *domain.ConversionContext
	VoucherPrefix string
}

// ListEntriesParams filters a page of journal entries.
type ListEntriesParams struct {
	PageParams
	ReferenceType string
	ReferenceID   string
}

// JournalReader defines read operations for journal entries.
type JournalReader interface {
	// FindEntryByID retrieves a journal entry header.
	FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// FindLinesByEntryID retrieves the lines of an entry ordered by line number.
	FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalEntryLine, error)

	// ListEntries lists entries newest first using cursor pagination.
	ListEntries(ctx context.Context, params ListEntriesParams) ([]domain.JournalEntry, *string, error)

	// ExistsByVoucherNumber reports whether any entry carries the voucher number.
	ExistsByVoucherNumber(ctx context.Context, voucherNumber string) (bool, error)
}

// JournalWriter persists postings. Header and lines are written in one database
// transaction; the target period is re-checked under FOR SHARE inside it.
type JournalWriter interface {
	// SaveEntry allocates the voucher number and inserts header and lines atomically.
	// hooks run in the same transaction after the insert.
	SaveEntry(ctx context.Context, bundle PostingBundle, hooks ...TxHook) (*domain.JournalEntry, error)

	// SaveReversal inserts the compensating entry and marks the original REVERSED atomically.
	SaveReversal(ctx context.Context, originalID string, bundle PostingBundle, hooks ...TxHook) (*domain.JournalEntry, error)
}

// JournalRepositoryFacade combines all journal-related repository interfaces.
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
}
