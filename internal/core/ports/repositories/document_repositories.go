package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DocumentReader defines read operations for financial documents.
type DocumentReader interface {
	FindDocumentByID(ctx context.Context, documentID string) (*domain.FinancialDocument, error)
}

// DocumentWriter defines standalone document writes.
type DocumentWriter interface {
	// SaveDocument persists a new draft document.
	SaveDocument(ctx context.Context, doc domain.FinancialDocument) error

	// ApplyPayment adds amount to amount_paid of a posted document without exceeding its total.
	ApplyPayment(ctx context.Context, documentID string, amount decimal.Decimal, actorID string, at time.Time) (*domain.FinancialDocument, error)

	// DeleteDraft marks an unpaid draft as DELETED.
	DeleteDraft(ctx context.Context, documentID string, actorID string, at time.Time) error
}

// DocumentTransactionSupport defines status transitions that must commit together with a posting.
// Each transition is conditional on the expected current state; a mismatch returns
// a ModificationForbiddenError naming the violated invariant.
type DocumentTransactionSupport interface {
	// MarkPostedInTx moves a DRAFT document to POSTED and links its journal entry.
	MarkPostedInTx(ctx context.Context, tx pgx.Tx, documentID, entryID, actorID string, at time.Time) error

	// MarkVoidedInTx moves an unpaid POSTED document to target (REVERSED or DELETED) and links the reversal entry.
	MarkVoidedInTx(ctx context.Context, tx pgx.Tx, documentID, reversalEntryID string, target domain.DocumentStatus, actorID string, at time.Time) error
}

// DocumentRepositoryFacade combines all document repository interfaces.
type DocumentRepositoryFacade interface {
	DocumentReader
	DocumentWriter
	DocumentTransactionSupport
}
