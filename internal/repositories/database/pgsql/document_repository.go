package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxDocumentRepository struct {
	BaseRepository
}

func newPgxDocumentRepository(pool *pgxpool.Pool) *PgxDocumentRepository {
	return &PgxDocumentRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.DocumentRepositoryFacade = (*PgxDocumentRepository)(nil)

const selectDocumentFields = `
	document_id, kind, document_number, document_date, status, currency_code,
	total_amount, amount_paid, journal_entry_id, reversal_entry_id, description,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanDocument(row pgx.Row) (domain.FinancialDocument, error) {
	var d domain.FinancialDocument
	var description sql.NullString
	err := row.Scan(
		&d.DocumentID,
		&d.Kind,
		&d.DocumentNumber,
		&d.DocumentDate,
		&d.Status,
		&d.CurrencyCode,
		&d.TotalAmount,
		&d.AmountPaid,
		&d.JournalEntryID,
		&d.ReversalEntryID,
		&description,
		&d.CreatedAt,
		&d.CreatedBy,
		&d.LastUpdatedAt,
		&d.LastUpdatedBy,
	)
	d.Description = description.String
	return d, err
}

func (r *PgxDocumentRepository) FindDocumentByID(ctx context.Context, documentID string) (*domain.FinancialDocument, error) {
	d, err := scanDocument(r.Pool.QueryRow(ctx, `SELECT `+selectDocumentFields+` FROM financial_documents WHERE document_id = $1;`, documentID))
	if err != nil {
		return nil, mapPgError(err, "document "+documentID+" not found")
	}
	return &d, nil
}

// SaveDocument inserts a draft. Numbers are unique per kind.
func (r *PgxDocumentRepository) SaveDocument(ctx context.Context, doc domain.FinancialDocument) error {
	query := `
		INSERT INTO financial_documents (document_id, kind, document_number, document_date, status, currency_code,
		                                 total_amount, amount_paid, description,
		                                 created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		doc.DocumentID,
		doc.Kind,
		doc.DocumentNumber,
		domain.DateOnly(doc.DocumentDate),
		doc.Status,
		doc.CurrencyCode,
		doc.TotalAmount,
		doc.AmountPaid,
		nullString(doc.Description),
		doc.CreatedAt,
		doc.CreatedBy,
		doc.LastUpdatedAt,
		doc.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("failed to save %s %s", doc.Kind, doc.DocumentNumber))
	}
	return nil
}

// ApplyPayment raises amount_paid in a single conditional update, so concurrent
// payments can never push it past the total.
func (r *PgxDocumentRepository) ApplyPayment(ctx context.Context, documentID string, amount decimal.Decimal, actorID string, at time.Time) (*domain.FinancialDocument, error) {
	query := `
		UPDATE financial_documents
		SET amount_paid = amount_paid + $2, last_updated_at = $3, last_updated_by = $4
		WHERE document_id = $1 AND status = 'POSTED' AND amount_paid + $2 <= total_amount
		RETURNING ` + selectDocumentFields + `;
	`
	d, err := scanDocument(r.Pool.QueryRow(ctx, query, documentID, amount, at, actorID))
	if err == nil {
		return &d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapPgError(err, "failed to apply payment to document "+documentID)
	}

	current, findErr := r.FindDocumentByID(ctx, documentID)
	if findErr != nil {
		return nil, findErr
	}
	if current.Status != domain.DocumentPosted {
		return nil, apperrors.NewBusinessError(apperrors.ErrBusinessLogic,
			fmt.Sprintf("payments can only be applied to posted documents; %s is %s", current.DocumentNumber, current.Status))
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("payment %s exceeds the outstanding %s",
		amount.String(), current.Outstanding().String()))
}

// DeleteDraft flags an unpaid draft DELETED.
func (r *PgxDocumentRepository) DeleteDraft(ctx context.Context, documentID string, actorID string, at time.Time) error {
	query := `
		UPDATE financial_documents
		SET status = 'DELETED', last_updated_at = $2, last_updated_by = $3
		WHERE document_id = $1 AND status = 'DRAFT' AND amount_paid = 0;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, documentID, at, actorID)
	if err != nil {
		return mapPgError(err, "failed to delete document "+documentID)
	}
	if cmdTag.RowsAffected() == 1 {
		return nil
	}
	current, err := r.FindDocumentByID(ctx, documentID)
	if err != nil {
		return err
	}
	return stateMismatch(*current, domain.DocumentDraft)
}

// MarkPostedInTx moves a DRAFT document to POSTED inside the posting transaction.
func (r *PgxDocumentRepository) MarkPostedInTx(ctx context.Context, tx pgx.Tx, documentID, entryID, actorID string, at time.Time) error {
	doc, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.DocumentDraft {
		return stateMismatch(doc, domain.DocumentDraft)
	}
	_, err = tx.Exec(ctx, `
		UPDATE financial_documents
		SET status = 'POSTED', journal_entry_id = $2, last_updated_at = $3, last_updated_by = $4
		WHERE document_id = $1;
	`, documentID, entryID, at, actorID)
	return mapPgError(err, "failed to mark document "+doc.DocumentNumber+" posted")
}

// MarkVoidedInTx moves a POSTED document to target inside the reversal transaction.
// amount_paid is re-read under the row lock; a payment that committed after the
// service check aborts the reversal.
func (r *PgxDocumentRepository) MarkVoidedInTx(ctx context.Context, tx pgx.Tx, documentID, reversalEntryID string, target domain.DocumentStatus, actorID string, at time.Time) error {
	if target != domain.DocumentReversed && target != domain.DocumentDeleted {
		return apperrors.NewValidationError("unsupported document target status " + string(target))
	}
	doc, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.DocumentPosted {
		return stateMismatch(doc, domain.DocumentPosted)
	}
	if doc.HasPayments() {
		return apperrors.NewModificationForbidden(apperrors.ReasonPaymentsApplied,
			fmt.Sprintf("document %s has %s in payments applied", doc.DocumentNumber, doc.AmountPaid.String()))
	}
	_, err = tx.Exec(ctx, `
		UPDATE financial_documents
		SET status = $2, reversal_entry_id = $3, last_updated_at = $4, last_updated_by = $5
		WHERE document_id = $1;
	`, documentID, target, reversalEntryID, at, actorID)
	return mapPgError(err, "failed to mark document "+doc.DocumentNumber+" "+string(target))
}

func lockDocument(ctx context.Context, tx pgx.Tx, documentID string) (domain.FinancialDocument, error) {
	d, err := scanDocument(tx.QueryRow(ctx,
		`SELECT `+selectDocumentFields+` FROM financial_documents WHERE document_id = $1 FOR UPDATE;`, documentID))
	if err != nil {
		return d, mapPgError(err, "document "+documentID+" not found")
	}
	return d, nil
}

func stateMismatch(doc domain.FinancialDocument, expected domain.DocumentStatus) error {
	if doc.HasPayments() && expected == domain.DocumentDraft {
		return apperrors.NewModificationForbidden(apperrors.ReasonPaymentsApplied,
			fmt.Sprintf("document %s has payments applied", doc.DocumentNumber))
	}
	return apperrors.NewModificationForbidden(apperrors.ReasonInvalidState,
		fmt.Sprintf("document %s is %s, expected %s", doc.DocumentNumber, doc.Status, expected))
}
