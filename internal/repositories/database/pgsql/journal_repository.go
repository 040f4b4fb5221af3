package pgsql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/erp_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxJournalRepository struct {
	BaseRepository
}

// newPgxJournalRepository creates a new repository for journal entries and their lines.
func newPgxJournalRepository(pool *pgxpool.Pool, maxRetries int) *PgxJournalRepository {
	return &PgxJournalRepository{BaseRepository: BaseRepository{Pool: pool, MaxRetries: maxRetries}}
}

// Ensure PgxJournalRepository implements portsrepo.JournalRepositoryFacade
var _ portsrepo.JournalRepositoryFacade = (*PgxJournalRepository)(nil)

const selectEntryFields = `
	entry_id, voucher_number, entry_date, description, period_id, status,
	reference_type, reference_id, transaction_currency, ledger_currency, exchange_rate,
	conversion_decision, reversal_of_id, reversed_by_id, total_debit,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanEntry(row pgx.Row) (domain.JournalEntry, error) {
	var e domain.JournalEntry
	var refType, refID sql.NullString
	var rate decimal.NullDecimal
	err := row.Scan(
		&e.EntryID,
		&e.VoucherNumber,
		&e.EntryDate,
		&e.Description,
		&e.PeriodID,
		&e.Status,
		&refType,
		&refID,
		&e.TransactionCurrency,
		&e.LedgerCurrency,
		&rate,
		&e.ConversionDecision,
		&e.ReversalOfID,
		&e.ReversedByID,
		&e.TotalDebit,
		&e.CreatedAt,
		&e.CreatedBy,
		&e.LastUpdatedAt,
		&e.LastUpdatedBy,
	)
	e.ReferenceType = refType.String
	e.ReferenceID = refID.String
	if rate.Valid {
		e.ExchangeRate = &rate.Decimal
	}
	return e, err
}

// SaveEntry writes a posting atomically. Transient faults retry the whole transaction,
// including the voucher allocation.
func (r *PgxJournalRepository) SaveEntry(ctx context.Context, bundle portsrepo.PostingBundle, hooks ...portsrepo.TxHook) (*domain.JournalEntry, error) {
	var saved *domain.JournalEntry
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if err := recheckPeriod(ctx, tx, bundle.Entry.PeriodID); err != nil {
				return err
			}
			entry, err := r.insertEntry(ctx, tx, bundle)
			if err != nil {
				return err
			}
			if err := runHooks(ctx, tx, entry, hooks); err != nil {
				return err
			}
			saved = entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SaveReversal writes the compensating entry and flags the original REVERSED in one
// transaction. Both periods are re-checked under FOR SHARE.
func (r *PgxJournalRepository) SaveReversal(ctx context.Context, originalID string, bundle portsrepo.PostingBundle, hooks ...portsrepo.TxHook) (*domain.JournalEntry, error) {
	var saved *domain.JournalEntry
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			original, err := scanEntry(tx.QueryRow(ctx,
				`SELECT `+selectEntryFields+` FROM journal_entries WHERE entry_id = $1 FOR UPDATE;`, originalID))
			if err != nil {
				return mapPgError(err, "journal entry "+originalID+" not found")
			}
			if original.Status == domain.Reversed || original.ReversedByID != nil {
				return apperrors.NewBusinessError(apperrors.ErrBusinessLogic,
					fmt.Sprintf("journal entry %s is already reversed", original.VoucherNumber))
			}
			if original.IsReversal() {
				return apperrors.NewBusinessError(apperrors.ErrBusinessLogic,
					fmt.Sprintf("journal entry %s is itself a reversal and cannot be reversed", original.VoucherNumber))
			}
			if err := recheckPeriod(ctx, tx, original.PeriodID); err != nil {
				return err
			}
			if bundle.Entry.PeriodID != original.PeriodID {
				if err := recheckPeriod(ctx, tx, bundle.Entry.PeriodID); err != nil {
					return err
				}
			}

			bundle.Entry.ReversalOfID = &original.EntryID
			entry, err := r.insertEntry(ctx, tx, bundle)
			if err != nil {
				return err
			}

			_, err = tx.Exec(ctx, `
				UPDATE journal_entries
				SET status = $2, reversed_by_id = $3, last_updated_at = $4, last_updated_by = $5
				WHERE entry_id = $1;
			`, original.EntryID, domain.Reversed, entry.EntryID, entry.CreatedAt, entry.CreatedBy)
			if err != nil {
				return mapPgError(err, "failed to mark journal entry "+original.VoucherNumber+" reversed")
			}

			if err := runHooks(ctx, tx, entry, hooks); err != nil {
				return err
			}
			saved = entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// recheckPeriod holds a FOR SHARE lock on the period row for the rest of the
// transaction, so a concurrent close or lock waits for this posting to commit.
func recheckPeriod(ctx context.Context, tx pgx.Tx, periodID string) error {
	period, err := lockPeriod(ctx, tx, periodID, "FOR SHARE")
	if err != nil {
		return err
	}
	return period.PostingError()
}

func runHooks(ctx context.Context, tx pgx.Tx, entry *domain.JournalEntry, hooks []portsrepo.TxHook) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, tx, entry); err != nil {
			return err
		}
	}
	return nil
}

// nextVoucherNumber increments the sequence row of prefix under FOR UPDATE.
func nextVoucherNumber(ctx context.Context, tx pgx.Tx, prefix string) (string, error) {
	if _, err := tx.Exec(ctx,
		`INSERT INTO document_sequences (prefix, last_number) VALUES ($1, 0) ON CONFLICT (prefix) DO NOTHING;`, prefix); err != nil {
		return "", mapPgError(err, "failed to initialise voucher sequence "+prefix)
	}

	var last int64
	if err := tx.QueryRow(ctx,
		`SELECT last_number FROM document_sequences WHERE prefix = $1 FOR UPDATE;`, prefix).Scan(&last); err != nil {
		return "", mapPgError(err, "failed to lock voucher sequence "+prefix)
	}
	next := last + 1
	if _, err := tx.Exec(ctx,
		`UPDATE document_sequences SET last_number = $2 WHERE prefix = $1;`, prefix, next); err != nil {
		return "", mapPgError(err, "failed to advance voucher sequence "+prefix)
	}
	return FormatVoucherNumber(prefix, next), nil
}

// FormatVoucherNumber renders a sequence value as PREFIX-000001.
func FormatVoucherNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

// insertEntry allocates the voucher number unless one was supplied, then inserts the
// header and a batch of lines inside tx.
func (r *PgxJournalRepository) insertEntry(ctx context.Context, tx pgx.Tx, bundle portsrepo.PostingBundle) (*domain.JournalEntry, error) {
	entry := bundle.Entry
	if entry.VoucherNumber == "" {
		prefix := bundle.VoucherPrefix
		if prefix == "" {
			prefix = "VOU"
		}
		number, err := nextVoucherNumber(ctx, tx, prefix)
		if err != nil {
			return nil, err
		}
		entry.VoucherNumber = number
	}

	var rate decimal.NullDecimal
	if entry.ExchangeRate != nil {
		rate = decimal.NullDecimal{Decimal: *entry.ExchangeRate, Valid: true}
	}
	headerQuery := `
		INSERT INTO journal_entries (
			entry_id, voucher_number, entry_date, description, period_id, status,
			reference_type, reference_id, transaction_currency, ledger_currency, exchange_rate,
			conversion_decision, conversion_context, reversal_of_id, total_debit,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	_, err := tx.Exec(ctx, headerQuery,
		entry.EntryID,
		entry.VoucherNumber,
		domain.DateOnly(entry.EntryDate),
		entry.Description,
		entry.PeriodID,
		entry.Status,
		nullString(entry.ReferenceType),
		nullString(entry.ReferenceID),
		entry.TransactionCurrency,
		entry.LedgerCurrency,
		rate,
		entry.ConversionDecision,
		bundle.Conversion,
		entry.ReversalOfID,
		entry.TotalDebit,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return nil, mapPgError(err, "failed to insert journal entry "+entry.VoucherNumber)
	}

	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO journal_entry_lines (
			line_id, entry_id, line_number, account_id, account_code, description,
			debit, credit, original_debit, original_credit, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	for _, l := range bundle.Lines {
		batch.Queue(lineQuery,
			l.LineID,
			entry.EntryID,
			l.LineNumber,
			l.AccountID,
			l.AccountCode,
			nullString(l.Description),
			l.Debit,
			l.Credit,
			l.OriginalDebit,
			l.OriginalCredit,
			l.CreatedAt,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range bundle.Lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return nil, mapPgError(err, "failed to insert journal line "+strconv.Itoa(bundle.Lines[i].LineNumber))
		}
	}
	if err := br.Close(); err != nil {
		return nil, mapPgError(err, "failed to close journal line batch")
	}

	return &entry, nil
}

// FindEntryByID retrieves a journal entry header.
func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	e, err := scanEntry(r.Pool.QueryRow(ctx, `SELECT `+selectEntryFields+` FROM journal_entries WHERE entry_id = $1;`, entryID))
	if err != nil {
		return nil, mapPgError(err, "journal entry "+entryID+" not found")
	}
	return &e, nil
}

// FindLinesByEntryID retrieves the lines of an entry ordered by line number.
func (r *PgxJournalRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalEntryLine, error) {
	query := `
		SELECT line_id, entry_id, line_number, account_id, account_code, description,
		       debit, credit, original_debit, original_credit, created_at
		FROM journal_entry_lines
		WHERE entry_id = $1
		ORDER BY line_number;
	`
	rows, err := r.Pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, mapPgError(err, "failed to query lines for journal entry "+entryID)
	}
	defer rows.Close()

	lines := []domain.JournalEntryLine{}
	for rows.Next() {
		var l domain.JournalEntryLine
		var description sql.NullString
		err := rows.Scan(
			&l.LineID,
			&l.EntryID,
			&l.LineNumber,
			&l.AccountID,
			&l.AccountCode,
			&description,
			&l.Debit,
			&l.Credit,
			&l.OriginalDebit,
			&l.OriginalCredit,
			&l.CreatedAt,
		)
		if err != nil {
			return nil, mapPgError(err, "failed to scan journal line for entry "+entryID)
		}
		l.Description = description.String
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "error iterating journal lines for entry "+entryID)
	}
	return lines, nil
}

// ListEntries retrieves a page of entries ordered by entry date, creation time and id,
// newest first. The token points at the last entry of the previous page.
func (r *PgxJournalRepository) ListEntries(ctx context.Context, params portsrepo.ListEntriesParams) ([]domain.JournalEntry, *string, error) {
	limit := pagination.Limit(params.Limit, 20, 200)
	// one extra row tells whether another page exists
	fetchLimit := limit + 1

	query := `SELECT ` + selectEntryFields + ` FROM journal_entries WHERE TRUE`
	args := []any{}
	if params.ReferenceType != "" {
		args = append(args, params.ReferenceType)
		query += ` AND reference_type = $` + strconv.Itoa(len(args))
	}
	if params.ReferenceID != "" {
		args = append(args, params.ReferenceID)
		query += ` AND reference_id = $` + strconv.Itoa(len(args))
	}
	if params.NextToken != nil && *params.NextToken != "" {
		cursor, err := pagination.DecodeCursor(*params.NextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", apperrors.ErrValidation)
		}
		args = append(args, cursor.At, cursor.CreatedAt, cursor.ID)
		n := len(args)
		query += fmt.Sprintf(` AND (entry_date, created_at, entry_id) < ($%d, $%d, $%d)`, n-2, n-1, n)
	}
	args = append(args, fetchLimit)
	query += ` ORDER BY entry_date DESC, created_at DESC, entry_id DESC LIMIT $` + strconv.Itoa(len(args)) + `;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapPgError(err, "failed to list journal entries")
	}
	defer rows.Close()

	entries := make([]domain.JournalEntry, 0, fetchLimit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, nil, mapPgError(err, "failed to scan journal entry row")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapPgError(err, "error iterating journal entry rows")
	}

	var nextToken *string
	if len(entries) > limit {
		last := entries[limit-1]
		token := pagination.EncodeCursor(pagination.Cursor{At: last.EntryDate, CreatedAt: last.CreatedAt, ID: last.EntryID})
		nextToken = &token
		entries = entries[:limit]
	}
	return entries, nextToken, nil
}

// ExistsByVoucherNumber reports whether any entry carries the voucher number.
func (r *PgxJournalRepository) ExistsByVoucherNumber(ctx context.Context, voucherNumber string) (bool, error) {
	var exists bool
	err := r.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM journal_entries WHERE voucher_number = $1);`, voucherNumber).Scan(&exists)
	if err != nil {
		return false, mapPgError(err, "failed to check voucher number "+voucherNumber)
	}
	return exists, nil
}
