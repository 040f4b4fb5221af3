package pgsql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for the chart of accounts.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

const selectAccountFields = `
	a.account_id, a.code, a.name, a.account_type, a.parent_code, a.description, a.is_active,
	EXISTS (SELECT 1 FROM accounts c WHERE c.parent_code = a.code) AS has_children,
	a.created_at, a.created_by, a.last_updated_at, a.last_updated_by
`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var acc domain.Account
	var parentCode, description sql.NullString
	err := row.Scan(
		&acc.AccountID,
		&acc.Code,
		&acc.Name,
		&acc.AccountType,
		&parentCode,
		&description,
		&acc.IsActive,
		&acc.HasChildren,
		&acc.CreatedAt,
		&acc.CreatedBy,
		&acc.LastUpdatedAt,
		&acc.LastUpdatedBy,
	)
	acc.ParentCode = parentCode.String
	acc.Description = description.String
	return acc, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// SaveAccount inserts a new account. A duplicate code maps to ErrDuplicate.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (account_id, code, name, account_type, parent_code, description, is_active,
		                      created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.Pool.Exec(ctx, query,
		account.AccountID,
		account.Code,
		account.Name,
		account.AccountType,
		nullString(account.ParentCode),
		nullString(account.Description),
		account.IsActive,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("failed to save account %s", account.Code))
	}
	return nil
}

// FindAccountByCode retrieves an account by its code.
func (r *PgxAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	query := `SELECT ` + selectAccountFields + ` FROM accounts a WHERE a.code = $1;`
	acc, err := scanAccount(r.Pool.QueryRow(ctx, query, code))
	if err != nil {
		return nil, mapPgError(err, "account "+code+" not found")
	}
	return &acc, nil
}

// FindAccountsByCodes retrieves several accounts in one round trip.
func (r *PgxAccountRepository) FindAccountsByCodes(ctx context.Context, codes []string) (map[string]domain.Account, error) {
	out := make(map[string]domain.Account, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	query := `SELECT ` + selectAccountFields + ` FROM accounts a WHERE a.code = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, codes)
	if err != nil {
		return nil, mapPgError(err, "failed to query accounts by code")
	}
	defer rows.Close()

	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan account row")
		}
		out[acc.Code] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "error iterating account rows")
	}
	return out, nil
}

// ListAccounts retrieves the chart of accounts ordered by code.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context, includeInactive bool) ([]domain.Account, error) {
	query := `SELECT ` + selectAccountFields + ` FROM accounts a WHERE ($1 OR a.is_active) ORDER BY a.code;`
	rows, err := r.Pool.Query(ctx, query, includeInactive)
	if err != nil {
		return nil, mapPgError(err, "failed to list accounts")
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan account row")
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "error iterating account rows")
	}
	return accounts, nil
}

// DeactivateAccount flags an account inactive. Posted lines keep referencing it.
func (r *PgxAccountRepository) DeactivateAccount(ctx context.Context, code string, userID string, now time.Time) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, last_updated_at = $2, last_updated_by = $3
		WHERE code = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, code, now, userID)
	if err != nil {
		return mapPgError(err, "failed to deactivate account "+code)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("account " + code + " not found")
	}
	return nil
}

const activityColumns = `
	a.account_id, a.code, a.name, a.account_type,
	COALESCE(SUM(l.debit), 0) AS debits, COALESCE(SUM(l.credit), 0) AS credits
`

func scanActivity(row pgx.Row) (domain.AccountActivity, error) {
	var a domain.AccountActivity
	err := row.Scan(&a.AccountID, &a.AccountCode, &a.AccountName, &a.AccountType, &a.Debits, &a.Credits)
	return a, err
}

// AccountActivity sums the lines posted to one account up to and including asOf.
func (r *PgxAccountRepository) AccountActivity(ctx context.Context, code string, asOf time.Time) (*domain.AccountActivity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM accounts a
		LEFT JOIN (
			journal_entry_lines l JOIN journal_entries e ON e.entry_id = l.entry_id AND e.entry_date <= $2
		) ON l.account_id = a.account_id
		WHERE a.code = $1
		GROUP BY a.account_id, a.code, a.name, a.account_type;
	`
	activity, err := scanActivity(r.Pool.QueryRow(ctx, query, code, domain.DateOnly(asOf)))
	if err != nil {
		return nil, mapPgError(err, "account "+code+" not found")
	}
	return &activity, nil
}

// ListAccountActivity sums the lines of every account up to and including asOf.
func (r *PgxAccountRepository) ListAccountActivity(ctx context.Context, asOf time.Time) ([]domain.AccountActivity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM accounts a
		LEFT JOIN (
			journal_entry_lines l JOIN journal_entries e ON e.entry_id = l.entry_id AND e.entry_date <= $1
		) ON l.account_id = a.account_id
		GROUP BY a.account_id, a.code, a.name, a.account_type
		ORDER BY a.code;
	`
	return collectActivity(ctx, r.Pool, query, domain.DateOnly(asOf))
}

// periodActivity sums the revenue and expense lines dated inside a period.
func periodActivity(ctx context.Context, db DBTX, period domain.FiscalPeriod) ([]domain.AccountActivity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM accounts a
		JOIN journal_entry_lines l ON l.account_id = a.account_id
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE e.entry_date BETWEEN $1 AND $2
		  AND a.account_type IN ('REVENUE', 'EXPENSE')
		GROUP BY a.account_id, a.code, a.name, a.account_type
		ORDER BY a.code;
	`
	return collectActivity(ctx, db, query, domain.DateOnly(period.StartDate), domain.DateOnly(period.EndDate))
}

func collectActivity(ctx context.Context, db DBTX, query string, args ...any) ([]domain.AccountActivity, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "failed to query account activity")
	}
	defer rows.Close()

	activity := []domain.AccountActivity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan account activity row")
		}
		activity = append(activity, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "error iterating account activity rows")
	}
	return activity, nil
}

// ListForeignCurrencyBalances returns, per account, the position held in currency and
// its carrying amount in the ledger currency. Earlier revaluations of the same
// currency count towards the carrying amount only. Only ASSET and LIABILITY accounts
// are returned; income and expense are kept at their historical rate.
func (r *PgxAccountRepository) ListForeignCurrencyBalances(ctx context.Context, currency string, asOf time.Time) ([]domain.ForeignCurrencyBalance, error) {
	query := `
		WITH scoped AS (
			SELECT l.account_id, l.debit, l.credit, l.original_debit, l.original_credit,
			       (e.transaction_currency = $1 AND e.ledger_currency <> e.transaction_currency) AS is_foreign
			FROM journal_entry_lines l
			JOIN journal_entries e ON e.entry_id = l.entry_id
			WHERE e.entry_date <= $2
			  AND (
			    (e.transaction_currency = $1 AND e.ledger_currency <> e.transaction_currency)
			    OR (e.reference_type = $3 AND e.reference_id LIKE $1 || ':%')
			  )
		)
		SELECT a.account_id, a.code, a.account_type,
		       COALESCE(SUM(s.original_debit - s.original_credit) FILTER (WHERE s.is_foreign), 0) AS foreign_amount,
		       COALESCE(SUM(s.debit - s.credit), 0) AS carrying_amount
		FROM scoped s
		JOIN accounts a ON a.account_id = s.account_id
		WHERE a.account_type IN ($4, $5)
		GROUP BY a.account_id, a.code, a.account_type
		HAVING bool_or(s.is_foreign)
		ORDER BY a.code;
	`
	rows, err := r.Pool.Query(ctx, query, currency, domain.DateOnly(asOf), domain.ReferenceRevaluation, domain.Asset, domain.Liability)
	if err != nil {
		return nil, mapPgError(err, "failed to query foreign currency balances for "+currency)
	}
	defer rows.Close()

	balances := []domain.ForeignCurrencyBalance{}
	for rows.Next() {
		b := domain.ForeignCurrencyBalance{Currency: currency}
		if err := rows.Scan(&b.AccountID, &b.AccountCode, &b.AccountType, &b.ForeignAmount, &b.CarryingAmount); err != nil {
			return nil, mapPgError(err, "failed to scan foreign currency balance row")
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "error iterating foreign currency balance rows")
	}
	return balances, nil
}
