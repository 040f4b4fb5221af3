package pgsql

import (
	"context"
	"database/sql"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/erp_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxExchangeRateRepository struct {
	BaseRepository
}

// newPgxExchangeRateRepository creates a new repository for the rate history.
func newPgxExchangeRateRepository(pool *pgxpool.Pool) *PgxExchangeRateRepository {
	return &PgxExchangeRateRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*PgxExchangeRateRepository)(nil)

const selectRateFields = `
	rate_id, from_currency, to_currency, rate, source, effective_at, notes, created_by, created_at
`

func scanRate(row pgx.Row) (domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	var notes sql.NullString
	err := row.Scan(
		&rate.RateID,
		&rate.FromCurrency,
		&rate.ToCurrency,
		&rate.Rate,
		&rate.Source,
		&rate.EffectiveAt,
		&notes,
		&rate.CreatedBy,
		&rate.CreatedAt,
	)
	rate.Notes = notes.String
	return rate, err
}

// AppendRate inserts a rate. The history is append-only: an existing record for the
// same pair and instant is left untouched.
func (r *PgxExchangeRateRepository) AppendRate(ctx context.Context, rate domain.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (rate_id, from_currency, to_currency, rate, source, effective_at, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (from_currency, to_currency, effective_at) DO NOTHING;
	`
	_, err := r.Pool.Exec(ctx, query,
		rate.RateID,
		rate.FromCurrency,
		rate.ToCurrency,
		rate.Rate,
		rate.Source,
		rate.EffectiveAt,
		nullString(rate.Notes),
		rate.CreatedBy,
		rate.CreatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to record exchange rate "+rate.FromCurrency+"/"+rate.ToCurrency)
	}
	return nil
}

// FindRateOnOrBefore returns the latest rate effective at or before at.
func (r *PgxExchangeRateRepository) FindRateOnOrBefore(ctx context.Context, from, to string, at time.Time) (*domain.ExchangeRate, error) {
	query := `
		SELECT ` + selectRateFields + `
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2 AND effective_at <= $3
		ORDER BY effective_at DESC, created_at DESC
		LIMIT 1;
	`
	rate, err := scanRate(r.Pool.QueryRow(ctx, query, from, to, at))
	if err != nil {
		return nil, mapPgError(err, "no exchange rate for "+from+"/"+to)
	}
	return &rate, nil
}

// ListRates lists the history of a pair, newest first.
func (r *PgxExchangeRateRepository) ListRates(ctx context.Context, from, to string, limit int) ([]domain.ExchangeRate, error) {
	query := `
		SELECT ` + selectRateFields + `
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2
		ORDER BY effective_at DESC, created_at DESC
		LIMIT $3;
	`
	rows, err := r.Pool.Query(ctx, query, from, to, pagination.Limit(limit, 50, 500))
	if err != nil {
		return nil, mapPgError(err, "failed to list exchange rates for "+from+"/"+to)
	}
	defer rows.Close()

	rates := []domain.ExchangeRate{}
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan exchange rate row")
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "error iterating exchange rate rows")
	}
	return rates, nil
}
