package pgsql

import (
	"context"
	"database/sql"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxCurrencyPolicyRepository struct {
	BaseRepository
}

// newPgxCurrencyPolicyRepository creates a new repository for currency policies.
func newPgxCurrencyPolicyRepository(pool *pgxpool.Pool) *PgxCurrencyPolicyRepository {
	return &PgxCurrencyPolicyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CurrencyPolicyRepositoryFacade = (*PgxCurrencyPolicyRepository)(nil)

const selectPolicyFields = `
	policy_id, name, policy_type, conversion_timing, reference_currency,
	allow_multi_currency_balances, revaluation_enabled, revaluation_frequency, exchange_rate_source, is_active,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanPolicy(row pgx.Row) (domain.CurrencyPolicy, error) {
	var p domain.CurrencyPolicy
	var frequency sql.NullString
	err := row.Scan(
		&p.PolicyID,
		&p.Name,
		&p.PolicyType,
		&p.ConversionTiming,
		&p.ReferenceCurrency,
		&p.AllowMultiCurrencyBalances,
		&p.RevaluationEnabled,
		&frequency,
		&p.ExchangeRateSource,
		&p.IsActive,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	p.RevaluationFrequency = frequency.String
	return p, err
}

// FindActivePolicy returns the single active policy. The partial unique index on
// is_active guarantees at most one row.
func (r *PgxCurrencyPolicyRepository) FindActivePolicy(ctx context.Context) (*domain.CurrencyPolicy, error) {
	p, err := scanPolicy(r.Pool.QueryRow(ctx, `SELECT `+selectPolicyFields+` FROM currency_policies WHERE is_active;`))
	if err != nil {
		return nil, mapPgError(err, "no active currency policy")
	}
	return &p, nil
}

func (r *PgxCurrencyPolicyRepository) FindPolicyByID(ctx context.Context, policyID string) (*domain.CurrencyPolicy, error) {
	p, err := scanPolicy(r.Pool.QueryRow(ctx, `SELECT `+selectPolicyFields+` FROM currency_policies WHERE policy_id = $1;`, policyID))
	if err != nil {
		return nil, mapPgError(err, "currency policy "+policyID+" not found")
	}
	return &p, nil
}

func (r *PgxCurrencyPolicyRepository) ListPolicies(ctx context.Context) ([]domain.CurrencyPolicy, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+selectPolicyFields+` FROM currency_policies ORDER BY is_active DESC, created_at DESC;`)
	if err != nil {
		return nil, mapPgError(err, "failed to list currency policies")
	}
	defer rows.Close()

	policies := []domain.CurrencyPolicy{}
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan currency policy row")
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "error iterating currency policy rows")
	}
	return policies, nil
}

// SavePolicy inserts a policy. New policies start inactive.
func (r *PgxCurrencyPolicyRepository) SavePolicy(ctx context.Context, policy domain.CurrencyPolicy) error {
	query := `
		INSERT INTO currency_policies (policy_id, name, policy_type, conversion_timing, reference_currency,
		                               allow_multi_currency_balances, revaluation_enabled, revaluation_frequency,
		                               exchange_rate_source, is_active, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		policy.PolicyID,
		policy.Name,
		policy.PolicyType,
		policy.ConversionTiming,
		policy.ReferenceCurrency,
		policy.AllowMultiCurrencyBalances,
		policy.RevaluationEnabled,
		nullString(policy.RevaluationFrequency),
		policy.ExchangeRateSource,
		policy.CreatedAt,
		policy.CreatedBy,
		policy.LastUpdatedAt,
		policy.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, "failed to save currency policy "+policy.Name)
	}
	return nil
}

// ActivatePolicy switches the active policy in one transaction.
func (r *PgxCurrencyPolicyRepository) ActivatePolicy(ctx context.Context, policyID string, actorID string, at time.Time) (*domain.CurrencyPolicy, error) {
	var activated domain.CurrencyPolicy
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := scanPolicy(tx.QueryRow(ctx,
				`SELECT `+selectPolicyFields+` FROM currency_policies WHERE policy_id = $1 FOR UPDATE;`, policyID)); err != nil {
				return mapPgError(err, "currency policy "+policyID+" not found")
			}
			if _, err := tx.Exec(ctx, `
				UPDATE currency_policies
				SET is_active = FALSE, last_updated_at = $2, last_updated_by = $3
				WHERE is_active AND policy_id <> $1;
			`, policyID, at, actorID); err != nil {
				return mapPgError(err, "failed to deactivate currency policies")
			}
			var err error
			activated, err = scanPolicy(tx.QueryRow(ctx, `
				UPDATE currency_policies
				SET is_active = TRUE, last_updated_at = $2, last_updated_by = $3
				WHERE policy_id = $1
				RETURNING `+selectPolicyFields+`;
			`, policyID, at, actorID))
			return mapPgError(err, "failed to activate currency policy "+policyID)
		})
	})
	if err != nil {
		return nil, err
	}
	return &activated, nil
}
